package rowcsv_test

import (
	"fmt"
	"os"
	"strings"

	"github.com/oleg578/rowcsv"
)

type Order struct {
	ID    int
	Item  string
	Price float64
}

func orderDescriber() *rowcsv.ManualTypeDescriber {
	d := rowcsv.NewManualTypeDescriber()
	_ = rowcsv.AddColumn(d, "id", func(o Order) int { return o.ID }, func(o *Order, v int) { o.ID = v })
	_ = rowcsv.AddColumn(d, "item", func(o Order) string { return o.Item }, func(o *Order, v string) { o.Item = v })
	_ = rowcsv.AddColumn(d, "price", func(o Order) float64 { return o.Price }, func(o *Order, v float64) { o.Price = v })
	return d
}

func ExampleBound_NewWriter() {
	opts, err := rowcsv.NewOptions(rowcsv.WithRowEnding(rowcsv.RowEndingLF))
	if err != nil {
		panic(err)
	}
	bound, err := rowcsv.Bind[Order](orderDescriber(), opts)
	if err != nil {
		panic(err)
	}

	w := bound.NewWriter(os.Stdout, nil)
	_ = w.Write(Order{ID: 1, Item: "widget", Price: 9.5})
	_ = w.Write(Order{ID: 2, Item: "gadget, large", Price: 120})
	if err := w.Close(); err != nil {
		panic(err)
	}
	// Output:
	// id,item,price
	// 1,widget,9.5
	// 2,"gadget, large",120
}

func ExampleBound_NewReader() {
	bound, err := rowcsv.Bind[Order](orderDescriber(), nil)
	if err != nil {
		panic(err)
	}

	input := "price,id,item\r\n2.25,7,\"bolt \"\"M4\"\"\"\r\n"
	r := bound.NewReader(strings.NewReader(input), nil)
	for order, err := range r.All() {
		if err != nil {
			panic(err)
		}
		fmt.Printf("%d %s %.2f\n", order.ID, order.Item, order.Price)
	}
	// Output:
	// 7 bolt "M4" 2.25
}

func ExampleRecordReader() {
	opts, _ := rowcsv.NewOptions(rowcsv.WithSeparator(';'), rowcsv.WithComment('#'))
	r := rowcsv.NewRecordReader(strings.NewReader("# inventory\na;b\n\"c;d\";e\n"), opts)
	r.OnComment = func(text string) error {
		fmt.Printf("comment: %q\n", text)
		return nil
	}
	records, err := r.ReadAll()
	if err != nil {
		panic(err)
	}
	fmt.Println(records)
	// Output:
	// comment: " inventory"
	// [[a b] [c;d e]]
}
