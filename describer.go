package rowcsv

import (
	"reflect"
	"sync"
)

// TypeDescriber maps a row type to its binding set.
//
// Implementations may inspect types at runtime, return generated bindings, or be filled in by
// hand; the engines only consume the results.
type TypeDescriber interface {
	InstanceProvider(rowType reflect.Type) (InstanceProvider, error)
	SerializableMembers(rowType reflect.Type) ([]SerializableMember, error)
	DeserializableMembers(rowType reflect.Type) ([]DeserializableMember, error)
}

type manualType struct {
	provider InstanceProvider
	ser      []SerializableMember
	deser    []DeserializableMember
}

// ManualTypeDescriber is a TypeDescriber populated by explicit registration.
// Rows without a registered InstanceProvider are created as zero values.
type ManualTypeDescriber struct {
	types map[reflect.Type]*manualType
	mu    sync.RWMutex
}

// NewManualTypeDescriber returns an empty ManualTypeDescriber.
func NewManualTypeDescriber() *ManualTypeDescriber {
	return &ManualTypeDescriber{types: make(map[reflect.Type]*manualType)}
}

func (d *ManualTypeDescriber) entry(rowType reflect.Type) *manualType {
	e, ok := d.types[rowType]
	if !ok {
		e = &manualType{}
		d.types[rowType] = e
	}
	return e
}

// SetInstanceProvider registers p for p.RowType().
func (d *ManualTypeDescriber) SetInstanceProvider(p InstanceProvider) error {
	if p.IsZero() {
		return argumentError(OpBind, "instance provider is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entry(p.row).provider = p
	return nil
}

// AddSerializableMember appends m to the written columns of m.RowType().
func (d *ManualTypeDescriber) AddSerializableMember(m SerializableMember) error {
	if m.rowType == nil {
		return argumentError(OpBind, "serializable member is not initialised")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.entry(m.rowType)
	e.ser = append(e.ser, m)
	return nil
}

// AddDeserializableMember appends m to the read columns of m.RowType().
func (d *ManualTypeDescriber) AddDeserializableMember(m DeserializableMember) error {
	if m.rowType == nil {
		return argumentError(OpBind, "deserializable member is not initialised")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.entry(m.rowType)
	e.deser = append(e.deser, m)
	return nil
}

func (d *ManualTypeDescriber) InstanceProvider(rowType reflect.Type) (InstanceProvider, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.types[rowType]; ok && !e.provider.IsZero() {
		return e.provider, nil
	}
	return zeroInstanceProvider(rowType), nil
}

func (d *ManualTypeDescriber) SerializableMembers(rowType reflect.Type) ([]SerializableMember, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.types[rowType]; ok {
		return append([]SerializableMember(nil), e.ser...), nil
	}
	return nil, nil
}

func (d *ManualTypeDescriber) DeserializableMembers(rowType reflect.Type) ([]DeserializableMember, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.types[rowType]; ok {
		return append([]DeserializableMember(nil), e.deser...), nil
	}
	return nil, nil
}

// AddColumn registers a column named name on rows of type T that is both written through get
// and read through set, using the default formatter and parser for V.
// A nil get or set registers only the other direction.
func AddColumn[T, V any](d *ManualTypeDescriber, name string, get func(T) V, set func(*T, V)) error {
	rowType := reflect.TypeFor[T]()
	valueType := reflect.TypeFor[V]()
	if get != nil {
		f, ok := DefaultFormatter(valueType)
		if !ok {
			return configError(OpBind, "no default formatter for %v", valueType)
		}
		m, err := NewSerializableMember(rowType, name, GetterFunc(name, get), f, ShouldSerialize{}, EmitDefaultValueYes)
		if err != nil {
			return err
		}
		if err := d.AddSerializableMember(m); err != nil {
			return err
		}
	}
	if set != nil {
		p, ok := DefaultParser(valueType)
		if !ok {
			return configError(OpBind, "no default parser for %v", valueType)
		}
		m, err := NewDeserializableMember(rowType, name, p, SetterFunc(name, set), Reset{}, false)
		if err != nil {
			return err
		}
		if err := d.AddDeserializableMember(m); err != nil {
			return err
		}
	}
	return nil
}
