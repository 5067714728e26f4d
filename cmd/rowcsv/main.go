// rowcsv re-encodes and validates CSV files.
//
// Usage:
//
//	rowcsv convert [--config FILE] [--keep-comments] [INPUT [OUTPUT]]
//	rowcsv check   [--config FILE] [INPUT]
//
// INPUT and OUTPUT default to stdin and stdout; "-" selects them explicitly. Paths ending in
// .zst are compressed or decompressed with zstd. The config file selects the input and output
// dialects (see package config).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/oleg578/rowcsv"
	"github.com/oleg578/rowcsv/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		printUsage(nil)
		return fmt.Errorf("missing command")
	}
	command, args := args[0], args[1:]

	var (
		configPath   string
		keepComments bool
		verbose      bool
	)
	flagSet := pflag.NewFlagSet("rowcsv "+command, pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "YAML file with input and output dialects")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	flagSet.BoolP("help", "h", false, "show help")
	if command == "convert" {
		flagSet.BoolVar(&keepComments, "keep-comments", false, "copy comment lines to the output")
	}

	switch command {
	case "convert", "check":
	case "help", "-h", "--help":
		printUsage(flagSet)
		return nil
	default:
		printUsage(nil)
		return fmt.Errorf("unknown command %q", command)
	}

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printUsage(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printUsage(flagSet)
		return nil
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	if verbose {
		rowcsv.SetLogger(logger.Named("rowcsv"))
	}

	cfg := &config.Config{}
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	inOpts, err := cfg.Input.Options()
	if err != nil {
		return fmt.Errorf("input dialect: %w", err)
	}
	outOpts, err := cfg.Output.Options()
	if err != nil {
		return fmt.Errorf("output dialect: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	positional := flagSet.Args()
	in, err := openInput(argAt(positional, 0))
	if err != nil {
		return err
	}
	defer in.Close()

	if command == "check" {
		st, err := check(ctx, in, inOpts)
		if err != nil {
			return err
		}
		fmt.Printf("records=%d comments=%d fields=%d\n", st.Records, st.Comments, st.Fields)
		return nil
	}

	out, err := createOutput(argAt(positional, 1))
	if err != nil {
		return err
	}
	st, err := convert(ctx, in, out, inOpts, outOpts, keepComments)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	logger.Info("converted", zap.Int("records", st.Records), zap.Int("comments", st.Comments))
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return "-"
}

func printUsage(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `rowcsv - re-encode and validate CSV files

Usage:
  rowcsv convert [flags] [INPUT [OUTPUT]]
  rowcsv check   [flags] [INPUT]

Paths ending in .zst are zstd-compressed. "-" means stdin/stdout.
`)
	if flagSet != nil {
		fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
	}
}
