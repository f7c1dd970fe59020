// Command wireinspect dumps a raw protobuf wire-format message field by
// field, with no schema required. It reads a single length-prefixed (or
// unframed) message from a file or stdin and prints a tree of field
// numbers, wire types and values.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gowire/protolite"
	"github.com/gowire/protolite/logging"
	"github.com/gowire/protolite/wire"
)

var (
	inputPath string
	framing   string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "wireinspect",
	Short: "Dump a raw protobuf wire-format message, field by field",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&inputPath, "in", "-", "input file path, or - for stdin")
	rootCmd.Flags().StringVar(&framing, "framing", "none", "stream-level length prefix: none|base128|fixed32|fixed32be")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "log decode progress")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	style, err := parseFraming(framing)
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("opening %s: %w", inputPath, err)
		}
		defer f.Close()
		r = f
	}

	log := logging.New(logging.Options{Stdout: true, Level: string(logging.LevelInfo)})
	if verbose {
		log.Infof("decoding %s with framing=%s", inputPath, framing)
	}

	opts := wire.DefaultOptions()
	fields, err := protolite.DecodeStreamSync(r, style, opts)
	if err != nil && err != io.EOF {
		return fmt.Errorf("decode failed: %w", err)
	}

	printFields(fields, 0)
	return nil
}

func parseFraming(s string) (wire.PrefixStyle, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return wire.PrefixNone, nil
	case "base128":
		return wire.PrefixBase128, nil
	case "fixed32":
		return wire.PrefixFixed32, nil
	case "fixed32be":
		return wire.PrefixFixed32BigEndian, nil
	default:
		return 0, fmt.Errorf("unknown framing style %q", s)
	}
}

func printFields(fields []protolite.RawField, indent int) {
	prefix := strings.Repeat("  ", indent)
	for _, f := range fields {
		if f.Nested != nil {
			fmt.Printf("%sfield %d (wiretype=%d, submessage):\n", prefix, f.Number, f.WireType)
			printFields(f.Nested, indent+1)
			continue
		}
		fmt.Printf("%sfield %d (wiretype=%d) = %v\n", prefix, f.Number, f.WireType, f.Scalar)
	}
}
