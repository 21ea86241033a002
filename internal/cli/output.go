package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// PrintValue prints a single named value. Text output is the bare value so
// it can be captured by shell scripts.
func (p *Printer) PrintValue(name, value string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{name: value})
	case OutputFormatText:
		_, err := fmt.Fprintln(p.writer, value)
		return err
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintFields prints fields sorted by name.
func (p *Printer) PrintFields(fields map[string]any) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(fields)
	case OutputFormatText:
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := fmt.Fprintf(p.writer, "%s: %v\n", name, textValue(fields[name])); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

func (p *Printer) printJSON(v any) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// textValue renders composite claim values as JSON and everything else with
// %v. Decoded numbers are json.Number and print as written.
func textValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return v
		}
		return string(raw)
	default:
		return v
	}
}
