package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the output format for CLI commands.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatText prints values that implement TextWriter in a
	// human-readable form and falls back to YAML for everything else.
	OutputFormatText OutputFormat = "text"
)

// TextWriter is implemented by values with a plain-text rendering.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// DefaultOutput is the default output format.
var DefaultOutput OutputFormat = OutputFormatYAML

// globalOutputFormat is set by the root command's --output flag.
var globalOutputFormat OutputFormat = OutputFormatYAML

// SetOutputFormat sets the global output format.
func SetOutputFormat(format string) {
	switch OutputFormat(format) {
	case OutputFormatJSON, OutputFormatYAML, OutputFormatText:
		globalOutputFormat = OutputFormat(format)
	default:
		globalOutputFormat = DefaultOutput
	}
}

// GetOutputFormat returns the current global output format.
func GetOutputFormat() OutputFormat {
	return globalOutputFormat
}

// Output writes data to stdout in the configured format.
func Output(data any) error {
	return OutputTo(os.Stdout, globalOutputFormat, data)
}

// OutputTo writes data to the given writer in the specified format.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case OutputFormatText:
		if tw, ok := data.(TextWriter); ok {
			return tw.WriteText(w)
		}
		return OutputTo(w, OutputFormatYAML, data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
