package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// OutputFormat is the value of the global --output flag.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value. Empty means text.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// Texter is implemented by command results that render themselves for a
// terminal. Results without it are printed with %v.
type Texter interface {
	Text() string
}

// Formatter writes a command result in one output format.
type Formatter interface {
	Format(data any) ([]byte, error)
	FormatTo(w io.Writer, data any) error
}

// TextFormatter prints Texter results, always ending in a newline.
type TextFormatter struct{}

func (f *TextFormatter) Format(data any) ([]byte, error) { return render(f, data) }

func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	s := fmt.Sprintf("%v", data)
	if t, ok := data.(Texter); ok {
		s = t.Text()
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

// JSONFormatter encodes results as one JSON document per call.
type JSONFormatter struct {
	Indent bool
}

// Format returns the document without a trailing newline.
func (f *JSONFormatter) Format(data any) ([]byte, error) {
	b, err := render(f, data)
	return bytes.TrimSuffix(b, []byte("\n")), err
}

func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

func render(f Formatter, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.FormatTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewFormatter returns the formatter for format, falling back to text.
func NewFormatter(format OutputFormat) Formatter {
	if format == FormatJSON {
		return &JSONFormatter{Indent: true}
	}
	return &TextFormatter{}
}
