package logging

import (
	"log/slog"
)

// Redacted replaces masked values.
const Redacted = "[REDACTED]"

// Redactor masks sensitive borrower attributes in log output.
type Redactor struct {
	fields map[string]bool
}

// NewRedactor creates a redactor for the named record fields.
func NewRedactor(fields []string) *Redactor {
	r := &Redactor{fields: make(map[string]bool, len(fields))}
	for _, f := range fields {
		r.fields[f] = true
	}
	return r
}

// Enabled reports whether any field is masked.
func (r *Redactor) Enabled() bool {
	return r != nil && len(r.fields) > 0
}

// Record returns a copy of rec with masked fields replaced. The input is
// never modified.
func (r *Redactor) Record(rec map[string]any) map[string]any {
	if rec == nil {
		return nil
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if r.Enabled() && r.fields[k] {
			out[k] = Redacted
			continue
		}
		out[k] = v
	}
	return out
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook masking attributes
// whose key is a redacted field, at any group depth, and map-valued
// attributes holding such fields.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if !r.Enabled() {
		return a
	}
	if r.fields[a.Key] {
		return slog.String(a.Key, Redacted)
	}
	if a.Value.Kind() == slog.KindAny {
		if m, ok := a.Value.Any().(map[string]any); ok {
			return slog.Any(a.Key, r.Record(m))
		}
	}
	return a
}
