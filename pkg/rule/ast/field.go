package ast

import (
	"fmt"
	"math"
	"sort"
)

// FieldType is the semantic type of a borrower field.
type FieldType string

const (
	FieldTypeNumeric     FieldType = "numeric"
	FieldTypeCategorical FieldType = "categorical"
)

// ValueType returns the constant type a field of this type compares against.
func (t FieldType) ValueType() ValueType {
	if t == FieldTypeCategorical {
		return ValueTypeString
	}
	return ValueTypeNumber
}

// Domain is the closed range of values a numeric field can take.
type Domain struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v lies within the domain.
func (d Domain) Contains(v float64) bool {
	return v >= d.Min && v <= d.Max
}

// String returns the domain in interval notation.
func (d Domain) String() string {
	return fmt.Sprintf("[%g, %g]", d.Min, d.Max)
}

// FieldInfo describes one whitelisted borrower field.
type FieldInfo struct {
	Name        string
	Type        FieldType
	Domain      Domain // numeric fields only
	Description string
}

// Catalog is the whitelist of borrower fields a rule may reference.
// A Catalog is immutable once built and safe for concurrent use.
type Catalog struct {
	fields map[string]FieldInfo
	names  []string
}

// NewCatalog builds a catalog from the given fields. Later entries replace
// earlier ones with the same name.
func NewCatalog(fields ...FieldInfo) (*Catalog, error) {
	c := &Catalog{fields: make(map[string]FieldInfo, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field name cannot be empty")
		}
		switch f.Type {
		case FieldTypeNumeric:
			if math.IsNaN(f.Domain.Min) || math.IsNaN(f.Domain.Max) || f.Domain.Min > f.Domain.Max {
				return nil, fmt.Errorf("field %q: invalid domain %s", f.Name, f.Domain)
			}
		case FieldTypeCategorical:
		default:
			return nil, fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
		c.fields[f.Name] = f
	}
	for name := range c.fields {
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c, nil
}

// DefaultFields returns the standard borrower attributes.
func DefaultFields() []FieldInfo {
	return []FieldInfo{
		{Name: "credit_score", Type: FieldTypeNumeric, Domain: Domain{Min: 300, Max: 900}, Description: "Bureau credit score"},
		{Name: "income", Type: FieldTypeNumeric, Domain: Domain{Min: 0, Max: 1e12}, Description: "Monthly income"},
		{Name: "age", Type: FieldTypeNumeric, Domain: Domain{Min: 0, Max: 100}, Description: "Age in years"},
		{Name: "occupation", Type: FieldTypeCategorical, Description: "Occupation category"},
		{Name: "overdue_amount", Type: FieldTypeNumeric, Domain: Domain{Min: 0, Max: 1e12}, Description: "Total overdue amount"},
		{Name: "active_loans", Type: FieldTypeNumeric, Domain: Domain{Min: 0, Max: 1000}, Description: "Number of active loans"},
		{Name: "dpd", Type: FieldTypeNumeric, Domain: Domain{Min: 0, Max: 3650}, Description: "Days past due"},
	}
}

var defaultCatalog = mustCatalog(DefaultFields()...)

func mustCatalog(fields ...FieldInfo) *Catalog {
	c, err := NewCatalog(fields...)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultCatalog returns the catalog of standard borrower attributes.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// Lookup returns the field with the given name.
func (c *Catalog) Lookup(name string) (FieldInfo, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// Names returns the sorted field names.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Fields returns every field, sorted by name.
func (c *Catalog) Fields() []FieldInfo {
	out := make([]FieldInfo, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.fields[n])
	}
	return out
}

// WithDomains returns a copy of the catalog with the numeric domains of the
// named fields replaced.
func (c *Catalog) WithDomains(domains map[string]Domain) (*Catalog, error) {
	fields := c.Fields()
	for name, d := range domains {
		f, ok := c.fields[name]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		if f.Type != FieldTypeNumeric {
			return nil, fmt.Errorf("field %q is not numeric", name)
		}
		f.Domain = d
		fields = append(fields, f)
	}
	return NewCatalog(fields...)
}
