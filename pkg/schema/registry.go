// Package schema exposes the read-only table/column registry and the
// textual blobs (schema summary, data dictionary) that ground LLM prompts.
package schema

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// Table is one warehouse table with its ordered column list.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

// Registry answers table and column lookups case-insensitively while
// preserving canonical casing for output. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	tables         map[string]Table // keyed by normalized name
	order          []string         // canonical names in feed order
	schemaText     string
	dictionaryText string
}

// NewRegistry builds a registry from a table list and the two opaque blobs.
// An empty schemaText is replaced with a generated per-table summary.
func NewRegistry(tables []Table, schemaText, dictionaryText string) *Registry {
	r := &Registry{
		tables:         make(map[string]Table, len(tables)),
		schemaText:     schemaText,
		dictionaryText: dictionaryText,
	}
	for _, t := range tables {
		key := normalizeName(t.Name)
		if _, exists := r.tables[key]; exists {
			continue
		}
		r.tables[key] = t
		r.order = append(r.order, t.Name)
	}
	if r.schemaText == "" {
		r.schemaText = summarize(tables)
	}
	return r
}

// normalizeName upper-cases and singularizes an identifier so that
// PIPELINES and pipeline resolve to the same table.
func normalizeName(name string) string {
	return strings.ToUpper(inflection.Singular(strings.TrimSpace(name)))
}

// summarize renders the short human-readable schema description handed to
// LLM prompts when the feed carries none.
func summarize(tables []Table) string {
	var b strings.Builder
	for _, t := range tables {
		cols := t.Columns
		suffix := ""
		if len(cols) > 10 {
			cols = cols[:10]
			suffix = ", ..."
		}
		fmt.Fprintf(&b, "Table: %s\nColumns: %s%s\n\n", t.Name, strings.Join(cols, ", "), suffix)
	}
	return strings.TrimSpace(b.String())
}

// Tables returns the canonical table names in feed order.
func (r *Registry) Tables() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// HasTable reports whether name resolves to a known table.
func (r *Registry) HasTable(name string) bool {
	_, ok := r.tables[normalizeName(name)]
	return ok
}

// CanonicalTable resolves a table reference to its canonical name.
func (r *Registry) CanonicalTable(name string) (string, bool) {
	t, ok := r.tables[normalizeName(name)]
	if !ok {
		return "", false
	}
	return t.Name, true
}

// Columns returns the ordered canonical column list for a table, or nil
// when the table is unknown.
func (r *Registry) Columns(table string) []string {
	t, ok := r.tables[normalizeName(table)]
	if !ok {
		return nil
	}
	out := make([]string, len(t.Columns))
	copy(out, t.Columns)
	return out
}

// CanonicalColumn resolves a column reference within a table to its
// canonical casing.
func (r *Registry) CanonicalColumn(table, column string) (string, bool) {
	t, ok := r.tables[normalizeName(table)]
	if !ok {
		return "", false
	}
	upper := strings.ToUpper(column)
	for _, c := range t.Columns {
		if strings.ToUpper(c) == upper {
			return c, true
		}
	}
	return "", false
}

// HasColumn reports whether table.column resolves case-insensitively.
func (r *Registry) HasColumn(table, column string) bool {
	_, ok := r.CanonicalColumn(table, column)
	return ok
}

// Empty reports whether the registry holds no tables.
func (r *Registry) Empty() bool {
	return len(r.order) == 0
}

// SchemaText returns the short human-readable schema summary.
func (r *Registry) SchemaText() string {
	return r.schemaText
}

// DictionaryText returns the opaque data-dictionary blob.
func (r *Registry) DictionaryText() string {
	return r.dictionaryText
}
