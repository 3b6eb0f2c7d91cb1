// Package models defines core data structures for index documents, index types, and query requests.
package models

// Document is an index-ready representation of one entity instance.
type Document struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Fields []Field `json:"fields"`
}

// Field is a single (name, index type, value) entry of a Document.
// A multi-valued member produces one Field per element, all sharing the same name.
type Field struct {
	Name      string    `json:"name"`
	IndexType IndexType `json:"index_type"`
	Value     any       `json:"value"`
}

// FieldNames returns the distinct field names of d in first-seen order.
func (d *Document) FieldNames() []string {
	seen := make(map[string]struct{}, len(d.Fields))
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		names = append(names, f.Name)
	}
	return names
}

// Values returns all values stored under name, in document order.
func (d *Document) Values(name string) []any {
	var out []any
	for _, f := range d.Fields {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}
