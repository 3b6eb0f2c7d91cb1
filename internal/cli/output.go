// Package cli provides CLI output helpers for fieldmap.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/fieldmap/internal/metadata"
	"github.com/hyperjump/fieldmap/internal/models"
	"github.com/hyperjump/fieldmap/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const maxValueLen = 60

// ParseOutputFormat parses a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// FieldRow is the printable form of one searchable field.
type FieldRow struct {
	Name        string           `json:"name"`
	EncodedName string           `json:"encoded_name"`
	IndexType   models.IndexType `json:"index_type"`
	Multiple    bool             `json:"multiple"`
	Member      string           `json:"member"`
}

// FieldRows converts the fields of e for output.
func FieldRows(e *metadata.Entity) []FieldRow {
	rows := make([]FieldRow, 0, len(e.Fields()))
	for _, f := range e.Fields() {
		member := f.Member.Name
		if f.Member.Getter {
			member += "()"
		}
		rows = append(rows, FieldRow{
			Name:        f.Name,
			EncodedName: f.EncodedName,
			IndexType:   f.IndexType,
			Multiple:    f.Multiple,
			Member:      member,
		})
	}
	return rows
}

// WriteFields writes the searchable fields of e to w in the given format.
func WriteFields(w io.Writer, e *metadata.Entity, format OutputFormat) error {
	rows := FieldRows(e)
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{
			"type":   e.Name(),
			"id":     e.ID.Member.Name,
			"fields": rows,
		})
	}
	fmt.Fprintf(w, "%s (id: %s)\n\n", e.Name(), e.ID.Member.Name)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tENCODED\tTYPE\tMULTIPLE\tMEMBER")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", r.Name, r.EncodedName, r.IndexType, r.Multiple, r.Member)
	}
	return tw.Flush()
}

// WriteDocument writes a built document to w in the given format.
func WriteDocument(w io.Writer, doc *models.Document, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, doc)
	}
	fmt.Fprintf(w, "%s/%s\n", doc.Type, doc.ID)
	types := make(map[string]models.IndexType, len(doc.Fields))
	for _, f := range doc.Fields {
		if _, ok := types[f.Name]; !ok {
			types[f.Name] = f.IndexType
		}
	}
	// One row per field name; the elements of a multi-valued member share it.
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range doc.FieldNames() {
		values := doc.Values(name)
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = "<nil>"
			if v != nil {
				parts[i] = utils.Truncate(fmt.Sprint(v), maxValueLen)
			}
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", name, types[name], strings.Join(parts, ", "))
	}
	return tw.Flush()
}

// WriteQuery writes a compiled query string to w in the given format.
func WriteQuery(w io.Writer, query string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]string{"query": query})
	}
	_, err := fmt.Fprintln(w, query)
	return err
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
