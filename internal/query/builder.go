package query

import (
	"fmt"

	"github.com/hyperjump/fieldmap/internal/models"
)

// Builder assembles a Query fluently:
//
//	q := query.New().Gt("age", 3).In("id", "a", "b").Raw("NOT draft").Build()
type Builder struct {
	fragments []Fragment
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Where appends a predicate.
func (b *Builder) Where(field string, op Operator, value any) *Builder {
	b.fragments = append(b.fragments, Predicate{Field: field, Op: op, Value: value})
	return b
}

// Raw appends pre-escaped query text.
func (b *Builder) Raw(text string) *Builder {
	b.fragments = append(b.fragments, Value{Text: text})
	return b
}

// Eq appends an equality predicate.
func (b *Builder) Eq(field string, value any) *Builder { return b.Where(field, Equal, value) }

// Lt appends a strictly-less-than predicate.
func (b *Builder) Lt(field string, value any) *Builder { return b.Where(field, LessThan, value) }

// Lte appends a less-than-or-equal predicate.
func (b *Builder) Lte(field string, value any) *Builder { return b.Where(field, LessThanOrEqual, value) }

// Gt appends a strictly-greater-than predicate.
func (b *Builder) Gt(field string, value any) *Builder { return b.Where(field, GreaterThan, value) }

// Gte appends a greater-than-or-equal predicate.
func (b *Builder) Gte(field string, value any) *Builder { return b.Where(field, GreaterThanOrEqual, value) }

// Like appends a fuzzy match predicate.
func (b *Builder) Like(field string, value any) *Builder { return b.Where(field, Like, value) }

// In appends a predicate matching any of values.
func (b *Builder) In(field string, values ...any) *Builder {
	return b.Where(field, In, Many(values...))
}

// Build returns the assembled query. The builder may keep being used; later calls do not
// affect queries already built.
func (b *Builder) Build() Query {
	return Query{Fragments: append([]Fragment(nil), b.fragments...)}
}

// FromRequest converts the JSON form of a query description into a Query.
func FromRequest(req *models.QueryRequest) (Query, error) {
	if err := req.Validate(); err != nil {
		return Query{}, err
	}
	b := New()
	for i, f := range req.Fragments {
		if f.IsRaw() {
			b.Raw(f.Raw)
			continue
		}
		op, err := ParseOperator(f.Op)
		if err != nil {
			return Query{}, fmt.Errorf("fragment %d: %w", i, err)
		}
		if f.Values != nil {
			b.Where(f.Field, op, Many(f.Values...))
		} else {
			b.Where(f.Field, op, f.Value)
		}
	}
	return b.Build(), nil
}
