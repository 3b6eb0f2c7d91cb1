package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/hyperjump/fieldmap/internal/convert"
	"github.com/hyperjump/fieldmap/internal/search"
)

// ErrEmptyCollection is returned for a predicate whose collection value has no elements.
var ErrEmptyCollection = errors.New("collection value is empty")

// Compiler renders queries against the search metadata of an entity type.
type Compiler struct {
	meta *search.Metadata
	conv convert.Converter
}

// NewCompiler creates a compiler.
func NewCompiler(meta *search.Metadata, conv convert.Converter) *Compiler {
	return &Compiler{meta: meta, conv: conv}
}

// Compile renders q for entityType. Fragments are joined by single spaces in their
// original order.
func (c *Compiler) Compile(entityType reflect.Type, q Query) (string, error) {
	parts := make([]string, 0, len(q.Fragments))
	for i, f := range q.Fragments {
		s, err := c.compileFragment(entityType, f)
		if err != nil {
			return "", fmt.Errorf("fragment %d: %w", i, err)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "), nil
}

// Compile is the generic form of Compiler.Compile.
func Compile[T any](c *Compiler, q Query) (string, error) {
	return c.Compile(reflect.TypeOf((*T)(nil)).Elem(), q)
}

func (c *Compiler) compileFragment(entityType reflect.Type, f Fragment) (string, error) {
	switch f := f.(type) {
	case Value:
		return f.Text, nil
	case *Value:
		return f.Text, nil
	case Predicate:
		return c.compilePredicate(entityType, f)
	case *Predicate:
		return c.compilePredicate(entityType, *f)
	default:
		return "", fmt.Errorf("unsupported fragment %T", f)
	}
}

func (c *Compiler) compilePredicate(entityType reflect.Type, p Predicate) (string, error) {
	name, err := c.meta.EncodeFieldName(entityType, p.Field)
	if err != nil {
		return "", err
	}
	if values, ok := elements(p.Value); ok {
		if len(values) == 0 {
			return "", fmt.Errorf("field %q: %w", p.Field, ErrEmptyCollection)
		}
		rendered := make([]string, len(values))
		for i, v := range values {
			if rendered[i], err = c.renderValue(v); err != nil {
				return "", fmt.Errorf("field %q: %w", p.Field, err)
			}
		}
		return name + ":(" + strings.Join(rendered, " OR ") + ")", nil
	}

	value, err := c.renderValue(p.Value)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", p.Field, err)
	}
	if p.Op == Like {
		return name + ":~" + value, nil
	}
	return name + p.Op.Symbol() + value, nil
}

// renderValue converts v to its display form and quotes it.
func (c *Compiler) renderValue(v any) (string, error) {
	raw, err := c.conv.Convert(v, convert.String)
	if err != nil {
		return "", err
	}
	s, _ := raw.(string)
	return Quote(s), nil
}

// Quote backslash-escapes embedded backslashes and double quotes and wraps s in double
// quotes. Backslashes go first so a trailing one cannot escape the closing quote.
func Quote(s string) string {
	return `"` + quoteEscaper.Replace(s) + `"`
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
