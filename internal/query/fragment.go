// Package query models query descriptions as fragment sequences and compiles them
// into the search service's textual query grammar.
package query

import (
	"fmt"
	"reflect"
	"strings"
)

// Operator is a predicate comparison operator.
type Operator int

const (
	Equal Operator = iota
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	Is
	In
	Near
	Like
)

var operatorSymbols = [...]string{
	Equal:              "=",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	Is:                 "is",
	In:                 "in",
	Near:               "near",
	Like:               "like",
}

// Symbol returns the operator's token in the query grammar.
func (op Operator) Symbol() string {
	if op < 0 || int(op) >= len(operatorSymbols) {
		return "?"
	}
	return operatorSymbols[op]
}

func (op Operator) String() string {
	return op.Symbol()
}

// ParseOperator parses an operator symbol. Word operators are matched case-insensitively.
func ParseOperator(s string) (Operator, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for op, sym := range operatorSymbols {
		if sym == s {
			return Operator(op), nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", s)
}

// Fragment is one element of a query: a Value or a Predicate.
type Fragment interface {
	isFragment()
}

// Value is raw query text, emitted unchanged. The caller is responsible for escaping it.
type Value struct {
	Text string
}

func (Value) isFragment() {}

// Predicate compares a field with a value. A collection value compiles to a disjunction.
type Predicate struct {
	Field string
	Op    Operator
	Value any
}

func (Predicate) isFragment() {}

// Collection marks a predicate value as multi-valued.
type Collection []any

// Many returns values as a Collection.
func Many(values ...any) Collection {
	return Collection(values)
}

// elements returns the elements of a collection value and whether v is one.
// Byte slices are scalars.
func elements(v any) ([]any, bool) {
	switch c := v.(type) {
	case Collection:
		return c, true
	case []any:
		return c, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Query is an ordered sequence of fragments. Order is significant and preserved.
type Query struct {
	Fragments []Fragment
}
