package query

import (
	"reflect"
	"testing"
)

func BenchmarkCompiler_Compile(b *testing.B) {
	c := newCompiler()
	typ := reflect.TypeOf(profile{})
	q := New().Gt("age", 18).Raw("AND").In("name", "alice", "bob", "carol").Like("bio", "gopher").Build()
	if _, err := c.Compile(typ, q); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Compile(typ, q)
	}
}
