package query

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hyperjump/fieldmap/internal/convert"
	"github.com/hyperjump/fieldmap/internal/metadata"
	"github.com/hyperjump/fieldmap/internal/models"
	"github.com/hyperjump/fieldmap/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID       string          `searchid:"" search:"id"`
	Name     string          `search:"name"`
	Age      int             `search:"age"`
	Bio      string          `search:"bio"`
	Joined   time.Time       `search:"joined on"`
	Home     models.GeoPoint `search:"home"`
	Verified bool            `search:"verified"`
}

func newCompiler() *Compiler {
	meta := search.NewMetadata(metadata.NewRegistry(nil))
	return NewCompiler(meta, convert.New())
}

func TestCompiler_Scenarios(t *testing.T) {
	c := newCompiler()
	tests := []struct {
		name  string
		query Query
		want  string
	}{
		{"greater than", New().Where("age", GreaterThan, 3).Build(), `age>"3"`},
		{"in collection", New().Where("id", In, []string{"a", "b"}).Build(), `id:("a" OR "b")`},
		{"like", New().Where("bio", Like, "cat").Build(), `bio:~"cat"`},
		{"embedded quotes", New().Eq("name", `Alice "the great"`).Build(), `name="Alice \"the great\""`},
		{"less or equal", New().Lte("age", 65).Build(), `age<="65"`},
		{"greater or equal", New().Gte("age", 18).Build(), `age>="18"`},
		{"less than", New().Lt("age", 2.5).Build(), `age<"2.5"`},
		{"is", New().Where("verified", Is, true).Build(), `verifiedis"true"`},
		{"in scalar", New().Where("name", In, "x").Build(), `namein"x"`},
		{"near", New().Where("home", Near, models.GeoPoint{Lat: 1, Lon: 2}).Build(), `homenear"1,2"`},
		{"encoded name", New().Eq("joined on", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)).Build(), `joined_on="2024-01-02"`},
		{"in helper", New().In("name", "x", `y"z`).Build(), `name:("x" OR "y\"z")`},
		{"collection with other op", New().Eq("age", Many(1, 2, 3)).Build(), `age:("1" OR "2" OR "3")`},
		{"raw passthrough", New().Raw(`(a OR b)`).Build(), `(a OR b)`},
		{"conjunction", New().Gt("age", 3).Raw("NOT").Like("bio", "dog").Build(), `age>"3" NOT bio:~"dog"`},
		{"empty query", New().Build(), ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Compile(reflect.TypeOf(profile{}), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompiler_PreservesOrder(t *testing.T) {
	c := newCompiler()
	a := Predicate{Field: "age", Op: GreaterThan, Value: 3}
	b := Predicate{Field: "name", Op: Equal, Value: "x"}

	ab, err := Compile[profile](c, Query{Fragments: []Fragment{a, b}})
	require.NoError(t, err)
	ba, err := Compile[profile](c, Query{Fragments: []Fragment{b, a}})
	require.NoError(t, err)

	assert.Equal(t, `age>"3" name="x"`, ab)
	assert.Equal(t, `name="x" age>"3"`, ba)
	assert.NotEqual(t, ab, ba)
}

func TestCompiler_UnknownField(t *testing.T) {
	c := newCompiler()
	_, err := Compile[profile](c, New().Eq("nickname", "x").Build())
	require.Error(t, err)
	assert.True(t, errors.Is(err, metadata.ErrUnknownField))
	assert.Contains(t, err.Error(), "nickname")
	assert.Contains(t, err.Error(), "query.profile")

	// encoded names are not accepted in place of declared names
	_, err = Compile[profile](c, New().Eq("joined_on", "x").Build())
	assert.True(t, errors.Is(err, metadata.ErrUnknownField))
}

func TestCompiler_EmptyCollection(t *testing.T) {
	c := newCompiler()
	_, err := Compile[profile](c, New().In("id").Build())
	assert.True(t, errors.Is(err, ErrEmptyCollection))
}

type failingConverter struct{}

var errConvert = errors.New("boom")

func (failingConverter) Convert(any, convert.Target) (any, error) { return nil, errConvert }

func TestCompiler_ConversionErrorsPropagate(t *testing.T) {
	c := NewCompiler(search.NewMetadata(metadata.NewRegistry(nil)), failingConverter{})
	_, err := Compile[profile](c, New().Eq("name", "x").Build())
	assert.True(t, errors.Is(err, errConvert))
	_, err = Compile[profile](c, New().In("name", "x").Build())
	assert.True(t, errors.Is(err, errConvert))
}

func TestCompiler_PointerFragments(t *testing.T) {
	c := newCompiler()
	got, err := Compile[profile](c, Query{Fragments: []Fragment{&Value{Text: "x"}, &Predicate{Field: "age", Op: Equal, Value: 1}}})
	require.NoError(t, err)
	assert.Equal(t, `x age="1"`, got)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `""`, Quote(""))
	assert.Equal(t, `"plain"`, Quote("plain"))
	assert.Equal(t, `"say \"hi\""`, Quote(`say "hi"`))
	assert.Equal(t, `"a\\"`, Quote(`a\`))
	assert.Equal(t, `"C:\\tmp \"x\""`, Quote(`C:\tmp "x"`))
}
