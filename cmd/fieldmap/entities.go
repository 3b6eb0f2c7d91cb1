package main

import (
	"reflect"
	"strings"
	"time"

	"github.com/hyperjump/fieldmap/internal/indextype"
	"github.com/hyperjump/fieldmap/internal/metadata"
	"github.com/hyperjump/fieldmap/internal/models"
)

// ISBN is a book identifier. It is indexed verbatim wherever it appears.
type ISBN string

// Book is a catalog entry served by the bundled API.
type Book struct {
	ISBN      string          `json:"isbn" searchid:""`
	Title     string          `json:"title" search:"title"`
	Summary   string          `json:"summary" search:"summary,type=html"`
	Authors   []string        `json:"authors" search:"authors"`
	Pages     int             `json:"pages" search:"pages"`
	Published time.Time       `json:"published" search:"published"`
	Shop      models.GeoPoint `json:"shop" search:"shop location"`
	Category  *string         `json:"category" search:"category,type=identifier,emitnull"`
	Related   []ISBN          `json:"related" search:"related"`
	Notes     string          `json:"notes"`
}

// Author is a book author. Its full name is a computed field.
type Author struct {
	ID    int       `json:"id" searchid:""`
	First string    `json:"first"`
	Last  string    `json:"last"`
	Born  time.Time `json:"born" search:"born"`
}

// FullName joins the author's first and last names.
func (a Author) FullName() string {
	return strings.TrimSpace(a.First + " " + a.Last)
}

func entityTypes() []reflect.Type {
	return []reflect.Type{
		reflect.TypeOf(Book{}),
		reflect.TypeOf(Author{}),
	}
}

func indexTypes() *indextype.Registry {
	types := indextype.NewRegistry()
	indextype.RegisterType[ISBN](types, models.IndexTypeIdentifier)
	return types
}

func registerEntities(reg *metadata.Registry) error {
	return metadata.Register[Author](reg, metadata.Getter("full name", Author.FullName))
}

// lookupType finds an entity type by case-insensitive name.
func lookupType(name string) (reflect.Type, bool) {
	for _, t := range entityTypes() {
		if strings.EqualFold(t.Name(), name) {
			return t, true
		}
	}
	return nil, false
}
