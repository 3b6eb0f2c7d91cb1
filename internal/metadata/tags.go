package metadata

import (
	"fmt"
	"strings"

	"github.com/hyperjump/fieldmap/internal/models"
)

const (
	// TagSearch marks a searchable member: `search:"name,type=text,emitnull"`.
	TagSearch = "search"
	// TagID marks the identifier member. Only its presence matters.
	TagID = "searchid"
)

type searchTag struct {
	name      string
	indexType models.IndexType
	emitNull  bool
}

func parseSearchTag(tag string) (searchTag, error) {
	parts := strings.Split(tag, ",")
	st := searchTag{name: strings.TrimSpace(parts[0]), indexType: models.IndexTypeAuto}
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		key, val, hasVal := strings.Cut(opt, "=")
		switch {
		case opt == "":
		case key == "type" && hasVal:
			it, err := models.ParseIndexType(val)
			if err != nil {
				return searchTag{}, err
			}
			st.indexType = it
		case opt == "emitnull":
			st.emitNull = true
		default:
			return searchTag{}, fmt.Errorf("unknown search tag option %q", opt)
		}
	}
	return st, nil
}
