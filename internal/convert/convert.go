// Package convert normalizes arbitrary Go values into the primitive types the search
// index accepts: strings, float64 numbers, time.Time dates and geo points.
package convert

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/hyperjump/fieldmap/internal/models"
	"github.com/spf13/cast"
)

// Target is the primitive type a value is converted to.
type Target int

const (
	String Target = iota
	Number
	Date
	GeoPoint
)

func (t Target) String() string {
	switch t {
	case String:
		return "string"
	case Number:
		return "number"
	case Date:
		return "date"
	case GeoPoint:
		return "geopoint"
	default:
		return "unknown"
	}
}

// DefaultDateLayout is the layout dates are rendered with when converted to strings.
const DefaultDateLayout = "2006-01-02"

// Converter converts a value to a target primitive type.
type Converter interface {
	Convert(value any, target Target) (any, error)
}

// CastConverter is the default Converter, built on spf13/cast with reflection
// fallbacks for named scalar types.
type CastConverter struct {
	dateLayout string
	location   *time.Location
}

// Option configures a CastConverter.
type Option func(*CastConverter)

// WithDateLayout sets the layout used when rendering dates as strings.
func WithDateLayout(layout string) Option {
	return func(c *CastConverter) {
		if layout != "" {
			c.dateLayout = layout
		}
	}
}

// WithLocation sets the location used to interpret dates parsed from strings without a zone.
func WithLocation(loc *time.Location) Option {
	return func(c *CastConverter) {
		if loc != nil {
			c.location = loc
		}
	}
}

// New returns a CastConverter.
func New(opts ...Option) *CastConverter {
	c := &CastConverter{dateLayout: DefaultDateLayout, location: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert implements Converter.
func (c *CastConverter) Convert(value any, target Target) (any, error) {
	switch target {
	case String:
		return c.ToString(value)
	case Number:
		return c.ToNumber(value)
	case Date:
		return c.ToDate(value)
	case GeoPoint:
		return c.ToGeoPoint(value)
	default:
		return nil, fmt.Errorf("unsupported conversion target %d", int(target))
	}
}

// ToString renders value in its display form. Dates use the configured layout.
func (c *CastConverter) ToString(value any) (string, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(c.dateLayout), nil
	case *time.Time:
		if v == nil {
			return "", nil
		}
		return v.Format(c.dateLayout), nil
	case models.GeoPoint:
		return v.String(), nil
	case *models.GeoPoint:
		if v == nil {
			return "", nil
		}
		return v.String(), nil
	}
	s, err := cast.ToStringE(value)
	if err == nil {
		return s, nil
	}
	rv := reflect.Indirect(reflect.ValueOf(value))
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}
	return "", err
}

// ToNumber converts value to float64.
func (c *CastConverter) ToNumber(value any) (float64, error) {
	if t, ok := value.(time.Time); ok {
		return float64(t.Unix()), nil
	}
	f, err := cast.ToFloat64E(value)
	if err == nil {
		return f, nil
	}
	rv := reflect.Indirect(reflect.ValueOf(value))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return cast.ToFloat64E(rv.String())
	}
	return 0, err
}

// ToDate converts value to a time.Time.
func (c *CastConverter) ToDate(value any) (time.Time, error) {
	if p, ok := value.(*time.Time); ok && p != nil {
		return *p, nil
	}
	return cast.ToTimeInDefaultLocationE(value, c.location)
}

// ToGeoPoint converts value to a models.GeoPoint. Accepted inputs are GeoPoint values,
// "lat,lon" strings, two-element float slices/arrays and maps with lat/lon keys.
func (c *CastConverter) ToGeoPoint(value any) (models.GeoPoint, error) {
	switch v := value.(type) {
	case models.GeoPoint:
		return v, nil
	case *models.GeoPoint:
		if v == nil {
			return models.GeoPoint{}, fmt.Errorf("unable to cast nil to geo point")
		}
		return *v, nil
	case string:
		return models.ParseGeoPoint(v)
	case [2]float64:
		return models.GeoPoint{Lat: v[0], Lon: v[1]}, nil
	case []float64:
		if len(v) == 2 {
			return models.GeoPoint{Lat: v[0], Lon: v[1]}, nil
		}
	case map[string]any:
		lat, err := cast.ToFloat64E(v["lat"])
		if err != nil {
			return models.GeoPoint{}, fmt.Errorf("invalid geo point latitude: %w", err)
		}
		lon, err := cast.ToFloat64E(v["lon"])
		if err != nil {
			return models.GeoPoint{}, fmt.Errorf("invalid geo point longitude: %w", err)
		}
		return models.GeoPoint{Lat: lat, Lon: lon}, nil
	}
	return models.GeoPoint{}, fmt.Errorf("unable to cast %#v of type %T to geo point", value, value)
}
