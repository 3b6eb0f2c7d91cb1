package models

import (
	"fmt"
	"strconv"
	"strings"
)

// GeoPoint is a latitude/longitude pair. Its field names match what bleve's geo
// extraction expects, so it can be indexed as-is.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String renders the point as "lat,lon".
func (p GeoPoint) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
}

// ParseGeoPoint parses the "lat,lon" form produced by String.
func ParseGeoPoint(s string) (GeoPoint, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return GeoPoint{}, fmt.Errorf("invalid geo point %q: want \"lat,lon\"", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return GeoPoint{}, fmt.Errorf("geo point %q out of range", s)
	}
	return GeoPoint{Lat: la, Lon: lo}, nil
}
