package m2m

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/airbusgeo/m2m-client/service"
	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
)

// DateFormat is the layout of the dates sent to the service
const DateFormat = "2006-01-02"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateFormat)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return dateparse.ParseAny(s)
}

// DateRange is used by acquisition and ingest filters. A zero bound is omitted.
type DateRange struct {
	Start time.Time
	End   time.Time
}

type dateRangeJSON struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ParseDateRange parses the bounds in any common date format. An empty bound is left open.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := parseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("ParseDateRange.Start: %w", err)
	}
	e, err := parseDate(end)
	if err != nil {
		return DateRange{}, fmt.Errorf("ParseDateRange.End: %w", err)
	}
	if !s.IsZero() && !e.IsZero() && e.Before(s) {
		return DateRange{}, fmt.Errorf("ParseDateRange: end (%s) is before start (%s)", end, start)
	}
	return DateRange{Start: s, End: e}, nil
}

// MarshalJSON implements json.Marshaler
func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(dateRangeJSON{Start: formatDate(r.Start), End: formatDate(r.End)})
}

// UnmarshalJSON implements json.Unmarshaler
func (r *DateRange) UnmarshalJSON(b []byte) (err error) {
	var d dateRangeJSON
	if err = json.Unmarshal(b, &d); err != nil {
		return err
	}
	*r, err = ParseDateRange(d.Start, d.End)
	return err
}

// TemporalFilter filters datasets by temporal coverage
type TemporalFilter DateRange

type temporalFilterJSON struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (f TemporalFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(temporalFilterJSON{StartDate: formatDate(f.Start), EndDate: formatDate(f.End)})
}

// UnmarshalJSON implements json.Unmarshaler
func (f *TemporalFilter) UnmarshalJSON(b []byte) error {
	var d temporalFilterJSON
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	r, err := ParseDateRange(d.StartDate, d.EndDate)
	*f = TemporalFilter(r)
	return err
}

// CloudCoverFilter filters scenes by cloud cover (percent)
type CloudCoverFilter struct {
	Min            int  `json:"min"`
	Max            int  `json:"max"`
	IncludeUnknown bool `json:"includeUnknown,omitempty"`
}

// Point in geographic coordinates
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Spatial filter types
const (
	SpatialFilterMBR     = "mbr"
	SpatialFilterGeoJSON = "geojson"
)

// SpatialFilter is either a minimum bounding rectangle or a GeoJSON geometry
type SpatialFilter struct {
	FilterType string            `json:"filterType"`
	LowerLeft  *Point            `json:"lowerLeft,omitempty"`
	UpperRight *Point            `json:"upperRight,omitempty"`
	GeoJSON    *geojson.Geometry `json:"geoJson,omitempty"`
}

// NewMBRFilter creates a bounding-rectangle filter
func NewMBRFilter(lowerLeft, upperRight Point) *SpatialFilter {
	return &SpatialFilter{FilterType: SpatialFilterMBR, LowerLeft: &lowerLeft, UpperRight: &upperRight}
}

// NewGeoJSONFilter creates a geometry filter
func NewGeoJSONFilter(g geom.Geometry) *SpatialFilter {
	return &SpatialFilter{FilterType: SpatialFilterGeoJSON, GeoJSON: &geojson.Geometry{Geometry: g}}
}

// MBRFilterFromGeometry creates a bounding-rectangle filter enclosing the geometry
func MBRFilterFromGeometry(g geom.Geometry) (*SpatialFilter, error) {
	ll, ur, err := service.BoundingBox(g)
	if err != nil {
		return nil, fmt.Errorf("MBRFilterFromGeometry: %w", err)
	}
	return NewMBRFilter(Point{Longitude: ll[0], Latitude: ll[1]}, Point{Longitude: ur[0], Latitude: ur[1]}), nil
}

// SceneFilter gathers the filters of a scene search. Nil filters are omitted.
type SceneFilter struct {
	AcquisitionFilter *DateRange        `json:"acquisitionFilter,omitempty"`
	CloudCoverFilter  *CloudCoverFilter `json:"cloudCoverFilter,omitempty"`
	IngestFilter      *DateRange        `json:"ingestFilter,omitempty"`
	SpatialFilter     *SpatialFilter    `json:"spatialFilter,omitempty"`
	SeasonalFilter    []int             `json:"seasonalFilter,omitempty"`
}
