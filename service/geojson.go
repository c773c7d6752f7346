package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
	"github.com/go-spatial/geom/encoding/wkt"
)

// UnmarshalGeometry, merging featureCollections and geometryCollections into a multipolygon
func UnmarshalGeometry(data []byte) (_ geom.Geometry, err error) {
	var g geojson.Geometry
	if err := g.UnmarshalJSON(data); err != nil {
		return g.Geometry, err
	}
	switch geo := g.Geometry.(type) {
	case geojson.FeatureCollection:
		var mp geom.MultiPolygon
		for _, f := range geo.Features {
			if err := mergeMultiPolygons(f.Geometry.Geometry, &mp); err != nil {
				return nil, err
			}
		}
		return mp, nil
	case geojson.Feature:
		return geo.Geometry.Geometry, nil
	default:
		return g.Geometry, nil
	}
}

// ParseGeometry decodes a GeoJSON or a WKT geometry
func ParseGeometry(data []byte) (geom.Geometry, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		g, err := UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("ParseGeometry.GeoJSON: %w", err)
		}
		return g, nil
	}
	g, err := wkt.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("ParseGeometry.WKT: %w", err)
	}
	return g, nil
}

// LoadGeometry reads a GeoJSON or WKT file
func LoadGeometry(file string) (geom.Geometry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("LoadGeometry: %w", err)
	}
	return ParseGeometry(data)
}

// BoundingBox returns the lower-left and upper-right corners of the geometry as (lon, lat)
func BoundingBox(g geom.Geometry) (lowerLeft, upperRight [2]float64, err error) {
	ext, err := geom.NewExtentFromGeometry(g)
	if err != nil {
		return lowerLeft, upperRight, fmt.Errorf("BoundingBox: %w", err)
	}
	return [2]float64{ext.MinX(), ext.MinY()}, [2]float64{ext.MaxX(), ext.MaxY()}, nil
}

func mergeMultiPolygons(g geom.Geometry, mp *geom.MultiPolygon) error {
	switch g := g.(type) {
	case geom.MultiPolygon:
		*mp = append(*mp, g.Polygons()...)
	case geom.Polygon:
		*mp = append(*mp, g.LinearRings())
	case geom.Collection:
		for _, g := range g.Geometries() {
			if err := mergeMultiPolygons(g, mp); err != nil {
				return err
			}
		}
	}
	return nil
}

// ToJSON writes v as json in workingdir/filename (nothing is done if workingdir is empty)
func ToJSON(v interface{}, workingdir, filename string) error {
	if workingdir != "" {
		vb, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("toJSON.Marshal: %w", err)
		}
		if err := os.WriteFile(filepath.Join(workingdir, filename), vb, 0644); err != nil {
			return fmt.Errorf("toJSON.WriteFile: %w", err)
		}
	}
	return nil
}
