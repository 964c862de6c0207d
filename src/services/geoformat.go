package services

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/rubenv/topojson"
)

// GeoFeature is one record with a point location, ready for geo formatting.
// Properties carry the record's non-spatial fields.
type GeoFeature struct {
	ID         int64
	Lat        float64
	Lng        float64
	Properties map[string]any
}

// FormatGeo renders records in the requested geometry encoding:
//
//	"json"     - plain array of records with lat/lng as ordinary fields
//	"geojson"  - GeoJSON FeatureCollection of point features
//	"topojson" - TopoJSON topology converted from the feature collection
//
// Negotiation is driven purely by the validated geoformat parameter, never
// by Accept headers. An empty record set renders as an empty collection.
func FormatGeo(features []GeoFeature, geoformat string) any {
	switch geoformat {
	case "geojson":
		return toFeatureCollection(features)
	case "topojson":
		return topojson.NewTopology(toFeatureCollection(features), nil)
	default:
		return toPlain(features)
	}
}

func toFeatureCollection(features []GeoFeature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		// GeoJSON positions are [longitude, latitude]
		feature := geojson.NewPointFeature([]float64{f.Lng, f.Lat})
		feature.ID = f.ID
		for k, v := range f.Properties {
			feature.SetProperty(k, v)
		}
		fc.AddFeature(feature)
	}
	return fc
}

func toPlain(features []GeoFeature) []map[string]any {
	out := make([]map[string]any, 0, len(features))
	for _, f := range features {
		rec := make(map[string]any, len(f.Properties)+2)
		for k, v := range f.Properties {
			rec[k] = v
		}
		rec["lat"] = f.Lat
		rec["lng"] = f.Lng
		out = append(out, rec)
	}
	return out
}
