package services

import (
	"encoding/json"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFeatures() []GeoFeature {
	return []GeoFeature{
		{ID: 1, Lat: 10, Lng: 20, Properties: map[string]any{"username": "u1", "network": "twitter"}},
		{ID: 2, Lat: -6.2, Lng: 106.8, Properties: map[string]any{"username": "u2", "network": "telegram"}},
	}
}

func TestFormatGeoPlainJSON(t *testing.T) {
	out := FormatGeo(sampleFeatures(), "json")

	records, ok := out.([]map[string]any)
	require.True(t, ok)
	require.Len(t, records, 2)
	assert.Equal(t, 10.0, records[0]["lat"])
	assert.Equal(t, 20.0, records[0]["lng"])
	assert.Equal(t, "u1", records[0]["username"])
}

func TestFormatGeoGeoJSON(t *testing.T) {
	out := FormatGeo(sampleFeatures(), "geojson")

	fc, ok := out.(*geojson.FeatureCollection)
	require.True(t, ok)
	require.Len(t, fc.Features, 2)

	// positions are [lng, lat]
	assert.Equal(t, []float64{20, 10}, fc.Features[0].Geometry.Point)
	assert.Equal(t, "twitter", fc.Features[0].Properties["network"])

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
}

func TestFormatGeoTopoJSON(t *testing.T) {
	out := FormatGeo(sampleFeatures(), "topojson")
	require.NotNil(t, out)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Topology"`)
}

func TestFormatGeoEmptySet(t *testing.T) {
	out := FormatGeo(nil, "geojson")
	fc, ok := out.(*geojson.FeatureCollection)
	require.True(t, ok)
	assert.Empty(t, fc.Features)

	plain := FormatGeo(nil, "json")
	records, ok := plain.([]map[string]any)
	require.True(t, ok)
	assert.Empty(t, records)
}
