package routeio

import (
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/lowaak/ride-planner/internal/geometry"
	"github.com/lowaak/ride-planner/internal/profile"
	"github.com/lowaak/ride-planner/internal/projection"
	"github.com/lowaak/ride-planner/internal/segments"
)

// SegmentsFeatureCollection builds the colored segment overlay: one
// LineString per planned segment and one Point per marker
func SegmentsFeatureCollection(idx *geometry.Index, plan []projection.Step, markers []profile.Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, step := range plan {
		f := geojson.NewFeature(idx.SubLine(step.StartRatio, step.EndRatio))
		f.Properties["kind"] = "segment"
		f.Properties["index"] = step.Index
		f.Properties["start_ratio"] = step.StartRatio
		f.Properties["end_ratio"] = step.EndRatio
		f.Properties["speed_kmh"] = step.SpeedKmh
		f.Properties["distance_km"] = step.DistanceKm
		f.Properties["duration_s"] = step.Duration.Seconds()
		f.Properties["color"] = string(segments.ColorFor(step.Index))
		fc.Append(f)
	}

	for _, m := range markers {
		f := geojson.NewFeature(m.Point)
		f.Properties["kind"] = m.Kind.String()
		f.Properties["ratio"] = m.Ratio
		f.Properties["sample_index"] = m.Index
		f.Properties["color"] = m.Kind.Color()
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON writes a feature collection to path
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
