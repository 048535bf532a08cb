package routeio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/ride-planner/internal/geometry"
	"github.com/lowaak/ride-planner/internal/profile"
	"github.com/lowaak/ride-planner/internal/projection"
	"github.com/lowaak/ride-planner/internal/segments"
)

// gpxTrack builds a north-going track of n points 0.001 degrees apart with
// one point per 10 seconds and a steadily rising elevation
func gpxTrack(n int) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
<trk><name>Hill loop</name><trkseg>
`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<trkpt lat="%.6f" lon="7.000000"><ele>%d</ele><time>2024-06-01T08:%02d:%02dZ</time></trkpt>
`, 46.0+float64(i)*0.001, 400+i*2, (i*10)/60, (i*10)%60)
	}
	b.WriteString("</trkseg></trk></gpx>\n")
	return []byte(b.String())
}

const gpxRouteOnly = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
<rte><name>Planned</name>
<rtept lat="46.0" lon="7.0"></rtept>
<rtept lat="46.01" lon="7.0"></rtept>
</rte></gpx>
`

func TestParseGPX_Track(t *testing.T) {
	route, err := ParseGPX(gpxTrack(21), DefaultMaxSamples)
	require.NoError(t, err)

	assert.Equal(t, "Hill loop", route.Name)
	assert.Equal(t, 21, route.Index.Len())
	// 20 edges of 0.001 degrees latitude, about 111 m each
	assert.InDelta(t, 2.226, route.Index.TotalDistanceKm(), 0.01)

	require.Len(t, route.Samples, 21)
	assert.Equal(t, 400.0, route.Samples[0].ElevationM)
	assert.Equal(t, 440.0, route.Samples[20].ElevationM)
	assert.Equal(t, 0.0, route.Samples[0].Ratio)
	assert.Equal(t, 1.0, route.Samples[20].Ratio)
}

func TestParseGPX_Downsamples(t *testing.T) {
	route, err := ParseGPX(gpxTrack(101), 10)
	require.NoError(t, err)

	require.Len(t, route.Samples, 10)
	assert.Equal(t, route.Index.PointAt(0), route.Samples[0].Point)
	assert.Equal(t, route.Index.PointAt(100), route.Samples[9].Point)
	for i := 1; i < len(route.Samples); i++ {
		assert.Greater(t, route.Samples[i].Ratio, route.Samples[i-1].Ratio)
	}
}

func TestParseGPX_RouteFallback(t *testing.T) {
	route, err := ParseGPX([]byte(gpxRouteOnly), DefaultMaxSamples)
	require.NoError(t, err)

	assert.Equal(t, "Planned", route.Name)
	assert.Equal(t, 2, route.Index.Len())
	assert.Equal(t, 0.0, route.Samples[1].ElevationM)
}

func TestParseGPX_Errors(t *testing.T) {
	_, err := ParseGPX(gpxTrack(1), DefaultMaxSamples)
	assert.ErrorIs(t, err, ErrNoPoints)

	_, err = ParseGPX([]byte("not xml"), DefaultMaxSamples)
	assert.Error(t, err)
}

func TestLoadGPX_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "route.gpx")
	require.NoError(t, os.WriteFile(path, gpxTrack(5), 0644))

	route, err := LoadGPX(path, DefaultMaxSamples)
	require.NoError(t, err)
	assert.Equal(t, 5, route.Index.Len())

	_, err = LoadGPX(filepath.Join(t.TempDir(), "missing.gpx"), DefaultMaxSamples)
	assert.Error(t, err)
}

func TestParseTrack_Timestamps(t *testing.T) {
	points, err := ParseTrack(gpxTrack(4))
	require.NoError(t, err)

	require.Len(t, points, 4)
	assert.Equal(t, 30.0, points[3].Time.Sub(points[0].Time).Seconds())
	assert.InDelta(t, 46.003, points[3].Point.Lat(), 1e-9)
}

func TestSampleIndices(t *testing.T) {
	assert.Nil(t, SampleIndices(0, 5))
	assert.Equal(t, []int{0, 1, 2}, SampleIndices(3, 5))
	assert.Equal(t, []int{0, 5, 10}, SampleIndices(11, 3))
	assert.Equal(t, []int{0, 9}, SampleIndices(10, 1))

	idx := SampleIndices(1000, 500)
	require.Len(t, idx, 500)
	assert.Equal(t, 0, idx[0])
	assert.Equal(t, 999, idx[499])
	for i := 1; i < len(idx); i++ {
		assert.Greater(t, idx[i], idx[i-1])
	}
}

func planFor(t *testing.T, idx *geometry.Index) []projection.Step {
	t.Helper()
	m := segments.NewModel(idx, segments.DefaultLimits())
	_, err := m.AddSegment()
	require.NoError(t, err)
	_, err = m.SetSpeed(1, 18)
	require.NoError(t, err)
	return projection.NewEngine(m).Plan()
}

func TestSegmentsFeatureCollection(t *testing.T) {
	route, err := ParseGPX(gpxTrack(21), DefaultMaxSamples)
	require.NoError(t, err)
	plan := planFor(t, route.Index)

	markers := []profile.Marker{{Kind: profile.MarkerLive, Ratio: 0.25, Point: route.Index.PointAtRatio(0.25)}}
	fc := SegmentsFeatureCollection(route.Index, plan, markers)
	require.Len(t, fc.Features, 3)

	first := fc.Features[0]
	assert.Equal(t, "LineString", first.Geometry.GeoJSONType())
	assert.Equal(t, string(segments.ColorFor(0)), first.Properties["color"])
	assert.Equal(t, 0, first.Properties["index"])
	assert.Equal(t, "live", fc.Features[2].Properties["kind"])

	path := filepath.Join(t.TempDir(), "plan.geojson")
	require.NoError(t, WriteGeoJSON(path, fc))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
}

func TestRenderProfilePNG(t *testing.T) {
	route, err := ParseGPX(gpxTrack(21), DefaultMaxSamples)
	require.NoError(t, err)
	plan := planFor(t, route.Index)
	markers := []profile.Marker{
		{Kind: profile.MarkerLive, Ratio: 0.3},
		{Kind: profile.MarkerHover, Ratio: 0.7},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderProfilePNG(&buf, route.Samples, plan, markers, DefaultChartOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	path := filepath.Join(t.TempDir(), "profile.png")
	require.NoError(t, WriteProfilePNG(path, route.Samples, nil, nil, ChartOptions{Width: 600, Height: 200}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderProfilePNG_NothingToPlot(t *testing.T) {
	var buf bytes.Buffer
	err := RenderProfilePNG(&buf, []profile.Sample{{}}, nil, nil, DefaultChartOptions())
	assert.ErrorIs(t, err, ErrNothingToPlot)

	err = RenderProfilePNG(&buf, []profile.Sample{{}, {}}, nil, nil, DefaultChartOptions())
	assert.ErrorIs(t, err, ErrNothingToPlot)
}

func TestSegmentSeries_MeetsAtBoundaries(t *testing.T) {
	samples := []profile.Sample{
		{Ratio: 0, ElevationM: 100},
		{Ratio: 0.4, ElevationM: 140},
		{Ratio: 1, ElevationM: 200},
	}

	xs, ys := segmentSeries(samples, 10, 0, 0.5)
	assert.Equal(t, []float64{0, 4, 5}, xs)
	assert.InDelta(t, 150, ys[2], 1e-9)

	xs, ys = segmentSeries(samples, 10, 0.5, 1)
	assert.Equal(t, []float64{5, 10}, xs)
	assert.InDelta(t, 150, ys[0], 1e-9)
	assert.Equal(t, 200.0, ys[1])
}
