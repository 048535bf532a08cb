package profile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evenSamples(n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{Ratio: float64(i) / float64(n-1), ElevationM: float64(100 + i)}
	}
	return out
}

func TestZoom_RoundTrip(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())
	require.Equal(t, 1.0, v.Zoom())

	for i := 0; i < 5; i++ {
		v.ZoomIn()
	}
	assert.InDelta(t, 0.32768, v.Zoom(), 1e-9)
	for i := 0; i < 5; i++ {
		v.ZoomOut()
	}
	assert.InDelta(t, 1.0, v.Zoom(), 1e-9)
}

func TestZoom_Clamped(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())

	v.ZoomOut()
	assert.Equal(t, 1.0, v.Zoom())

	for i := 0; i < 50; i++ {
		v.ZoomIn()
	}
	assert.Equal(t, 0.05, v.Zoom())
}

func TestZoomOut_ReclampsPan(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())
	v.ZoomIn()
	v.ZoomIn()
	v.Pan(10)
	assert.InDelta(t, 1-0.64, v.PanOffset(), 1e-9)

	v.ZoomOut()
	assert.InDelta(t, 1-0.8, v.PanOffset(), 1e-9)
}

func TestPan_SilentAtExtremes(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())

	// Fully zoomed out there is nothing to pan
	v.Pan(1)
	assert.Equal(t, 0.0, v.PanOffset())

	v.ZoomIn() // 0.8
	v.Pan(0.1)
	assert.InDelta(t, 0.08, v.PanOffset(), 1e-9)
	v.Pan(-5)
	assert.Equal(t, 0.0, v.PanOffset())
	v.Pan(5)
	assert.InDelta(t, 0.2, v.PanOffset(), 1e-9)
}

func TestReset(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())
	v.ZoomIn()
	v.ZoomIn()
	v.Pan(3)

	v.Reset()
	assert.Equal(t, 1.0, v.Zoom())
	assert.Equal(t, 0.0, v.PanOffset())
}

func TestVisibleRange(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())
	start, end := v.VisibleRange()
	assert.Equal(t, 0, start)
	assert.Equal(t, 100, end)

	for i := 0; i < 5; i++ {
		v.ZoomIn()
	}
	start, end = v.VisibleRange()
	assert.Equal(t, 0, start)
	assert.Equal(t, 33, end)

	empty := NewViewState(nil, DefaultParams())
	start, end = empty.VisibleRange()
	assert.Equal(t, -1, start)
	assert.Equal(t, -1, end)
}

func TestHoverToPosition(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())

	h, ok := v.HoverToPosition(50, 100)
	require.True(t, ok)
	assert.Equal(t, 50, h.Index)
	assert.InDelta(t, 0.5, h.Ratio, 1e-9)

	// Zoomed to the right half
	v.ZoomIn()
	v.Pan(5)
	h, ok = v.HoverToPosition(0, 100)
	require.True(t, ok)
	assert.Equal(t, 20, h.Index)

	h, ok = v.HoverToPosition(500, 100)
	require.True(t, ok)
	assert.Equal(t, 100, h.Index)
	assert.Equal(t, 100, v.Snapshot().HoverIndex)

	_, ok = v.HoverToPosition(10, 0)
	assert.False(t, ok)

	_, ok = v.HoverToPosition(math.NaN(), 100)
	assert.False(t, ok)
	_, ok = v.HoverToPosition(10, math.NaN())
	assert.False(t, ok)
	assert.Equal(t, 100, v.Snapshot().HoverIndex)

	v.ClearHover()
	assert.Equal(t, -1, v.Snapshot().HoverIndex)
}

func TestHoverToPosition_UsesSampleRatios(t *testing.T) {
	v := NewViewState([]Sample{{Ratio: 0}, {Ratio: 0.1}, {Ratio: 0.5}, {Ratio: 1}}, DefaultParams())

	h, ok := v.HoverToPosition(1, 3)
	require.True(t, ok)
	assert.Equal(t, 1, h.Index)
	assert.InDelta(t, 0.1, h.Ratio, 1e-9)

	h, ok = v.HoverToPosition(1.5, 3)
	require.True(t, ok)
	assert.Equal(t, 2, h.Index)
	assert.InDelta(t, 0.3, h.Ratio, 1e-9)
}

func TestLiveMarkerIndex_NearestSample(t *testing.T) {
	v := NewViewState([]Sample{{Ratio: 0}, {Ratio: 0.1}, {Ratio: 0.5}, {Ratio: 1}}, DefaultParams())

	assert.Equal(t, 0, v.LiveMarkerIndex(-1))
	assert.Equal(t, 1, v.LiveMarkerIndex(0.29))
	assert.Equal(t, 2, v.LiveMarkerIndex(0.31))
	assert.Equal(t, 3, v.LiveMarkerIndex(2))
	assert.Equal(t, 3, v.Snapshot().LiveIndex)

	assert.Equal(t, -1, NewViewState(nil, DefaultParams()).LiveMarkerIndex(0.5))
}

func TestLiveMarkerIndex_AutoFollow(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())
	for i := 0; i < 5; i++ {
		v.ZoomIn()
	}

	// Not following: the window stays put
	v.LiveMarkerIndex(0.9)
	assert.Equal(t, 0.0, v.PanOffset())

	v.SetFollowing(true)
	idx := v.LiveMarkerIndex(0.9)
	start, end := v.VisibleRange()
	assert.Equal(t, 90, idx)
	assert.LessOrEqual(t, start, idx)
	assert.GreaterOrEqual(t, end, idx)
	assert.True(t, v.Snapshot().Following)
}

func TestLiveMarkerIndex_FollowResumesAfterUserPan(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())
	for i := 0; i < 5; i++ {
		v.ZoomIn()
	}
	v.SetFollowing(true)
	v.LiveMarkerIndex(0.9)
	require.Greater(t, v.PanOffset(), 0.5)

	v.Pan(-10)
	assert.Equal(t, 0.0, v.PanOffset())
	assert.False(t, v.Snapshot().Following)

	// The very next update brings the marker back into view
	idx := v.LiveMarkerIndex(0.95)
	assert.Equal(t, 95, idx)
	start, end := v.VisibleRange()
	assert.LessOrEqual(t, start, 95)
	assert.GreaterOrEqual(t, end, 95)
	assert.True(t, v.Snapshot().Following)
}

func TestLiveMarkerIndex_FollowResumesAfterHover(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())
	for i := 0; i < 5; i++ {
		v.ZoomIn()
	}
	v.SetFollowing(true)

	_, ok := v.HoverToPosition(10, 100)
	require.True(t, ok)
	assert.False(t, v.Snapshot().Following)

	v.LiveMarkerIndex(0.8)
	start, end := v.VisibleRange()
	assert.LessOrEqual(t, start, 80)
	assert.GreaterOrEqual(t, end, 80)
}

func TestSetSamples_ResetsView(t *testing.T) {
	v := NewViewState(evenSamples(101), DefaultParams())
	v.ZoomIn()
	v.LiveMarkerIndex(0.5)
	_, _ = v.HoverToPosition(10, 100)

	v.SetSamples(evenSamples(11))
	snap := v.Snapshot()
	assert.Equal(t, 11, v.Len())
	assert.Equal(t, 1.0, snap.Zoom)
	assert.Equal(t, -1, snap.HoverIndex)
	assert.Equal(t, -1, snap.LiveIndex)
}

func TestIndependentViews(t *testing.T) {
	samples := evenSamples(101)
	planner := NewViewState(samples, DefaultParams())
	dashboard := NewViewState(samples, DefaultParams())

	planner.ZoomIn()
	planner.Pan(1)
	assert.Equal(t, 1.0, dashboard.Zoom())
	assert.Equal(t, 0.0, dashboard.PanOffset())
}

func TestMarkerGlyphsDiffer(t *testing.T) {
	assert.NotEqual(t, MarkerLive.Glyph(), MarkerHover.Glyph())
	assert.NotEqual(t, MarkerLive.Color(), MarkerHover.Color())
	assert.Equal(t, "hover", MarkerHover.String())
}
