// Package profile keeps the zoom and pan window of an elevation profile view
// and maps between pointer positions, route ratios and sample indices.
package profile

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// Sample is one elevation profile point aligned to the route
type Sample struct {
	Point      orb.Point
	ElevationM float64
	DistanceM  float64
	Ratio      float64
}

// Params bound the zoom factor
type Params struct {
	ZoomStep float64
	MinZoom  float64
	MaxZoom  float64
}

// DefaultParams zooms by 0.8 per step within [0.05,1]
func DefaultParams() Params {
	return Params{ZoomStep: 0.8, MinZoom: 0.05, MaxZoom: 1.0}
}

// Hover is the result of mapping a pointer position onto the profile
type Hover struct {
	Index int
	Ratio float64
}

// Snapshot is the published state of one view. Indices are -1 when unset.
type Snapshot struct {
	VisibleStart int
	VisibleEnd   int
	HoverIndex   int
	LiveIndex    int
	Zoom         float64
	Pan          float64
	Following    bool
}

// ViewState is the zoom and pan window of one profile view. Zoom is the
// visible fraction of the samples and Pan the fraction hidden on the left,
// so [Pan, Pan+Zoom] always lies inside [0,1]. A ViewState has a single owner.
type ViewState struct {
	params  Params
	samples []Sample

	zoom float64
	pan  float64

	hoverIndex int
	liveIndex  int

	following  bool
	suppressed bool
}

// NewViewState creates a fully zoomed out view over samples
func NewViewState(samples []Sample, params Params) *ViewState {
	v := &ViewState{params: params}
	v.SetSamples(samples)
	return v
}

// SetSamples replaces the samples for a new route and resets the window
func (v *ViewState) SetSamples(samples []Sample) {
	v.samples = make([]Sample, len(samples))
	copy(v.samples, samples)
	v.hoverIndex = -1
	v.liveIndex = -1
	v.suppressed = false
	v.Reset()
}

// Samples returns the samples the view is built on
func (v *ViewState) Samples() []Sample {
	return v.samples
}

// Len returns the sample count
func (v *ViewState) Len() int {
	return len(v.samples)
}

func (v *ViewState) Zoom() float64 {
	return v.zoom
}

func (v *ViewState) PanOffset() float64 {
	return v.pan
}

// ZoomIn narrows the window by one step
func (v *ViewState) ZoomIn() {
	v.setZoom(v.zoom * v.params.ZoomStep)
}

// ZoomOut widens the window by one step
func (v *ViewState) ZoomOut() {
	v.setZoom(v.zoom / v.params.ZoomStep)
}

func (v *ViewState) setZoom(z float64) {
	v.zoom = math.Max(v.params.MinZoom, math.Min(v.params.MaxZoom, z))
	v.clampPan()
}

// Pan shifts the window by delta visible windows. It stops silently at either end.
// A pan suppresses auto-follow until the next live update.
func (v *ViewState) Pan(delta float64) {
	v.pan += delta * v.zoom
	v.clampPan()
	v.suppressed = true
}

// Reset restores zoom 1 and pan 0
func (v *ViewState) Reset() {
	v.zoom = 1.0
	v.pan = 0
}

func (v *ViewState) clampPan() {
	maxPan := math.Max(0, 1-v.zoom)
	if math.IsNaN(v.pan) || v.pan < 0 {
		v.pan = 0
	}
	if v.pan > maxPan {
		v.pan = maxPan
	}
}

// VisibleRange returns the first and last visible sample indices
func (v *ViewState) VisibleRange() (int, int) {
	if len(v.samples) == 0 {
		return -1, -1
	}
	last := float64(len(v.samples) - 1)
	start := int(math.Round(v.pan * last))
	end := int(math.Round((v.pan + v.zoom) * last))
	if end >= len(v.samples) {
		end = len(v.samples) - 1
	}
	return start, end
}

// HoverToPosition maps pixelX on a canvas of canvasWidth pixels to the
// sample under the pointer and its route ratio. The ratio is interpolated
// between neighbouring samples so the hover marker moves smoothly.
// It returns false when there is nothing to hover.
func (v *ViewState) HoverToPosition(pixelX, canvasWidth float64) (Hover, bool) {
	if len(v.samples) == 0 || canvasWidth <= 0 || math.IsNaN(pixelX) || math.IsNaN(canvasWidth) {
		return Hover{}, false
	}

	x := math.Max(0, math.Min(1, pixelX/canvasWidth))
	f := math.Max(0, math.Min(1, v.pan+x*v.zoom))
	pos := f * float64(len(v.samples)-1)

	lo := int(math.Floor(pos))
	hi := lo + 1
	ratio := v.samples[lo].Ratio
	if hi < len(v.samples) {
		ratio += (v.samples[hi].Ratio - ratio) * (pos - float64(lo))
	}

	idx := int(math.Round(pos))
	v.hoverIndex = idx
	v.suppressed = true
	return Hover{Index: idx, Ratio: ratio}, true
}

// ClearHover removes the hover marker
func (v *ViewState) ClearHover() {
	v.hoverIndex = -1
}

// SetFollowing turns auto-follow on while a ride is active
func (v *ViewState) SetFollowing(on bool) {
	v.following = on
	if !on {
		v.suppressed = false
	}
}

// LiveMarkerIndex places the live marker on the sample closest to the route
// ratio and returns its index, or -1 without samples. When following, the
// window pans to keep the marker visible. A user hover or pan pauses
// auto-follow only until the next live update, which pans again.
func (v *ViewState) LiveMarkerIndex(routeRatio float64) int {
	if len(v.samples) == 0 {
		return -1
	}
	idx := v.nearestSample(routeRatio)
	v.liveIndex = idx

	v.suppressed = false
	if v.following {
		v.ensureVisible(idx)
	}
	return idx
}

func (v *ViewState) nearestSample(r float64) int {
	i := sort.Search(len(v.samples), func(i int) bool {
		return v.samples[i].Ratio >= r
	})
	if i <= 0 {
		return 0
	}
	if i >= len(v.samples) {
		return len(v.samples) - 1
	}
	if r-v.samples[i-1].Ratio <= v.samples[i].Ratio-r {
		return i - 1
	}
	return i
}

func (v *ViewState) ensureVisible(idx int) {
	if len(v.samples) < 2 {
		return
	}
	f := float64(idx) / float64(len(v.samples)-1)
	if f < v.pan {
		v.pan = f
	} else if f > v.pan+v.zoom {
		v.pan = f - v.zoom
	}
	v.clampPan()
}

// Snapshot returns the publishable view state
func (v *ViewState) Snapshot() Snapshot {
	start, end := v.VisibleRange()
	return Snapshot{
		VisibleStart: start,
		VisibleEnd:   end,
		HoverIndex:   v.hoverIndex,
		LiveIndex:    v.liveIndex,
		Zoom:         v.zoom,
		Pan:          v.pan,
		Following:    v.following && !v.suppressed,
	}
}
