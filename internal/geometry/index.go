// Package geometry converts between linear positions along a route
// (a ratio in [0,1] or a distance in meters) and geographic points.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

var (
	// ErrEmptyRoute is returned for a polyline with fewer than 2 points
	ErrEmptyRoute = errors.New("route needs at least 2 points")
	// ErrNonMonotonic is returned when the cumulative distance table decreases
	ErrNonMonotonic = errors.New("cumulative distances must be non-decreasing")
	// ErrLengthMismatch is returned when points and distances differ in length
	ErrLengthMismatch = errors.New("points and cumulative distances differ in length")
)

// Index wraps a route polyline and its cumulative-distance table.
// It is immutable once built and safe to share between readers.
type Index struct {
	line       orb.LineString
	cumulative []float64 // meters from the first point
}

// New builds an Index from a polyline and a parallel table of cumulative
// distances in meters, as delivered by a routing service
func New(line orb.LineString, cumulative []float64) (*Index, error) {
	if len(line) < 2 {
		return nil, ErrEmptyRoute
	}
	if len(cumulative) != len(line) {
		return nil, fmt.Errorf("%w: %d points, %d distances", ErrLengthMismatch, len(line), len(cumulative))
	}
	for i := 1; i < len(cumulative); i++ {
		if cumulative[i] < cumulative[i-1] {
			return nil, fmt.Errorf("%w: index %d (%.1f < %.1f)", ErrNonMonotonic, i, cumulative[i], cumulative[i-1])
		}
	}

	idx := &Index{
		line:       make(orb.LineString, len(line)),
		cumulative: make([]float64, len(cumulative)),
	}
	copy(idx.line, line)
	copy(idx.cumulative, cumulative)
	return idx, nil
}

// FromPoints builds an Index computing the cumulative table with haversine distances
func FromPoints(line orb.LineString) (*Index, error) {
	if len(line) < 2 {
		return nil, ErrEmptyRoute
	}
	cumulative := make([]float64, len(line))
	for i := 1; i < len(line); i++ {
		cumulative[i] = cumulative[i-1] + geo.DistanceHaversine(line[i-1], line[i])
	}
	return New(line, cumulative)
}

// NewPoint is a helper that takes latitude first, as routing payloads do.
// orb stores points as [lon, lat].
func NewPoint(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// Len returns the number of polyline points
func (x *Index) Len() int {
	return len(x.line)
}

// Line returns a copy of the polyline
func (x *Index) Line() orb.LineString {
	out := make(orb.LineString, len(x.line))
	copy(out, x.line)
	return out
}

// PointAt returns the i-th polyline vertex
func (x *Index) PointAt(i int) orb.Point {
	return x.line[i]
}

// DistanceAt returns the cumulative distance in meters of the i-th vertex
func (x *Index) DistanceAt(i int) float64 {
	return x.cumulative[i]
}

// TotalDistance returns the route length in meters
func (x *Index) TotalDistance() float64 {
	return x.cumulative[len(x.cumulative)-1] - x.cumulative[0]
}

// TotalDistanceKm returns the route length in kilometers
func (x *Index) TotalDistanceKm() float64 {
	return x.TotalDistance() / 1000
}

// RatioAtDistance converts meters from the start into a ratio, clamped to [0,1].
// A zero-length route always yields 0.
func (x *Index) RatioAtDistance(d float64) float64 {
	total := x.TotalDistance()
	if total <= 0 {
		return 0
	}
	return ClampRatio(d / total)
}

// DistanceAtRatio converts a ratio (clamped to [0,1]) into meters from the start
func (x *Index) DistanceAtRatio(r float64) float64 {
	return ClampRatio(r) * x.TotalDistance()
}

// PointAtRatio interpolates the geographic point at ratio r. The residual
// distance inside the bracketing polyline edge drives the interpolation, so
// unevenly spaced vertices are respected.
func (x *Index) PointAtRatio(r float64) orb.Point {
	target := x.cumulative[0] + x.DistanceAtRatio(r)

	// First vertex whose cumulative distance reaches the target
	i := sort.SearchFloat64s(x.cumulative, target)
	if i <= 0 {
		return x.line[0]
	}
	if i >= len(x.cumulative) {
		return x.line[len(x.line)-1]
	}

	a, b := i-1, i
	span := x.cumulative[b] - x.cumulative[a]
	if span <= 0 {
		return x.line[b]
	}
	f := (target - x.cumulative[a]) / span
	return interpolate(x.line[a], x.line[b], f)
}

// SubLine returns the part of the route between two ratios, with
// interpolated end points and every vertex in between
func (x *Index) SubLine(from, to float64) orb.LineString {
	from, to = ClampRatio(from), ClampRatio(to)
	if to < from {
		from, to = to, from
	}
	lo := x.cumulative[0] + x.DistanceAtRatio(from)
	hi := x.cumulative[0] + x.DistanceAtRatio(to)

	out := orb.LineString{x.PointAtRatio(from)}
	for i := sort.SearchFloat64s(x.cumulative, lo); i < len(x.cumulative) && x.cumulative[i] < hi; i++ {
		if x.cumulative[i] > lo {
			out = append(out, x.line[i])
		}
	}
	return append(out, x.PointAtRatio(to))
}

// NearestVertex returns the index of the polyline vertex closest to p
func (x *Index) NearestVertex(p orb.Point) int {
	best := 0
	bestDist := math.Inf(1)
	for i, v := range x.line {
		d := geo.DistanceHaversine(p, v)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// NearestRatio projects p onto the route using the closest vertex
func (x *Index) NearestRatio(p orb.Point) float64 {
	i := x.NearestVertex(p)
	return x.RatioAtDistance(x.cumulative[i] - x.cumulative[0])
}

// NearestRatioOnEdges projects p onto the closest polyline edge rather than
// the closest vertex. Edges are treated as straight in a local equirectangular
// frame, which is accurate for the short edges of a routed polyline.
func (x *Index) NearestRatioOnEdges(p orb.Point) float64 {
	bestDist := math.Inf(1)
	bestAlong := 0.0
	for i := 1; i < len(x.line); i++ {
		a, b := x.line[i-1], x.line[i]
		t := projectOnEdge(p, a, b)
		proj := interpolate(a, b, t)
		d := geo.DistanceHaversine(p, proj)
		if d < bestDist {
			bestDist = d
			bestAlong = x.cumulative[i-1] + t*(x.cumulative[i]-x.cumulative[i-1])
		}
	}
	return x.RatioAtDistance(bestAlong - x.cumulative[0])
}

// ClampRatio limits r to [0,1]; NaN maps to 0
func ClampRatio(r float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

func interpolate(a, b orb.Point, f float64) orb.Point {
	return orb.Point{
		a[0] + (b[0]-a[0])*f,
		a[1] + (b[1]-a[1])*f,
	}
}

// projectOnEdge returns the clamped parameter t of p projected onto a→b
func projectOnEdge(p, a, b orb.Point) float64 {
	scale := math.Cos(a.Lat() * math.Pi / 180)
	ax, ay := a.Lon()*scale, a.Lat()
	bx, by := b.Lon()*scale, b.Lat()
	px, py := p.Lon()*scale, p.Lat()

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return 0
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	return math.Max(0, math.Min(1, t))
}
