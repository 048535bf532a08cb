// Package segments holds the ordered, contiguous speed segments of a route.
package segments

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrMinimumGapViolation    = errors.New("segment span would fall below the minimum gap")
	ErrSingleSegmentInvariant = errors.New("a route keeps at least one segment")
	ErrSegmentOutOfRange      = errors.New("segment index out of range")
	ErrBoundaryOutOfRange     = errors.New("boundary is fixed or out of range")
	ErrInvalidSpeed           = errors.New("speed is not a number")
)

// ratio comparisons tolerate accumulated float error from repeated splits
const ratioEpsilon = 1e-9

// Side tells which handle of a segment was dragged. At a shared boundary the
// end handle of segment i and the start handle of segment i+1 coincide.
type Side int

const (
	SideStart Side = iota
	SideEnd
)

func (s Side) String() string {
	if s == SideEnd {
		return "end"
	}
	return "start"
}

// Segment is a contiguous ratio range of the route with one target speed
type Segment struct {
	Index      int
	StartRatio float64
	EndRatio   float64
	SpeedKmh   float64
}

// Span returns EndRatio - StartRatio
func (s Segment) Span() float64 {
	return s.EndRatio - s.StartRatio
}

// Limits are the editing bounds applied by the Model
type Limits struct {
	MinGap          float64
	MinSpeedKmh     float64
	MaxSpeedKmh     float64
	DefaultSpeedKmh float64
}

// DefaultLimits returns a 1% minimum span and speeds in [10,60] km/h, 25 by default
func DefaultLimits() Limits {
	return Limits{
		MinGap:          0.01,
		MinSpeedKmh:     10,
		MaxSpeedKmh:     60,
		DefaultSpeedKmh: 25,
	}
}

// DistanceSource reports the total route length; *geometry.Index satisfies it
type DistanceSource interface {
	TotalDistanceKm() float64
}

// Model is the editable segment list of one route. It is owned by a single
// consumer and is not safe for concurrent mutation.
type Model struct {
	limits          Limits
	totalDistanceKm float64
	segments        []Segment
	version         uint64
}

// NewModel creates a single default segment spanning the whole route
func NewModel(route DistanceSource, limits Limits) *Model {
	if route == nil {
		panic("segments.Model: route cannot be nil")
	}
	m := &Model{limits: limits}
	m.ResetRoute(route)
	return m
}

// ResetRoute discards all segments for a newly calculated route
func (m *Model) ResetRoute(route DistanceSource) {
	m.totalDistanceKm = route.TotalDistanceKm()
	m.Reset()
}

// Reset restores the single default segment on the current route
func (m *Model) Reset() {
	m.segments = []Segment{{
		Index:      0,
		StartRatio: 0,
		EndRatio:   1,
		SpeedKmh:   m.clampSpeed(m.limits.DefaultSpeedKmh),
	}}
	m.version++
}

// Limits returns the editing bounds
func (m *Model) Limits() Limits {
	return m.limits
}

// SetDefaultSpeed changes the speed used by the next Reset
func (m *Model) SetDefaultSpeed(kmh float64) {
	m.limits.DefaultSpeedKmh = m.clampSpeed(kmh)
}

// Version increases on every mutation; derived data keyed on it is stale when it differs
func (m *Model) Version() uint64 {
	return m.version
}

// Len returns the number of segments
func (m *Model) Len() int {
	return len(m.segments)
}

// TotalDistanceKm returns the route length the ratios refer to
func (m *Model) TotalDistanceKm() float64 {
	return m.totalDistanceKm
}

// Segments returns a copy of the segment list
func (m *Model) Segments() []Segment {
	out := make([]Segment, len(m.segments))
	copy(out, m.segments)
	return out
}

// Segment returns the segment at index i
func (m *Model) Segment(i int) (Segment, error) {
	if i < 0 || i >= len(m.segments) {
		return Segment{}, fmt.Errorf("%w: %d of %d", ErrSegmentOutOfRange, i, len(m.segments))
	}
	return m.segments[i], nil
}

// AddSegment splits the last segment into two equal halves. The new segment
// inherits the speed of its predecessor.
func (m *Model) AddSegment() (Segment, error) {
	last := m.segments[len(m.segments)-1]
	half := last.Span() / 2
	if half < m.limits.MinGap-ratioEpsilon {
		return Segment{}, fmt.Errorf("%w: last segment spans %.4f", ErrMinimumGapViolation, last.Span())
	}

	mid := last.StartRatio + half
	m.segments[len(m.segments)-1].EndRatio = mid
	added := Segment{
		Index:      len(m.segments),
		StartRatio: mid,
		EndRatio:   last.EndRatio,
		SpeedKmh:   last.SpeedKmh,
	}
	m.segments = append(m.segments, added)
	m.version++
	return added, nil
}

// RemoveSegment deletes segment i and gives its range to the following
// segment, or to the preceding one when i is the last segment
func (m *Model) RemoveSegment(i int) error {
	if i < 0 || i >= len(m.segments) {
		return fmt.Errorf("%w: %d of %d", ErrSegmentOutOfRange, i, len(m.segments))
	}
	if len(m.segments) == 1 {
		return ErrSingleSegmentInvariant
	}

	removed := m.segments[i]
	if i < len(m.segments)-1 {
		m.segments[i+1].StartRatio = removed.StartRatio
	} else {
		m.segments[i-1].EndRatio = removed.EndRatio
	}
	m.segments = append(m.segments[:i], m.segments[i+1:]...)
	m.renumber()
	m.version++
	return nil
}

// UpdateBoundary moves the boundary behind the dragged handle: the start
// handle of segment i moves the edge shared with segment i-1, the end handle
// the edge shared with segment i+1. The ratio is clamped so both neighbours
// keep at least the minimum gap, and both edges are written together.
// The applied ratio is returned.
func (m *Model) UpdateBoundary(segmentIndex int, ratio float64, side Side) (float64, error) {
	if segmentIndex < 0 || segmentIndex >= len(m.segments) {
		return 0, fmt.Errorf("%w: %d of %d", ErrSegmentOutOfRange, segmentIndex, len(m.segments))
	}

	edge := segmentIndex // edge k sits between segment k-1 and segment k
	if side == SideEnd {
		edge = segmentIndex + 1
	}
	if edge <= 0 || edge >= len(m.segments) {
		return 0, fmt.Errorf("%w: %s of segment %d", ErrBoundaryOutOfRange, side, segmentIndex)
	}

	before := &m.segments[edge-1]
	after := &m.segments[edge]
	lower := before.StartRatio + m.limits.MinGap
	upper := after.EndRatio - m.limits.MinGap

	clamped := ratio
	if math.IsNaN(clamped) || clamped < lower {
		clamped = lower
	}
	if clamped > upper {
		clamped = upper
	}

	before.EndRatio = clamped
	after.StartRatio = clamped
	m.version++
	return clamped, nil
}

// SetSpeed clamps kmh into the speed limits and assigns it to segment i.
// The applied speed is returned.
func (m *Model) SetSpeed(i int, kmh float64) (float64, error) {
	if i < 0 || i >= len(m.segments) {
		return 0, fmt.Errorf("%w: %d of %d", ErrSegmentOutOfRange, i, len(m.segments))
	}
	if math.IsNaN(kmh) {
		return 0, ErrInvalidSpeed
	}
	applied := m.clampSpeed(kmh)
	m.segments[i].SpeedKmh = applied
	m.version++
	return applied, nil
}

// SegmentDistanceKm returns the length of segment i in kilometers
func (m *Model) SegmentDistanceKm(i int) (float64, error) {
	seg, err := m.Segment(i)
	if err != nil {
		return 0, err
	}
	return seg.Span() * m.totalDistanceKm, nil
}

// SegmentAtRatio returns the segment whose [start,end) range contains r.
// r is clamped to [0,1] and the last segment includes 1.0.
func (m *Model) SegmentAtRatio(r float64) Segment {
	if math.IsNaN(r) || r < 0 {
		r = 0
	}
	i := sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].EndRatio > r
	})
	if i >= len(m.segments) {
		i = len(m.segments) - 1
	}
	return m.segments[i]
}

// Validate checks ordering, contiguity, coverage, minimum gap and speed bounds
func (m *Model) Validate() error {
	if len(m.segments) == 0 {
		return ErrSingleSegmentInvariant
	}
	if m.segments[0].StartRatio != 0 {
		return fmt.Errorf("first segment starts at %.4f", m.segments[0].StartRatio)
	}
	if last := m.segments[len(m.segments)-1]; last.EndRatio != 1 {
		return fmt.Errorf("last segment ends at %.4f", last.EndRatio)
	}
	for i, seg := range m.segments {
		if seg.Index != i {
			return fmt.Errorf("segment %d carries index %d", i, seg.Index)
		}
		if seg.Span() < m.limits.MinGap-ratioEpsilon {
			return fmt.Errorf("%w: segment %d spans %.4f", ErrMinimumGapViolation, i, seg.Span())
		}
		if seg.SpeedKmh < m.limits.MinSpeedKmh || seg.SpeedKmh > m.limits.MaxSpeedKmh {
			return fmt.Errorf("segment %d speed %.1f outside [%.0f,%.0f]", i, seg.SpeedKmh, m.limits.MinSpeedKmh, m.limits.MaxSpeedKmh)
		}
		if i > 0 && m.segments[i-1].EndRatio != seg.StartRatio {
			return fmt.Errorf("gap between segment %d and %d", i-1, i)
		}
	}
	return nil
}

func (m *Model) clampSpeed(kmh float64) float64 {
	return math.Max(m.limits.MinSpeedKmh, math.Min(m.limits.MaxSpeedKmh, kmh))
}

func (m *Model) renumber() {
	for i := range m.segments {
		m.segments[i].Index = i
	}
}
