// Package projection turns a segment plan into time estimates along the route.
package projection

import (
	"math"
	"sort"
	"time"

	"github.com/lowaak/ride-planner/internal/geometry"
	"github.com/lowaak/ride-planner/internal/segments"
)

// SegmentSource is the read side of segments.Model the engine depends on
type SegmentSource interface {
	Segments() []segments.Segment
	Version() uint64
	TotalDistanceKm() float64
}

// Step is one segment of the plan with its time budget
type Step struct {
	Index           int
	StartRatio      float64
	EndRatio        float64
	DistanceKm      float64
	SpeedKmh        float64
	Duration        time.Duration
	CumulativeStart time.Duration
	CumulativeEnd   time.Duration
}

// Estimate is the projection from one position on the route
type Estimate struct {
	FromRatio float64
	ETT       time.Duration
	ETA       time.Time
	Total     time.Duration
}

type step struct {
	Step
	startSec float64
	durSec   float64
}

// Engine computes cumulative riding time over a segment plan. The per-segment
// table is rebuilt whenever the source version moves, so reads never see a
// stale plan. An Engine has a single owner.
type Engine struct {
	src      SegmentSource
	built    bool
	version  uint64
	steps    []step
	totalSec float64
}

// NewEngine binds an engine to a segment source
func NewEngine(src SegmentSource) *Engine {
	if src == nil {
		panic("projection.Engine: source cannot be nil")
	}
	return &Engine{src: src}
}

func (e *Engine) refresh() {
	if e.built && e.version == e.src.Version() {
		return
	}

	segs := e.src.Segments()
	totalKm := e.src.TotalDistanceKm()
	e.steps = e.steps[:0]
	acc := 0.0
	for _, seg := range segs {
		km := seg.Span() * totalKm
		sec := 0.0
		if seg.SpeedKmh > 0 {
			sec = km / seg.SpeedKmh * 3600
		}
		e.steps = append(e.steps, step{
			Step: Step{
				Index:           seg.Index,
				StartRatio:      seg.StartRatio,
				EndRatio:        seg.EndRatio,
				DistanceKm:      km,
				SpeedKmh:        seg.SpeedKmh,
				Duration:        seconds(sec),
				CumulativeStart: seconds(acc),
				CumulativeEnd:   seconds(acc + sec),
			},
			startSec: acc,
			durSec:   sec,
		})
		acc += sec
	}
	e.totalSec = acc
	e.version = e.src.Version()
	e.built = true
}

// CumulativeTimeAtRatio returns the planned riding time from the start to r.
// It is piecewise linear and non-decreasing; r is clamped to [0,1].
func (e *Engine) CumulativeTimeAtRatio(r float64) time.Duration {
	return seconds(e.cumulativeSec(r))
}

func (e *Engine) cumulativeSec(r float64) float64 {
	e.refresh()
	if len(e.steps) == 0 {
		return 0
	}
	r = geometry.ClampRatio(r)

	i := sort.Search(len(e.steps), func(i int) bool {
		return e.steps[i].EndRatio > r
	})
	if i >= len(e.steps) {
		return e.totalSec
	}
	s := e.steps[i]
	span := s.EndRatio - s.StartRatio
	if span <= 0 {
		return s.startSec
	}
	f := math.Max(0, math.Min(1, (r-s.StartRatio)/span))
	return s.startSec + f*s.durSec
}

// TotalDuration is the planned riding time of the whole route
func (e *Engine) TotalDuration() time.Duration {
	e.refresh()
	return seconds(e.totalSec)
}

// ETTFromRatio is the remaining riding time from r to the end
func (e *Engine) ETTFromRatio(r float64) time.Duration {
	e.refresh()
	return seconds(math.Max(0, e.totalSec-e.cumulativeSec(r)))
}

// ETAFromRatio is the wall-clock arrival time when riding from r at now
func (e *Engine) ETAFromRatio(r float64, now time.Time) time.Time {
	return now.Add(e.ETTFromRatio(r))
}

// Estimate bundles ETT, ETA and the total for one position
func (e *Engine) Estimate(r float64, now time.Time) Estimate {
	ett := e.ETTFromRatio(r)
	return Estimate{
		FromRatio: geometry.ClampRatio(r),
		ETT:       ett,
		ETA:       now.Add(ett),
		Total:     seconds(e.totalSec),
	}
}

// Plan returns the per-segment breakdown
func (e *Engine) Plan() []Step {
	e.refresh()
	out := make([]Step, len(e.steps))
	for i, s := range e.steps {
		out[i] = s.Step
	}
	return out
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
