// Package feed produces live position observations, either simulated along
// the planned route or replayed from a recorded track.
package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lowaak/ride-planner/internal/geometry"
	"github.com/lowaak/ride-planner/internal/projection"
	"github.com/lowaak/ride-planner/internal/ride"
)

// Source streams observations into out until the feed ends or ctx is done
type Source interface {
	Run(ctx context.Context, out chan<- ride.Observation) error
}

// SimulatorOptions tune the simulated rider
type SimulatorOptions struct {
	Interval    time.Duration
	SpeedFactor float64
	// StopEvery and StopFor insert a standstill at a fixed rhythm; zero disables it
	StopEvery time.Duration
	StopFor   time.Duration
	Now       func() time.Time
}

// DefaultSimulatorOptions emits once per second at the planned speed
func DefaultSimulatorOptions() SimulatorOptions {
	return SimulatorOptions{
		Interval:    time.Second,
		SpeedFactor: 1,
		Now:         time.Now,
	}
}

// Simulator rides the route at the planned segment speeds
type Simulator struct {
	index *geometry.Index
	opts  SimulatorOptions

	mu   sync.Mutex
	plan []projection.Step

	elapsed   time.Duration
	distanceM float64
}

// NewSimulator starts at the beginning of the route
func NewSimulator(index *geometry.Index, plan []projection.Step, opts SimulatorOptions) *Simulator {
	if index == nil {
		panic("Simulator: index cannot be nil")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SpeedFactor <= 0 {
		opts.SpeedFactor = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	s := &Simulator{index: index, opts: opts}
	s.SetPlan(plan)
	return s
}

// SetPlan swaps the speed plan; safe to call while Run is active
func (s *Simulator) SetPlan(plan []projection.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = make([]projection.Step, len(plan))
	copy(s.plan, plan)
}

func (s *Simulator) speedAt(ratio float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.plan) == 0 {
		return 0
	}
	i := sort.Search(len(s.plan), func(i int) bool { return s.plan[i].EndRatio > ratio })
	if i >= len(s.plan) {
		i = len(s.plan) - 1
	}
	return s.plan[i].SpeedKmh
}

func (s *Simulator) stopped() bool {
	if s.opts.StopEvery <= 0 || s.opts.StopFor <= 0 {
		return false
	}
	cycle := s.opts.StopEvery + s.opts.StopFor
	return s.elapsed%cycle >= s.opts.StopEvery
}

// Advance moves the rider by dt and returns the observation at the new
// position. done is true once the end of the route is reached.
func (s *Simulator) Advance(dt time.Duration, at time.Time) (obs ride.Observation, done bool) {
	total := s.index.TotalDistance()
	ratio := s.index.RatioAtDistance(s.distanceM)

	kmh := 0.0
	if !s.stopped() {
		kmh = s.speedAt(ratio) * s.opts.SpeedFactor
	}
	s.elapsed += dt

	step := kmh / 3.6 * dt.Seconds()
	if s.distanceM+step >= total {
		step = total - s.distanceM
		done = true
	}
	s.distanceM += step

	return ride.Observation{
		Position:  s.index.PointAtRatio(s.index.RatioAtDistance(s.distanceM)),
		SpeedKmh:  kmh,
		DistanceM: step,
		Timestamp: at,
	}, done
}

// DistanceM is how far the rider got
func (s *Simulator) DistanceM() float64 {
	return s.distanceM
}

// Run emits one observation per interval until the route end
func (s *Simulator) Run(ctx context.Context, out chan<- ride.Observation) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			obs, done := s.Advance(s.opts.Interval, s.opts.Now())
			select {
			case out <- obs:
			case <-ctx.Done():
				return ctx.Err()
			}
			if done {
				return nil
			}
		}
	}
}
