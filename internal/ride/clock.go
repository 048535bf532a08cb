package ride

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the externally visible ride summary at one instant
type Snapshot struct {
	Status          Status
	ID              string
	StartedAt       time.Time
	MovingTime      time.Duration
	TotalTime       time.Duration
	CurrentSpeedKmh float64
	AverageSpeedKmh float64
	DistanceM       float64
}

// Summary formats the snapshot as a single log line
func (s Snapshot) Summary() string {
	return fmt.Sprintf("ride %s: %.2f km, moving %s, total %s, avg %.1f km/h",
		s.ID, s.DistanceM/1000, s.MovingTime.Round(time.Second), s.TotalTime.Round(time.Second), s.AverageSpeedKmh)
}

// Clock holds one ride's state and applies events to it. It has a single
// owner and does no locking.
type Clock struct {
	params Params
	state  State
	newID  func() string
}

// NewClock returns an Idle clock
func NewClock(params Params) *Clock {
	return &Clock{
		params: params,
		newID:  func() string { return uuid.NewString() },
	}
}

// Params returns the accounting thresholds
func (c *Clock) Params() Params {
	return c.params
}

// State returns a copy of the current state
func (c *Clock) State() State {
	return c.state
}

// Status returns the current lifecycle status
func (c *Clock) Status() Status {
	return c.state.Status
}

// Apply runs Step on the held state; on error the state is kept
func (c *Clock) Apply(ev Event) error {
	next, err := Step(c.params, c.state, ev)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Start begins a ride with a fresh id
func (c *Clock) Start(at time.Time) error {
	return c.Apply(Start(at, c.newID()))
}

func (c *Clock) Pause(at time.Time) error {
	return c.Apply(Pause(at))
}

func (c *Clock) Resume(at time.Time) error {
	return c.Apply(Resume(at))
}

func (c *Clock) Stop(at time.Time) error {
	return c.Apply(Stop(at))
}

func (c *Clock) Tick(at time.Time) error {
	return c.Apply(Tick(at))
}

func (c *Clock) Observe(obs Observation) error {
	return c.Apply(Observe(obs))
}

// Reset discards the held ride; a Stopped ride needs this before a new Start
func (c *Clock) Reset() {
	c.state = State{}
}

// Snapshot reports the ride at now. Current speed reads 0 once the last
// observation is older than StaleAfter, or when no observation arrived yet.
func (c *Clock) Snapshot(now time.Time) Snapshot {
	s := c.state
	snap := Snapshot{
		Status:     s.Status,
		ID:         s.ID,
		StartedAt:  s.StartedAt,
		MovingTime: s.Moving,
		TotalTime:  s.Total,
		DistanceM:  s.DistanceM,
	}

	if !s.LastObservationAt.IsZero() && now.Sub(s.LastObservationAt) <= c.params.StaleAfter {
		snap.CurrentSpeedKmh = s.LastSpeedKmh
	}
	if hours := s.Moving.Hours(); hours > 0 {
		snap.AverageSpeedKmh = s.DistanceM / 1000 / hours
	}
	return snap
}
