// Package ride tracks the lifecycle of a ride and its moving and total time.
//
// The accounting is a pure transition function, Step, over State and Event.
// Clock wraps it with a state holder for callers that prefer methods.
package ride

import (
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// ErrInvalidTransition is returned when an event is not allowed in the current status
var ErrInvalidTransition = errors.New("invalid ride transition")

// Status is the lifecycle status of a ride
type Status int

const (
	StatusIdle Status = iota
	StatusActive
	StatusPaused
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusActive:
		return "Active"
	case StatusPaused:
		return "Paused"
	case StatusStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Params are the accounting thresholds
type Params struct {
	// MovingThresholdKmh is the speed above which elapsed time counts as moving
	MovingThresholdKmh float64
	// StaleAfter is how old the last observation may be before current speed reads 0
	StaleAfter time.Duration
}

// DefaultParams returns a 2 km/h moving threshold and a 10 s stale timeout
func DefaultParams() Params {
	return Params{
		MovingThresholdKmh: 2,
		StaleAfter:         10 * time.Second,
	}
}

// Observation is one live position fix. DistanceM is the distance travelled
// since the previous fix, measured by the feed.
type Observation struct {
	Position  orb.Point
	SpeedKmh  float64
	DistanceM float64
	Timestamp time.Time
}

// State is the complete ride state. The zero value is an Idle ride.
type State struct {
	Status    Status
	ID        string
	StartedAt time.Time

	Moving time.Duration
	Total  time.Duration

	// Anchor is the last instant already accounted for
	Anchor time.Time

	LastSpeedKmh      float64
	LastObservationAt time.Time
	LastPosition      orb.Point
	HasPosition       bool

	DistanceM float64
}

// EventKind identifies the kind of ride event
type EventKind int

const (
	EventStart EventKind = iota
	EventPause
	EventResume
	EventStop
	EventTick
	EventObservation
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventStop:
		return "stop"
	case EventTick:
		return "tick"
	case EventObservation:
		return "observation"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one input to Step
type Event struct {
	Kind        EventKind
	At          time.Time
	RideID      string // EventStart only
	Observation Observation
}

func Start(at time.Time, rideID string) Event {
	return Event{Kind: EventStart, At: at, RideID: rideID}
}

func Pause(at time.Time) Event {
	return Event{Kind: EventPause, At: at}
}

func Resume(at time.Time) Event {
	return Event{Kind: EventResume, At: at}
}

func Stop(at time.Time) Event {
	return Event{Kind: EventStop, At: at}
}

func Tick(at time.Time) Event {
	return Event{Kind: EventTick, At: at}
}

// Observe wraps an observation; its timestamp is the event time
func Observe(obs Observation) Event {
	return Event{Kind: EventObservation, At: obs.Timestamp, Observation: obs}
}
