package ride

import (
	"fmt"
	"time"
)

// Step applies one event to a ride state and returns the new state.
//
// While Active, every tick and every observation adds the time elapsed since
// the anchor to the total, and to the moving time when the last known speed
// is above the threshold. An observation is accounted with the speed that was
// in force before it, then replaces that speed. Pause and Stop freeze both
// accumulators; Resume moves the anchor so paused wall time never counts.
// Time running backwards contributes nothing.
//
// On error the input state is returned unchanged.
func Step(p Params, s State, ev Event) (State, error) {
	switch ev.Kind {
	case EventStart:
		if s.Status != StatusIdle {
			return s, transitionError(s.Status, ev.Kind)
		}
		s.Status = StatusActive
		s.ID = ev.RideID
		s.StartedAt = ev.At
		s.Anchor = ev.At
		s.Moving = 0
		s.Total = 0
		s.DistanceM = 0
		return s, nil

	case EventPause:
		if s.Status != StatusActive {
			return s, transitionError(s.Status, ev.Kind)
		}
		s.Status = StatusPaused
		return s, nil

	case EventResume:
		if s.Status != StatusPaused {
			return s, transitionError(s.Status, ev.Kind)
		}
		s.Status = StatusActive
		s.Anchor = ev.At
		return s, nil

	case EventStop:
		if s.Status != StatusActive && s.Status != StatusPaused {
			return s, transitionError(s.Status, ev.Kind)
		}
		s.Status = StatusStopped
		return s, nil

	case EventTick:
		if s.Status == StatusActive {
			s = accrue(p, s, ev.At)
		}
		return s, nil

	case EventObservation:
		active := s.Status == StatusActive
		if active {
			s = accrue(p, s, ev.At)
			s.DistanceM += ev.Observation.DistanceM
		}
		if s.Status != StatusStopped {
			s.LastSpeedKmh = ev.Observation.SpeedKmh
			s.LastObservationAt = ev.Observation.Timestamp
			s.LastPosition = ev.Observation.Position
			s.HasPosition = true
		}
		return s, nil

	default:
		return s, fmt.Errorf("%w: unknown event %v", ErrInvalidTransition, ev.Kind)
	}
}

func accrue(p Params, s State, at time.Time) State {
	delta := at.Sub(s.Anchor)
	if delta <= 0 {
		return s
	}
	s.Total += delta
	if s.LastSpeedKmh > p.MovingThresholdKmh {
		s.Moving += delta
	}
	s.Anchor = at
	return s
}

func transitionError(from Status, kind EventKind) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, kind, from)
}
