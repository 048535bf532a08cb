package ride

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func sec(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Second)
}

func mustStep(t *testing.T, s State, ev Event) State {
	t.Helper()
	next, err := Step(DefaultParams(), s, ev)
	require.NoError(t, err)
	return next
}

func TestStep_SpeedSequenceSplitsMovingAndTotal(t *testing.T) {
	s := mustStep(t, State{}, Start(t0, "r1"))

	for i, kmh := range []float64{0, 0, 10, 10, 0} {
		s = mustStep(t, s, Observe(Observation{SpeedKmh: kmh, Timestamp: sec(i)}))
		s = mustStep(t, s, Tick(sec(i+1)))
	}

	assert.Equal(t, 2000*time.Millisecond, s.Moving)
	assert.Equal(t, 5000*time.Millisecond, s.Total)
}

func TestStep_PausedTicksDoNotCount(t *testing.T) {
	s := mustStep(t, State{}, Start(t0, "r1"))
	s = mustStep(t, s, Observe(Observation{SpeedKmh: 20, Timestamp: t0}))
	s = mustStep(t, s, Tick(sec(1)))
	s = mustStep(t, s, Tick(sec(2)))
	require.Equal(t, 2*time.Second, s.Total)

	s = mustStep(t, s, Pause(sec(2)))
	moving, total := s.Moving, s.Total
	for i := 3; i <= 5; i++ {
		s = mustStep(t, s, Tick(sec(i)))
	}
	assert.Equal(t, moving, s.Moving)
	assert.Equal(t, total, s.Total)

	s = mustStep(t, s, Resume(sec(60)))
	assert.Equal(t, moving, s.Moving)
	assert.Equal(t, total, s.Total)

	// Only the second after resume counts
	s = mustStep(t, s, Tick(sec(61)))
	assert.Equal(t, 3*time.Second, s.Total)
	assert.Equal(t, 3*time.Second, s.Moving)
}

func TestStep_ObservationAccruesWithPreviousSpeed(t *testing.T) {
	s := mustStep(t, State{}, Start(t0, "r1"))
	s = mustStep(t, s, Observe(Observation{SpeedKmh: 30, Timestamp: t0}))

	// The 4 s before this fix were ridden at 30 km/h
	s = mustStep(t, s, Observe(Observation{SpeedKmh: 0, DistanceM: 33, Timestamp: sec(4)}))
	assert.Equal(t, 4*time.Second, s.Moving)
	assert.Equal(t, 4*time.Second, s.Total)
	assert.Equal(t, 33.0, s.DistanceM)
	assert.Equal(t, 0.0, s.LastSpeedKmh)

	s = mustStep(t, s, Tick(sec(6)))
	assert.Equal(t, 4*time.Second, s.Moving)
	assert.Equal(t, 6*time.Second, s.Total)
}

func TestStep_BackwardsTimeContributesNothing(t *testing.T) {
	s := mustStep(t, State{}, Start(sec(10), "r1"))
	s = mustStep(t, s, Tick(sec(12)))
	s = mustStep(t, s, Tick(sec(11)))
	assert.Equal(t, 2*time.Second, s.Total)
	assert.Equal(t, sec(12), s.Anchor)
}

func TestStep_ThresholdIsStrict(t *testing.T) {
	s := mustStep(t, State{}, Start(t0, "r1"))
	s = mustStep(t, s, Observe(Observation{SpeedKmh: 2, Timestamp: t0}))
	s = mustStep(t, s, Tick(sec(1)))
	assert.Equal(t, time.Duration(0), s.Moving)

	s, err := Step(Params{MovingThresholdKmh: 1}, s, Tick(sec(2)))
	require.NoError(t, err)
	assert.Equal(t, time.Second, s.Moving)
}

func TestStep_InvalidTransitions(t *testing.T) {
	p := DefaultParams()
	idle := State{}

	cases := []struct {
		name string
		from Status
		ev   Event
	}{
		{"pause idle", StatusIdle, Pause(t0)},
		{"resume idle", StatusIdle, Resume(t0)},
		{"stop idle", StatusIdle, Stop(t0)},
		{"start active", StatusActive, Start(t0, "x")},
		{"resume active", StatusActive, Resume(t0)},
		{"pause paused", StatusPaused, Pause(t0)},
		{"start paused", StatusPaused, Start(t0, "x")},
		{"start stopped", StatusStopped, Start(t0, "x")},
		{"stop stopped", StatusStopped, Stop(t0)},
		{"resume stopped", StatusStopped, Resume(t0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := idle
			s.Status = tc.from
			s.Total = 7 * time.Second
			next, err := Step(p, s, tc.ev)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, s, next)
		})
	}
}

func TestStep_StopFreezes(t *testing.T) {
	s := mustStep(t, State{}, Start(t0, "r1"))
	s = mustStep(t, s, Tick(sec(3)))
	s = mustStep(t, s, Stop(sec(3)))
	s = mustStep(t, s, Tick(sec(9)))
	s = mustStep(t, s, Observe(Observation{SpeedKmh: 40, DistanceM: 100, Timestamp: sec(10)}))

	assert.Equal(t, StatusStopped, s.Status)
	assert.Equal(t, 3*time.Second, s.Total)
	assert.Equal(t, 0.0, s.DistanceM)
}

func TestStep_IdleObservationKeepsPosition(t *testing.T) {
	s := mustStep(t, State{}, Observe(Observation{SpeedKmh: 15, DistanceM: 50, Timestamp: t0}))

	assert.Equal(t, StatusIdle, s.Status)
	assert.True(t, s.HasPosition)
	assert.Equal(t, 15.0, s.LastSpeedKmh)
	assert.Equal(t, 0.0, s.DistanceM)
	assert.Equal(t, time.Duration(0), s.Total)
}
