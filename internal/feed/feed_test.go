package feed

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/ride-planner/internal/geometry"
	"github.com/lowaak/ride-planner/internal/projection"
	"github.com/lowaak/ride-planner/internal/ride"
	"github.com/lowaak/ride-planner/internal/routeio"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func straightRoute(t *testing.T, meters float64) *geometry.Index {
	t.Helper()
	idx, err := geometry.New(orb.LineString{
		geometry.NewPoint(46, 7),
		geometry.NewPoint(46+meters/111320, 7),
	}, []float64{0, meters})
	require.NoError(t, err)
	return idx
}

func singleStep(kmh float64) []projection.Step {
	return []projection.Step{{Index: 0, StartRatio: 0, EndRatio: 1, SpeedKmh: kmh}}
}

func TestSimulator_AdvanceAtPlannedSpeed(t *testing.T) {
	sim := NewSimulator(straightRoute(t, 1000), singleStep(36), DefaultSimulatorOptions())

	obs, done := sim.Advance(time.Second, t0)
	assert.False(t, done)
	assert.Equal(t, 36.0, obs.SpeedKmh)
	assert.InDelta(t, 10.0, obs.DistanceM, 1e-9)
	assert.Equal(t, t0, obs.Timestamp)

	for i := 0; i < 98; i++ {
		_, done = sim.Advance(time.Second, t0)
		require.False(t, done)
	}
	obs, done = sim.Advance(time.Second, t0)
	assert.True(t, done)
	assert.InDelta(t, 1000.0, sim.DistanceM(), 1e-6)
	assert.InDelta(t, 46+1000.0/111320, obs.Position.Lat(), 1e-9)
}

func TestSimulator_SpeedFollowsPlan(t *testing.T) {
	plan := []projection.Step{
		{Index: 0, StartRatio: 0, EndRatio: 0.5, SpeedKmh: 36},
		{Index: 1, StartRatio: 0.5, EndRatio: 1, SpeedKmh: 18},
	}
	opts := DefaultSimulatorOptions()
	opts.SpeedFactor = 2
	sim := NewSimulator(straightRoute(t, 100), plan, opts)

	// 20 m per second in the first half
	var speeds []float64
	for i := 0; i < 4; i++ {
		obs, _ := sim.Advance(time.Second, t0)
		speeds = append(speeds, obs.SpeedKmh)
	}
	assert.Equal(t, []float64{72, 72, 72, 36}, speeds)

	sim.SetPlan(singleStep(10))
	obs, _ := sim.Advance(time.Second, t0)
	assert.Equal(t, 20.0, obs.SpeedKmh)
}

func TestSimulator_StopRhythm(t *testing.T) {
	opts := DefaultSimulatorOptions()
	opts.StopEvery = 2 * time.Second
	opts.StopFor = time.Second
	sim := NewSimulator(straightRoute(t, 1000), singleStep(36), opts)

	var speeds []float64
	for i := 0; i < 6; i++ {
		obs, _ := sim.Advance(time.Second, t0)
		speeds = append(speeds, obs.SpeedKmh)
	}
	assert.Equal(t, []float64{36, 36, 0, 36, 36, 0}, speeds)
}

func TestSimulator_RunEndsAtRouteEnd(t *testing.T) {
	opts := DefaultSimulatorOptions()
	opts.Interval = time.Millisecond
	opts.SpeedFactor = 1000 // 10 m per interval
	sim := NewSimulator(straightRoute(t, 25), singleStep(36), opts)

	out := make(chan ride.Observation, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, sim.Run(ctx, out))
	assert.Len(t, out, 3)
}

func TestSimulator_RunCancelled(t *testing.T) {
	sim := NewSimulator(straightRoute(t, 1000), singleStep(36), DefaultSimulatorOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sim.Run(ctx, make(chan ride.Observation)), context.Canceled)
}

func recorded() []routeio.TrackPoint {
	return []routeio.TrackPoint{
		{Point: geometry.NewPoint(46, 7), Time: t0},
		{Point: geometry.NewPoint(46.001, 7), Time: t0.Add(10 * time.Second)},
		{Point: geometry.NewPoint(46.001, 7), Time: t0.Add(20 * time.Second)},
	}
}

func TestReplay_Next(t *testing.T) {
	r := NewReplay(recorded(), 2, nil)
	require.Equal(t, 3, r.Len())

	obs, wait, ok := r.Next(t0)
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), wait)
	assert.Equal(t, 0.0, obs.SpeedKmh)

	obs, wait, ok = r.Next(t0)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, wait)
	assert.InDelta(t, 111.3, obs.DistanceM, 0.1)
	assert.InDelta(t, 40.07, obs.SpeedKmh, 0.05)

	obs, _, ok = r.Next(t0)
	require.True(t, ok)
	assert.Equal(t, 0.0, obs.SpeedKmh)

	_, _, ok = r.Next(t0)
	assert.False(t, ok)
}

func TestReplay_Run(t *testing.T) {
	r := NewReplay(recorded(), 1000, func() time.Time { return t0 })
	out := make(chan ride.Observation, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx, out))
	require.Len(t, out, 3)
	first := <-out
	assert.Equal(t, t0, first.Timestamp)
}
