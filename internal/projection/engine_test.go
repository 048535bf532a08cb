package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/ride-planner/internal/segments"
)

type fixedRoute float64

func (r fixedRoute) TotalDistanceKm() float64 { return float64(r) }

func newModel(t *testing.T, km float64) *segments.Model {
	t.Helper()
	return segments.NewModel(fixedRoute(km), segments.DefaultLimits())
}

func TestETT_SingleSegment(t *testing.T) {
	m := newModel(t, 10)
	e := NewEngine(m)

	assert.InDelta(t, (24 * time.Minute).Seconds(), e.ETTFromRatio(0).Seconds(), 1e-6)
	assert.InDelta(t, (12 * time.Minute).Seconds(), e.ETTFromRatio(0.5).Seconds(), 1e-6)
	assert.Equal(t, time.Duration(0), e.ETTFromRatio(1))
	assert.InDelta(t, (24 * time.Minute).Seconds(), e.TotalDuration().Seconds(), 1e-6)
}

func TestETT_TwoSpeeds(t *testing.T) {
	m := newModel(t, 10)
	_, err := m.AddSegment()
	require.NoError(t, err)
	_, err = m.SetSpeed(0, 20)
	require.NoError(t, err)
	_, err = m.SetSpeed(1, 40)
	require.NoError(t, err)

	e := NewEngine(m)
	// 5 km @ 20 = 15 min, 5 km @ 40 = 7.5 min
	assert.InDelta(t, 22.5*60, e.ETTFromRatio(0).Seconds(), 1e-6)
	assert.InDelta(t, 15*60, e.CumulativeTimeAtRatio(0.5).Seconds(), 1e-6)
	assert.InDelta(t, 7.5*60, e.ETTFromRatio(0.5).Seconds(), 1e-6)

	plan := e.Plan()
	require.Len(t, plan, 2)
	assert.InDelta(t, 5.0, plan[0].DistanceKm, 1e-9)
	assert.Equal(t, 15*time.Minute, plan[0].Duration)
	assert.Equal(t, 15*time.Minute, plan[1].CumulativeStart)
	assert.Equal(t, 22*time.Minute+30*time.Second, plan[1].CumulativeEnd)
}

func TestCumulativeTime_Monotonic(t *testing.T) {
	m := newModel(t, 37.4)
	for i := 0; i < 4; i++ {
		_, err := m.AddSegment()
		require.NoError(t, err)
	}
	for i, kmh := range []float64{18, 55, 10, 33, 27} {
		_, err := m.SetSpeed(i, kmh)
		require.NoError(t, err)
	}
	e := NewEngine(m)

	prev := time.Duration(-1)
	for i := 0; i <= 100; i++ {
		cur := e.CumulativeTimeAtRatio(float64(i) / 100)
		assert.GreaterOrEqual(t, int64(cur), int64(prev), "ratio %.2f", float64(i)/100)
		prev = cur
	}
	assert.Equal(t, e.TotalDuration(), e.CumulativeTimeAtRatio(1))
}

func TestEngine_RebuildsOnMutation(t *testing.T) {
	m := newModel(t, 10)
	e := NewEngine(m)
	assert.InDelta(t, 24*60, e.TotalDuration().Seconds(), 1e-6)

	_, err := m.SetSpeed(0, 50)
	require.NoError(t, err)
	assert.InDelta(t, 12*60, e.TotalDuration().Seconds(), 1e-6)

	_, err = m.AddSegment()
	require.NoError(t, err)
	assert.Len(t, e.Plan(), 2)

	m.Reset()
	assert.Len(t, e.Plan(), 1)
	assert.InDelta(t, 24*60, e.ETTFromRatio(0).Seconds(), 1e-6)
}

func TestETT_ZeroLengthRoute(t *testing.T) {
	e := NewEngine(newModel(t, 0))

	assert.Equal(t, time.Duration(0), e.ETTFromRatio(0))
	assert.Equal(t, time.Duration(0), e.TotalDuration())
}

func TestETT_ClampsRatio(t *testing.T) {
	e := NewEngine(newModel(t, 10))

	assert.Equal(t, e.ETTFromRatio(0), e.ETTFromRatio(-0.5))
	assert.Equal(t, time.Duration(0), e.ETTFromRatio(1.5))
}

func TestETAFromRatio(t *testing.T) {
	e := NewEngine(newModel(t, 10))
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	eta := e.ETAFromRatio(0.5, now)
	assert.Equal(t, time.Date(2024, 6, 1, 8, 12, 0, 0, time.UTC), eta)

	est := e.Estimate(0.5, now)
	assert.Equal(t, eta, est.ETA)
	assert.Equal(t, 12*time.Minute, est.ETT)
	assert.Equal(t, 24*time.Minute, est.Total)
	assert.Equal(t, 0.5, est.FromRatio)
}

func TestNewEngine_NilSourcePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewEngine(nil)
	})
}
