package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unevenLine runs north along the prime meridian with a short first edge
// and a long second edge
func unevenLine(t *testing.T) *Index {
	t.Helper()
	idx, err := New(orb.LineString{
		NewPoint(0, 0),
		NewPoint(0.01, 0),
		NewPoint(0.03, 0),
	}, []float64{0, 1000, 3000})
	require.NoError(t, err)
	return idx
}

func TestNew_Errors(t *testing.T) {
	_, err := New(orb.LineString{NewPoint(0, 0)}, []float64{0})
	assert.ErrorIs(t, err, ErrEmptyRoute)

	_, err = New(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyRoute)

	_, err = New(orb.LineString{NewPoint(0, 0), NewPoint(1, 0)}, []float64{0})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = New(orb.LineString{NewPoint(0, 0), NewPoint(1, 0), NewPoint(2, 0)}, []float64{0, 10, 5})
	assert.ErrorIs(t, err, ErrNonMonotonic)

	_, err = FromPoints(orb.LineString{NewPoint(0, 0)})
	assert.ErrorIs(t, err, ErrEmptyRoute)
}

func TestNew_CopiesInput(t *testing.T) {
	line := orb.LineString{NewPoint(0, 0), NewPoint(0.01, 0)}
	dist := []float64{0, 1000}
	idx, err := New(line, dist)
	require.NoError(t, err)

	line[1] = NewPoint(5, 5)
	dist[1] = 1
	assert.Equal(t, 1000.0, idx.TotalDistance())
	assert.Equal(t, 0.01, idx.PointAt(1).Lat())
}

func TestFromPoints_Haversine(t *testing.T) {
	idx, err := FromPoints(orb.LineString{NewPoint(0, 0), NewPoint(0.009, 0)})
	require.NoError(t, err)
	assert.InDelta(t, 1001.9, idx.TotalDistance(), 0.5)
	assert.InDelta(t, 1.0019, idx.TotalDistanceKm(), 0.001)
	assert.Equal(t, 2, idx.Len())
}

func TestRatioDistanceConversions(t *testing.T) {
	idx := unevenLine(t)

	assert.Equal(t, 0.5, idx.RatioAtDistance(1500))
	assert.Equal(t, 0.0, idx.RatioAtDistance(-10))
	assert.Equal(t, 1.0, idx.RatioAtDistance(99999))

	assert.Equal(t, 1500.0, idx.DistanceAtRatio(0.5))
	assert.Equal(t, 3000.0, idx.DistanceAtRatio(2))
	assert.Equal(t, 0.0, idx.DistanceAtRatio(-1))
}

func TestPointAtRatio_RespectsUnevenSpacing(t *testing.T) {
	idx := unevenLine(t)

	// Plain index interpolation would put ratio 0.5 on the middle vertex (lat 0.01)
	p := idx.PointAtRatio(0.5)
	assert.InDelta(t, 0.015, p.Lat(), 1e-9)
	assert.InDelta(t, 0.0, p.Lon(), 1e-9)

	p = idx.PointAtRatio(1.0 / 6.0)
	assert.InDelta(t, 0.005, p.Lat(), 1e-9)

	assert.Equal(t, idx.PointAt(0), idx.PointAtRatio(0))
	assert.Equal(t, idx.PointAt(2), idx.PointAtRatio(1))
	assert.Equal(t, idx.PointAt(2), idx.PointAtRatio(7))
	assert.Equal(t, idx.PointAt(0), idx.PointAtRatio(-3))
}

func TestPointAtRatio_DuplicateVertices(t *testing.T) {
	idx, err := New(orb.LineString{
		NewPoint(0, 0),
		NewPoint(0.01, 0),
		NewPoint(0.01, 0),
		NewPoint(0.02, 0),
	}, []float64{0, 1000, 1000, 2000})
	require.NoError(t, err)

	assert.InDelta(t, 0.01, idx.PointAtRatio(0.5).Lat(), 1e-9)
	assert.InDelta(t, 0.015, idx.PointAtRatio(0.75).Lat(), 1e-9)
}

func TestZeroLengthRoute(t *testing.T) {
	idx, err := New(orb.LineString{NewPoint(1, 1), NewPoint(1, 1)}, []float64{0, 0})
	require.NoError(t, err)

	assert.Equal(t, 0.0, idx.TotalDistance())
	assert.Equal(t, 0.0, idx.RatioAtDistance(100))
	assert.Equal(t, NewPoint(1, 1), idx.PointAtRatio(0.5))
}

func TestSubLine(t *testing.T) {
	idx := unevenLine(t)

	sub := idx.SubLine(1.0/6.0, 0.5)
	require.Len(t, sub, 3)
	assert.InDelta(t, 0.005, sub[0].Lat(), 1e-9)
	assert.Equal(t, idx.PointAt(1), sub[1])
	assert.InDelta(t, 0.015, sub[2].Lat(), 1e-9)

	// Inside a single edge there are no interior vertices
	sub = idx.SubLine(0.5, 0.6)
	assert.Len(t, sub, 2)

	// Reversed bounds are swapped
	assert.Equal(t, idx.SubLine(0, 1), idx.SubLine(1, 0))
	assert.Len(t, idx.SubLine(0, 1), 3)
}

func TestNearestRatio(t *testing.T) {
	idx := unevenLine(t)

	assert.Equal(t, 0, idx.NearestVertex(NewPoint(-1, 0)))
	assert.Equal(t, 1, idx.NearestVertex(NewPoint(0.0105, 0.0001)))
	assert.InDelta(t, 1.0/3.0, idx.NearestRatio(NewPoint(0.0105, 0.0001)), 1e-9)
	assert.Equal(t, 1.0, idx.NearestRatio(NewPoint(0.5, 0)))
}

func TestNearestRatioOnEdges(t *testing.T) {
	idx := unevenLine(t)

	// Vertex approximation snaps to the middle vertex, edge projection does not
	p := NewPoint(0.015, 0.0001)
	assert.InDelta(t, 0.5, idx.NearestRatioOnEdges(p), 1e-6)
	assert.InDelta(t, 1.0/3.0, idx.NearestRatio(p), 1e-9)

	assert.Equal(t, 0.0, idx.NearestRatioOnEdges(NewPoint(-0.5, 0)))
	assert.Equal(t, 1.0, idx.NearestRatioOnEdges(NewPoint(0.5, 0)))
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, ClampRatio(-0.1))
	assert.Equal(t, 0.3, ClampRatio(0.3))
	assert.Equal(t, 1.0, ClampRatio(1.2))
}
