package feed

import (
	"context"
	"time"

	"github.com/paulmach/orb/geo"

	"github.com/lowaak/ride-planner/internal/ride"
	"github.com/lowaak/ride-planner/internal/routeio"
)

// Replay plays back a recorded track. Gaps between fixes keep their recorded
// length divided by the speed factor; observations carry the wall-clock time
// of emission so they line up with the ride clock.
type Replay struct {
	points      []routeio.TrackPoint
	speedFactor float64
	now         func() time.Time
	next        int
}

// NewReplay prepares a replay of points
func NewReplay(points []routeio.TrackPoint, speedFactor float64, now func() time.Time) *Replay {
	if speedFactor <= 0 {
		speedFactor = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Replay{points: points, speedFactor: speedFactor, now: now}
}

// Len returns the number of recorded fixes
func (r *Replay) Len() int {
	return len(r.points)
}

// Next returns the next observation and the wait that preceded it in the
// recording. Speed comes from the distance and time to the previous fix.
// ok is false once every fix was returned.
func (r *Replay) Next(at time.Time) (obs ride.Observation, wait time.Duration, ok bool) {
	if r.next >= len(r.points) {
		return ride.Observation{}, 0, false
	}
	wait = r.pendingWait()
	i := r.next
	r.next++

	cur := r.points[i]
	obs = ride.Observation{Position: cur.Point, Timestamp: at}
	if i == 0 {
		return obs, wait, true
	}

	prev := r.points[i-1]
	obs.DistanceM = geo.DistanceHaversine(prev.Point, cur.Point)
	if gap := cur.Time.Sub(prev.Time); gap > 0 {
		obs.SpeedKmh = obs.DistanceM / gap.Seconds() * 3.6
	}
	return obs, wait, true
}

// Run emits the fixes with their recorded spacing
func (r *Replay) Run(ctx context.Context, out chan<- ride.Observation) error {
	for r.next < len(r.points) {
		if wait := r.pendingWait(); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		obs, _, _ := r.Next(r.now())
		select {
		case out <- obs:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// pendingWait is the scaled recorded gap before the next fix
func (r *Replay) pendingWait() time.Duration {
	i := r.next
	if i <= 0 || i >= len(r.points) {
		return 0
	}
	gap := r.points[i].Time.Sub(r.points[i-1].Time)
	if gap <= 0 {
		return 0
	}
	return time.Duration(float64(gap) / r.speedFactor)
}
