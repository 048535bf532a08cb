// Package routeio imports routes from GPX and exports plans as GeoJSON and PNG.
package routeio

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/lowaak/ride-planner/internal/geometry"
	"github.com/lowaak/ride-planner/internal/profile"
)

// ErrNoPoints is returned for a GPX file without usable track or route points
var ErrNoPoints = errors.New("gpx file contains fewer than 2 points")

// DefaultMaxSamples caps the elevation profile size
const DefaultMaxSamples = 500

// Route is an imported route: the geometry index and its elevation profile
type Route struct {
	Name    string
	Index   *geometry.Index
	Samples []profile.Sample
}

// TrackPoint is a recorded fix of a GPX track
type TrackPoint struct {
	Point      orb.Point
	ElevationM float64
	Time       time.Time
}

// LoadGPX reads a route from a GPX file. Track points are used when present,
// route points otherwise. The profile keeps at most maxSamples points.
func LoadGPX(path string, maxSamples int) (*Route, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX file %s: %w", path, err)
	}
	return buildRoute(g, maxSamples)
}

// ParseGPX is LoadGPX over an in-memory document
func ParseGPX(data []byte, maxSamples int) (*Route, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}
	return buildRoute(g, maxSamples)
}

// LoadTrack reads the timestamped track points of a GPX file for replay
func LoadTrack(path string) ([]TrackPoint, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX file %s: %w", path, err)
	}
	return trackPoints(g), nil
}

// ParseTrack is LoadTrack over an in-memory document
func ParseTrack(data []byte) ([]TrackPoint, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}
	return trackPoints(g), nil
}

func trackPoints(g *gpx.GPX) []TrackPoint {
	var out []TrackPoint
	add := func(p *gpx.GPXPoint) {
		ele := 0.0
		if p.Elevation.NotNull() {
			ele = p.Elevation.Value()
		}
		out = append(out, TrackPoint{
			Point:      geometry.NewPoint(p.Latitude, p.Longitude),
			ElevationM: ele,
			Time:       p.Timestamp,
		})
	}

	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			for i := range segment.Points {
				add(&segment.Points[i])
			}
		}
	}
	if len(out) == 0 {
		for _, route := range g.Routes {
			for i := range route.Points {
				add(&route.Points[i])
			}
		}
	}
	return out
}

func buildRoute(g *gpx.GPX, maxSamples int) (*Route, error) {
	points := trackPoints(g)
	if len(points) < 2 {
		return nil, ErrNoPoints
	}

	line := make(orb.LineString, len(points))
	for i, p := range points {
		line[i] = p.Point
	}
	idx, err := geometry.FromPoints(line)
	if err != nil {
		return nil, err
	}

	name := g.Name
	if name == "" && len(g.Tracks) > 0 {
		name = g.Tracks[0].Name
	}
	if name == "" && len(g.Routes) > 0 {
		name = g.Routes[0].Name
	}

	route := &Route{Name: name, Index: idx}
	for _, i := range SampleIndices(len(points), maxSamples) {
		d := idx.DistanceAt(i) - idx.DistanceAt(0)
		route.Samples = append(route.Samples, profile.Sample{
			Point:      points[i].Point,
			ElevationM: points[i].ElevationM,
			DistanceM:  d,
			Ratio:      idx.RatioAtDistance(d),
		})
	}
	return route, nil
}

// SampleIndices picks at most limit evenly spread indices out of n, always
// keeping the first and the last. Indices are strictly increasing.
func SampleIndices(n, limit int) []int {
	if n <= 0 {
		return nil
	}
	if limit < 2 {
		limit = 2
	}
	if n <= limit {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}

	out := make([]int, limit)
	step := float64(n-1) / float64(limit-1)
	for i := range out {
		out[i] = int(math.Round(float64(i) * step))
	}
	out[limit-1] = n - 1
	return out
}
