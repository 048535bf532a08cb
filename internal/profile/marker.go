package profile

import "github.com/paulmach/orb"

// MarkerKind tells the live position marker from the hover marker
type MarkerKind int

const (
	MarkerLive MarkerKind = iota
	MarkerHover
)

func (k MarkerKind) String() string {
	if k == MarkerHover {
		return "hover"
	}
	return "live"
}

// Glyph is the terminal symbol of the marker; the two kinds never share one
func (k MarkerKind) Glyph() rune {
	if k == MarkerHover {
		return '◆'
	}
	return '●'
}

// Color is the "#rrggbb" color of the marker
func (k MarkerKind) Color() string {
	if k == MarkerHover {
		return "#ffd700"
	}
	return "#ff3030"
}

// Marker is a position shown on both the profile and the spatial view
type Marker struct {
	Kind  MarkerKind
	Index int
	Ratio float64
	Point orb.Point
}
