package planner

import (
	"math"
	"sort"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lowaak/ride-planner/internal/profile"
	"github.com/lowaak/ride-planner/internal/segments"
)

var barGlyphs = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// profileCanvas draws one elevation profile view as colored bars, one column
// per visible slice of samples, with the live and hover markers on the top row
type profileCanvas struct {
	*tview.Box

	mu       sync.Mutex
	samples  []profile.Sample
	segments []segments.Segment
	snapshot profile.Snapshot
	hasSnap  bool
}

func newProfileCanvas(title string) *profileCanvas {
	pc := &profileCanvas{Box: tview.NewBox()}
	pc.SetBorder(true).SetTitle(title)
	pc.SetDrawFunc(pc.draw)
	return pc
}

func (pc *profileCanvas) setSamples(samples []profile.Sample) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.samples = samples
}

func (pc *profileCanvas) setSegments(segs []segments.Segment) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.segments = segs
}

func (pc *profileCanvas) setSnapshot(snap profile.Snapshot) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.snapshot = snap
	pc.hasSnap = true
}

// columnSample maps a canvas column to a sample index in [start,end]
func columnSample(col, width, start, end int) int {
	if width <= 1 {
		return start
	}
	return start + int(math.Round(float64(col)*float64(end-start)/float64(width-1)))
}

// sampleColumn is the inverse of columnSample, -1 when idx is not visible
func sampleColumn(idx, width, start, end int) int {
	if idx < start || idx > end || end <= start {
		return -1
	}
	return int(math.Round(float64(idx-start) * float64(width-1) / float64(end-start)))
}

func (pc *profileCanvas) segmentColor(ratio float64) tcell.Color {
	i := sort.Search(len(pc.segments), func(i int) bool { return pc.segments[i].EndRatio > ratio })
	if i >= len(pc.segments) {
		i = len(pc.segments) - 1
	}
	if i < 0 {
		return tcell.ColorGray
	}
	return tcell.GetColor(string(segments.ColorFor(pc.segments[i].Index)))
}

func (pc *profileCanvas) draw(screen tcell.Screen, x, y, width, height int) (int, int, int, int) {
	ix, iy, iw, ih := x+1, y+1, width-2, height-2
	if iw <= 0 || ih <= 1 {
		return ix, iy, iw, ih
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	snap := pc.snapshot
	if !pc.hasSnap || len(pc.samples) == 0 || snap.VisibleStart < 0 || snap.VisibleEnd >= len(pc.samples) {
		tview.Print(screen, "no profile", ix, iy+ih/2, iw, tview.AlignCenter, tcell.ColorGray)
		return ix, iy, iw, ih
	}
	start, end := snap.VisibleStart, snap.VisibleEnd

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range pc.samples[start : end+1] {
		lo = math.Min(lo, s.ElevationM)
		hi = math.Max(hi, s.ElevationM)
	}
	span := math.Max(hi-lo, 1)

	// Row 0 is reserved for the markers
	plotH := ih - 1
	levels := float64(plotH * len(barGlyphs))
	for col := 0; col < iw; col++ {
		s := pc.samples[columnSample(col, iw, start, end)]
		// at least one eighth so the floor of the profile stays visible
		n := int(math.Max(1, math.Round((s.ElevationM-lo)/span*(levels-1))+1))
		style := tcell.StyleDefault.Foreground(pc.segmentColor(s.Ratio))
		for row := 0; row < plotH && n > 0; row++ {
			glyph := barGlyphs[len(barGlyphs)-1]
			if n < len(barGlyphs) {
				glyph = barGlyphs[n-1]
			}
			screen.SetContent(ix+col, iy+ih-1-row, glyph, nil, style)
			n -= len(barGlyphs)
		}
	}

	pc.drawMarker(screen, profile.MarkerLive, snap.LiveIndex, ix, iy, iw, start, end)
	pc.drawMarker(screen, profile.MarkerHover, snap.HoverIndex, ix, iy, iw, start, end)
	return ix, iy, iw, ih
}

func (pc *profileCanvas) drawMarker(screen tcell.Screen, kind profile.MarkerKind, idx, ix, iy, iw, start, end int) {
	col := sampleColumn(idx, iw, start, end)
	if col < 0 {
		return
	}
	style := tcell.StyleDefault.Foreground(tcell.GetColor(kind.Color())).Bold(true)
	screen.SetContent(ix+col, iy, kind.Glyph(), nil, style)
}

// canvasX converts a screen x into a column of the inner rect; ok is false
// when the point is outside the canvas
func (pc *profileCanvas) canvasX(x, y int) (col, width int, ok bool) {
	ix, iy, iw, ih := pc.GetInnerRect()
	if x < ix || x >= ix+iw || y < iy || y >= iy+ih {
		return 0, 0, false
	}
	return x - ix, iw, true
}
