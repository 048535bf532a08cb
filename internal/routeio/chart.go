package routeio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/lowaak/ride-planner/internal/profile"
	"github.com/lowaak/ride-planner/internal/projection"
	"github.com/lowaak/ride-planner/internal/segments"
)

// ErrNothingToPlot is returned for a profile without distance to plot against
var ErrNothingToPlot = errors.New("profile needs at least 2 samples over a non-zero distance")

// ChartOptions size the rendered profile
type ChartOptions struct {
	Width  int
	Height int
	Title  string
}

// DefaultChartOptions renders a 1200x400 image
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 1200, Height: 400}
}

// RenderProfilePNG draws the elevation profile against distance, filled per
// segment in the segment color, with a vertical line per marker
func RenderProfilePNG(w io.Writer, samples []profile.Sample, plan []projection.Step, markers []profile.Marker, opts ChartOptions) error {
	if len(samples) < 2 {
		return ErrNothingToPlot
	}
	totalKm := samples[len(samples)-1].DistanceM / 1000
	if totalKm <= 0 {
		return ErrNothingToPlot
	}

	minEle, maxEle := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		minEle = math.Min(minEle, s.ElevationM)
		maxEle = math.Max(maxEle, s.ElevationM)
	}
	pad := math.Max(10, (maxEle-minEle)*0.1)
	yRange := &chart.ContinuousRange{Min: math.Floor(minEle - pad), Max: math.Ceil(maxEle + pad)}

	var series []chart.Series
	for _, step := range plan {
		xs, ys := segmentSeries(samples, totalKm, step.StartRatio, step.EndRatio)
		col := drawing.ColorFromHex(segments.ColorFor(step.Index).Hex())
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("#%d %.0f km/h", step.Index+1, step.SpeedKmh),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
				FillColor:   col.WithAlpha(96),
			},
		})
	}
	if len(plan) == 0 {
		xs, ys := segmentSeries(samples, totalKm, 0, 1)
		series = append(series, chart.ContinuousSeries{Name: "elevation", XValues: xs, YValues: ys})
	}

	for _, m := range markers {
		x := m.Ratio * totalKm
		col := drawing.ColorFromHex(m.Kind.Color()[1:])
		series = append(series, chart.ContinuousSeries{
			Name:    m.Kind.String(),
			XValues: []float64{x, x},
			YValues: []float64{yRange.Min, yRange.Max},
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
				DotColor:    col,
				DotWidth:    3,
			},
		})
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "km", Range: &chart.ContinuousRange{Min: 0, Max: totalKm}},
		YAxis:      chart.YAxis{Name: "m", Range: yRange},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render profile chart: %w", err)
	}
	return nil
}

// WriteProfilePNG renders the profile into a file
func WriteProfilePNG(path string, samples []profile.Sample, plan []projection.Step, markers []profile.Marker, opts ChartOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return RenderProfilePNG(f, samples, plan, markers, opts)
}

// segmentSeries returns the profile between two ratios in km and meters, with
// interpolated end points so adjacent segments meet and every series has
// at least 2 points
func segmentSeries(samples []profile.Sample, totalKm, from, to float64) ([]float64, []float64) {
	xs := []float64{from * totalKm}
	ys := []float64{ElevationAtRatio(samples, from)}

	i := sort.Search(len(samples), func(i int) bool { return samples[i].Ratio > from })
	for ; i < len(samples) && samples[i].Ratio < to; i++ {
		xs = append(xs, samples[i].Ratio*totalKm)
		ys = append(ys, samples[i].ElevationM)
	}

	xs = append(xs, to*totalKm)
	ys = append(ys, ElevationAtRatio(samples, to))
	return xs, ys
}

// ElevationAtRatio interpolates the profile elevation at route ratio r
func ElevationAtRatio(samples []profile.Sample, r float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	i := sort.Search(len(samples), func(i int) bool { return samples[i].Ratio >= r })
	if i <= 0 {
		return samples[0].ElevationM
	}
	if i >= len(samples) {
		return samples[len(samples)-1].ElevationM
	}
	a, b := samples[i-1], samples[i]
	span := b.Ratio - a.Ratio
	if span <= 0 {
		return b.ElevationM
	}
	return a.ElevationM + (b.ElevationM-a.ElevationM)*(r-a.Ratio)/span
}
