package planner

import (
	"fmt"
	"log"

	"github.com/lowaak/ride-planner/internal/routeio"
)

// Exporter writes the segment overlay and the elevation profile to files.
// An empty path skips that output.
type Exporter struct {
	GeoJSONPath string
	PNGPath     string
	Chart       routeio.ChartOptions
	logger      *log.Logger
}

func NewExporter(geoJSONPath, pngPath string, logger *log.Logger) *Exporter {
	if logger == nil {
		panic("Exporter: logger cannot be nil")
	}
	return &Exporter{
		GeoJSONPath: geoJSONPath,
		PNGPath:     pngPath,
		Chart:       routeio.DefaultChartOptions(),
		logger:      logger,
	}
}

// Enabled reports whether any output is configured
func (e *Exporter) Enabled() bool {
	return e.GeoJSONPath != "" || e.PNGPath != ""
}

// Write exports data to every configured path
func (e *Exporter) Write(data ExportData) error {
	if e.GeoJSONPath != "" {
		fc := routeio.SegmentsFeatureCollection(data.Index, data.Plan, data.Markers)
		if err := routeio.WriteGeoJSON(e.GeoJSONPath, fc); err != nil {
			return fmt.Errorf("export geojson: %w", err)
		}
		e.logger.Printf("Exporter: Wrote %d segments to %s", len(data.Plan), e.GeoJSONPath)
	}
	if e.PNGPath != "" {
		opts := e.Chart
		if opts.Title == "" {
			opts.Title = data.RouteName
		}
		if err := routeio.WriteProfilePNG(e.PNGPath, data.Samples, data.Plan, data.Markers, opts); err != nil {
			return fmt.Errorf("export profile png: %w", err)
		}
		e.logger.Printf("Exporter: Wrote elevation profile to %s", e.PNGPath)
	}
	return nil
}
