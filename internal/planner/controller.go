package planner

import (
	"context"
	"log"
	"sync"

	"github.com/lowaak/ride-planner/internal/go_func_utils"
	"github.com/lowaak/ride-planner/internal/segments"
)

// Controller turns UI events into session commands. Rejected edits are
// logged and leave the plan untouched.
type Controller struct {
	model       *Model
	session     *Session
	preferences *Preferences
	exporter    *Exporter
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewController creates a new Controller with the given dependencies
func NewController(model *Model, session *Session, preferences *Preferences, exporter *Exporter, logger *log.Logger) *Controller {
	if model == nil {
		panic("Controller: model cannot be nil")
	}
	if session == nil {
		panic("Controller: session cannot be nil")
	}
	if preferences == nil {
		panic("Controller: preferences cannot be nil")
	}
	if exporter == nil {
		panic("Controller: exporter cannot be nil")
	}
	if logger == nil {
		panic("Controller: logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		model:       model,
		session:     session,
		preferences: preferences,
		exporter:    exporter,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}

	go_func_utils.SafeGoGroup(&c.wg, logger, "Controller.listenToPlan", c.listenToPlan)

	return c
}

// listenToPlan logs every plan revision
func (c *Controller) listenToPlan() {
	ch := make(chan PlanState, 1)
	unregister := c.model.ListenToPlan(ch)
	defer unregister()

	for {
		select {
		case <-c.ctx.Done():
			return
		case plan, ok := <-ch:
			if !ok {
				return
			}
			c.logger.Printf("Plan v%d: %d segments, %s total", plan.Version, len(plan.Segments), formatDurationHMS(plan.Total))
		}
	}
}

// OnEscapeKey handles when the Escape key is pressed
func (c *Controller) OnEscapeKey() {
	c.model.RequestCloseApplication()
}

// OnModeChange handles when the user requests a mode change
func (c *Controller) OnModeChange(mode UIMode) {
	if info, ok := GetUIModeInfo(mode); ok {
		c.logger.Printf("Switching to %s mode", info.DisplayName)
	}
	c.model.SetMode(mode)
	c.preferences.SetMode(mode)
}

// --- Segment editing ---

func (c *Controller) selected() int {
	return c.model.GetUIState().SelectedSegment
}

// SelectSegment moves the selection by delta segments
func (c *Controller) SelectSegment(delta int) {
	c.model.SetSelectedSegment(c.selected() + delta)
}

// AddSegment splits the last segment and selects the new one
func (c *Controller) AddSegment() {
	seg, err := c.session.AddSegment()
	if err != nil {
		c.logger.Printf("Add segment rejected: %v", err)
		return
	}
	c.model.SetSelectedSegment(seg.Index)
}

// RemoveSelectedSegment merges the selected segment into its neighbour
func (c *Controller) RemoveSelectedSegment() {
	if err := c.session.RemoveSegment(c.selected()); err != nil {
		c.logger.Printf("Remove segment rejected: %v", err)
	}
}

// AdjustSpeed changes the selected segment speed by delta km/h
func (c *Controller) AdjustSpeed(delta float64) {
	i := c.selected()
	kmh, err := c.session.AdjustSpeed(i, delta)
	if err != nil {
		c.logger.Printf("Speed change rejected: %v", err)
		return
	}
	c.preferences.SetDefaultSpeedKmh(kmh)
	c.logger.Printf("Segment %d speed: %.0f km/h", i+1, kmh)
}

// MoveBoundary drags one handle of the selected segment by delta
func (c *Controller) MoveBoundary(side segments.Side, delta float64) {
	i := c.selected()
	r, err := c.session.MoveBoundary(i, delta, side)
	if err != nil {
		c.logger.Printf("Boundary move rejected: %v", err)
		return
	}
	c.logger.Printf("Segment %d %s: %.1f%%", i+1, side, r*100)
}

// ResetSegments restores the single default segment
func (c *Controller) ResetSegments() {
	if err := c.session.ResetSegments(); err != nil {
		c.logger.Printf("Reset rejected: %v", err)
		return
	}
	c.model.SetSelectedSegment(0)
}

// --- Profile views ---

func (c *Controller) ZoomIn(view ViewID) {
	c.logIfErr("Zoom", c.session.ZoomIn(view))
}

func (c *Controller) ZoomOut(view ViewID) {
	c.logIfErr("Zoom", c.session.ZoomOut(view))
}

func (c *Controller) Pan(view ViewID, delta float64) {
	c.logIfErr("Pan", c.session.Pan(view, delta))
}

func (c *Controller) ResetView(view ViewID) {
	c.logIfErr("Reset view", c.session.ResetView(view))
}

// OnProfileHover handles the pointer moving over a profile canvas. pixelX is
// a column in [0,canvasWidth) and maps to samples the way the canvas draws
// them, so the last column lands on the last visible sample.
func (c *Controller) OnProfileHover(view ViewID, pixelX, canvasWidth int) {
	if canvasWidth <= 0 {
		return
	}
	span := max(canvasWidth-1, 1)
	c.logIfErr("Hover", c.session.Hover(view, float64(pixelX), float64(span)))
}

// OnProfileLeave handles the pointer leaving every profile canvas
func (c *Controller) OnProfileLeave() {
	c.logIfErr("Hover", c.session.ClearHover())
}

// --- Ride control ---

// ToggleRide starts, pauses or resumes the ride
func (c *Controller) ToggleRide() {
	if err := c.session.ToggleRide(); err != nil {
		c.logger.Printf("Ride control rejected: %v", err)
		return
	}
	if c.model.GetUIState().Mode != UIModeDashboard {
		c.OnModeChange(UIModeDashboard)
	}
}

// StopRide ends the ride; the summary is logged by the session
func (c *Controller) StopRide() {
	if _, err := c.session.StopRide(); err != nil {
		c.logger.Printf("Ride control rejected: %v", err)
	}
}

// Export writes the configured GeoJSON and PNG outputs in the background
func (c *Controller) Export() {
	if !c.exporter.Enabled() {
		c.logger.Printf("Nothing to export - set --export-geojson or --export-png")
		return
	}
	data, err := c.session.Export()
	if err != nil {
		c.logger.Printf("Export failed: %v", err)
		return
	}
	go_func_utils.SafeGo(c.logger, func() {
		if err := c.exporter.Write(data); err != nil {
			c.logger.Printf("Export failed: %v", err)
		}
	})
}

func (c *Controller) logIfErr(action string, err error) {
	if err != nil {
		c.logger.Printf("%s failed: %v", action, err)
	}
}

// Shutdown stops the controller goroutines
func (c *Controller) Shutdown() {
	c.cancel()
	c.wg.Wait()
}
