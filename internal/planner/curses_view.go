package planner

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lowaak/ride-planner/internal/profile"
	"github.com/lowaak/ride-planner/internal/projection"
	"github.com/lowaak/ride-planner/internal/ride"
	"github.com/lowaak/ride-planner/internal/segments"
)

// Page names for tview.Pages
const (
	pagePlanner   = "planner"
	pageDashboard = "dashboard"
)

// CursesView implements ViewImpl using tview (curses-based terminal UI)
type CursesView struct {
	logger      *log.Logger
	app         *tview.Application
	currentMode UIMode

	pages    *tview.Pages
	logView  *tview.TextView
	mainFlex *tview.Flex

	// Planner mode components
	plannerFlex       *tview.Flex
	plannerTabWidgets []*tview.Box
	segmentsPanel     *tview.TextView

	// Dashboard mode components
	dashboardFlex       *tview.Flex
	dashboardTabWidgets []*tview.Box
	ridePanel           *tview.TextView
	estimatePanel       *tview.TextView

	canvases map[ViewID]*profileCanvas
	hovering bool

	// Latest published state, guarded by mu
	mu       sync.Mutex
	route    RouteInfo
	plan     PlanState
	selected int
	ride     ride.Snapshot
	estimate projection.Estimate
	markers  []profile.Marker
}

func NewCursesView(logger *log.Logger, app *tview.Application) *CursesView {
	return &CursesView{
		logger:      logger,
		app:         app,
		currentMode: UIModePlanner,
		canvases:    make(map[ViewID]*profileCanvas),
	}
}

// Initialize sets up the tview widgets
func (ui *CursesView) Initialize(controller *Controller) {
	// No SetChangedFunc with app.Draw(): it can hang during shutdown. The
	// BaseView listeners draw after updating content.
	ui.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	ui.logView.SetBorder(true).SetTitle(" Logs ")

	ui.pages = tview.NewPages()

	ui.initPlannerMode()
	ui.initDashboardMode()

	ui.pages.AddPage(pagePlanner, ui.plannerFlex, true, true)
	ui.pages.AddPage(pageDashboard, ui.dashboardFlex, true, false)

	ui.mainFlex = tview.NewFlex().
		AddItem(ui.pages, 0, 2, true).
		AddItem(ui.logView, 0, 1, false)

	ui.setFocusForCurrentMode()
}

func (ui *CursesView) initPlannerMode() {
	instructionsText := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	instructionsText.SetText("[yellow]↑↓[white] Select  |  [yellow]A[white] Add  |  [yellow]D[white] Remove  |  [yellow]+/-[white] Speed  |  [yellow],/.[white] Start  |  [yellow]</>[white] End  |  [yellow]R[white] Reset\n" +
		"[yellow]I/O[white] Zoom  |  [yellow]←→[white] Pan  |  [yellow]0[white] Fit  |  [yellow]E[white] Export  |  [yellow]Space[white] Ride  |  [yellow]1[white] Planner  |  [yellow]2[white] Dashboard")

	canvas := newProfileCanvas(" Elevation ")
	ui.canvases[ViewPlanner] = canvas

	ui.segmentsPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.segmentsPanel.SetBorder(true).SetTitle(" Segments ")
	ui.renderSegments()

	ui.plannerTabWidgets = append(ui.plannerTabWidgets, ui.segmentsPanel.Box, canvas.Box)

	ui.plannerFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructionsText, 2, 0, false).
		AddItem(canvas, 0, 1, false).
		AddItem(ui.segmentsPanel, 0, 1, true)
}

func (ui *CursesView) initDashboardMode() {
	ui.ridePanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.ridePanel.SetBorder(true).SetTitle(" Ride ")

	ui.estimatePanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.estimatePanel.SetBorder(true).SetTitle(" Estimate ")
	ui.renderDashboard()

	canvas := newProfileCanvas(" Profile ")
	ui.canvases[ViewDashboard] = canvas

	ui.dashboardTabWidgets = append(ui.dashboardTabWidgets, ui.ridePanel.Box, ui.estimatePanel.Box, canvas.Box)

	topRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.ridePanel, 0, 1, true).
		AddItem(ui.estimatePanel, 0, 1, false)

	ui.dashboardFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 1, true).
		AddItem(canvas, 0, 1, false)
}

// SetMode switches the UI to the specified mode
func (ui *CursesView) SetMode(mode UIMode) {
	if ui.currentMode == mode {
		return
	}
	ui.currentMode = mode

	switch mode {
	case UIModePlanner:
		ui.pages.SwitchToPage(pagePlanner)
	case UIModeDashboard:
		ui.pages.SwitchToPage(pageDashboard)
	}
	ui.setFocusForCurrentMode()
}

// GetCurrentMode returns the currently active UI mode
func (ui *CursesView) GetCurrentMode() UIMode {
	return ui.currentMode
}

func (ui *CursesView) getTabWidgetsForCurrentMode() []*tview.Box {
	switch ui.currentMode {
	case UIModePlanner:
		return ui.plannerTabWidgets
	case UIModeDashboard:
		return ui.dashboardTabWidgets
	default:
		return nil
	}
}

func (ui *CursesView) setFocusForCurrentMode() {
	if widgets := ui.getTabWidgetsForCurrentMode(); len(widgets) > 0 {
		ui.app.SetFocus(widgets[0])
	}
}

// SetupKeyboardHandlers sets up keyboard event handlers
func (ui *CursesView) SetupKeyboardHandlers(controller *Controller) {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		view := ViewForMode(ui.currentMode)

		switch event.Key() {
		case tcell.KeyTab:
			widgets := ui.getTabWidgetsForCurrentMode()
			for i, w := range widgets {
				if w.HasFocus() {
					ui.app.SetFocus(widgets[(i+1)%len(widgets)])
					break
				}
			}
			return nil
		case tcell.KeyEscape:
			controller.OnEscapeKey()
			return nil
		case tcell.KeyLeft:
			controller.Pan(view, -PanStep)
			return nil
		case tcell.KeyRight:
			controller.Pan(view, PanStep)
			return nil
		}

		if event.Key() == tcell.KeyRune {
			if mode, ok := GetUIModeByKey(event.Rune()); ok {
				controller.OnModeChange(mode)
				return nil
			}
			switch event.Rune() {
			case 'i':
				controller.ZoomIn(view)
				return nil
			case 'o':
				controller.ZoomOut(view)
				return nil
			case '0':
				controller.ResetView(view)
				return nil
			case ' ':
				controller.ToggleRide()
				return nil
			case 'e':
				controller.Export()
				return nil
			}
		}

		switch ui.currentMode {
		case UIModePlanner:
			if ui.handlePlannerKey(controller, event) {
				return nil
			}
		case UIModeDashboard:
			if event.Key() == tcell.KeyRune && event.Rune() == 'x' {
				controller.StopRide()
				return nil
			}
		}

		return event
	})
}

func (ui *CursesView) handlePlannerKey(controller *Controller, event *tcell.EventKey) bool {
	switch event.Key() {
	case tcell.KeyUp:
		controller.SelectSegment(-1)
		return true
	case tcell.KeyDown:
		controller.SelectSegment(1)
		return true
	case tcell.KeyRune:
	default:
		return false
	}

	switch event.Rune() {
	case 'k':
		controller.SelectSegment(-1)
	case 'j':
		controller.SelectSegment(1)
	case 'a':
		controller.AddSegment()
	case 'd':
		controller.RemoveSelectedSegment()
	case '+', '=':
		controller.AdjustSpeed(SpeedStepKmh)
	case '-':
		controller.AdjustSpeed(-SpeedStepKmh)
	case ',':
		controller.MoveBoundary(segments.SideStart, -BoundaryStep)
	case '.':
		controller.MoveBoundary(segments.SideStart, BoundaryStep)
	case '<':
		controller.MoveBoundary(segments.SideEnd, -BoundaryStep)
	case '>':
		controller.MoveBoundary(segments.SideEnd, BoundaryStep)
	case 'r':
		controller.ResetSegments()
	default:
		return false
	}
	return true
}

// SetupMouseHandlers turns pointer movement over the visible profile into
// hover updates and the wheel into zoom
func (ui *CursesView) SetupMouseHandlers(controller *Controller) {
	ui.app.EnableMouse(true)
	ui.app.SetMouseCapture(func(event *tcell.EventMouse, action tview.MouseAction) (*tcell.EventMouse, tview.MouseAction) {
		view := ViewForMode(ui.currentMode)
		canvas := ui.canvases[view]
		x, y := event.Position()

		col, width, inside := canvas.canvasX(x, y)
		if !inside {
			if ui.hovering && action == tview.MouseMove {
				ui.hovering = false
				controller.OnProfileLeave()
			}
			return event, action
		}

		switch action {
		case tview.MouseMove:
			ui.hovering = true
			controller.OnProfileHover(view, col, width)
		case tview.MouseScrollUp:
			controller.ZoomIn(view)
			return nil, action
		case tview.MouseScrollDown:
			controller.ZoomOut(view)
			return nil, action
		}
		return event, action
	})
}

// GetLogViewHeight returns the visible height of the log view
func (ui *CursesView) GetLogViewHeight() int {
	_, _, _, height := ui.logView.GetInnerRect()
	return height
}

// ClearLogView clears the log view
func (ui *CursesView) ClearLogView() {
	ui.logView.Clear()
}

// WriteLogLine writes a line to the log view
func (ui *CursesView) WriteLogLine(line string) error {
	_, err := fmt.Fprint(ui.logView, tview.Escape(line))
	return err
}

// SetRoute shows a newly loaded route
func (ui *CursesView) SetRoute(route RouteInfo) {
	for _, c := range ui.canvases {
		c.setSamples(route.Samples)
	}
	ui.mu.Lock()
	ui.route = route
	ui.mu.Unlock()
	ui.renderSegments()
}

// UpdatePlan shows the segment list and colors the profiles
func (ui *CursesView) UpdatePlan(plan PlanState) {
	for _, c := range ui.canvases {
		c.setSegments(plan.Segments)
	}
	ui.mu.Lock()
	ui.plan = plan
	ui.mu.Unlock()
	ui.renderSegments()
}

// SetSelectedSegment highlights the segment the edit keys apply to
func (ui *CursesView) SetSelectedSegment(index int) {
	ui.mu.Lock()
	ui.selected = index
	ui.mu.Unlock()
	ui.renderSegments()
}

func (ui *CursesView) UpdateRide(snap ride.Snapshot) {
	ui.mu.Lock()
	ui.ride = snap
	ui.mu.Unlock()
	ui.renderDashboard()
}

func (ui *CursesView) UpdateEstimate(estimate projection.Estimate) {
	ui.mu.Lock()
	ui.estimate = estimate
	ui.mu.Unlock()
	ui.renderDashboard()
}

func (ui *CursesView) UpdateProfile(state ProfileState) {
	if c, ok := ui.canvases[state.View]; ok {
		c.setSnapshot(state.Snapshot)
	}
}

func (ui *CursesView) UpdateMarkers(markers []profile.Marker) {
	ui.mu.Lock()
	ui.markers = markers
	ui.mu.Unlock()
	ui.renderDashboard()
}

// renderSegments formats the route header and the segment table
func (ui *CursesView) renderSegments() {
	if ui.segmentsPanel == nil {
		return
	}
	ui.mu.Lock()
	route, plan, selected := ui.route, ui.plan, ui.selected
	ui.mu.Unlock()

	var b strings.Builder
	name := route.Name
	if name == "" {
		name = "(unnamed route)"
	}
	fmt.Fprintf(&b, "\n  [yellow]%s[white]  %.2f km  [gray]planned[white] %s\n\n", tview.Escape(name), route.DistanceKm, formatDurationHMS(plan.Total))

	if len(plan.Plan) == 0 {
		b.WriteString("  [gray]No segments[white]\n")
	}
	for _, step := range plan.Plan {
		cursor := " "
		if step.Index == selected {
			cursor = "[yellow]▶[white]"
		}
		fmt.Fprintf(&b, "  %s [%s]■[white] #%-2d %5.1f%% – %5.1f%%  %7.2f km  [yellow]%3.0f[white] km/h  %s  [gray]@ %s[white]\n",
			cursor, segments.ColorFor(step.Index), step.Index+1,
			step.StartRatio*100, step.EndRatio*100, step.DistanceKm, step.SpeedKmh,
			formatDurationHMS(step.Duration), formatDurationHMS(step.CumulativeEnd))
	}

	ui.segmentsPanel.SetText(b.String())
}

// renderDashboard formats the ride and estimate panels
func (ui *CursesView) renderDashboard() {
	if ui.ridePanel == nil || ui.estimatePanel == nil {
		return
	}
	ui.mu.Lock()
	snap, est, markers := ui.ride, ui.estimate, ui.markers
	ui.mu.Unlock()

	var r strings.Builder
	fmt.Fprintf(&r, "\n  %s", statusTag(snap.Status))
	if id := snap.ID; id != "" {
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(&r, "  [gray]%s[white]", id)
	}
	r.WriteString("\n\n")
	fmt.Fprintf(&r, "  [gray]Moving:[white]    [yellow]%s[white]\n", formatDurationHMS(snap.MovingTime))
	fmt.Fprintf(&r, "  [gray]Total:[white]     %s\n\n", formatDurationHMS(snap.TotalTime))
	fmt.Fprintf(&r, "  [gray]Speed:[white]     [yellow]%.1f[white] km/h\n", snap.CurrentSpeedKmh)
	fmt.Fprintf(&r, "  [gray]Average:[white]   %.1f km/h\n", snap.AverageSpeedKmh)
	fmt.Fprintf(&r, "  [gray]Distance:[white]  %s\n", formatDistance(snap.DistanceM))
	r.WriteString("\n  [gray]────────────────────────[white]\n")
	switch snap.Status {
	case ride.StatusActive:
		r.WriteString("  [yellow]Space[white] Pause  |  [yellow]X[white] Stop\n")
	case ride.StatusPaused:
		r.WriteString("  [yellow]Space[white] Resume  |  [yellow]X[white] Stop\n")
	default:
		r.WriteString("  [yellow]Space[white] Start\n")
	}
	ui.ridePanel.SetText(r.String())

	var e strings.Builder
	fmt.Fprintf(&e, "\n  [gray]Progress:[white]  [yellow]%.1f%%[white]\n\n", est.FromRatio*100)
	fmt.Fprintf(&e, "  [gray]ETT:[white]       [yellow]%s[white]\n", formatDurationHMS(est.ETT))
	if !est.ETA.IsZero() {
		fmt.Fprintf(&e, "  [gray]ETA:[white]       %s\n", est.ETA.Format("15:04:05"))
	}
	fmt.Fprintf(&e, "  [gray]Planned:[white]   %s\n\n", formatDurationHMS(est.Total))
	for _, m := range markers {
		fmt.Fprintf(&e, "  [%s]%c[white] %-5s %.5f, %.5f\n", m.Kind.Color(), m.Kind.Glyph(), m.Kind, m.Point.Lat(), m.Point.Lon())
	}
	ui.estimatePanel.SetText(e.String())
}

// Draw refreshes/redraws the UI
func (ui *CursesView) Draw() error {
	ui.app.Draw()
	return nil
}

// Run starts the UI and blocks until it exits
func (ui *CursesView) Run() error {
	// SetRoot must be called before setting focus, otherwise focus may be reset
	ui.app.SetRoot(ui.mainFlex, true)
	ui.setFocusForCurrentMode()
	return ui.app.Run()
}

// Stop stops the UI framework
func (ui *CursesView) Stop() {
	ui.app.Stop()
}
