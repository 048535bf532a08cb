package planner

import (
	"github.com/lowaak/ride-planner/internal/profile"
	"github.com/lowaak/ride-planner/internal/projection"
	"github.com/lowaak/ride-planner/internal/ride"
)

// ViewImpl defines the interface for framework-specific UI implementations
type ViewImpl interface {
	// Initialize is called after construction to set up framework-specific widgets
	Initialize(controller *Controller)

	// SetupKeyboardHandlers sets up keyboard event handlers
	SetupKeyboardHandlers(controller *Controller)

	// SetupMouseHandlers routes pointer movement over the profile to the controller
	SetupMouseHandlers(controller *Controller)

	// Run starts the UI framework and blocks until it exits
	Run() error

	// Stop stops the UI framework
	Stop()

	// Draw refreshes/redraws the UI
	Draw() error

	// --- Mode Management ---

	SetMode(mode UIMode)
	GetCurrentMode() UIMode

	// --- Log View (shared across modes) ---

	GetLogViewHeight() int
	ClearLogView()
	WriteLogLine(line string) error

	// --- Planner Mode ---

	SetRoute(route RouteInfo)
	UpdatePlan(plan PlanState)
	SetSelectedSegment(index int)

	// --- Dashboard Mode ---

	UpdateRide(snap ride.Snapshot)
	UpdateEstimate(estimate projection.Estimate)

	// --- Profile views (both modes) ---

	UpdateProfile(state ProfileState)
	UpdateMarkers(markers []profile.Marker)
}
