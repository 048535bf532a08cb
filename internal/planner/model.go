package planner

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lowaak/ride-planner/internal/events"
	"github.com/lowaak/ride-planner/internal/go_func_utils"
	"github.com/lowaak/ride-planner/internal/profile"
	"github.com/lowaak/ride-planner/internal/projection"
	"github.com/lowaak/ride-planner/internal/ride"
	"github.com/lowaak/ride-planner/internal/segments"
)

// UIState holds the current state of the UI that views need to render
type UIState struct {
	Mode            UIMode
	SelectedSegment int
}

// RouteInfo describes the loaded route and its elevation samples
type RouteInfo struct {
	Name       string
	DistanceKm float64
	Samples    []profile.Sample
}

// PlanState is the segment list together with its time plan
type PlanState struct {
	Segments []segments.Segment
	Plan     []projection.Step
	Total    time.Duration
	Version  uint64
}

// ProfileState is the published snapshot of one profile view
type ProfileState struct {
	View     ViewID
	Snapshot profile.Snapshot
}

// Model holds the latest published state and one typed event per field.
// The session writes; views and the controller read.
type Model struct {
	logEvent              *events.ChannelEvent[string]
	closeApplicationEvent *events.ChannelEvent[struct{}]
	uiStateEvent          *events.ChannelEvent[UIState]
	uiState               UIState
	routeEvent            *events.ChannelEvent[RouteInfo]
	route                 RouteInfo
	planEvent             *events.ChannelEvent[PlanState]
	plan                  PlanState
	estimateEvent         *events.ChannelEvent[projection.Estimate]
	estimate              projection.Estimate
	rideEvent             *events.ChannelEvent[ride.Snapshot]
	ride                  ride.Snapshot
	profileEvents         map[ViewID]*events.ChannelEvent[ProfileState]
	profiles              map[ViewID]profile.Snapshot
	markersEvent          *events.ChannelEvent[[]profile.Marker]
	markers               []profile.Marker
	logLines              []string
	logMu                 sync.RWMutex
	mu                    sync.RWMutex
	ctx                   context.Context
	cancel                context.CancelFunc
	wg                    sync.WaitGroup
	logger                *log.Logger
}

func NewModel(logger *log.Logger, uiLogChan <-chan string) *Model {
	if logger == nil {
		panic("Model: logger cannot be nil")
	}
	if uiLogChan == nil {
		panic("Model: uiLogChan cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		logEvent:              events.NewChannelEvent[string](false),
		closeApplicationEvent: events.NewChannelEvent[struct{}](true),
		uiStateEvent:          events.NewChannelEvent[UIState](true),
		uiState:               UIState{Mode: UIModePlanner},
		routeEvent:            events.NewChannelEvent[RouteInfo](true),
		planEvent:             events.NewChannelEvent[PlanState](true),
		estimateEvent:         events.NewChannelEvent[projection.Estimate](true),
		rideEvent:             events.NewChannelEvent[ride.Snapshot](true),
		profileEvents:         make(map[ViewID]*events.ChannelEvent[ProfileState]),
		profiles:              make(map[ViewID]profile.Snapshot),
		markersEvent:          events.NewChannelEvent[[]profile.Marker](true),
		logLines:              make([]string, 0, maxLogLines),
		ctx:                   ctx,
		cancel:                cancel,
		logger:                logger,
	}
	for _, view := range AllViews {
		m.profileEvents[view] = events.NewChannelEvent[ProfileState](true)
	}

	go_func_utils.SafeGoGroup(&m.wg, m.logger, "Model.readFromLogChannel", func() {
		m.readFromLogChannel(ctx, uiLogChan)
	})

	return m
}

// Shutdown stops all goroutines and waits for them to finish
func (m *Model) Shutdown() {
	m.logger.Println("Model: Shutting down")
	m.cancel()
	m.wg.Wait()
	m.logger.Println("Model: Shutdown complete")
}

// ListenToLog registers a channel to receive log messages
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToLog(ch chan<- string) func() {
	return m.logEvent.Listen(ch)
}

// ListenToCloseApplication registers a channel to receive close application signals
func (m *Model) ListenToCloseApplication(ch chan<- struct{}) func() {
	return m.closeApplicationEvent.Listen(ch)
}

// RequestCloseApplication signals that the application should close
func (m *Model) RequestCloseApplication() {
	m.closeApplicationEvent.Notify(struct{}{})
}

// ListenToUIState registers a channel to receive UI state changes
func (m *Model) ListenToUIState(ch chan<- UIState) func() {
	return m.uiStateEvent.Listen(ch)
}

// GetUIState returns the current UI state
func (m *Model) GetUIState() UIState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uiState
}

// SetMode updates the current UI mode and notifies listeners
func (m *Model) SetMode(mode UIMode) {
	m.mu.Lock()
	if m.uiState.Mode == mode {
		m.mu.Unlock()
		return
	}
	m.uiState.Mode = mode
	state := m.uiState
	m.mu.Unlock()

	m.uiStateEvent.Notify(state)
}

// SetSelectedSegment selects a segment of the current plan. Out of range
// indices are clamped.
func (m *Model) SetSelectedSegment(index int) {
	m.mu.Lock()
	index = clampIndex(index, len(m.plan.Segments))
	if m.uiState.SelectedSegment == index {
		m.mu.Unlock()
		return
	}
	m.uiState.SelectedSegment = index
	state := m.uiState
	m.mu.Unlock()

	m.uiStateEvent.Notify(state)
}

// ListenToRoute registers a channel to receive the loaded route
func (m *Model) ListenToRoute(ch chan<- RouteInfo) func() {
	return m.routeEvent.Listen(ch)
}

// GetRoute returns the loaded route
func (m *Model) GetRoute() RouteInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.route
}

// SetRoute publishes a newly loaded route
func (m *Model) SetRoute(route RouteInfo) {
	m.mu.Lock()
	m.route = route
	m.mu.Unlock()

	m.routeEvent.Notify(route)
}

// ListenToPlan registers a channel to receive segment and plan changes
func (m *Model) ListenToPlan(ch chan<- PlanState) func() {
	return m.planEvent.Listen(ch)
}

// GetPlanState returns the current plan
func (m *Model) GetPlanState() PlanState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.plan
}

// SetPlanState publishes a new plan. A selection that fell off the end of the
// segment list moves to the last segment.
func (m *Model) SetPlanState(plan PlanState) {
	m.mu.Lock()
	m.plan = plan
	selected := clampIndex(m.uiState.SelectedSegment, len(plan.Segments))
	selectionMoved := selected != m.uiState.SelectedSegment
	m.uiState.SelectedSegment = selected
	uiState := m.uiState
	m.mu.Unlock()

	m.planEvent.Notify(plan)
	if selectionMoved {
		m.uiStateEvent.Notify(uiState)
	}
}

// ListenToEstimate registers a channel to receive ETA/ETT updates
func (m *Model) ListenToEstimate(ch chan<- projection.Estimate) func() {
	return m.estimateEvent.Listen(ch)
}

// GetEstimate returns the latest estimate
func (m *Model) GetEstimate() projection.Estimate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.estimate
}

// SetEstimate publishes a new estimate
func (m *Model) SetEstimate(estimate projection.Estimate) {
	m.mu.Lock()
	m.estimate = estimate
	m.mu.Unlock()

	m.estimateEvent.Notify(estimate)
}

// ListenToRide registers a channel to receive ride snapshots
func (m *Model) ListenToRide(ch chan<- ride.Snapshot) func() {
	return m.rideEvent.Listen(ch)
}

// GetRideSnapshot returns the latest ride snapshot
func (m *Model) GetRideSnapshot() ride.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ride
}

// SetRideSnapshot publishes a ride snapshot
func (m *Model) SetRideSnapshot(snap ride.Snapshot) {
	m.mu.Lock()
	m.ride = snap
	m.mu.Unlock()

	m.rideEvent.Notify(snap)
}

// ListenToProfile registers a channel to receive snapshots of one profile view
func (m *Model) ListenToProfile(view ViewID, ch chan<- ProfileState) func() {
	event, ok := m.profileEvents[view]
	if !ok {
		return func() {}
	}
	return event.Listen(ch)
}

// GetProfile returns the latest snapshot of a profile view
func (m *Model) GetProfile(view ViewID) (profile.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.profiles[view]
	return snap, ok
}

// SetProfile publishes the snapshot of a profile view
func (m *Model) SetProfile(view ViewID, snap profile.Snapshot) {
	event, ok := m.profileEvents[view]
	if !ok {
		m.logger.Printf("Model: Unknown profile view %d", view)
		return
	}
	m.mu.Lock()
	m.profiles[view] = snap
	m.mu.Unlock()

	event.Notify(ProfileState{View: view, Snapshot: snap})
}

// ListenToMarkers registers a channel to receive the live and hover markers
func (m *Model) ListenToMarkers(ch chan<- []profile.Marker) func() {
	return m.markersEvent.Listen(ch)
}

// GetMarkers returns a copy of the current markers
func (m *Model) GetMarkers() []profile.Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMarkers(m.markers)
}

// SetMarkers publishes the current markers
func (m *Model) SetMarkers(markers []profile.Marker) {
	m.mu.Lock()
	m.markers = copyMarkers(markers)
	result := copyMarkers(m.markers)
	m.mu.Unlock()

	m.markersEvent.Notify(result)
}

// readFromLogChannel reads log lines from the channel and populates logLines
func (m *Model) readFromLogChannel(ctx context.Context, logChan <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logChan:
			if !ok {
				return
			}

			m.logMu.Lock()
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > maxLogLines {
				m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
			}
			m.logMu.Unlock()

			m.logEvent.Notify(line)
		}
	}
}

// GetLogTail returns the last n lines of logs
func (m *Model) GetLogTail(n int) []string {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	if n <= 0 {
		return []string{}
	}
	if n > len(m.logLines) {
		n = len(m.logLines)
	}
	result := make([]string, n)
	copy(result, m.logLines[len(m.logLines)-n:])
	return result
}

func copyMarkers(markers []profile.Marker) []profile.Marker {
	if markers == nil {
		return nil
	}
	result := make([]profile.Marker, len(markers))
	copy(result, markers)
	return result
}

func clampIndex(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
