package planner

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lowaak/ride-planner/internal/events"
	"github.com/lowaak/ride-planner/internal/geometry"
	"github.com/lowaak/ride-planner/internal/go_func_utils"
	"github.com/lowaak/ride-planner/internal/profile"
	"github.com/lowaak/ride-planner/internal/projection"
	"github.com/lowaak/ride-planner/internal/ride"
	"github.com/lowaak/ride-planner/internal/routeio"
	"github.com/lowaak/ride-planner/internal/segments"
)

var (
	ErrSessionClosed  = errors.New("session closed")
	ErrRideInProgress = errors.New("ride in progress")
	ErrUnknownView    = errors.New("unknown profile view")
)

// SessionConfig holds the tunables of a session
type SessionConfig struct {
	Limits       segments.Limits
	Ride         ride.Params
	Profile      profile.Params
	TickInterval time.Duration
	Now          func() time.Time
	// Ticks replaces the wall-clock ticker when set
	Ticks <-chan time.Time
}

// ExportData is a consistent copy of what the exporters need
type ExportData struct {
	RouteName string
	Index     *geometry.Index
	Samples   []profile.Sample
	Plan      []projection.Step
	Markers   []profile.Marker
}

// command runs on the dispatch goroutine
type command struct {
	run   func(now time.Time) error
	reply chan error
}

// Session owns the route, the segment plan, the ride clock and both profile
// views. Every input (user command, tick, observation) is handled to
// completion on one goroutine, in arrival order, and the results are
// published on the Model.
type Session struct {
	model  *Model
	logger *log.Logger
	cfg    SessionConfig

	statusEvent *events.CallbackEvent[ride.Status]

	// Owned by the dispatch goroutine
	route     *routeio.Route
	segments  *segments.Model
	engine    *projection.Engine
	clock     *ride.Clock
	views     map[ViewID]*profile.ViewState
	live      *profile.Marker
	hover     *profile.Marker
	liveRatio float64

	// Goroutine management
	cmdChan      chan command
	obsChan      chan ride.Observation
	doneChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewSession creates a session over route and starts its dispatch goroutine
func NewSession(model *Model, route *routeio.Route, cfg SessionConfig, logger *log.Logger) *Session {
	if model == nil {
		panic("Session: model cannot be nil")
	}
	if route == nil || route.Index == nil {
		panic("Session: route cannot be nil")
	}
	if logger == nil {
		panic("Session: logger cannot be nil")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	s := &Session{
		model:       model,
		logger:      logger,
		cfg:         cfg,
		statusEvent: events.NewCallbackEvent[ride.Status](false),
		route:       route,
		segments:    segments.NewModel(route.Index, cfg.Limits),
		clock:       ride.NewClock(cfg.Ride),
		views:       make(map[ViewID]*profile.ViewState),
		cmdChan:     make(chan command),
		obsChan:     make(chan ride.Observation),
		doneChan:    make(chan struct{}),
	}
	s.engine = projection.NewEngine(s.segments)
	for _, view := range AllViews {
		s.views[view] = profile.NewViewState(route.Samples, cfg.Profile)
	}

	s.logger.Printf("Session: Route '%s' loaded (%.2f km, %d samples)", route.Name, route.Index.TotalDistanceKm(), len(route.Samples))
	s.publishRoute()
	s.publishAll(cfg.Now())

	go_func_utils.SafeGoGroup(&s.wg, logger, "Session.run", s.run)

	return s
}

// ListenToRideStatus registers a callback for ride status transitions.
// Callbacks run on the dispatch goroutine and must not call into the Session.
func (s *Session) ListenToRideStatus(callback func(ride.Status)) func() {
	return s.statusEvent.Listen(callback)
}

// Observations is the input for live feeds. A send returns once the session
// has taken the observation, so feeds are paced by the session.
func (s *Session) Observations() chan<- ride.Observation {
	return s.obsChan
}

// Observe hands one observation to the session
func (s *Session) Observe(obs ride.Observation) error {
	select {
	case s.obsChan <- obs:
		return nil
	case <-s.doneChan:
		return ErrSessionClosed
	}
}

// Shutdown stops the dispatch goroutine
// Safe to call multiple times - only the first call has effect
func (s *Session) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Printf("Session: Shutting down")
		close(s.doneChan)
		s.wg.Wait()
		s.logger.Printf("Session: Shutdown complete")
	})
}

// do runs fn on the dispatch goroutine and waits for its result
func (s *Session) do(fn func(now time.Time) error) error {
	reply := make(chan error, 1)
	select {
	case s.cmdChan <- command{run: fn, reply: reply}:
	case <-s.doneChan:
		return ErrSessionClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.doneChan:
		return ErrSessionClosed
	}
}

// --- Route and segment editing ---

// LoadRoute replaces the route. Segments and both views reset; a stopped
// ride is discarded. Refused while a ride is active or paused.
func (s *Session) LoadRoute(route *routeio.Route) error {
	if route == nil || route.Index == nil {
		return geometry.ErrEmptyRoute
	}
	return s.do(func(now time.Time) error {
		if st := s.clock.Status(); st == ride.StatusActive || st == ride.StatusPaused {
			return fmt.Errorf("load route: %w", ErrRideInProgress)
		}
		s.route = route
		s.segments.ResetRoute(route.Index)
		for _, v := range s.views {
			v.SetSamples(route.Samples)
		}
		s.live, s.hover, s.liveRatio = nil, nil, 0
		if s.clock.Status() == ride.StatusStopped {
			s.clock.Reset()
			s.statusEvent.Notify(ride.StatusIdle)
		}
		s.logger.Printf("Session: Route '%s' loaded (%.2f km, %d samples)", route.Name, route.Index.TotalDistanceKm(), len(route.Samples))
		s.publishRoute()
		s.publishAll(now)
		return nil
	})
}

// AddSegment splits the last segment in half
func (s *Session) AddSegment() (segments.Segment, error) {
	var added segments.Segment
	err := s.do(func(now time.Time) error {
		seg, err := s.segments.AddSegment()
		if err != nil {
			return err
		}
		added = seg
		s.logger.Printf("Session: Segment %d added [%.3f,%.3f]", seg.Index, seg.StartRatio, seg.EndRatio)
		s.publishPlan(now)
		return nil
	})
	return added, err
}

// RemoveSegment merges segment i into its neighbour
func (s *Session) RemoveSegment(i int) error {
	return s.do(func(now time.Time) error {
		if err := s.segments.RemoveSegment(i); err != nil {
			return err
		}
		s.logger.Printf("Session: Segment %d removed", i)
		s.publishPlan(now)
		return nil
	})
}

// UpdateBoundary drags one handle of segment i and returns the applied ratio
func (s *Session) UpdateBoundary(i int, ratio float64, side segments.Side) (float64, error) {
	var applied float64
	err := s.do(func(now time.Time) error {
		r, err := s.segments.UpdateBoundary(i, ratio, side)
		if err != nil {
			return err
		}
		applied = r
		s.publishPlan(now)
		return nil
	})
	return applied, err
}

// MoveBoundary shifts one handle of segment i by delta
func (s *Session) MoveBoundary(i int, delta float64, side segments.Side) (float64, error) {
	var applied float64
	err := s.do(func(now time.Time) error {
		seg, err := s.segments.Segment(i)
		if err != nil {
			return err
		}
		from := seg.EndRatio
		if side == segments.SideStart {
			from = seg.StartRatio
		}
		r, err := s.segments.UpdateBoundary(i, from+delta, side)
		if err != nil {
			return err
		}
		applied = r
		s.publishPlan(now)
		return nil
	})
	return applied, err
}

// SetSpeed assigns a speed to segment i and returns the clamped value
func (s *Session) SetSpeed(i int, kmh float64) (float64, error) {
	var applied float64
	err := s.do(func(now time.Time) error {
		v, err := s.segments.SetSpeed(i, kmh)
		if err != nil {
			return err
		}
		applied = v
		s.publishPlan(now)
		return nil
	})
	return applied, err
}

// AdjustSpeed changes the speed of segment i by delta
func (s *Session) AdjustSpeed(i int, delta float64) (float64, error) {
	var applied float64
	err := s.do(func(now time.Time) error {
		seg, err := s.segments.Segment(i)
		if err != nil {
			return err
		}
		v, err := s.segments.SetSpeed(i, seg.SpeedKmh+delta)
		if err != nil {
			return err
		}
		applied = v
		s.publishPlan(now)
		return nil
	})
	return applied, err
}

// SetDefaultSpeed changes the speed new routes start with
func (s *Session) SetDefaultSpeed(kmh float64) error {
	return s.do(func(now time.Time) error {
		s.segments.SetDefaultSpeed(kmh)
		return nil
	})
}

// ResetSegments restores the single default segment
func (s *Session) ResetSegments() error {
	return s.do(func(now time.Time) error {
		s.segments.Reset()
		s.logger.Printf("Session: Segments reset")
		s.publishPlan(now)
		return nil
	})
}

// --- Ride control ---

// StartRide starts a new ride; a stopped ride is replaced
func (s *Session) StartRide() error {
	return s.do(func(now time.Time) error {
		if s.clock.Status() == ride.StatusStopped {
			s.clock.Reset()
		}
		if err := s.clock.Start(now); err != nil {
			return err
		}
		s.setFollowing(true)
		s.logger.Printf("Session: Ride %s started", s.clock.State().ID)
		s.statusEvent.Notify(s.clock.Status())
		s.publishRide(now)
		s.publishProfiles()
		return nil
	})
}

func (s *Session) PauseRide() error {
	return s.do(func(now time.Time) error {
		if err := s.clock.Pause(now); err != nil {
			return err
		}
		s.setFollowing(false)
		s.logger.Printf("Session: Ride paused")
		s.statusEvent.Notify(s.clock.Status())
		s.publishRide(now)
		s.publishProfiles()
		return nil
	})
}

func (s *Session) ResumeRide() error {
	return s.do(func(now time.Time) error {
		if err := s.clock.Resume(now); err != nil {
			return err
		}
		s.setFollowing(true)
		s.logger.Printf("Session: Ride resumed")
		s.statusEvent.Notify(s.clock.Status())
		s.publishRide(now)
		s.publishProfiles()
		return nil
	})
}

// StopRide ends the ride and returns its final snapshot
func (s *Session) StopRide() (ride.Snapshot, error) {
	var final ride.Snapshot
	err := s.do(func(now time.Time) error {
		if err := s.clock.Stop(now); err != nil {
			return err
		}
		s.setFollowing(false)
		final = s.clock.Snapshot(now)
		s.logger.Printf("Session: %s", final.Summary())
		s.statusEvent.Notify(s.clock.Status())
		s.model.SetRideSnapshot(final)
		s.publishProfiles()
		return nil
	})
	return final, err
}

// ToggleRide starts, pauses or resumes depending on the ride status
func (s *Session) ToggleRide() error {
	var status ride.Status
	if err := s.do(func(time.Time) error {
		status = s.clock.Status()
		return nil
	}); err != nil {
		return err
	}
	switch status {
	case ride.StatusActive:
		return s.PauseRide()
	case ride.StatusPaused:
		return s.ResumeRide()
	default:
		return s.StartRide()
	}
}

// RideSnapshot reports the ride at the session clock
func (s *Session) RideSnapshot() (ride.Snapshot, error) {
	var snap ride.Snapshot
	err := s.do(func(now time.Time) error {
		snap = s.clock.Snapshot(now)
		return nil
	})
	return snap, err
}

// --- Profile views ---

func (s *Session) ZoomIn(view ViewID) error {
	return s.withView(view, func(v *profile.ViewState) { v.ZoomIn() })
}

func (s *Session) ZoomOut(view ViewID) error {
	return s.withView(view, func(v *profile.ViewState) { v.ZoomOut() })
}

// Pan shifts a view by delta visible windows
func (s *Session) Pan(view ViewID, delta float64) error {
	return s.withView(view, func(v *profile.ViewState) { v.Pan(delta) })
}

func (s *Session) ResetView(view ViewID) error {
	return s.withView(view, func(v *profile.ViewState) { v.Reset() })
}

// Hover places the hover marker under pixelX of a canvasWidth wide profile
func (s *Session) Hover(view ViewID, pixelX, canvasWidth float64) error {
	return s.do(func(now time.Time) error {
		v, ok := s.views[view]
		if !ok {
			return ErrUnknownView
		}
		h, ok := v.HoverToPosition(pixelX, canvasWidth)
		if !ok {
			return nil
		}
		for id, other := range s.views {
			if id != view {
				other.ClearHover()
			}
		}
		s.hover = &profile.Marker{
			Kind:  profile.MarkerHover,
			Index: h.Index,
			Ratio: h.Ratio,
			Point: s.route.Index.PointAtRatio(h.Ratio),
		}
		s.publishProfiles()
		s.publishMarkers()
		return nil
	})
}

// ClearHover removes the hover marker from every view
func (s *Session) ClearHover() error {
	return s.do(func(now time.Time) error {
		if s.hover == nil {
			return nil
		}
		for _, v := range s.views {
			v.ClearHover()
		}
		s.hover = nil
		s.publishProfiles()
		s.publishMarkers()
		return nil
	})
}

func (s *Session) withView(view ViewID, fn func(v *profile.ViewState)) error {
	return s.do(func(now time.Time) error {
		v, ok := s.views[view]
		if !ok {
			return ErrUnknownView
		}
		fn(v)
		s.model.SetProfile(view, v.Snapshot())
		return nil
	})
}

// Export returns what the route exporters need
func (s *Session) Export() (ExportData, error) {
	var data ExportData
	err := s.do(func(now time.Time) error {
		data = ExportData{
			RouteName: s.route.Name,
			Index:     s.route.Index,
			Samples:   s.route.Samples,
			Plan:      s.engine.Plan(),
			Markers:   s.markers(),
		}
		return nil
	})
	return data, err
}

// --- Dispatch loop ---

func (s *Session) run() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	ticker.Stop() // Start stopped, runs only while a ride is active
	tickerRunning := false

	ticks := s.cfg.Ticks
	if ticks == nil {
		ticks = ticker.C
	}

	syncTicker := func() {
		active := s.clock.Status() == ride.StatusActive
		switch {
		case active && !tickerRunning:
			ticker.Reset(s.cfg.TickInterval)
			tickerRunning = true
		case !active && tickerRunning:
			ticker.Stop()
			tickerRunning = false
		}
	}

	for {
		select {
		case <-s.doneChan:
			ticker.Stop()
			s.logger.Printf("Session: Goroutine exiting")
			return

		case cmd := <-s.cmdChan:
			err := cmd.run(s.cfg.Now())
			syncTicker()
			cmd.reply <- err

		case obs := <-s.obsChan:
			s.handleObservation(obs)

		case at := <-ticks:
			s.handleTick(at)
		}
	}
}

func (s *Session) handleTick(at time.Time) {
	if s.clock.Status() != ride.StatusActive {
		return
	}
	if err := s.clock.Tick(at); err != nil {
		s.logger.Printf("Session: Tick rejected: %v", err)
		return
	}
	s.publishRide(at)
	s.publishEstimate(at)
}

func (s *Session) handleObservation(obs ride.Observation) {
	if err := s.clock.Observe(obs); err != nil {
		s.logger.Printf("Session: Observation rejected: %v", err)
		return
	}

	r := s.route.Index.NearestRatioOnEdges(obs.Position)
	s.liveRatio = r
	idx := -1
	for _, view := range AllViews {
		idx = s.views[view].LiveMarkerIndex(r)
	}
	s.live = &profile.Marker{
		Kind:  profile.MarkerLive,
		Index: idx,
		Ratio: r,
		Point: s.route.Index.PointAtRatio(r),
	}

	s.publishRide(obs.Timestamp)
	s.publishEstimate(obs.Timestamp)
	s.publishProfiles()
	s.publishMarkers()
}

func (s *Session) setFollowing(on bool) {
	for _, v := range s.views {
		v.SetFollowing(on)
	}
}

// --- Publishing (dispatch goroutine only) ---

func (s *Session) publishAll(now time.Time) {
	s.publishPlan(now)
	s.publishRide(now)
	s.publishProfiles()
	s.publishMarkers()
}

func (s *Session) publishRoute() {
	s.model.SetRoute(RouteInfo{
		Name:       s.route.Name,
		DistanceKm: s.route.Index.TotalDistanceKm(),
		Samples:    s.route.Samples,
	})
}

// publishPlan is called after every segment mutation; the estimate depends on it
func (s *Session) publishPlan(now time.Time) {
	s.model.SetPlanState(PlanState{
		Segments: s.segments.Segments(),
		Plan:     s.engine.Plan(),
		Total:    s.engine.TotalDuration(),
		Version:  s.segments.Version(),
	})
	s.publishEstimate(now)
}

func (s *Session) publishEstimate(now time.Time) {
	s.model.SetEstimate(s.engine.Estimate(s.liveRatio, now))
}

func (s *Session) publishRide(now time.Time) {
	s.model.SetRideSnapshot(s.clock.Snapshot(now))
}

func (s *Session) publishProfiles() {
	for _, view := range AllViews {
		s.model.SetProfile(view, s.views[view].Snapshot())
	}
}

func (s *Session) publishMarkers() {
	s.model.SetMarkers(s.markers())
}

func (s *Session) markers() []profile.Marker {
	var result []profile.Marker
	if s.live != nil {
		result = append(result, *s.live)
	}
	if s.hover != nil {
		result = append(result, *s.hover)
	}
	return result
}
