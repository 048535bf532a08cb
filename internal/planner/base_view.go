package planner

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lowaak/ride-planner/internal/go_func_utils"
)

// BaseView contains the logic shared by all UI implementations: it
// subscribes to the model and pushes every change into the ViewImpl.
type BaseView struct {
	viewImpl   ViewImpl
	model      *Model
	controller *Controller
	context    context.Context
	cancelFunc context.CancelFunc
	waitGroup  sync.WaitGroup
	logger     *log.Logger
}

// NewBaseViewArg holds the arguments for creating a new BaseView
type NewBaseViewArg struct {
	ViewImpl   ViewImpl
	Model      *Model
	Controller *Controller
	Logger     *log.Logger
}

// NewBaseView creates a new BaseView with the given implementation
func NewBaseView(args NewBaseViewArg) *BaseView {
	if args.Logger == nil {
		panic("BaseView: logger cannot be nil")
	}
	if args.ViewImpl == nil {
		panic("BaseView: ViewImpl cannot be nil")
	}
	if args.Model == nil {
		panic("BaseView: Model cannot be nil")
	}
	if args.Controller == nil {
		panic("BaseView: Controller cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())

	base := &BaseView{
		viewImpl:   args.ViewImpl,
		model:      args.Model,
		controller: args.Controller,
		context:    ctx,
		cancelFunc: cancel,
		logger:     args.Logger,
	}

	args.ViewImpl.Initialize(args.Controller)
	args.ViewImpl.SetupKeyboardHandlers(args.Controller)
	args.ViewImpl.SetupMouseHandlers(args.Controller)
	args.ViewImpl.SetMode(args.Model.GetUIState().Mode)

	go_func_utils.SafeGoGroup(&base.waitGroup, base.logger, "BaseView.monitorLogResize", base.monitorLogResize)
	base.updateLogDisplay()

	base.setupEventListeners()

	return base
}

// listen wakes on every notification of one model event and applies the
// model's current value. Reading the model on wake, rather than using the
// notified value, means a notification dropped on a full channel never
// leaves a stale display.
func listen[T any](base *BaseView, name string, register func(chan<- T) func(), apply func()) {
	ch := make(chan T, 1)
	unregister := register(ch)
	go_func_utils.SafeGoGroup(&base.waitGroup, base.logger, name, func() {
		defer unregister()
		for {
			select {
			case <-base.context.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				apply()
				if err := base.viewImpl.Draw(); err != nil {
					base.logger.Printf("BaseView: Error drawing: %v", err)
				}
			}
		}
	})
}

func (base *BaseView) setupEventListeners() {
	m := base.model
	impl := base.viewImpl

	listen(base, "BaseView.log", m.ListenToLog, base.updateLogDisplay)

	listen(base, "BaseView.uiState", m.ListenToUIState, func() {
		state := m.GetUIState()
		impl.SetMode(state.Mode)
		impl.SetSelectedSegment(state.SelectedSegment)
	})

	listen(base, "BaseView.route", m.ListenToRoute, func() {
		impl.SetRoute(m.GetRoute())
	})

	listen(base, "BaseView.plan", m.ListenToPlan, func() {
		impl.UpdatePlan(m.GetPlanState())
	})

	listen(base, "BaseView.estimate", m.ListenToEstimate, func() {
		impl.UpdateEstimate(m.GetEstimate())
	})

	listen(base, "BaseView.ride", m.ListenToRide, func() {
		impl.UpdateRide(m.GetRideSnapshot())
	})

	listen(base, "BaseView.markers", m.ListenToMarkers, func() {
		impl.UpdateMarkers(m.GetMarkers())
	})

	for _, view := range AllViews {
		view := view
		register := func(ch chan<- ProfileState) func() { return m.ListenToProfile(view, ch) }
		listen(base, "BaseView.profile."+view.String(), register, func() {
			if snap, ok := m.GetProfile(view); ok {
				impl.UpdateProfile(ProfileState{View: view, Snapshot: snap})
			}
		})
	}

	// Close application stops the UI once
	closeChan := make(chan struct{}, 1)
	closeUnregister := m.ListenToCloseApplication(closeChan)
	go_func_utils.SafeGoGroup(&base.waitGroup, base.logger, "BaseView.close", func() {
		defer closeUnregister()
		select {
		case <-base.context.Done():
			return
		case _, ok := <-closeChan:
			if !ok {
				return
			}
			impl.Stop()
		}
	})
}

func (base *BaseView) updateLogDisplay() {
	height := base.viewImpl.GetLogViewHeight()
	if height <= 0 {
		return
	}

	logLines := base.model.GetLogTail(height)

	base.viewImpl.ClearLogView()
	for _, line := range logLines {
		if err := base.viewImpl.WriteLogLine(line); err != nil {
			base.logger.Printf("BaseView: Error writing to log view: %v", err)
		}
	}
}

func (base *BaseView) monitorLogResize() {
	var lastHeight int
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-base.context.Done():
			return
		case <-ticker.C:
			height := base.viewImpl.GetLogViewHeight()
			if height != lastHeight && height > 0 {
				lastHeight = height
				base.updateLogDisplay()
				if err := base.viewImpl.Draw(); err != nil {
					base.logger.Printf("BaseView: Error drawing: %v", err)
				}
			}
		}
	}
}

// Shutdown stops all goroutines and waits for them to finish
func (base *BaseView) Shutdown() {
	base.logger.Println("BaseView: Shutting down")
	base.cancelFunc()
	base.waitGroup.Wait()
	base.logger.Println("BaseView: Shutdown complete")
}

// Run starts the UI and blocks until it exits
func (base *BaseView) Run() error {
	return base.viewImpl.Run()
}
