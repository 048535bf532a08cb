package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rivo/tview"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lowaak/ride-planner/internal/config"
	"github.com/lowaak/ride-planner/internal/feed"
	"github.com/lowaak/ride-planner/internal/go_func_utils"
	"github.com/lowaak/ride-planner/internal/planner"
	"github.com/lowaak/ride-planner/internal/ride"
	"github.com/lowaak/ride-planner/internal/routeio"
	"github.com/lowaak/ride-planner/internal/segments"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "ride-planner: %v\n", err)
		return 2
	}
	if cfg.Route.GPX == "" {
		fmt.Fprintln(os.Stderr, "ride-planner: no route given, pass a GPX file or --gpx")
		return 2
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "ride-planner: log directory: %v\n", err)
		return 1
	}
	logFile := &lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
	}
	defer logFile.Close()

	// The terminal UI owns stdout, so log lines go to the file and the log pane
	uiLogChan := make(chan string, 100)
	var logOut io.Writer = io.MultiWriter(logFile, planner.NewLogWriter(uiLogChan))
	if cfg.UI.Headless {
		logOut = io.MultiWriter(logFile, os.Stderr)
	}
	logger := log.New(logOut, "", log.Ltime)

	route, err := routeio.LoadGPX(cfg.Route.GPX, cfg.Route.MaxSamples)
	if err != nil {
		logger.Printf("Failed to load route %s: %v", cfg.Route.GPX, err)
		return 1
	}

	model := planner.NewModel(logger, uiLogChan)
	defer model.Shutdown()

	prefs := planner.NewPreferences(config.HomeDir(), logger)
	limits := cfg.SegmentLimits()
	// A remembered speed applies unless the config sets its own
	if kmh, ok := prefs.DefaultSpeedKmh(); ok && limits.DefaultSpeedKmh == segments.DefaultLimits().DefaultSpeedKmh {
		if kmh >= limits.MinSpeedKmh && kmh <= limits.MaxSpeedKmh {
			limits.DefaultSpeedKmh = kmh
		}
	}
	if mode, ok := prefs.Mode(); ok {
		model.SetMode(mode)
	}

	session := planner.NewSession(model, route, planner.SessionConfig{
		Limits:       limits,
		Ride:         cfg.RideParams(),
		Profile:      cfg.ProfileParams(),
		TickInterval: cfg.Ride.TickInterval,
	}, logger)
	defer session.Shutdown()

	exporter := planner.NewExporter(cfg.Export.GeoJSON, cfg.Export.ProfilePNG, logger)

	feedCtx, cancelFeed := context.WithCancel(context.Background())
	var feedGroup sync.WaitGroup
	// Feeds block on the session input, so they stop before the session does
	defer func() {
		cancelFeed()
		feedGroup.Wait()
	}()

	source, err := newSource(feedCtx, &feedGroup, cfg, route, model, logger)
	if err != nil {
		logger.Printf("Failed to set up %s feed: %v", cfg.Feed.Mode, err)
		return 1
	}

	if cfg.UI.Headless {
		return runHeadless(session, model, exporter, source, logger)
	}
	return runTerminal(feedCtx, &feedGroup, session, model, prefs, exporter, source, logger)
}

// newSource builds the live feed selected by feed.mode, nil for none
func newSource(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, route *routeio.Route, model *planner.Model, logger *log.Logger) (feed.Source, error) {
	switch cfg.Feed.Mode {
	case config.FeedSimulate:
		sim := feed.NewSimulator(route.Index, model.GetPlanState().Plan, feed.SimulatorOptions{
			Interval:    cfg.Feed.Interval,
			SpeedFactor: cfg.Feed.SpeedFactor,
			StopEvery:   cfg.Feed.StopEvery,
			StopFor:     cfg.Feed.StopFor,
		})
		// the simulated rider follows plan edits
		planChan := make(chan planner.PlanState, 1)
		unregister := model.ListenToPlan(planChan)
		go_func_utils.SafeGoGroup(wg, logger, "feed.planUpdates", func() {
			defer unregister()
			for {
				select {
				case <-ctx.Done():
					return
				case <-planChan:
					sim.SetPlan(model.GetPlanState().Plan)
				}
			}
		})
		logger.Printf("Feed: simulating at %.1fx", cfg.Feed.SpeedFactor)
		return sim, nil

	case config.FeedReplay:
		points, err := routeio.LoadTrack(cfg.Feed.Track)
		if err != nil {
			return nil, err
		}
		logger.Printf("Feed: replaying %d fixes from %s at %.1fx", len(points), cfg.Feed.Track, cfg.Feed.SpeedFactor)
		return feed.NewReplay(points, cfg.Feed.SpeedFactor, nil), nil

	default:
		return nil, nil
	}
}

func runFeed(ctx context.Context, source feed.Source, session *planner.Session, logger *log.Logger) {
	err := source.Run(ctx, session.Observations())
	switch {
	case err == nil:
		logger.Printf("Feed: finished")
	case errors.Is(err, context.Canceled):
	default:
		logger.Printf("Feed: stopped: %v", err)
	}
}

// runHeadless rides the whole feed, then prints the plan and the ride summary
func runHeadless(session *planner.Session, model *planner.Model, exporter *planner.Exporter, source feed.Source, logger *log.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var summary string
	if source != nil {
		if err := session.StartRide(); err != nil {
			logger.Printf("Failed to start ride: %v", err)
			return 1
		}
		runFeed(ctx, source, session, logger)
		final, err := session.StopRide()
		if err != nil {
			logger.Printf("Failed to stop ride: %v", err)
			return 1
		}
		summary = final.Summary()
	}

	route := model.GetRoute()
	plan := model.GetPlanState()
	fmt.Printf("%s: %.2f km, %d segments, %s\n", route.Name, route.DistanceKm, len(plan.Plan), plan.Total.Round(time.Second))
	for _, step := range plan.Plan {
		fmt.Printf("  %d  %5.1f%% - %5.1f%%  %6.2f km  %4.0f km/h  %s\n",
			step.Index+1, step.StartRatio*100, step.EndRatio*100, step.DistanceKm, step.SpeedKmh, step.Duration.Round(time.Second))
	}
	if summary != "" {
		fmt.Println(summary)
	}

	if exporter.Enabled() {
		data, err := session.Export()
		if err == nil {
			err = exporter.Write(data)
		}
		if err != nil {
			logger.Printf("Export failed: %v", err)
			return 1
		}
	}
	return 0
}

// runTerminal runs the planner UI. The feed starts with the first ride.
func runTerminal(ctx context.Context, wg *sync.WaitGroup, session *planner.Session, model *planner.Model, prefs *planner.Preferences, exporter *planner.Exporter, source feed.Source, logger *log.Logger) int {
	if source != nil {
		var startOnce sync.Once
		unregister := session.ListenToRideStatus(func(status ride.Status) {
			if status != ride.StatusActive {
				return
			}
			startOnce.Do(func() {
				go_func_utils.SafeGoGroup(wg, logger, "feed", func() {
					runFeed(ctx, source, session, logger)
				})
			})
		})
		defer unregister()
	}

	app := tview.NewApplication()
	view := planner.NewCursesView(logger, app)
	controller := planner.NewController(model, session, prefs, exporter, logger)
	defer controller.Shutdown()

	base := planner.NewBaseView(planner.NewBaseViewArg{
		ViewImpl:   view,
		Model:      model,
		Controller: controller,
		Logger:     logger,
	})
	defer base.Shutdown()

	logger.Printf("Ride planner ready: Tab switches mode, Esc quits")
	if err := base.Run(); err != nil {
		logger.Printf("UI error: %v", err)
		return 1
	}
	return 0
}
