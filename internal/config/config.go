// Package config loads the ride planner configuration from defaults, an
// optional YAML file, RIDEPLANNER_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lowaak/ride-planner/internal/profile"
	"github.com/lowaak/ride-planner/internal/ride"
	"github.com/lowaak/ride-planner/internal/routeio"
	"github.com/lowaak/ride-planner/internal/segments"
)

// Feed modes
const (
	FeedSimulate = "simulate"
	FeedReplay   = "replay"
	FeedNone     = "none"
)

// Config holds all application configuration
type Config struct {
	Route    RouteConfig    `mapstructure:"route"`
	Segments SegmentsConfig `mapstructure:"segments"`
	Ride     RideConfig     `mapstructure:"ride"`
	Profile  ProfileConfig  `mapstructure:"profile"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Log      LogConfig      `mapstructure:"log"`
	Export   ExportConfig   `mapstructure:"export"`
	UI       UIConfig       `mapstructure:"ui"`
}

type RouteConfig struct {
	GPX        string `mapstructure:"gpx"`
	MaxSamples int    `mapstructure:"max_samples"`
}

type SegmentsConfig struct {
	DefaultSpeedKmh float64 `mapstructure:"default_speed_kmh"`
	MinSpeedKmh     float64 `mapstructure:"min_speed_kmh"`
	MaxSpeedKmh     float64 `mapstructure:"max_speed_kmh"`
	MinGap          float64 `mapstructure:"min_gap"`
}

type RideConfig struct {
	MovingThresholdKmh float64       `mapstructure:"moving_threshold_kmh"`
	StaleAfter         time.Duration `mapstructure:"stale_after"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
}

type ProfileConfig struct {
	ZoomStep float64 `mapstructure:"zoom_step"`
	MinZoom  float64 `mapstructure:"min_zoom"`
	MaxZoom  float64 `mapstructure:"max_zoom"`
}

type FeedConfig struct {
	Mode        string        `mapstructure:"mode"`
	Track       string        `mapstructure:"track"`
	Interval    time.Duration `mapstructure:"interval"`
	SpeedFactor float64       `mapstructure:"speed_factor"`
	StopEvery   time.Duration `mapstructure:"stop_every"`
	StopFor     time.Duration `mapstructure:"stop_for"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type ExportConfig struct {
	GeoJSON    string `mapstructure:"geojson"`
	ProfilePNG string `mapstructure:"profile_png"`
}

type UIConfig struct {
	Headless bool `mapstructure:"headless"`
}

// SegmentLimits converts the segment section for segments.NewModel
func (c *Config) SegmentLimits() segments.Limits {
	return segments.Limits{
		MinGap:          c.Segments.MinGap,
		MinSpeedKmh:     c.Segments.MinSpeedKmh,
		MaxSpeedKmh:     c.Segments.MaxSpeedKmh,
		DefaultSpeedKmh: c.Segments.DefaultSpeedKmh,
	}
}

// RideParams converts the ride section for ride.NewClock
func (c *Config) RideParams() ride.Params {
	return ride.Params{
		MovingThresholdKmh: c.Ride.MovingThresholdKmh,
		StaleAfter:         c.Ride.StaleAfter,
	}
}

// ProfileParams converts the profile section for profile.NewViewState
func (c *Config) ProfileParams() profile.Params {
	return profile.Params{
		ZoomStep: c.Profile.ZoomStep,
		MinZoom:  c.Profile.MinZoom,
		MaxZoom:  c.Profile.MaxZoom,
	}
}

// HomeDir is the per-user directory for the config file, preferences and logs
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ride-planner"
	}
	return filepath.Join(home, ".ride-planner")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("route.gpx", "")
	v.SetDefault("route.max_samples", routeio.DefaultMaxSamples)

	sl := segments.DefaultLimits()
	v.SetDefault("segments.default_speed_kmh", sl.DefaultSpeedKmh)
	v.SetDefault("segments.min_speed_kmh", sl.MinSpeedKmh)
	v.SetDefault("segments.max_speed_kmh", sl.MaxSpeedKmh)
	v.SetDefault("segments.min_gap", sl.MinGap)

	rp := ride.DefaultParams()
	v.SetDefault("ride.moving_threshold_kmh", rp.MovingThresholdKmh)
	v.SetDefault("ride.stale_after", rp.StaleAfter)
	v.SetDefault("ride.tick_interval", time.Second)

	pp := profile.DefaultParams()
	v.SetDefault("profile.zoom_step", pp.ZoomStep)
	v.SetDefault("profile.min_zoom", pp.MinZoom)
	v.SetDefault("profile.max_zoom", pp.MaxZoom)

	v.SetDefault("feed.mode", FeedSimulate)
	v.SetDefault("feed.track", "")
	v.SetDefault("feed.interval", time.Second)
	v.SetDefault("feed.speed_factor", 1.0)
	v.SetDefault("feed.stop_every", time.Duration(0))
	v.SetDefault("feed.stop_for", time.Duration(0))

	v.SetDefault("log.file", filepath.Join(HomeDir(), "ride-planner.log"))
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("export.geojson", "")
	v.SetDefault("export.profile_png", "")

	v.SetDefault("ui.headless", false)
}

// flagBindings maps command-line flags onto config keys
var flagBindings = map[string]string{
	"gpx":            "route.gpx",
	"speed":          "segments.default_speed_kmh",
	"feed":           "feed.mode",
	"track":          "feed.track",
	"speed-factor":   "feed.speed_factor",
	"log-file":       "log.file",
	"export-geojson": "export.geojson",
	"export-png":     "export.profile_png",
	"headless":       "ui.headless",
}

// Load builds the configuration. Precedence, highest first: flags,
// environment (RIDEPLANNER_FEED_MODE for feed.mode), config file, defaults.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("ride-planner", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	fs.String("gpx", "", "GPX file with the route to plan")
	fs.Float64("speed", 0, "default segment speed in km/h")
	fs.String("feed", "", "live feed: simulate, replay or none")
	fs.String("track", "", "GPX track to replay with --feed=replay")
	fs.Float64("speed-factor", 0, "time acceleration of the live feed")
	fs.String("log-file", "", "log file path")
	fs.String("export-geojson", "", "write the segment overlay as GeoJSON to this path")
	fs.String("export-png", "", "write the elevation profile as PNG to this path")
	fs.Bool("headless", false, "run without the terminal UI")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", *configPath, err)
		}
	} else {
		v.SetConfigName("ride-planner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(HomeDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("RIDEPLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Only flags given explicitly override lower layers
	for name, key := range flagBindings {
		if f := fs.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	// ride-planner route.gpx
	if fs.NArg() > 0 && !fs.Changed("gpx") {
		v.Set("route.gpx", fs.Arg(0))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var errs []string

	if c.Route.MaxSamples < 2 || c.Route.MaxSamples > routeio.DefaultMaxSamples {
		errs = append(errs, fmt.Sprintf("route.max_samples must be between 2 and %d, got %d", routeio.DefaultMaxSamples, c.Route.MaxSamples))
	}

	s := c.Segments
	if s.MinSpeedKmh <= 0 {
		errs = append(errs, "segments.min_speed_kmh must be positive")
	}
	if s.MaxSpeedKmh < s.MinSpeedKmh {
		errs = append(errs, fmt.Sprintf("segments.max_speed_kmh %.1f is below min_speed_kmh %.1f", s.MaxSpeedKmh, s.MinSpeedKmh))
	}
	if s.DefaultSpeedKmh < s.MinSpeedKmh || s.DefaultSpeedKmh > s.MaxSpeedKmh {
		errs = append(errs, fmt.Sprintf("segments.default_speed_kmh %.1f outside [%.1f,%.1f]", s.DefaultSpeedKmh, s.MinSpeedKmh, s.MaxSpeedKmh))
	}
	if s.MinGap <= 0 || s.MinGap >= 0.5 {
		errs = append(errs, fmt.Sprintf("segments.min_gap must be in (0,0.5), got %g", s.MinGap))
	}

	if c.Ride.MovingThresholdKmh < 0 {
		errs = append(errs, "ride.moving_threshold_kmh must not be negative")
	}
	if c.Ride.StaleAfter <= 0 {
		errs = append(errs, "ride.stale_after must be positive")
	}
	if c.Ride.TickInterval <= 0 {
		errs = append(errs, "ride.tick_interval must be positive")
	}

	p := c.Profile
	if p.ZoomStep <= 0 || p.ZoomStep >= 1 {
		errs = append(errs, fmt.Sprintf("profile.zoom_step must be in (0,1), got %g", p.ZoomStep))
	}
	if p.MinZoom <= 0 || p.MinZoom > p.MaxZoom || p.MaxZoom > 1 {
		errs = append(errs, fmt.Sprintf("profile zoom bounds must satisfy 0 < min_zoom <= max_zoom <= 1, got [%g,%g]", p.MinZoom, p.MaxZoom))
	}

	switch c.Feed.Mode {
	case FeedSimulate, FeedNone:
	case FeedReplay:
		if c.Feed.Track == "" {
			errs = append(errs, "feed.track is required for feed.mode=replay")
		}
	default:
		errs = append(errs, fmt.Sprintf("feed.mode must be simulate, replay or none, got %q", c.Feed.Mode))
	}
	if c.Feed.Interval <= 0 {
		errs = append(errs, "feed.interval must be positive")
	}
	if c.Feed.SpeedFactor <= 0 {
		errs = append(errs, "feed.speed_factor must be positive")
	}

	if c.Log.MaxSizeMB <= 0 {
		errs = append(errs, "log.max_size_mb must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
