package planner

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const preferencesFileName = "preferences.json"

type preferencesData struct {
	DefaultSpeedKmh float64 `json:"default_speed_kmh,omitempty"`
	Mode            string  `json:"ui_mode,omitempty"`
}

// Preferences remembers the last used segment speed and UI mode between
// runs. Routes are never stored.
type Preferences struct {
	filePath string
	data     preferencesData
	mu       sync.Mutex
	logger   *log.Logger
}

// NewPreferences loads dir/preferences.json, starting empty when it is missing or unreadable
func NewPreferences(dir string, logger *log.Logger) *Preferences {
	if logger == nil {
		panic("Preferences: logger cannot be nil")
	}
	p := &Preferences{
		filePath: filepath.Join(dir, preferencesFileName),
		logger:   logger,
	}
	p.load()
	return p
}

// DefaultSpeedKmh returns the remembered segment speed
func (p *Preferences) DefaultSpeedKmh() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.DefaultSpeedKmh, p.data.DefaultSpeedKmh > 0
}

func (p *Preferences) SetDefaultSpeedKmh(kmh float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data.DefaultSpeedKmh == kmh {
		return
	}
	p.logger.Printf("Preferences: default speed -> %.1f km/h", kmh)
	p.data.DefaultSpeedKmh = kmh
	p.save()
}

// Mode returns the remembered UI mode
func (p *Preferences) Mode() (UIMode, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return GetUIModeByName(p.data.Mode)
}

func (p *Preferences) SetMode(mode UIMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := mode.String()
	if p.data.Mode == name {
		return
	}
	p.logger.Printf("Preferences: ui mode -> %s", name)
	p.data.Mode = name
	p.save()
}

func (p *Preferences) load() {
	p.data = preferencesData{}
	raw, err := os.ReadFile(p.filePath)
	if err != nil {
		p.logger.Printf("Preferences: load %s (no existing file)", p.filePath)
		return
	}
	if err := json.Unmarshal(raw, &p.data); err != nil {
		p.logger.Printf("Preferences: load %s failed to parse: %v", p.filePath, err)
		p.data = preferencesData{}
		return
	}
	p.logger.Printf("Preferences: load %s -> %+v", p.filePath, p.data)
}

// save must be called with mu held
func (p *Preferences) save() {
	if err := os.MkdirAll(filepath.Dir(p.filePath), 0755); err != nil {
		p.logger.Printf("Preferences: save mkdir failed: %v", err)
		return
	}
	raw, err := json.MarshalIndent(p.data, "", "  ")
	if err != nil {
		p.logger.Printf("Preferences: save marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(p.filePath, raw, 0644); err != nil {
		p.logger.Printf("Preferences: save %s failed: %v", p.filePath, err)
	}
}
