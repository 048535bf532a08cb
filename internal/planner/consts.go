package planner

// UIMode represents the current UI mode/screen
type UIMode int

const (
	UIModePlanner   UIMode = iota // Segment editing over the route profile
	UIModeDashboard               // Live ride metrics and estimates
)

// UIModeInfo contains display information for a UI mode
type UIModeInfo struct {
	Mode        UIMode
	Name        string // Stable name used in preferences
	DisplayName string
	KeyBinding  rune // The number key to activate this mode (1-9)
}

// AllUIModes defines all available UI modes in order
var AllUIModes = []UIModeInfo{
	{Mode: UIModePlanner, Name: "planner", DisplayName: "Planner", KeyBinding: '1'},
	{Mode: UIModeDashboard, Name: "dashboard", DisplayName: "Dashboard", KeyBinding: '2'},
}

// GetUIModeByKey returns the mode for a given key binding
func GetUIModeByKey(key rune) (UIMode, bool) {
	for _, info := range AllUIModes {
		if info.KeyBinding == key {
			return info.Mode, true
		}
	}
	return 0, false
}

// GetUIModeByName returns the mode stored under name
func GetUIModeByName(name string) (UIMode, bool) {
	for _, info := range AllUIModes {
		if info.Name == name {
			return info.Mode, true
		}
	}
	return 0, false
}

// GetUIModeInfo returns the info for a given mode
func GetUIModeInfo(mode UIMode) (UIModeInfo, bool) {
	for _, info := range AllUIModes {
		if info.Mode == mode {
			return info, true
		}
	}
	return UIModeInfo{}, false
}

func (m UIMode) String() string {
	if info, ok := GetUIModeInfo(m); ok {
		return info.Name
	}
	return "unknown"
}

// ViewID names one of the two profile views. Each owns its own zoom and pan.
type ViewID int

const (
	ViewPlanner ViewID = iota
	ViewDashboard
)

// AllViews lists the profile views in display order
var AllViews = []ViewID{ViewPlanner, ViewDashboard}

func (v ViewID) String() string {
	switch v {
	case ViewPlanner:
		return "planner"
	case ViewDashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

// ViewForMode returns the profile view shown in mode
func ViewForMode(mode UIMode) ViewID {
	if mode == UIModeDashboard {
		return ViewDashboard
	}
	return ViewPlanner
}

// Editing steps for key bindings
const (
	SpeedStepKmh = 1.0
	BoundaryStep = 0.005
	PanStep      = 0.25
)

const maxLogLines = 1000
