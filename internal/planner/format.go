package planner

import (
	"fmt"
	"time"

	"github.com/lowaak/ride-planner/internal/ride"
)

// formatDurationHMS formats a duration as H:MM:SS
func formatDurationHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalSeconds := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d:%02d", totalSeconds/3600, totalSeconds/60%60, totalSeconds%60)
}

// formatDistance prints metres below 1 km and kilometres above
func formatDistance(m float64) string {
	if m >= 1000 {
		return fmt.Sprintf("%.2f km", m/1000)
	}
	return fmt.Sprintf("%.0f m", m)
}

// statusTag is the colored status label for tview dynamic colors
func statusTag(s ride.Status) string {
	switch s {
	case ride.StatusActive:
		return "[green]RIDING[white]"
	case ride.StatusPaused:
		return "[yellow]PAUSED[white]"
	case ride.StatusStopped:
		return "[red]STOPPED[white]"
	default:
		return "[gray]READY[white]"
	}
}
