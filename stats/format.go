package stats

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration renders a cumulative duration in seconds: "0m", "< 1m",
// "Nm" below an hour, and "Hh Mm" or "Hh" above. Minutes are rounded.
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0m"
	}
	if seconds < 60 {
		return "< 1m"
	}

	hours := int64(seconds) / 3600
	minutes := int64(math.Round((seconds - float64(hours*3600)) / 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}

	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// FormatRunningTime renders an elapsed duration as HH:MM:SS
func FormatRunningTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
