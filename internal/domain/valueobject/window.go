package valueobject

import (
	"fmt"
	"time"
)

// Window is the time interval over which a user's transaction volume is aggregated.
type Window struct {
	value string
}

var (
	WindowHourly  = Window{value: "HOURLY"}
	WindowDaily   = Window{value: "DAILY"}
	WindowWeekly  = Window{value: "WEEKLY"}
	WindowMonthly = Window{value: "MONTHLY"}
)

// AllWindows lists every window from shortest to longest.
var AllWindows = []Window{WindowHourly, WindowDaily, WindowWeekly, WindowMonthly}

// WindowFromString reconstructs a Window from its string representation.
func WindowFromString(s string) (Window, error) {
	switch s {
	case "HOURLY":
		return WindowHourly, nil
	case "DAILY":
		return WindowDaily, nil
	case "WEEKLY":
		return WindowWeekly, nil
	case "MONTHLY":
		return WindowMonthly, nil
	default:
		return Window{}, fmt.Errorf("invalid window: %s", s)
	}
}

// Start returns the inclusive start of the window containing now, in UTC.
// Windows are calendar-aligned: the current hour, the current day, the
// current ISO week (starting Monday) and the current month.
func (w Window) Start(now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch w.value {
	case "HOURLY":
		return now.Truncate(time.Hour)
	case "WEEKLY":
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "MONTHLY":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// String returns the string representation.
func (w Window) String() string {
	return w.value
}

// IsZero returns true if the Window has not been set.
func (w Window) IsZero() bool {
	return w.value == ""
}

// Equal checks equality with another Window.
func (w Window) Equal(other Window) bool {
	return w.value == other.value
}
