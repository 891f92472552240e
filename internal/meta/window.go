package meta

import "fmt"

// Window is a Graph API date_preset.
type Window string

const (
	WindowMaximum   Window = "maximum"
	WindowToday     Window = "today"
	WindowYesterday Window = "yesterday"
	WindowLast7d    Window = "last_7d"
	WindowLast30d   Window = "last_30d"
	WindowThisMonth Window = "this_month"
)

// Windows lists every supported window.
var Windows = []Window{
	WindowMaximum, WindowToday, WindowYesterday, WindowLast7d, WindowLast30d, WindowThisMonth,
}

// ParseWindow validates s. An empty string selects the all-time window.
func ParseWindow(s string) (Window, error) {
	if s == "" {
		return WindowMaximum, nil
	}
	for _, w := range Windows {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("unknown window %q", s)
}

// AllTime reports whether w covers the whole account history.
func (w Window) AllTime() bool {
	return w == WindowMaximum
}
