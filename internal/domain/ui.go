package domain

// DisplayMode selects the container chrome of the widget.
type DisplayMode string

const (
	// ModeWidget is a floating launcher that opens a chat panel.
	ModeWidget DisplayMode = "widget"
	// ModeInline is an always-open panel embedded in the page.
	ModeInline DisplayMode = "inline"
)

// ParseDisplayMode maps a host attribute value to a DisplayMode, defaulting to widget.
func ParseDisplayMode(s string) DisplayMode {
	if DisplayMode(s) == ModeInline {
		return ModeInline
	}
	return ModeWidget
}

// Tab is the active panel of the widget.
type Tab string

const (
	// TabChat shows the setup form or the transcript.
	TabChat Tab = "chat"
	// TabSettings shows embed shortcodes and the re-index action.
	TabSettings Tab = "settings"
)
