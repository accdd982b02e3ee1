package views

import (
	"courierdash/internal/courier"
	"courierdash/ui/tui/state"
)

// ViewProps contains UI-specific properties provided by the Controller.
type ViewProps struct {
	Width, Height  int
	MouseX, MouseY int

	// Component States
	MenuCursor  int
	AnimCursor  float64
	SpinnerView string
	ChartView   string
	ScrollY     int

	Uptime string
	Table  string
	Filter string
	Count  string
	Form   string

	Console []string
	Pulled  []courier.Message
	Pretty  bool
}

// View defines the contract for any renderable page in the TUI.
type View interface {
	Render(s state.AppState, props ViewProps) string
}
