package components

// Component is implemented by every widget the app lays out. SetSize is
// called on each terminal resize.
type Component interface {
	SetSize(width, height int)
	View() string
}

var (
	_ Component = (*RateChart)(nil)
	_ Component = (*DataTable)(nil)
	_ Component = (*Form)(nil)
)
