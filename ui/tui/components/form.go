package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"courierdash/ui/tui/styles"
)

// Field is a text input or an on/off toggle.
type Field struct {
	Label   string
	input   textinput.Model
	toggle  bool
	on      bool
	initial string
	initOn  bool
}

func TextField(label, placeholder string) Field {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = 4096
	in.Width = 40
	return Field{Label: label, input: in}
}

func ToggleField(label string, on bool) Field {
	return Field{Label: label, toggle: true, on: on, initOn: on}
}

// Form is a vertical list of fields. No field is focused until Focus is
// called; a blurred form leaves keys to the page.
type Form struct {
	fields []Field
	focus  int
}

func NewForm(fields ...Field) *Form {
	return &Form{fields: fields, focus: -1}
}

func (f *Form) Active() bool {
	return f.focus >= 0
}

func (f *Form) Focus(i int) tea.Cmd {
	f.Blur()
	if i < 0 || i >= len(f.fields) {
		return nil
	}
	f.focus = i
	if f.fields[i].toggle {
		return nil
	}
	return f.fields[i].input.Focus()
}

func (f *Form) Blur() {
	for i := range f.fields {
		f.fields[i].input.Blur()
	}
	f.focus = -1
}

func (f *Form) Next() tea.Cmd {
	return f.Focus((f.focus + 1) % len(f.fields))
}

func (f *Form) Prev() tea.Cmd {
	return f.Focus((f.focus - 1 + len(f.fields)) % len(f.fields))
}

func (f *Form) OnLast() bool {
	return f.focus == len(f.fields)-1
}

// OnToggle reports whether the focused field is a toggle.
func (f *Form) OnToggle() bool {
	return f.Active() && f.fields[f.focus].toggle
}

// Toggle flips the focused toggle.
func (f *Form) Toggle() {
	if f.OnToggle() {
		f.fields[f.focus].on = !f.fields[f.focus].on
	}
}

// Update forwards msg to the focused text input.
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	if !f.Active() || f.fields[f.focus].toggle {
		return nil
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f *Form) Value(i int) string {
	return strings.TrimSpace(f.fields[i].input.Value())
}

func (f *Form) Bool(i int) bool {
	return f.fields[i].on
}

// SetValue sets a text field and makes v its reset value.
func (f *Form) SetValue(i int, v string) {
	f.fields[i].input.SetValue(v)
	f.fields[i].initial = v
}

// Reset restores every field to its initial value.
func (f *Form) Reset() {
	for i := range f.fields {
		f.fields[i].input.SetValue(f.fields[i].initial)
		f.fields[i].on = f.fields[i].initOn
	}
}

func (f *Form) SetSize(w, _ int) {
	for i := range f.fields {
		f.fields[i].input.Width = max(w-24, 10)
	}
}

func (f *Form) View() string {
	label := lipgloss.NewStyle().Width(18)
	focused := lipgloss.NewStyle().Foreground(styles.Highlight).Bold(true)

	lines := make([]string, 0, len(f.fields))
	for i, fd := range f.fields {
		cursor := "  "
		l := label.Render(fd.Label)
		if i == f.focus {
			cursor = focused.Render("› ")
			l = focused.Inherit(label).Render(fd.Label)
		}

		value := fd.input.View()
		if fd.toggle {
			mark := " "
			if fd.on {
				mark = "x"
			}
			value = fmt.Sprintf("[%s]", mark)
		}
		lines = append(lines, cursor+l+value)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
