package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/gjson"

	"courierdash/ui/tui/state"
	"courierdash/ui/tui/styles"
)

const formHelp = "[tab/↑/↓] field • [space] toggle • [enter] next/submit • [esc] leave form"

// FormView renders the Publish, New Topic and New Subscription pages.
type FormView struct{}

func (v FormView) Render(s state.AppState, props ViewProps) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		RenderHeader(s, props),
		styles.CardStyle.Render(props.Form),
		styles.HelpStyle.Render(formHelp),
	)
}

// PullView is the Pull & Ack page: the pull form and the last pulled batch.
type PullView struct{}

func (v PullView) Render(s state.AppState, props ViewProps) string {
	var msgs []string
	for _, m := range props.Pulled {
		msgs = append(msgs,
			lipgloss.NewStyle().Bold(true).Render(m.ID)+
				lipgloss.NewStyle().Foreground(lipgloss.Color("#888")).Render(fmt.Sprintf("  tries %d  %s", m.Tries, m.Time.Local().Format("15:04:05"))),
			FormatData(m.Data, props.Pretty),
			"",
		)
	}
	if len(msgs) == 0 {
		msgs = []string{"No messages pulled."}
	}

	help := formHelp
	if len(props.Pulled) > 0 {
		help += " • [a] ack pulled"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		RenderHeader(s, props),
		styles.CardStyle.Render(props.Form),
		lipgloss.NewStyle().PaddingLeft(2).Render(strings.Join(msgs, "\n")),
		styles.HelpStyle.Render(help),
	)
}

// FormatData pretty-prints JSON payloads when asked; anything else is shown
// as is.
func FormatData(data string, pretty bool) string {
	if !pretty || !gjson.Valid(data) {
		return data
	}
	return strings.TrimSuffix(gjson.Get(data, "@pretty").String(), "\n")
}
