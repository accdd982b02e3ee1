package styles

import "github.com/charmbracelet/lipgloss"

var (
	Subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	Highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	Special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	Brand = lipgloss.Color("#f27b24")
	Muted = lipgloss.Color("#444")

	Gold = lipgloss.Color("220")
	Red  = lipgloss.Color("196")
	Lime = lipgloss.Color("46")

	TitleStyle = lipgloss.NewStyle().
			MarginLeft(1).
			MarginRight(5).
			Padding(0, 1).
			Italic(true).
			Foreground(lipgloss.Color("#FFF7DB"))

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Highlight).
			Padding(1, 2).
			Margin(1, 1)

	StatusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFF"))

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555")).
			PaddingLeft(2)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			MarginLeft(2).
			Foreground(lipgloss.Color("#000"))

	InfoBanner    = bannerStyle.Background(lipgloss.Color("#7aa2f7"))
	SuccessBanner = bannerStyle.Background(Lime)
	ErrorBanner   = bannerStyle.Background(Red).Foreground(lipgloss.Color("#FFF"))

	MenuHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(Brand).
			Padding(1, 2)

	CaptionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888")).
			Italic(true).
			MarginBottom(1).
			PaddingLeft(2)
)
