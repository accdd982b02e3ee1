package views

import (
	"courierdash/ui/tui/state"
)

func RenderMenu(s state.AppState, width, height, cursor int, animCursor float64, mouseX, mouseY int) string {
	v := MenuView{}
	return v.Render(s, ViewProps{
		Width:      width,
		Height:     height,
		MenuCursor: cursor,
		AnimCursor: animCursor,
		MouseX:     mouseX,
		MouseY:     mouseY,
	})
}

func RenderStats(s state.AppState, props ViewProps) string {
	return StatsView{}.Render(s, props)
}

func RenderTable(s state.AppState, props ViewProps) string {
	return TableView{}.Render(s, props)
}

func RenderForm(s state.AppState, props ViewProps) string {
	if s.CurrentPage == state.PagePull {
		return PullView{}.Render(s, props)
	}
	return FormView{}.Render(s, props)
}

func RenderConsole(s state.AppState, props ViewProps) string {
	return ConsoleView{}.Render(s, props)
}
