package tui

import "github.com/gdamore/tcell/v2"

type menuItem struct {
	label string
	open  func(a *App) view
}

var menuItems = []menuItem{
	{"Tetris", func(a *App) view { return newTetrisView(a) }},
	{"Tic-tac-toe", func(a *App) view { return newTicTacToeView(a) }},
	{"High scores", func(a *App) view { return newScoresView(a) }},
	{"Quit", nil},
}

type menu struct {
	app      *App
	selected int
}

func newMenu(a *App) *menu {
	return &menu{app: a}
}

func (m *menu) draw(s tcell.Screen) {
	drawText(s, 2, 1, styleTitle, "ARCADE")
	for i, item := range menuItems {
		style := styleText
		if i == m.selected {
			style = styleSelect
		}
		drawText(s, 4, 3+i, style, item.label)
	}
	drawText(s, 2, 4+len(menuItems), styleDim, "up/down: choose  enter: open  esc: quit")
}

func (m *menu) key(ev *tcell.EventKey) view {
	switch ev.Key() {
	case tcell.KeyUp:
		m.selected = (m.selected + len(menuItems) - 1) % len(menuItems)
	case tcell.KeyDown, tcell.KeyTab:
		m.selected = (m.selected + 1) % len(menuItems)
	case tcell.KeyEnter:
		item := menuItems[m.selected]
		if item.open == nil {
			return nil
		}
		return item.open(m.app)
	case tcell.KeyEscape:
		return nil
	case tcell.KeyRune:
		if ev.Rune() == 'q' {
			return nil
		}
	}
	return m
}
