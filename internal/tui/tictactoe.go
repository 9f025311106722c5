package tui

import (
	"github.com/gdamore/tcell/v2"

	"arcade/internal/game"
	"arcade/internal/game/tictactoe"
)

// ticTacToeView is a hot-seat match: both marks are placed from this
// keyboard. Cells are numbered 1 to 9 from the top left.
type ticTacToeView struct {
	app    *App
	match  *tictactoe.Match
	result string
}

func newTicTacToeView(a *App) *ticTacToeView {
	v := &ticTacToeView{app: a}
	v.reset()
	return v
}

func (v *ticTacToeView) reset() {
	m := v.app.tictactoe.NewMatch(game.MatchConfig{PlayerIDs: []string{v.app.player}})
	v.match = m.(*tictactoe.Match)
	v.result = ""
}

func (v *ticTacToeView) key(ev *tcell.EventKey) view {
	switch ev.Key() {
	case tcell.KeyEscape:
		return newMenu(v.app)
	case tcell.KeyEnter:
		if v.match.Done {
			v.reset()
		}
	case tcell.KeyRune:
		r := ev.Rune()
		if r < '1' || r > '9' || v.match.Done {
			return v
		}
		if err := v.match.ApplyAction(v.app.player, tictactoe.Move(int(r-'1'))); err != nil {
			return v
		}
		if v.match.Done {
			o := v.match.Outcome()
			v.app.record("tictactoe", o)
			if o.Label == tictactoe.DrawLabel {
				v.result = "Draw"
			} else {
				v.result = o.Label + " wins"
			}
		}
	}
	return v
}

func (v *ticTacToeView) draw(s tcell.Screen) {
	drawText(s, 2, 1, styleTitle, "TIC-TAC-TOE")
	won := make(map[int]bool, len(v.match.Line))
	for _, c := range v.match.Line {
		won[c] = true
	}
	for i, mark := range v.match.Board {
		x, y := 4+(i%3)*4, 3+(i/3)*2
		style := styleText
		if won[i] {
			style = styleAlert
		}
		text := tictactoe.MarkName(mark)
		if text == "" {
			text, style = string(rune('1'+i)), styleDim
		}
		drawText(s, x, y, style, text)
		if i%3 < 2 {
			drawText(s, x+2, y, styleDim, "│")
		}
		if i/3 < 2 && i%3 == 0 {
			drawText(s, 3, y+1, styleDim, "───┼───┼───")
		}
	}
	if v.match.Done {
		drawText(s, 2, 9, styleAlert, v.result)
		drawText(s, 2, 11, styleDim, "enter: play again  esc: menu")
		return
	}
	drawText(s, 2, 9, styleText, tictactoe.MarkName(v.match.Turn+1)+" to move")
	drawText(s, 2, 11, styleDim, "1-9: place mark  esc: menu")
}
