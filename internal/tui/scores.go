package tui

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"

	"arcade/internal/game/tictactoe"
	"arcade/internal/leaderboard"
)

const topScores = 5

type scoresView struct {
	app   *App
	top   []leaderboard.Entry
	stats leaderboard.Stats
}

func newScoresView(a *App) *scoresView {
	v := &scoresView{app: a}
	if a.keeper != nil {
		v.top = a.keeper.Top("tetris", topScores)
		v.stats = a.keeper.Stats("tictactoe")
	}
	return v
}

func (v *scoresView) key(ev *tcell.EventKey) view {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyEnter:
		return newMenu(v.app)
	}
	return v
}

func (v *scoresView) draw(s tcell.Screen) {
	drawText(s, 2, 1, styleTitle, "HIGH SCORES")
	drawText(s, 2, 3, styleText, "Tetris")
	if len(v.top) == 0 {
		drawText(s, 4, 4, styleDim, "no high scores yet")
	}
	for i, e := range v.top {
		line := fmt.Sprintf("%d. %10s  %4d lines  %s",
			i+1, humanize.Comma(int64(e.Value)), e.Metric, humanize.Time(e.CreatedAt))
		drawText(s, 4, 4+i, styleText, line)
	}

	y := 5 + topScores
	drawText(s, 2, y, styleText, "Tic-tac-toe")
	st := v.stats
	drawText(s, 4, y+1, styleText, fmt.Sprintf("X wins %d  O wins %d  draws %d",
		st.Labels["X"], st.Labels["O"], st.Labels[tictactoe.DrawLabel]))
	drawText(s, 4, y+2, styleText, fmt.Sprintf("kept %d of %s played",
		st.Total, humanize.Comma(int64(st.Played))))

	drawText(s, 2, y+4, styleDim, "esc: menu")
}
