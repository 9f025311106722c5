package tui

import (
	"context"
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"

	"arcade/internal/board"
	"arcade/internal/game"
	"arcade/internal/game/tetris"
)

var kindColors = map[board.Kind]tcell.Color{
	board.I: tcell.ColorAqua,
	board.O: tcell.ColorYellow,
	board.T: tcell.ColorPurple,
	board.S: tcell.ColorGreen,
	board.Z: tcell.ColorRed,
	board.J: tcell.ColorBlue,
	board.L: tcell.ColorOrange,
}

// Board origin on screen. Each cell is two columns wide.
const (
	boardX = 2
	boardY = 1
	panelX = boardX + 2*board.Width + 4
)

// tetrisView plays one game. The match is owned by a driver goroutine whose
// ticks post redraw interrupts to the screen.
type tetrisView struct {
	app    *App
	driver *game.Driver
	stop   context.CancelFunc

	state     tetris.View
	over      bool
	recorded  bool
	newRecord bool
}

func newTetrisView(a *App) *tetrisView {
	t := &tetrisView{app: a}
	t.start()
	return t
}

func (t *tetrisView) start() {
	m := t.app.tetris.NewMatch(game.MatchConfig{PlayerIDs: []string{t.app.player}})
	ctx, cancel := context.WithCancel(t.app.ctx)
	d := game.NewDriver(m)
	go d.Run(ctx)
	go func() {
		for range d.Updates() {
			t.app.screen.PostEvent(tcell.NewEventInterrupt(nil))
		}
	}()
	t.driver, t.stop = d, cancel
	t.over, t.recorded, t.newRecord = false, false, false
	t.refresh()
}

// close records a game the last tick ended, then stops the driver.
func (t *tetrisView) close() {
	t.refresh()
	if t.stop != nil {
		t.stop()
	}
}

// refresh reads the match and records it once it is over.
func (t *tetrisView) refresh() {
	var outcome game.Outcome
	err := t.driver.Do(func(m game.Match) {
		t.state = m.State(t.app.player).(tetris.View)
		t.over = m.IsOver()
		if sum, ok := m.(game.Summarizer); ok && t.over {
			outcome = sum.Outcome()
		}
	})
	if err != nil {
		if !errors.Is(err, game.ErrStopped) {
			t.app.log.WithError(err).Warn("read tetris state")
		}
		return
	}
	if t.over && !t.recorded {
		t.recorded = true
		t.newRecord = t.app.record("tetris", outcome)
	}
}

func tetrisCommand(ev *tcell.EventKey) (board.Command, bool) {
	switch ev.Key() {
	case tcell.KeyLeft:
		return board.CmdLeft, true
	case tcell.KeyRight:
		return board.CmdRight, true
	case tcell.KeyDown:
		return board.CmdSoftDrop, true
	case tcell.KeyUp:
		return board.CmdRotate, true
	case tcell.KeyRune:
		if ev.Rune() == ' ' {
			return board.CmdHardDrop, true
		}
	}
	return 0, false
}

func (t *tetrisView) key(ev *tcell.EventKey) view {
	if ev.Key() == tcell.KeyEscape {
		return newMenu(t.app)
	}
	if t.over {
		if ev.Key() == tcell.KeyEnter {
			t.close()
			t.start()
		}
		return t
	}
	cmd, ok := tetrisCommand(ev)
	if !ok {
		return t
	}
	action := game.Action{Type: cmd.String()}
	var applyErr error
	err := t.driver.Do(func(m game.Match) {
		applyErr = m.ApplyAction(t.app.player, action)
	})
	if err != nil {
		t.app.log.WithError(err).Warn("apply tetris command")
		return t
	}
	if applyErr != nil {
		t.app.log.WithError(applyErr).WithField("action", action.Type).Debug("command rejected")
	}
	t.refresh()
	return t
}

func (t *tetrisView) draw(s tcell.Screen) {
	v := t.state
	border := styleDim
	for y := 0; y < board.Height; y++ {
		s.SetContent(boardX-1, boardY+y, '│', nil, border)
		s.SetContent(boardX+2*board.Width, boardY+y, '│', nil, border)
		for x := 0; x < board.Width; x++ {
			k := v.Cells[y][x]
			if k == board.Empty {
				s.SetContent(boardX+2*x, boardY+y, ' ', nil, styleText)
				s.SetContent(boardX+2*x+1, boardY+y, '.', nil, styleDim)
				continue
			}
			style := tcell.StyleDefault.Foreground(kindColors[k])
			s.SetContent(boardX+2*x, boardY+y, '█', nil, style)
			s.SetContent(boardX+2*x+1, boardY+y, '█', nil, style)
		}
	}
	for x := boardX - 1; x <= boardX+2*board.Width; x++ {
		s.SetContent(x, boardY+board.Height, '─', nil, border)
	}

	drawText(s, panelX, boardY, styleTitle, "TETRIS")
	drawText(s, panelX, boardY+2, styleText, "Score "+humanize.Comma(int64(v.Score)))
	drawText(s, panelX, boardY+3, styleText, "Lines "+humanize.Comma(int64(v.Lines)))
	drawText(s, panelX, boardY+4, styleText, "Level "+humanize.Comma(int64(v.Level)))

	if v.Next != board.Empty {
		drawText(s, panelX, boardY+6, styleText, "Next")
		style := tcell.StyleDefault.Foreground(kindColors[v.Next])
		for r, row := range v.NextMask {
			for c, set := range row {
				if set {
					s.SetContent(panelX+2*c, boardY+7+r, '█', nil, style)
					s.SetContent(panelX+2*c+1, boardY+7+r, '█', nil, style)
				}
			}
		}
	}

	if t.over {
		drawText(s, panelX, boardY+12, styleAlert, "GAME OVER")
		if t.newRecord {
			drawText(s, panelX, boardY+13, styleTitle, "NEW RECORD!")
		}
		drawText(s, panelX, boardY+15, styleDim, "enter: play again  esc: menu")
		return
	}
	drawText(s, panelX, boardY+12, styleDim, "arrows: move/rotate")
	drawText(s, panelX, boardY+13, styleDim, "space: drop  esc: menu")
}
