// Package tui is the terminal shell: a menu over the falling-block game,
// hot-seat tic-tac-toe and the high score tables.
package tui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"arcade/internal/game"
	"arcade/internal/leaderboard"
)

// view is one screen of the shell.
type view interface {
	draw(s tcell.Screen)
	// key handles a key press and returns the next view, nil to quit.
	key(ev *tcell.EventKey) view
}

// refresher is implemented by views that change without input.
type refresher interface {
	refresh()
}

// closer is implemented by views holding a running match.
type closer interface {
	close()
}

// App runs the shell on a tcell screen.
type App struct {
	screen    tcell.Screen
	tetris    game.Game
	tictactoe game.Game
	keeper    *leaderboard.Keeper
	log       logrus.FieldLogger
	player    string

	ctx  context.Context
	view view
}

// Option configures an App.
type Option func(*App)

// WithLeaderboard records finished games in k and shows its tables.
func WithLeaderboard(k *leaderboard.Keeper) Option {
	return func(a *App) { a.keeper = k }
}

// WithLogger sets the app's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *App) { a.log = l }
}

// WithPlayer sets the id recorded with this terminal's results.
func WithPlayer(id string) Option {
	return func(a *App) { a.player = id }
}

// New builds the shell for the tetris and tictactoe games of registry.
// The screen must already be initialized.
func New(screen tcell.Screen, registry *game.Registry, opts ...Option) (*App, error) {
	a := &App{
		screen: screen,
		log:    logrus.StandardLogger(),
		player: uuid.NewString(),
		ctx:    context.Background(),
	}
	var ok bool
	if a.tetris, ok = registry.Get("tetris"); !ok {
		return nil, fmt.Errorf("tetris is not registered")
	}
	if a.tictactoe, ok = registry.Get("tictactoe"); !ok {
		return nil, fmt.Errorf("tictactoe is not registered")
	}
	for _, opt := range opts {
		opt(a)
	}
	a.view = newMenu(a)
	return a, nil
}

type quitEvent struct{}

// Run serves key presses until the player quits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.ctx = ctx
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			a.screen.PostEvent(tcell.NewEventInterrupt(quitEvent{}))
		case <-done:
		}
	}()
	defer a.close()

	a.draw()
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if !a.handle(ev) {
			return ctx.Err()
		}
		a.draw()
	}
}

// handle applies one event and reports whether the shell keeps running.
func (a *App) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return false
		}
		next := a.view.key(ev)
		if next == nil {
			return false
		}
		if next != a.view {
			if c, ok := a.view.(closer); ok {
				c.close()
			}
			a.view = next
		}
	case *tcell.EventInterrupt:
		if _, ok := ev.Data().(quitEvent); ok {
			return false
		}
		if r, ok := a.view.(refresher); ok {
			r.refresh()
		}
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) draw() {
	a.screen.Clear()
	a.view.draw(a.screen)
	a.screen.Show()
}

func (a *App) close() {
	if c, ok := a.view.(closer); ok {
		c.close()
	}
}

// record stores a finished game's outcome. It reports whether the result
// entered a value-ranked table as a new record.
func (a *App) record(name string, o game.Outcome) bool {
	if a.keeper == nil {
		return false
	}
	_, newRecord, err := a.keeper.Record(name, o)
	if err != nil {
		a.log.WithError(err).WithField("game", name).Warn("record outcome")
		return false
	}
	return newRecord
}

var (
	styleText   = tcell.StyleDefault
	styleTitle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleAlert  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleSelect = tcell.StyleDefault.Reverse(true)
)

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
