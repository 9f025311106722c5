// Package board implements the falling-block puzzle: piece catalog, collision,
// locking, line clearing and level progression.
//
// An Engine is not safe for concurrent use. Callers serialize commands and
// gravity ticks through a single goroutine (see game.Driver).
package board

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"
)

// Listener receives engine notifications. Calls happen synchronously inside
// the command that caused them.
type Listener interface {
	// LinesCleared is called after a lock cycle that removed at least one row.
	LinesCleared(score, lines int)
	// GameOver is called once, when the next piece cannot spawn.
	GameOver(finalScore int)
}

// Direction is a horizontal move.
type Direction int

const (
	Left  Direction = -1
	Right Direction = 1
)

// Engine owns the grid, the active and next pieces and the score.
type Engine struct {
	grid     Grid
	active   Piece
	next     Piece
	score    Score
	running  bool
	spawned  bool
	rng      *rand.Rand
	listener Listener
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source for piece draws.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSeed seeds a deterministic random source.
func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// WithListener sets the notification sink.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// New creates an engine with an empty grid at level 1. Call Spawn to start.
func New(opts ...Option) *Engine {
	e := &Engine{
		running: true,
		score:   Score{Level: 1},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return e
}

// SetListener replaces the notification sink.
func (e *Engine) SetListener(l Listener) {
	e.listener = l
}

func (e *Engine) draw() Piece {
	return Spawn(Kinds[e.rng.IntN(len(Kinds))])
}

// live reports whether commands may mutate state.
func (e *Engine) live() bool {
	return e.running && e.spawned
}

// Spawn draws the first active and next pieces. Only the first call has an effect.
func (e *Engine) Spawn() {
	if !e.running || e.spawned {
		return
	}
	e.active = e.draw()
	e.next = e.draw()
	e.spawned = true
}

// Move shifts the active piece one column. A blocked move is ignored.
func (e *Engine) Move(dir Direction) bool {
	if !e.live() {
		return false
	}
	return e.try(e.active.Moved(int(dir), 0))
}

// Rotate advances the active piece's rotation state in place. There is no kick:
// a rotation that collides is rejected.
func (e *Engine) Rotate() bool {
	if !e.live() {
		return false
	}
	return e.try(e.active.Rotated())
}

func (e *Engine) try(p Piece) bool {
	if !e.grid.Fits(p) {
		return false
	}
	e.active = p
	return true
}

// SoftDrop moves the active piece down one row, or locks it where it is when
// the row below is blocked.
func (e *Engine) SoftDrop() {
	if !e.live() {
		return
	}
	if e.try(e.active.Moved(0, 1)) {
		return
	}
	e.lock()
}

// HardDrop slides the active piece to its lowest legal row and locks it.
func (e *Engine) HardDrop() {
	if !e.live() {
		return
	}
	for range Height + 4 {
		if !e.try(e.active.Moved(0, 1)) {
			break
		}
	}
	e.lock()
}

// Apply runs one command.
func (e *Engine) Apply(cmd Command) {
	switch cmd {
	case CmdLeft:
		e.Move(Left)
	case CmdRight:
		e.Move(Right)
	case CmdSoftDrop:
		e.SoftDrop()
	case CmdRotate:
		e.Rotate()
	case CmdHardDrop:
		e.HardDrop()
	}
}

// lock runs one lock cycle on the active piece: lock, clear, score, then the
// spawn check of the next piece.
func (e *Engine) lock() {
	e.grid.Lock(e.active)
	if k := e.grid.ClearLines(); k > 0 {
		e.score = e.score.cleared(k)
		if e.listener != nil {
			e.listener.LinesCleared(e.score.Score, e.score.Lines)
		}
	}
	if !e.grid.Fits(e.next) {
		e.running = false
		if e.listener != nil {
			e.listener.GameOver(e.score.Score)
		}
		return
	}
	e.active = e.next
	e.next = e.draw()
}

// Running reports whether the game is still accepting commands.
func (e *Engine) Running() bool { return e.running }

func (e *Engine) Score() Score { return e.score }

// Interval is the current gravity period.
func (e *Engine) Interval() time.Duration { return DropInterval(e.score.Level) }

func (e *Engine) Active() Piece { return e.active }

func (e *Engine) Next() Piece { return e.next }

// Grid returns a copy of the locked cells.
func (e *Engine) Grid() Grid { return e.grid }

// View is a read-only composite for rendering.
type View struct {
	Cells      Grid  `json:"cells"`
	Active     Piece `json:"active"`
	Next       Kind  `json:"next"`
	NextMask   Mask  `json:"nextMask"`
	Score      int   `json:"score"`
	Lines      int   `json:"lines"`
	Level      int   `json:"level"`
	IntervalMS int64 `json:"intervalMs"`
	Running    bool  `json:"running"`
}

// View returns the grid with the active piece overlaid and the next piece preview.
func (e *Engine) View() View {
	v := View{
		Cells:      e.grid,
		Score:      e.score.Score,
		Lines:      e.score.Lines,
		Level:      e.score.Level,
		IntervalMS: e.Interval().Milliseconds(),
		Running:    e.running,
	}
	if !e.spawned {
		return v
	}
	for _, c := range e.active.Cells() {
		v.Cells.Set(c.X, c.Y, e.active.Kind)
	}
	v.Active = e.active
	v.Next = e.next.Kind
	v.NextMask = e.next.Mask()
	return v
}

type snapshot struct {
	Grid    Grid  `json:"grid"`
	Active  Piece `json:"active"`
	Next    Piece `json:"next"`
	Score   Score `json:"score"`
	Running bool  `json:"running"`
	Spawned bool  `json:"spawned"`
}

func (e *Engine) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshot{
		Grid:    e.grid,
		Active:  e.active,
		Next:    e.next,
		Score:   e.score,
		Running: e.running,
		Spawned: e.spawned,
	})
}

// UnmarshalJSON restores a snapshot. The random source and listener are kept.
func (e *Engine) UnmarshalJSON(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.Score.Level < 1 {
		return fmt.Errorf("invalid level %d", snap.Score.Level)
	}
	if snap.Spawned && (snap.Active.Kind == Empty || snap.Next.Kind == Empty) {
		return fmt.Errorf("spawned snapshot without active and next pieces")
	}
	e.grid = snap.Grid
	e.active = snap.Active
	e.next = snap.Next
	e.score = snap.Score
	e.running = snap.Running
	e.spawned = snap.Spawned
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return nil
}
