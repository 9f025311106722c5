// Package tetris exposes the falling-block puzzle as a single-player game.Match.
package tetris

import (
	"encoding/json"
	"fmt"
	"time"

	"arcade/internal/board"
	"arcade/internal/game"
)

// maxEvents bounds the notifications kept for the state view.
const maxEvents = 8

// Tetris implements game.Game.
type Tetris struct {
	// Seed, when non-zero, makes piece draws reproducible.
	Seed uint64
}

func (t Tetris) Info() game.GameInfo {
	return game.GameInfo{
		Name:        "tetris",
		Title:       "Tetris",
		Description: "Classic falling-block puzzle",
		MinPlayers:  1,
		MaxPlayers:  1,
		History:     game.History{Limit: 10, ByValue: true},
	}
}

func (t Tetris) NewMatch(config game.MatchConfig) game.Match {
	m := &Match{}
	if len(config.PlayerIDs) > 0 {
		m.Player = config.PlayerIDs[0]
	}
	opts := []board.Option{board.WithListener(m)}
	if t.Seed != 0 {
		opts = append(opts, board.WithSeed(t.Seed))
	}
	m.engine = board.New(opts...)
	m.engine.Spawn()
	return m
}

// Event types reported in the state view.
const (
	EventLines    = "lines"
	EventGameOver = "gameover"
)

// Event is an engine notification.
type Event struct {
	Type  string `json:"type"`
	Score int    `json:"score"`
	Lines int    `json:"lines"`
}

// Match implements game.Match and game.Realtime around a board.Engine.
type Match struct {
	Player string
	engine *board.Engine
	events []Event
}

// View is the state sent to the player.
type View struct {
	board.View
	Player string  `json:"player"`
	Events []Event `json:"events,omitempty"`
}

func (m *Match) LinesCleared(score, lines int) {
	m.record(Event{Type: EventLines, Score: score, Lines: lines})
}

func (m *Match) GameOver(finalScore int) {
	m.record(Event{Type: EventGameOver, Score: finalScore, Lines: m.engine.Score().Lines})
}

func (m *Match) record(ev Event) {
	m.events = append(m.events, ev)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

func (m *Match) State(playerID string) any {
	return View{
		View:   m.engine.View(),
		Player: m.Player,
		Events: append([]Event(nil), m.events...),
	}
}

func (m *Match) ValidActions(playerID string) []game.Action {
	if !m.engine.Running() || playerID != m.Player {
		return nil
	}
	actions := make([]game.Action, 0, len(board.Commands))
	for _, cmd := range board.Commands {
		actions = append(actions, game.Action{Type: cmd.String()})
	}
	return actions
}

func (m *Match) ApplyAction(playerID string, action game.Action) error {
	if !m.engine.Running() {
		return fmt.Errorf("game is over")
	}
	if playerID != m.Player {
		return fmt.Errorf("not your game")
	}
	cmd, ok := board.ParseCommand(action.Type)
	if !ok {
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
	m.engine.Apply(cmd)
	return nil
}

func (m *Match) IsOver() bool {
	return !m.engine.Running()
}

func (m *Match) Results() []game.PlayerResult {
	if m.engine.Running() {
		return nil
	}
	return []game.PlayerResult{{PlayerID: m.Player, Rank: 1, Score: m.engine.Score().Score}}
}

// Outcome reports the final score and lines.
func (m *Match) Outcome() game.Outcome {
	s := m.engine.Score()
	return game.Outcome{Player: m.Player, Value: s.Score, Metric: s.Lines}
}

// Interval is the gravity period, or zero once the game is over.
func (m *Match) Interval() time.Duration {
	if !m.engine.Running() {
		return 0
	}
	return m.engine.Interval()
}

// Tick applies gravity.
func (m *Match) Tick() {
	m.engine.SoftDrop()
}

type persisted struct {
	Player string          `json:"player"`
	Engine json.RawMessage `json:"engine"`
	Events []Event         `json:"events,omitempty"`
}

func (m *Match) MarshalJSON() ([]byte, error) {
	engine, err := json.Marshal(m.engine)
	if err != nil {
		return nil, err
	}
	return json.Marshal(persisted{Player: m.Player, Engine: engine, Events: m.events})
}

func (m *Match) UnmarshalJSON(data []byte) error {
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if m.engine == nil {
		m.engine = board.New(board.WithListener(m))
	}
	if err := json.Unmarshal(p.Engine, m.engine); err != nil {
		return fmt.Errorf("restore engine: %w", err)
	}
	m.Player = p.Player
	m.events = p.Events
	return nil
}
