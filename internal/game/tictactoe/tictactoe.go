package tictactoe

import (
	"encoding/json"
	"fmt"

	"arcade/internal/game"
)

// Marks as stored on the board.
const (
	empty = 0
	markX = 1
	markO = 2
)

var markNames = [...]string{empty: "", markX: "X", markO: "O"}

// MarkName returns "X" or "O" for a board value, and "" for an empty cell.
func MarkName(v int) string {
	if v < 0 || v >= len(markNames) {
		return ""
	}
	return markNames[v]
}

// DrawLabel is the outcome label of a drawn match.
const DrawLabel = "draw"

// TicTacToe implements game.Game.
type TicTacToe struct{}

func (t TicTacToe) Info() game.GameInfo {
	return game.GameInfo{
		Name:        "tictactoe",
		Title:       "Tic-tac-toe",
		Description: "Three in a row on a 3x3 board, for two players",
		MinPlayers:  1,
		MaxPlayers:  2,
		History:     game.History{Limit: 20},
	}
}

// NewMatch seats the given players as X and O. A single player plays both
// marks from the same seat.
func (t TicTacToe) NewMatch(config game.MatchConfig) game.Match {
	m := &Match{Winner: -1}
	switch len(config.PlayerIDs) {
	case 0:
	case 1:
		m.Players = [2]string{config.PlayerIDs[0], config.PlayerIDs[0]}
	default:
		m.Players = [2]string{config.PlayerIDs[0], config.PlayerIDs[1]}
	}
	return m
}

// Match implements game.Match for tic-tac-toe.
type Match struct {
	Players [2]string `json:"players"`
	Board   [9]int    `json:"board"` // 0=empty, 1=player0(X), 2=player1(O)
	Turn    int       `json:"turn"`  // index into Players
	Done    bool      `json:"done"`
	Winner  int       `json:"winner"` // -1=draw, 0 or 1=winner index
	Line    []int     `json:"line,omitempty"`
}

// HotSeat reports whether one player places both marks.
func (m *Match) HotSeat() bool {
	return m.Players[0] == m.Players[1]
}

type stateView struct {
	Board   [9]int   `json:"board"`
	Turn    string   `json:"turn"`
	Mark    string   `json:"mark"`   // mark placed by the next move
	You     int      `json:"you"`    // 1=X, 2=O
	Players []string `json:"players"`
	Done    bool     `json:"done"`
	Winner  string   `json:"winner,omitempty"`
	Line    []int    `json:"line,omitempty"`
	HotSeat bool     `json:"hotSeat"`
}

func (m *Match) State(playerID string) any {
	you := 0
	if playerID == m.Players[1] {
		you = 1
	}
	if m.HotSeat() {
		you = m.Turn
	}
	view := stateView{
		Board:   m.Board,
		Turn:    m.Players[m.Turn],
		Mark:    markNames[m.Turn+1],
		You:     you + 1,
		Players: m.Players[:],
		Done:    m.Done,
		Line:    m.Line,
		HotSeat: m.HotSeat(),
	}
	if m.Done {
		if m.Winner == -1 {
			view.Winner = DrawLabel
		} else {
			view.Winner = m.Players[m.Winner]
		}
	}
	return view
}

type movePayload struct {
	Cell int `json:"cell"`
}

// Move builds the action that marks cell.
func Move(cell int) game.Action {
	payload, _ := json.Marshal(movePayload{Cell: cell})
	return game.Action{Type: "move", Payload: payload}
}

func (m *Match) ValidActions(playerID string) []game.Action {
	if m.Done {
		return nil
	}
	if playerID != m.Players[m.Turn] {
		return nil
	}
	var actions []game.Action
	for i, v := range m.Board {
		if v == empty {
			actions = append(actions, Move(i))
		}
	}
	return actions
}

func (m *Match) ApplyAction(playerID string, action game.Action) error {
	if m.Done {
		return fmt.Errorf("game is over")
	}
	if playerID != m.Players[m.Turn] {
		return fmt.Errorf("not your turn")
	}
	if action.Type != "move" {
		return fmt.Errorf("unknown action type: %s", action.Type)
	}
	var move movePayload
	if err := json.Unmarshal(action.Payload, &move); err != nil {
		return fmt.Errorf("invalid move payload: %w", err)
	}
	if move.Cell < 0 || move.Cell > 8 {
		return fmt.Errorf("cell %d out of range", move.Cell)
	}
	if m.Board[move.Cell] != empty {
		return fmt.Errorf("cell %d already occupied", move.Cell)
	}

	mark := m.Turn + 1
	m.Board[move.Cell] = mark
	if line, ok := m.winningLine(mark); ok {
		m.Done = true
		m.Winner = m.Turn
		m.Line = line[:]
	} else if m.boardFull() {
		m.Done = true
		m.Winner = -1
	} else {
		m.Turn = 1 - m.Turn
	}
	return nil
}

func (m *Match) IsOver() bool {
	return m.Done
}

func (m *Match) Results() []game.PlayerResult {
	if !m.Done {
		return nil
	}
	if m.Winner == -1 {
		return []game.PlayerResult{
			{PlayerID: m.Players[0], Rank: 1, Score: 0},
			{PlayerID: m.Players[1], Rank: 1, Score: 0},
		}
	}
	loser := 1 - m.Winner
	return []game.PlayerResult{
		{PlayerID: m.Players[m.Winner], Rank: 1, Score: 1},
		{PlayerID: m.Players[loser], Rank: 2, Score: 0},
	}
}

// Outcome labels the winner by mark. Metric is the number of marks placed.
func (m *Match) Outcome() game.Outcome {
	o := game.Outcome{Metric: m.marks(), Label: DrawLabel}
	if m.Done && m.Winner >= 0 {
		o.Label = markNames[m.Winner+1]
		o.Player = m.Players[m.Winner]
	}
	return o
}

func (m *Match) MarshalJSON() ([]byte, error) {
	type alias Match
	return json.Marshal((*alias)(m))
}

func (m *Match) UnmarshalJSON(data []byte) error {
	type alias Match
	return json.Unmarshal(data, (*alias)(m))
}

var winLines = [][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // cols
	{0, 4, 8}, {2, 4, 6}, // diags
}

func (m *Match) winningLine(mark int) ([3]int, bool) {
	for _, line := range winLines {
		if m.Board[line[0]] == mark && m.Board[line[1]] == mark && m.Board[line[2]] == mark {
			return line, true
		}
	}
	return [3]int{}, false
}

func (m *Match) boardFull() bool {
	return m.marks() == len(m.Board)
}

func (m *Match) marks() int {
	n := 0
	for _, v := range m.Board {
		if v != empty {
			n++
		}
	}
	return n
}
