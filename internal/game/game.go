package game

import (
	"encoding/json"
	"time"
)

// History describes how finished matches of a game are kept.
type History struct {
	Limit   int  `json:"limit"`
	ByValue bool `json:"byValue"` // true: best Value first; false: most recent first
}

// GameInfo describes a game type for the lobby.
type GameInfo struct {
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	MinPlayers  int     `json:"minPlayers"`
	MaxPlayers  int     `json:"maxPlayers"`
	History     History `json:"history"`
}

// MatchConfig holds settings for creating a new match.
type MatchConfig struct {
	PlayerIDs []string
}

// Action represents a move a player can make.
type Action struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PlayerResult holds the outcome for one player.
type PlayerResult struct {
	PlayerID string `json:"playerId"`
	Rank     int    `json:"rank"` // 1 = first place
	Score    int    `json:"score"`
}

// Outcome summarises a finished match for the history tables.
type Outcome struct {
	Player string `json:"player"`
	Value  int    `json:"value"`
	Metric int    `json:"metric"`
	Label  string `json:"label,omitempty"`
}

// Game describes a game type.
type Game interface {
	Info() GameInfo
	NewMatch(config MatchConfig) Match
}

// Match is one in-progress game session.
type Match interface {
	State(playerID string) any
	ValidActions(playerID string) []Action
	ApplyAction(playerID string, action Action) error
	IsOver() bool
	Results() []PlayerResult
	// MarshalJSON / UnmarshalJSON support for persistence
	MarshalJSON() ([]byte, error)
	UnmarshalJSON(data []byte) error
}

// Realtime is implemented by matches that also advance on a timer.
type Realtime interface {
	Match
	// Interval is the delay before the next Tick. Zero or less disables the timer.
	Interval() time.Duration
	Tick()
}

// Summarizer is implemented by matches that report an Outcome once over.
type Summarizer interface {
	Outcome() Outcome
}
