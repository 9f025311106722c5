package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"arcade/internal/game"
)

// ErrNotPlaying is returned for match operations on a session without a match.
var ErrNotPlaying = errors.New("game not started")

// Status represents the session lifecycle.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Player represents a connected player.
type Player struct {
	ID   string
	Send chan []byte // outbound messages
}

// Session is one game session with connected players. Its match, once
// started, is owned by a driver goroutine; the mutex guards only the roster
// and the status.
type Session struct {
	mu       sync.RWMutex
	Code     string
	GameType string
	Status   Status
	HostID   string
	Players  map[string]*Player
	game     game.Game
	driver   *game.Driver
	stop     context.CancelFunc
}

// NewSession creates a session in the waiting state.
func NewSession(code, gameType string, g game.Game) *Session {
	return &Session{
		Code:     code,
		GameType: gameType,
		Status:   StatusWaiting,
		Players:  make(map[string]*Player),
		game:     g,
	}
}

// AddPlayer adds a player to the session. Returns error if full or already playing.
func (s *Session) AddPlayer(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status != StatusWaiting {
		return fmt.Errorf("session is not accepting players")
	}
	info := s.game.Info()
	if len(s.Players) >= info.MaxPlayers {
		return fmt.Errorf("session is full")
	}
	if _, exists := s.Players[playerID]; exists {
		return fmt.Errorf("player %s already in session", playerID)
	}
	s.addPlayerLocked(playerID)
	return nil
}

func (s *Session) addPlayerLocked(playerID string) {
	s.Players[playerID] = &Player{
		ID:   playerID,
		Send: make(chan []byte, 64),
	}
	if s.HostID == "" {
		s.HostID = playerID
	}
}

// RemovePlayer removes a player from the session.
func (s *Session) RemovePlayer(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.Players[playerID]; ok {
		close(p.Send)
		delete(s.Players, playerID)
	}
}

// ConnectPlayer replaces the Send channel for a reconnecting player.
func (s *Session) ConnectPlayer(playerID string, send chan []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Players[playerID]
	if !ok {
		return false
	}
	p.Send = send
	return true
}

// PlayerIDs returns the list of player IDs.
func (s *Session) PlayerIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	return ids
}

// Start transitions the session from waiting to playing and starts the
// match's driver under ctx.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status != StatusWaiting {
		return fmt.Errorf("session is not in waiting state")
	}
	info := s.game.Info()
	if len(s.Players) < info.MinPlayers {
		return fmt.Errorf("need at least %d players, have %d", info.MinPlayers, len(s.Players))
	}

	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	s.runLocked(ctx, s.game.NewMatch(game.MatchConfig{PlayerIDs: ids}))
	s.Status = StatusPlaying
	return nil
}

func (s *Session) runLocked(ctx context.Context, m game.Match) {
	ctx, s.stop = context.WithCancel(ctx)
	s.driver = game.NewDriver(m)
	go s.driver.Run(ctx)
}

// Driver returns the match driver, or nil before the session starts.
func (s *Session) Driver() *game.Driver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.driver
}

// Stop halts the match driver. The match keeps its last state.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
	}
}

// Finish marks the session as finished.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusFinished
}

// markFinished moves a playing session to finished. It reports whether this
// call made the transition.
func (s *Session) markFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != StatusPlaying {
		return false
	}
	s.Status = StatusFinished
	return true
}

// Apply runs a player's action against the match.
func (s *Session) Apply(playerID string, action game.Action) error {
	d := s.Driver()
	if d == nil {
		return ErrNotPlaying
	}
	var err error
	if doErr := d.Do(func(m game.Match) { err = m.ApplyAction(playerID, action) }); doErr != nil {
		return doErr
	}
	return err
}

// View is one player's picture of the match.
type View struct {
	State        any
	ValidActions []game.Action
	Results      []game.PlayerResult
	Over         bool
}

// View reads the match as seen by playerID.
func (s *Session) View(playerID string) (View, error) {
	d := s.Driver()
	if d == nil {
		return View{}, ErrNotPlaying
	}
	var v View
	err := d.Do(func(m game.Match) {
		v.State = m.State(playerID)
		v.ValidActions = m.ValidActions(playerID)
		v.Over = m.IsOver()
		if v.Over {
			v.Results = m.Results()
		}
	})
	return v, err
}

// snapshot serializes the match and reports whether it is over.
func (s *Session) snapshot() (data []byte, over bool, err error) {
	d := s.Driver()
	if d == nil {
		return nil, false, ErrNotPlaying
	}
	doErr := d.Do(func(m game.Match) {
		data, err = m.MarshalJSON()
		over = m.IsOver()
	})
	if doErr != nil {
		return nil, false, doErr
	}
	return data, over, err
}

// outcome summarizes the match, if its game reports outcomes.
func (s *Session) outcome() (game.Outcome, bool, error) {
	d := s.Driver()
	if d == nil {
		return game.Outcome{}, false, ErrNotPlaying
	}
	var (
		o  game.Outcome
		ok bool
	)
	err := d.Do(func(m game.Match) {
		var sum game.Summarizer
		if sum, ok = m.(game.Summarizer); ok {
			o = sum.Outcome()
		}
	})
	if err != nil {
		return game.Outcome{}, false, err
	}
	return o, ok, nil
}

// Broadcast sends a message to all connected players.
func (s *Session) Broadcast(msg []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.Players {
		select {
		case p.Send <- msg:
		default:
			// drop message if buffer full
		}
	}
}

// GetPlayer returns a player's send channel, or nil if not found.
func (s *Session) GetPlayer(playerID string) *Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Players[playerID]
}

// Info returns session info for the API.
type Info struct {
	Code     string   `json:"code"`
	GameType string   `json:"gameType"`
	Status   Status   `json:"status"`
	Players  []string `json:"players"`
	HostID   string   `json:"hostId"`
}

func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	return Info{
		Code:     s.Code,
		GameType: s.GameType,
		Status:   s.Status,
		Players:  ids,
		HostID:   s.HostID,
	}
}
