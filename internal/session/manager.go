package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"arcade/internal/game"
	"arcade/internal/leaderboard"
	"arcade/internal/storage"
)

// Manager manages all active sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	registry *game.Registry
	store    *storage.Store
	keeper   *leaderboard.Keeper
	log      logrus.FieldLogger
	onUpdate func(*Session)

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithLeaderboard records the outcome of every finished match in k.
func WithLeaderboard(k *leaderboard.Keeper) Option {
	return func(m *Manager) { m.keeper = k }
}

// WithLogger sets the manager's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager creates a session manager.
func NewManager(registry *game.Registry, store *storage.Store, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		registry: registry,
		store:    store,
		log:      logrus.StandardLogger(),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnUpdate registers fn to run after a timer tick changed a session's match.
func (m *Manager) OnUpdate(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// Close stops every match driver and the cleanup loop.
func (m *Manager) Close() {
	m.cancel()
}

// Create makes a new session and persists it.
func (m *Manager) Create(gameType string) (*Session, error) {
	g, ok := m.registry.Get(gameType)
	if !ok {
		return nil, fmt.Errorf("unknown game type: %s", gameType)
	}
	code := generateCode()
	if err := m.store.CreateSession(code, gameType); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	s := NewSession(code, gameType, g)
	m.mu.Lock()
	m.sessions[code] = s
	m.mu.Unlock()
	m.log.WithFields(logrus.Fields{"session": code, "game": gameType}).Info("session created")
	return s, nil
}

// Get returns a session by code.
func (m *Manager) Get(code string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[code]
	return s, ok
}

// List returns info for all active sessions.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

// Join adds a player to a waiting session and persists the roster.
func (m *Manager) Join(s *Session, playerID string) error {
	if err := s.AddPlayer(playerID); err != nil {
		return err
	}
	if err := m.SaveSessionPlayers(s); err != nil {
		m.log.WithError(err).WithField("session", s.Code).Warn("save roster")
	}
	return nil
}

// Start begins the session's match and persists it.
func (m *Manager) Start(s *Session) error {
	if err := s.Start(m.ctx); err != nil {
		return err
	}
	m.watch(s, s.Driver())
	m.log.WithFields(logrus.Fields{"session": s.Code, "game": s.GameType}).Info("match started")
	if err := m.SaveMatchState(s); err != nil {
		m.log.WithError(err).WithField("session", s.Code).Warn("save match state")
	}
	return nil
}

// Apply runs a player's action and persists the result.
func (m *Manager) Apply(s *Session, playerID string, action game.Action) error {
	if err := s.Apply(playerID, action); err != nil {
		return err
	}
	if err := m.SaveMatchState(s); err != nil {
		m.log.WithError(err).WithField("session", s.Code).Warn("save match state")
	}
	return nil
}

// watch persists and announces every timer tick until the driver stops.
func (m *Manager) watch(s *Session, d *game.Driver) {
	go func() {
		for range d.Updates() {
			if err := m.SaveMatchState(s); err != nil {
				m.log.WithError(err).WithField("session", s.Code).Warn("save match state")
			}
			m.mu.RLock()
			fn := m.onUpdate
			m.mu.RUnlock()
			if fn != nil {
				fn(s)
			}
		}
	}()
}

// SaveMatchState persists the current match state for a session. A match
// found over finishes the session.
func (m *Manager) SaveMatchState(s *Session) error {
	data, over, err := s.snapshot()
	if err != nil && !errors.Is(err, ErrNotPlaying) {
		return fmt.Errorf("marshal match state: %w", err)
	}
	if over {
		m.finish(s)
	}

	if err := m.store.UpdateSessionStatus(s.Code, string(s.Info().Status)); err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	return m.store.SaveMatchState(s.Code, string(data))
}

// finish marks s finished and records its outcome, once.
func (m *Manager) finish(s *Session) {
	if !s.markFinished() {
		return
	}
	log := m.log.WithFields(logrus.Fields{"session": s.Code, "game": s.GameType})
	log.Info("match finished")
	if m.keeper == nil {
		return
	}
	o, ok, err := s.outcome()
	if err != nil {
		log.WithError(err).Warn("read outcome")
		return
	}
	if !ok {
		return
	}
	if _, _, err := m.keeper.Record(s.GameType, o); err != nil {
		log.WithError(err).Warn("record outcome")
	}
}

// Restore loads sessions from the database on startup.
func (m *Manager) Restore() error {
	rows, err := m.store.ListSessions("")
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, row := range rows {
		if row.Status == string(StatusFinished) {
			continue
		}
		log := m.log.WithField("session", row.Code)
		g, ok := m.registry.Get(row.GameType)
		if !ok {
			log.Warnf("skipping session: unknown game type %s", row.GameType)
			continue
		}
		s := NewSession(row.Code, row.GameType, g)
		s.Status = Status(row.Status)
		if snap, err := m.loadSessionPlayers(row.Code); err == nil {
			for _, id := range snap.Players {
				s.addPlayerLocked(id)
			}
			s.HostID = snap.HostID
		}

		if s.Status == StatusPlaying {
			stateJSON, err := m.store.GetMatchState(row.Code)
			if err != nil {
				log.WithError(err).Warn("skipping session: no match state")
				continue
			}
			match := g.NewMatch(game.MatchConfig{PlayerIDs: []string{"_", "_"}})
			if err := match.UnmarshalJSON([]byte(stateJSON)); err != nil {
				log.WithError(err).Warn("skipping session: unmarshal match state")
				continue
			}
			s.runLocked(m.ctx, match)
			m.watch(s, s.driver)
		}
		m.mu.Lock()
		m.sessions[row.Code] = s
		m.mu.Unlock()

		if s.Status == StatusPlaying {
			if err := m.SaveMatchState(s); err != nil {
				log.WithError(err).Warn("save restored match state")
			}
		}
		log.WithField("status", s.Status).Info("session restored")
	}
	return nil
}

// Remove deletes a session from memory and storage.
func (m *Manager) Remove(code string) {
	m.mu.Lock()
	s, ok := m.sessions[code]
	delete(m.sessions, code)
	m.mu.Unlock()
	if ok {
		s.Stop()
	}
	m.deleteStored(code)
}

func (m *Manager) deleteStored(code string) {
	if err := m.store.DeleteSession(code); err != nil {
		m.log.WithError(err).WithField("session", code).Warn("delete session")
	}
	if err := m.store.DeleteSession(rosterKey(code)); err != nil {
		m.log.WithError(err).WithField("session", code).Warn("delete roster")
	}
}

// CleanupLoop removes stale sessions periodically until the manager is closed.
func (m *Manager) CleanupLoop(interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup(maxAge)
		}
	}
}

func (m *Manager) cleanup(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for code, s := range m.sessions {
		s.mu.RLock()
		empty := len(s.Players) == 0
		finished := s.Status == StatusFinished
		s.mu.RUnlock()

		if finished || empty {
			row, err := m.store.GetSession(code)
			if err != nil {
				s.Stop()
				delete(m.sessions, code)
				continue
			}
			if now.Sub(row.CreatedAt) > maxAge || empty {
				m.log.WithField("session", code).Info("cleaning up session")
				s.Stop()
				m.deleteStored(code)
				delete(m.sessions, code)
			}
		}
	}
}

func generateCode() string {
	b := make([]byte, 3) // 6 hex chars
	rand.Read(b)
	return hex.EncodeToString(b)
}

// sessionSnapshot is the persisted roster of a session.
type sessionSnapshot struct {
	Players []string `json:"players"`
	HostID  string   `json:"hostId"`
}

func rosterKey(code string) string {
	return code + "_players"
}

// SaveSessionPlayers persists the session's roster next to its match state.
func (m *Manager) SaveSessionPlayers(s *Session) error {
	s.mu.RLock()
	snap := sessionSnapshot{
		Players: make([]string, 0, len(s.Players)),
		HostID:  s.HostID,
	}
	for id := range s.Players {
		snap.Players = append(snap.Players, id)
	}
	s.mu.RUnlock()
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return m.store.SaveMatchState(rosterKey(s.Code), string(data))
}

func (m *Manager) loadSessionPlayers(code string) (sessionSnapshot, error) {
	var snap sessionSnapshot
	data, err := m.store.GetMatchState(rosterKey(code))
	if err != nil {
		return snap, err
	}
	err = json.Unmarshal([]byte(data), &snap)
	return snap, err
}
