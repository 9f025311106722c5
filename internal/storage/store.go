package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SessionRow represents a session in the database.
type SessionRow struct {
	Code      string
	GameType  string
	Status    string // "waiting", "playing", "finished"
	CreatedAt time.Time
}

// MatchStateRow represents serialized match state.
type MatchStateRow struct {
	SessionCode string
	StateJSON   string
	UpdatedAt   time.Time
}

// ScoreRow is one entry of a game's history list.
type ScoreRow struct {
	ID        string    `json:"id"`
	GameType  string    `json:"gameType"`
	PlayerID  string    `json:"playerId"`
	Value     int       `json:"value"`
	Metric    int       `json:"metric"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store handles SQLite persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: SQLite has a single writer, and ":memory:" databases
	// exist per connection.
	db.SetMaxOpenConns(1)
	// WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			code       TEXT PRIMARY KEY,
			game_type  TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'waiting',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS match_state (
			session_code TEXT PRIMARY KEY REFERENCES sessions(code),
			state_json   TEXT NOT NULL,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS scores (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			game_type  TEXT NOT NULL,
			player_id  TEXT NOT NULL DEFAULT '',
			value      INTEGER NOT NULL DEFAULT 0,
			metric     INTEGER NOT NULL DEFAULT 0,
			label      TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS scores_game_type ON scores(game_type);
		CREATE TABLE IF NOT EXISTS counters (
			game_type TEXT PRIMARY KEY,
			played    INTEGER NOT NULL DEFAULT 0
		);
	`)
	return err
}

// CreateSession inserts a new session.
func (s *Store) CreateSession(code, gameType string) error {
	_, err := s.db.Exec(
		"INSERT INTO sessions (code, game_type, status) VALUES (?, ?, 'waiting')",
		code, gameType,
	)
	return err
}

// GetSession retrieves a session by code.
func (s *Store) GetSession(code string) (*SessionRow, error) {
	row := s.db.QueryRow("SELECT code, game_type, status, created_at FROM sessions WHERE code = ?", code)
	var sr SessionRow
	if err := row.Scan(&sr.Code, &sr.GameType, &sr.Status, &sr.CreatedAt); err != nil {
		return nil, err
	}
	return &sr, nil
}

// UpdateSessionStatus changes a session's status.
func (s *Store) UpdateSessionStatus(code, status string) error {
	_, err := s.db.Exec("UPDATE sessions SET status = ? WHERE code = ?", status, code)
	return err
}

// ListSessions returns all sessions with the given status (or all if status is empty).
func (s *Store) ListSessions(status string) ([]SessionRow, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.Query("SELECT code, game_type, status, created_at FROM sessions ORDER BY created_at DESC")
	} else {
		rows, err = s.db.Query("SELECT code, game_type, status, created_at FROM sessions WHERE status = ? ORDER BY created_at DESC", status)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []SessionRow
	for rows.Next() {
		var sr SessionRow
		if err := rows.Scan(&sr.Code, &sr.GameType, &sr.Status, &sr.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, sr)
	}
	return result, rows.Err()
}

// SaveMatchState upserts match state JSON.
func (s *Store) SaveMatchState(sessionCode, stateJSON string) error {
	_, err := s.db.Exec(`
		INSERT INTO match_state (session_code, state_json, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_code) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at
	`, sessionCode, stateJSON)
	return err
}

// GetMatchState retrieves match state JSON.
func (s *Store) GetMatchState(sessionCode string) (string, error) {
	var stateJSON string
	err := s.db.QueryRow("SELECT state_json FROM match_state WHERE session_code = ?", sessionCode).Scan(&stateJSON)
	return stateJSON, err
}

// DeleteSession removes a session and its match state.
func (s *Store) DeleteSession(code string) error {
	_, err := s.db.Exec("DELETE FROM match_state WHERE session_code = ?", code)
	if err != nil {
		return err
	}
	_, err = s.db.Exec("DELETE FROM sessions WHERE code = ?", code)
	return err
}

// timestampLayout matches what CURRENT_TIMESTAMP stores.
const timestampLayout = "2006-01-02 15:04:05"

func scoreOrder(byValue bool) string {
	if byValue {
		return "ORDER BY value DESC, seq ASC"
	}
	return "ORDER BY seq DESC"
}

// AddScore inserts a history entry and trims the game's list to limit entries,
// keeping the best values (byValue) or the most recent ones. It returns the
// stored row; the row may already have been trimmed away.
func (s *Store) AddScore(row ScoreRow, limit int, byValue bool) (ScoreRow, error) {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	row.CreatedAt = row.CreatedAt.UTC().Truncate(time.Second)

	tx, err := s.db.Begin()
	if err != nil {
		return row, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO scores (id, game_type, player_id, value, metric, label, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		row.ID, row.GameType, row.PlayerID, row.Value, row.Metric, row.Label,
		row.CreatedAt.Format(timestampLayout),
	); err != nil {
		return row, fmt.Errorf("insert score: %w", err)
	}
	if limit > 0 {
		if _, err := tx.Exec(`
			DELETE FROM scores WHERE game_type = ? AND seq NOT IN (
				SELECT seq FROM scores WHERE game_type = ? `+scoreOrder(byValue)+` LIMIT ?
			)`, row.GameType, row.GameType, limit); err != nil {
			return row, fmt.Errorf("trim scores: %w", err)
		}
	}
	return row, tx.Commit()
}

// ListScores returns up to limit history entries of a game in list order.
// A limit of zero or less returns every entry.
func (s *Store) ListScores(gameType string, limit int, byValue bool) ([]ScoreRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		"SELECT id, game_type, player_id, value, metric, label, created_at FROM scores WHERE game_type = ? "+
			scoreOrder(byValue)+" LIMIT ?",
		gameType, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ScoreRow
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.ID, &r.GameType, &r.PlayerID, &r.Value, &r.Metric, &r.Label, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// LabelCounts counts the history entries of a game by label.
func (s *Store) LabelCounts(gameType string) (map[string]int, error) {
	rows, err := s.db.Query("SELECT label, COUNT(*) FROM scores WHERE game_type = ? GROUP BY label", gameType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// IncrementPlayed bumps a game's played counter and returns the new value.
func (s *Store) IncrementPlayed(gameType string) (int, error) {
	var played int
	err := s.db.QueryRow(`
		INSERT INTO counters (game_type, played) VALUES (?, 1)
		ON CONFLICT(game_type) DO UPDATE SET played = played + 1
		RETURNING played
	`, gameType).Scan(&played)
	return played, err
}

// Played returns a game's played counter, zero if it never finished a match.
func (s *Store) Played(gameType string) (int, error) {
	var played int
	err := s.db.QueryRow("SELECT played FROM counters WHERE game_type = ?", gameType).Scan(&played)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return played, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
