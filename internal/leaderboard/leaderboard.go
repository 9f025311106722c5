// Package leaderboard keeps each game's capped history list and counters.
package leaderboard

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"arcade/internal/game"
	"arcade/internal/storage"
)

// Store is the persistence the keeper needs. *storage.Store implements it.
type Store interface {
	AddScore(row storage.ScoreRow, limit int, byValue bool) (storage.ScoreRow, error)
	ListScores(gameType string, limit int, byValue bool) ([]storage.ScoreRow, error)
	LabelCounts(gameType string) (map[string]int, error)
	IncrementPlayed(gameType string) (int, error)
	Played(gameType string) (int, error)
}

// Policies looks up a game's history policy. *game.Registry implements it.
type Policies interface {
	History(name string) (game.History, bool)
}

// Entry is one kept result.
type Entry = storage.ScoreRow

// Stats summarizes a game's kept entries by label.
type Stats struct {
	Total  int            `json:"total"`
	Labels map[string]int `json:"labels"`
	Played int            `json:"played"`
}

// Keeper records outcomes and serves history lists.
type Keeper struct {
	store    Store
	policies Policies
	log      logrus.FieldLogger
}

// New creates a keeper. A nil logger uses the logrus standard logger.
func New(store Store, policies Policies, log logrus.FieldLogger) *Keeper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Keeper{store: store, policies: policies, log: log}
}

func (k *Keeper) policy(name string) (game.History, error) {
	h, ok := k.policies.History(name)
	if !ok {
		return game.History{}, fmt.Errorf("unknown game type: %s", name)
	}
	return h, nil
}

// Record stores o in the game's history and bumps its played counter.
// newRecord is true for value-ranked games when the list was empty or the
// value beats the lowest kept value.
func (k *Keeper) Record(name string, o game.Outcome) (entry Entry, newRecord bool, err error) {
	h, err := k.policy(name)
	if err != nil {
		return Entry{}, false, err
	}

	if h.ByValue {
		kept, err := k.store.ListScores(name, h.Limit, true)
		if err != nil {
			k.log.WithError(err).WithField("game", name).Warn("read history before record")
		} else {
			newRecord = len(kept) == 0 || o.Value > kept[len(kept)-1].Value
		}
	}

	entry, err = k.store.AddScore(storage.ScoreRow{
		GameType: name,
		PlayerID: o.Player,
		Value:    o.Value,
		Metric:   o.Metric,
		Label:    o.Label,
	}, h.Limit, h.ByValue)
	if err != nil {
		return Entry{}, false, fmt.Errorf("record %s outcome: %w", name, err)
	}
	if _, err := k.store.IncrementPlayed(name); err != nil {
		k.log.WithError(err).WithField("game", name).Warn("increment played counter")
	}

	k.log.WithFields(logrus.Fields{
		"game":   name,
		"player": o.Player,
		"value":  o.Value,
		"label":  o.Label,
		"record": newRecord,
	}).Info("outcome recorded")
	return entry, newRecord, nil
}

// Top returns up to n entries of the game's list in policy order. A failing
// store yields an empty list.
func (k *Keeper) Top(name string, n int) []Entry {
	h, err := k.policy(name)
	if err != nil {
		return nil
	}
	if n <= 0 || n > h.Limit {
		n = h.Limit
	}
	rows, err := k.store.ListScores(name, n, h.ByValue)
	if err != nil {
		k.log.WithError(err).WithField("game", name).Warn("list history")
		return nil
	}
	return rows
}

// Stats counts the kept entries by label. A failing store yields zero stats.
func (k *Keeper) Stats(name string) Stats {
	st := Stats{Labels: map[string]int{}}
	if _, err := k.policy(name); err != nil {
		return st
	}
	counts, err := k.store.LabelCounts(name)
	if err != nil {
		k.log.WithError(err).WithField("game", name).Warn("count history labels")
	} else {
		st.Labels = counts
	}
	for _, n := range st.Labels {
		st.Total += n
	}
	played, err := k.store.Played(name)
	if err != nil {
		k.log.WithError(err).WithField("game", name).Warn("read played counter")
	}
	st.Played = played
	return st
}
