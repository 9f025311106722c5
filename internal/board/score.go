package board

import "time"

const (
	linesPerLevel = 10
	pointsPerLine = 100

	baseInterval = 1000 * time.Millisecond
	levelSpeedup = 100 * time.Millisecond
	minInterval  = 100 * time.Millisecond
)

// Score is the scoring state of a game.
type Score struct {
	Score int `json:"score"`
	Lines int `json:"lines"`
	Level int `json:"level"`
}

// LevelFor returns the level reached after clearing lines rows in total.
func LevelFor(lines int) int {
	return lines/linesPerLevel + 1
}

// DropInterval returns the gravity period at level: one second at level 1,
// 100ms faster per level, never below 100ms.
func DropInterval(level int) time.Duration {
	d := baseInterval - time.Duration(level-1)*levelSpeedup
	if d < minInterval {
		return minInterval
	}
	return d
}

// cleared awards k rows cleared in a single lock at the current level.
func (s Score) cleared(k int) Score {
	s.Score += k * pointsPerLine * s.Level
	s.Lines += k
	s.Level = LevelFor(s.Lines)
	return s
}
