package config

import "math"

// Level is one rung of the ladder. Sizes strictly increase with Index and
// speeds never increase.
type Level struct {
	Index int
	Size  int
	Speed float64

	// ShootTarget is the level a dot of this level fires, or nil when the
	// level cannot shoot. It points into the same immutable ladder.
	ShootTarget *Level
}

// Ladder is the ordered, immutable list of levels.
type Ladder struct {
	levels []Level
}

// NewLadder builds the ladder from authoring settings. Level i has size i+1,
// its speed steps linearly from StartSpeed toward MinSpeed, and it shoots the
// level at round(i*percent/100)-1 when that index is not negative.
func NewLadder(s Settings) *Ladder {
	n := s.LevelCount
	if n < 1 {
		n = 1
	}
	levels := make([]Level, n)

	speed := s.StartSpeed
	step := (s.StartSpeed - s.MinSpeed) / float64(n)

	for i := range levels {
		levels[i] = Level{
			Index: i,
			Size:  i + 1,
			Speed: speed,
		}
		speed -= step
	}

	// Pointers are only taken once the backing array is final.
	for i := range levels {
		if idx := shootIndex(i, s.ShootLevelPercent); idx >= 0 && idx < n {
			levels[i].ShootTarget = &levels[idx]
		}
	}

	return &Ladder{levels: levels}
}

// shootIndex maps level i to the level it fires. Halves round to even.
func shootIndex(i, percent int) int {
	return int(math.RoundToEven(float64(i)*float64(percent)/100)) - 1
}

// Len returns the number of levels.
func (l *Ladder) Len() int {
	return len(l.levels)
}

// Get returns the level at index, clamped to the ladder bounds.
func (l *Ladder) Get(index int) *Level {
	return &l.levels[l.Clamp(index)]
}

// Clamp restricts index to [0, Len()-1].
func (l *Ladder) Clamp(index int) int {
	if index < 0 {
		return 0
	}
	if index >= len(l.levels) {
		return len(l.levels) - 1
	}
	return index
}

// FromScore maps a score to its level. There are no XP bands yet: the level
// index equals the score, clamped.
func (l *Ladder) FromScore(score int) *Level {
	return l.Get(score)
}

// Levels returns a copy of the ladder with ShootTarget pointers cleared,
// suitable for serialization.
func (l *Ladder) Levels() []LevelInfo {
	out := make([]LevelInfo, len(l.levels))
	for i, lv := range l.levels {
		out[i] = LevelInfo{Index: lv.Index, Size: lv.Size, Speed: lv.Speed, ShootTarget: -1}
		if lv.ShootTarget != nil {
			out[i].ShootTarget = lv.ShootTarget.Index
		}
	}
	return out
}

// LevelInfo is a flat view of a Level. ShootTarget is -1 when absent.
type LevelInfo struct {
	Index       int     `json:"index" msgpack:"i"`
	Size        int     `json:"size" msgpack:"s"`
	Speed       float64 `json:"speed" msgpack:"v"`
	ShootTarget int     `json:"shoot_target" msgpack:"t"`
}
