package engine

import "strings"

// Flags are the coarse per-tick "something happened" markers stages are
// gated on. All flags are cleared at the start of every tick.
type Flags uint8

const (
	FlagCollision    Flags = 1 << iota // At least one collision event was aggregated
	FlagImpact                         // At least one impact was applied
	FlagKill                           // At least one dot was removed
	FlagSpawnRequest                   // A spawn or shoot request is queued
)

// Has reports whether any of the bits in x are set.
func (f Flags) Has(x Flags) bool {
	return f&x != 0
}

// Set raises the bits in x.
func (f *Flags) Set(x Flags) {
	*f |= x
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, n := range []struct {
		flag Flags
		name string
	}{
		{FlagCollision, "collision"},
		{FlagImpact, "impact"},
		{FlagKill, "kill"},
		{FlagSpawnRequest, "spawn"},
	} {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
