package engine

import "github.com/talgya/dotarena/internal/dots"

// Impact is the score and colour delta one directed collision produces.
type Impact struct {
	XP    int
	Color dots.RGB
}

type impactEntry struct {
	target uint32
	impact Impact
}

// ImpactMap is a multi-valued accumulator keyed by target slot. It is filled
// in shards (one writer per shard, no locking), then sealed into a compact
// layout where each target's impacts are contiguous. Buffers are reused
// across ticks.
type ImpactMap struct {
	shards  [][]impactEntry
	offsets []int // offsets[i]..offsets[i+1] index values for slot i
	cursor  []int
	values  []Impact
	sealed  bool
}

// Reset empties the map and prepares shards writers for a table of slots
// entries.
func (m *ImpactMap) Reset(shards, slots int) {
	if cap(m.shards) < shards {
		grown := make([][]impactEntry, shards)
		copy(grown, m.shards[:cap(m.shards)])
		m.shards = grown
	}
	m.shards = m.shards[:shards]
	for i := range m.shards {
		m.shards[i] = m.shards[i][:0]
	}

	if cap(m.offsets) < slots+1 {
		m.offsets = make([]int, slots+1)
		m.cursor = make([]int, slots+1)
	}
	m.offsets = m.offsets[:slots+1]
	m.cursor = m.cursor[:slots+1]
	clear(m.offsets)
	m.values = m.values[:0]
	m.sealed = false
}

// Add records an impact on target. Different shards may call Add
// concurrently; a single shard must not.
func (m *ImpactMap) Add(shard int, target uint32, imp Impact) {
	m.shards[shard] = append(m.shards[shard], impactEntry{target: target, impact: imp})
}

// Seal groups all recorded impacts by target. Within a target, impacts keep
// shard order and then insertion order. Add must not be called after Seal.
func (m *ImpactMap) Seal() {
	slots := len(m.offsets) - 1
	total := 0
	for _, sh := range m.shards {
		for _, e := range sh {
			m.offsets[e.target+1]++
		}
		total += len(sh)
	}
	for i := 0; i < slots; i++ {
		m.offsets[i+1] += m.offsets[i]
	}

	if cap(m.values) < total {
		m.values = make([]Impact, total)
	}
	m.values = m.values[:total]

	copy(m.cursor, m.offsets)
	for _, sh := range m.shards {
		for _, e := range sh {
			m.values[m.cursor[e.target]] = e.impact
			m.cursor[e.target]++
		}
	}
	m.sealed = true
}

// For returns the impacts recorded on slot. The map must be sealed.
func (m *ImpactMap) For(slot uint32) []Impact {
	if !m.sealed || int(slot)+1 >= len(m.offsets) {
		return nil
	}
	return m.values[m.offsets[slot]:m.offsets[slot+1]]
}

// Len returns the total number of impacts recorded.
func (m *ImpactMap) Len() int {
	if m.sealed {
		return len(m.values)
	}
	n := 0
	for _, sh := range m.shards {
		n += len(sh)
	}
	return n
}
