package dots

// Arena holds every dot slot ever allocated. Slots are never freed; dead dots
// stay in their slot, pooled, until the lifecycle manager reinitializes them.
// Index-based handles stay meaningful because the backing slice only grows.
type Arena struct {
	slots []Dot
}

// NewArena returns an arena with room for capacity slots before the backing
// array has to grow.
func NewArena(capacity int) *Arena {
	if capacity < 0 {
		capacity = 0
	}
	return &Arena{slots: make([]Dot, 0, capacity)}
}

// Alloc appends a fresh slot and returns its index. The slot starts pooled in
// reserve with generation zero, so no handle can reach it until it is
// reinitialized.
func (a *Arena) Alloc() uint32 {
	idx := uint32(len(a.slots))
	a.slots = append(a.slots, Dot{
		Handle: Handle{Index: idx},
		State:  PooledReserve,
	})
	return idx
}

// Get resolves h to its live dot.
func (a *Arena) Get(h Handle) (*Dot, error) {
	if !h.Valid() || int(h.Index) >= len(a.slots) {
		return nil, ErrStaleHandle
	}
	d := &a.slots[h.Index]
	if d.Handle.Gen != h.Gen || d.State != Live {
		return nil, ErrStaleHandle
	}
	return d, nil
}

// Live reports whether h still refers to a live dot.
func (a *Arena) Live(h Handle) bool {
	_, err := a.Get(h)
	return err == nil
}

// Len returns the number of allocated slots, live or pooled.
func (a *Arena) Len() int {
	return len(a.slots)
}

// Slot returns the slot at index i regardless of its state.
func (a *Arena) Slot(i uint32) *Dot {
	return &a.slots[i]
}

// Slots exposes the backing slice. Callers may mutate dots in place but must
// not append.
func (a *Arena) Slots() []Dot {
	return a.slots
}

// CountLive walks every slot and counts the live ones.
func (a *Arena) CountLive() int {
	n := 0
	for i := range a.slots {
		if a.slots[i].State == Live {
			n++
		}
	}
	return n
}
