package timerq

// handle is a weak reference to a timer record: a slot index paired with
// the generation the slot had when the record was stored. Releasing the
// slot bumps its generation, so every outstanding handle to the old record
// resolves to nil from that point on. This gives the expiry index safe
// lazy invalidation without reference counting and without scanning
// buckets on cancel.
type handle struct {
	slot int
	gen  uint64
}

type timerSlot struct {
	gen uint64
	tmr *timer
}

// timerArena stores timer records in reusable slots.
// It is not safe for concurrent use, the manager guards it with its mutex.
type timerArena struct {
	slots []timerSlot
	free  []int
}

// alloc stores t in a free slot and returns a handle bound to the slot's
// current generation.
func (a *timerArena) alloc(t *timer) handle {
	var i int
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, timerSlot{})
		i = len(a.slots) - 1
	}
	a.slots[i].tmr = t
	return handle{slot: i, gen: a.slots[i].gen}
}

// resolve returns the record h refers to, or nil if the slot was released
// or reused since h was created.
func (a *timerArena) resolve(h handle) *timer {
	if h.slot < 0 || h.slot >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.slot]
	if s.gen != h.gen {
		return nil
	}
	return s.tmr
}

// release frees the slot h refers to and invalidates all handles to it.
// It reports whether h was still live.
func (a *timerArena) release(h handle) bool {
	if a.resolve(h) == nil {
		return false
	}
	s := &a.slots[h.slot]
	s.tmr = nil
	s.gen++
	a.free = append(a.free, h.slot)
	return true
}

// live returns the number of records currently stored.
func (a *timerArena) live() int {
	return len(a.slots) - len(a.free)
}
