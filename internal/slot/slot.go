// Package slot implements the generation-indexed slot correlator used
// by gRPC receivers to correlate in-flight requests without
// shared mutable pointers between upstream and downstream tasks: the
// State type is single-thread-owned by the receiver that allocates it,
// matching the inFlightData/refs bookkeeping in
// collector/receiver/otelarrowreceiver/internal/arrow/arrow.go, reduced
// to its pure correlation core.
package slot

// Index identifies a slot's position.
type Index int

// Generation is incremented every time a slot is released.
type Generation uint64

// Key uniquely identifies one allocation of a slot; stale keys (from a
// prior generation) never match a later get_if_current call.
type Key struct {
	Index      Index
	Generation Generation
}

type memState int

const (
	memAvailable memState = iota
	memCurrent
)

type genMem[UData any] struct {
	state      memState
	data       UData
	generation Generation // for Available: the *next* generation to hand out
}

// State owns the slot array for one UData payload type.
type State[UData any] struct {
	slots    []genMem[UData]
	freeList []Index
	maxSlots int
}

// New creates a slot State bounded at maxSlots.
func New[UData any](maxSlots int) *State[UData] {
	return &State[UData]{maxSlots: maxSlots}
}

// TotalSlots returns the current slot-array length, monotonically
// non-decreasing up to maxSlots.
func (s *State[UData]) TotalSlots() int { return len(s.slots) }

// AllocatedCount returns the number of slots currently in the Current
// state.
func (s *State[UData]) AllocatedCount() int {
	n := 0
	for _, sl := range s.slots {
		if sl.state == memCurrent {
			n++
		}
	}
	return n
}

// Allocate stores data in a slot, preferring to reuse a released slot off
// the free list, otherwise growing the array up to maxSlots. Returns
// (Key{}, false) at capacity.
func (s *State[UData]) Allocate(data UData) (Key, bool) {
	if n := len(s.freeList); n > 0 {
		idx := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		gen := s.slots[idx].generation
		if gen == 0 {
			gen = 1
		}
		s.slots[idx] = genMem[UData]{state: memCurrent, data: data, generation: gen}
		return Key{Index: idx, Generation: gen}, true
	}

	if len(s.slots) >= s.maxSlots {
		return Key{}, false
	}

	s.slots = append(s.slots, genMem[UData]{state: memCurrent, data: data, generation: 1})
	return Key{Index: Index(len(s.slots) - 1), Generation: 1}, true
}

// GetIfCurrent is the sole terminal operation: returns the stored data
// only if key's slot is Current and its generation matches, atomically
// transitioning the slot to Available(generation+1) and returning it to
// the free list. Stale or repeated keys return (zero, false) — idempotent
// and safe from double-use.
func (s *State[UData]) GetIfCurrent(key Key) (UData, bool) {
	var zero UData
	if int(key.Index) < 0 || int(key.Index) >= len(s.slots) {
		return zero, false
	}
	sl := &s.slots[key.Index]
	if sl.state != memCurrent || sl.generation != key.Generation {
		return zero, false
	}

	data := sl.data
	nextGen := sl.generation + 1
	if nextGen == 0 { // wrap past zero back to 1, generation 0 is never valid
		nextGen = 1
	}
	*sl = genMem[UData]{state: memAvailable, generation: nextGen}
	s.freeList = append(s.freeList, key.Index)
	return data, true
}
