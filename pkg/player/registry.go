package player

import (
	"sort"
	"sync"
)

// Registry tracks which pitches are currently sounding. Each pitch carries
// a count so overlapping notes of the same pitch are released only when the
// last of them ends.
type Registry struct {
	mu     sync.Mutex
	counts map[uint8]int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{counts: make(map[uint8]int)}
}

// On records a dispatched NoteOn
func (r *Registry) On(pitch uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[pitch]++
}

// Off records a dispatched NoteOff
func (r *Registry) Off(pitch uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[pitch] <= 1 {
		delete(r.counts, pitch)
		return
	}
	r.counts[pitch]--
}

// Sounding returns the sounding pitches in ascending order
func (r *Registry) Sounding() []uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	pitches := make([]uint8, 0, len(r.counts))
	for p := range r.counts {
		pitches = append(pitches, p)
	}
	sort.Slice(pitches, func(i, j int) bool { return pitches[i] < pitches[j] })
	return pitches
}

// Len returns the number of distinct sounding pitches
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.counts)
}

// Reset forgets every sounding pitch
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = make(map[uint8]int)
}
