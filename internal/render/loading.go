package render

import (
	"slices"
	"sync"
)

// Indicator tracks in-flight network work. Each Start shows the loading
// indicator until its release func runs; the indicator is visible while any
// work is in flight.
type Indicator struct {
	mu       sync.Mutex
	next     uint64
	inflight map[uint64]string
}

// NewIndicator returns an idle Indicator.
func NewIndicator() *Indicator {
	return &Indicator{inflight: make(map[uint64]string)}
}

// Start marks label as in flight and returns the func that removes it.
// Callers defer the returned func; calling it more than once is harmless.
func (i *Indicator) Start(label string) (done func()) {
	i.mu.Lock()
	id := i.next
	i.next++
	i.inflight[id] = label
	i.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			i.mu.Lock()
			delete(i.inflight, id)
			i.mu.Unlock()
		})
	}
}

// Active reports whether any work is in flight.
func (i *Indicator) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.inflight) > 0
}

// Labels returns the in-flight labels, sorted.
func (i *Indicator) Labels() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, 0, len(i.inflight))
	for _, l := range i.inflight {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}
