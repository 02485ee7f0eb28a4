package player

import (
	"sort"
	"sync"
)

// Coordinator merges prioritized state sources into one canonical
// snapshot. It is safe for concurrent use.
type Coordinator struct {
	mu      sync.RWMutex
	sources []registeredSource
	nextSeq int
}

type registeredSource struct {
	src Source
	seq int
}

// NewCoordinator creates a coordinator with no sources.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// RegisterSource adds a source. Registering a name that already exists
// replaces the previous source.
func (c *Coordinator) RegisterSource(src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, rs := range c.sources {
		if rs.src.Name() == src.Name() {
			c.sources[i] = registeredSource{src: src, seq: c.nextSeq}
			c.nextSeq++
			return
		}
	}

	c.sources = append(c.sources, registeredSource{src: src, seq: c.nextSeq})
	c.nextSeq++
}

// UnregisterSource removes the source with the given name. Removing an
// unknown name is a no-op.
func (c *Coordinator) UnregisterSource(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, rs := range c.sources {
		if rs.src.Name() == name {
			c.sources = append(c.sources[:i], c.sources[i+1:]...)
			return
		}
	}
}

// SourceNames returns the registered source names in authority order.
func (c *Coordinator) SourceNames() []string {
	ordered := c.orderedSources()

	names := make([]string, 0, len(ordered))
	for i := len(ordered) - 1; i >= 0; i-- {
		names = append(names, ordered[i].src.Name())
	}
	return names
}

// GetState merges every source into a single snapshot. For each field
// the most authoritative source claiming it wins; priority ties go to
// the source registered first. With no sources the default state is
// returned.
func (c *Coordinator) GetState() State {
	// Least authoritative first, so later applies overwrite.
	ordered := c.orderedSources()

	state := DefaultState()
	for _, rs := range ordered {
		rs.src.Snapshot().applyTo(&state)
	}
	return state.Clamped()
}

// orderedSources returns a copy sorted so the most authoritative source
// comes last. Snapshots are taken outside the coordinator lock.
func (c *Coordinator) orderedSources() []registeredSource {
	c.mu.RLock()
	ordered := make([]registeredSource, len(c.sources))
	copy(ordered, c.sources)
	c.mu.RUnlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := ordered[i].src.Priority(), ordered[j].src.Priority()
		if pi != pj {
			return pi > pj
		}
		return ordered[i].seq > ordered[j].seq
	})
	return ordered
}
