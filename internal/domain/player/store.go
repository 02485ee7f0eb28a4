package player

import "sync"

// Store is the writable state source. It records the user's last
// explicit intent per field and claims nothing it has not been told.
// It is safe for concurrent access.
type Store struct {
	mu       sync.RWMutex
	name     string
	priority int

	playing *bool
	volume  *float64
	muted   *bool
	rate    *float64
}

// NewStore creates a store registered under the given name and priority.
func NewStore(name string, priority int) *Store {
	return &Store{
		name:     name,
		priority: priority,
	}
}

// Name returns the source name.
func (s *Store) Name() string { return s.name }

// Priority returns the source priority.
func (s *Store) Priority() int { return s.priority }

// Writable reports that the store accepts writes.
func (s *Store) Writable() bool { return true }

// Snapshot returns the fields the user has set so far.
func (s *Store) Snapshot() Partial {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Partial{
		Playing: copyBool(s.playing),
		Volume:  copyFloat(s.volume),
		Muted:   copyBool(s.muted),
		Rate:    copyFloat(s.rate),
	}
}

// SetPlaying records the intended transport direction.
func (s *Store) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = &playing
}

// SetVolume records the intended volume level (0.0-1.0).
func (s *Store) SetVolume(volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}
	s.volume = &volume
}

// SetMuted records the intended mute state.
func (s *Store) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = &muted
}

// SetRate records the intended playback rate, clamped to 0.25-4.
func (s *Store) SetRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rate < 0.25 {
		rate = 0.25
	} else if rate > 4 {
		rate = 4
	}
	s.rate = &rate
}

// ClearPlaying drops the transport claim. Volume, mute and rate are
// user-level settings and survive media changes.
func (s *Store) ClearPlaying() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = nil
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
