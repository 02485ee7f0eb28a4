// Package player provides the core playback domain logic for video sessions.
package player

// State represents a complete playback snapshot.
type State struct {
	Playing     bool    `json:"playing"`
	CurrentTime float64 `json:"currentTime"` // seconds
	Duration    float64 `json:"duration"`    // seconds, 0 until metadata arrives
	Volume      float64 `json:"volume"`      // 0.0-1.0
	Muted       bool    `json:"muted"`
	Rate        float64 `json:"rate"` // playback rate multiplier
}

// DefaultState returns the snapshot reported before any source has data.
func DefaultState() State {
	return State{
		Volume: 1,
		Rate:   1,
	}
}

// Clamped returns a copy with CurrentTime held inside the known media
// bounds. Duration 0 means unknown and leaves CurrentTime untouched.
func (s State) Clamped() State {
	if s.CurrentTime < 0 {
		s.CurrentTime = 0
	}
	if s.Duration > 0 && s.CurrentTime > s.Duration {
		s.CurrentTime = s.Duration
	}
	return s
}

// ToJSON returns the state as a map suitable for the pushState payload.
func (s State) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"playing":     s.Playing,
		"currentTime": s.CurrentTime,
		"duration":    s.Duration,
		"volume":      s.Volume,
		"muted":       s.Muted,
		"rate":        s.Rate,
	}
}

// Partial is a sparse state report. A nil field means the source makes
// no claim about it.
type Partial struct {
	Playing     *bool
	CurrentTime *float64
	Duration    *float64
	Volume      *float64
	Muted       *bool
	Rate        *float64
}

// applyTo overwrites the claimed fields of s.
func (p Partial) applyTo(s *State) {
	if p.Playing != nil {
		s.Playing = *p.Playing
	}
	if p.CurrentTime != nil {
		s.CurrentTime = *p.CurrentTime
	}
	if p.Duration != nil {
		s.Duration = *p.Duration
	}
	if p.Volume != nil {
		s.Volume = *p.Volume
	}
	if p.Muted != nil {
		s.Muted = *p.Muted
	}
	if p.Rate != nil {
		s.Rate = *p.Rate
	}
}

// Source supplies part of the playback state. Lower priority numbers
// are more authoritative.
type Source interface {
	Name() string
	Priority() int
	Writable() bool
	Snapshot() Partial
}
