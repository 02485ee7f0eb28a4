package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultWriteInterval spaces out position writes driven by the
// engine's time reports.
const DefaultWriteInterval = 5 * time.Second

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithWriteInterval sets the minimum spacing between throttled writes.
func WithWriteInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d > 0 {
			t.writeInterval = d
		}
	}
}

// Tracker funnels playback progress into the store. Time reports
// arrive several times a second; the tracker collapses them to one
// write per interval, while pause and ended flush immediately since
// they are the moments a viewer is likely to walk away.
type Tracker struct {
	store         *Store
	writeInterval time.Duration

	mu        sync.Mutex
	lastMedia string
	lastWrite time.Time
}

// NewTracker creates a tracker writing through to the given store.
func NewTracker(store *Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:         store,
		writeInterval: DefaultWriteInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordTime notes a position report, throttled to the write interval.
func (t *Tracker) RecordTime(mediaID string, position, duration float64) {
	t.mu.Lock()
	if mediaID == t.lastMedia && time.Since(t.lastWrite) < t.writeInterval {
		t.mu.Unlock()
		return
	}
	t.lastMedia = mediaID
	t.lastWrite = time.Now()
	t.mu.Unlock()

	if err := t.store.Save(mediaID, position, duration); err != nil {
		log.Warn().Err(err).Str("media", mediaID).Msg("Failed to save resume position")
	}
}

// RecordPause flushes the position immediately.
func (t *Tracker) RecordPause(mediaID string, position, duration float64) {
	t.flush(mediaID, position, duration)
}

// RecordEnded marks the media fully watched by pinning the position
// to its duration.
func (t *Tracker) RecordEnded(mediaID string, duration float64) {
	t.flush(mediaID, duration, duration)
}

func (t *Tracker) flush(mediaID string, position, duration float64) {
	t.mu.Lock()
	t.lastMedia = mediaID
	t.lastWrite = time.Now()
	t.mu.Unlock()

	if err := t.store.Save(mediaID, position, duration); err != nil {
		log.Warn().Err(err).Str("media", mediaID).Msg("Failed to save resume position")
	}
}
