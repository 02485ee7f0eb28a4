package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/infra/mpv"
)

// Emitter carries a command to the embedded player over the session
// connection. The transport implements it; the far side answers with
// acks and event reports relayed back through HandleAck and
// HandleRemoteEvent.
type Emitter interface {
	EmitCommand(requestID, name string, payload map[string]interface{}) error
}

// ErrEngineClosed is returned for commands issued after Close.
var ErrEngineClosed = errors.New("engine closed")

const defaultAckTimeout = 3 * time.Second

// EmbeddedOptions configures the bridge engine.
type EmbeddedOptions struct {
	// AckTimeout bounds the wait for a play acknowledgment.
	AckTimeout time.Duration
}

// Embedded drives a third-party player living inside the client's
// page. Commands go out over the session connection; between time
// reports the position is extrapolated from the last report, the
// playback rate and the wall clock, so Status stays usable at report
// granularity far coarser than the decoder's.
type Embedded struct {
	videoID    string
	emitter    Emitter
	events     Events
	ackTimeout time.Duration

	mu           sync.Mutex
	playing      bool
	rate         float64
	lastTime     float64
	lastReport   time.Time
	duration     float64
	metadataSeen bool
	closed       bool
	pending      map[string]chan error
}

// NewEmbedded creates the bridge engine for a hosted video.
func NewEmbedded(videoID string, emitter Emitter, events Events, opts EmbeddedOptions) *Embedded {
	e := &Embedded{
		videoID:    videoID,
		emitter:    emitter,
		events:     events,
		ackTimeout: opts.AckTimeout,
		rate:       1,
		pending:    make(map[string]chan error),
	}
	if e.ackTimeout <= 0 {
		e.ackTimeout = defaultAckTimeout
	}
	return e
}

// VideoID returns the hosting site's identifier for the loaded video.
func (e *Embedded) VideoID() string {
	return e.videoID
}

// Play asks the embedded player to start and waits for its answer. A
// rejecting acknowledgment, typically the host's autoplay policy
// saying no, maps to ErrPlayRejected. No answer within the ack
// timeout is reported as its own error so the caller can tell a
// refusal from a dead bridge.
func (e *Embedded) Play(ctx context.Context) error {
	requestID := uuid.NewString()
	ackCh := make(chan error, 1)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.pending[requestID] = ackCh
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.pending, requestID)
		e.mu.Unlock()
	}()

	if err := e.emitter.EmitCommand(requestID, "play", nil); err != nil {
		return fmt.Errorf("emit play: %w", err)
	}

	timer := time.NewTimer(e.ackTimeout)
	defer timer.Stop()

	select {
	case err := <-ackCh:
		return err
	case <-timer.C:
		return fmt.Errorf("play unacknowledged after %s", e.ackTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Embedded) Pause() error {
	return e.emit("pause", nil)
}

// Seek clamps to the known duration and jumps the embedded player.
// The local mirror moves optimistically so Status tracks the target
// until the next report lands.
func (e *Embedded) Seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if e.duration > 0 && seconds > e.duration {
		seconds = e.duration
	}
	e.lastTime = seconds
	e.lastReport = time.Now()
	e.mu.Unlock()

	return e.emit("seek", map[string]interface{}{"seconds": seconds})
}

func (e *Embedded) SetVolume(volume float64) error {
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}
	return e.emit("setVolume", map[string]interface{}{"volume": volume})
}

func (e *Embedded) SetMuted(muted bool) error {
	return e.emit("setMuted", map[string]interface{}{"muted": muted})
}

func (e *Embedded) SetPlaybackRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid playback rate %g", rate)
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	// Fold elapsed time at the old rate before switching the slope
	e.foldElapsedLocked(time.Now())
	e.rate = rate
	e.mu.Unlock()

	return e.emit("setPlaybackRate", map[string]interface{}{"rate": rate})
}

// Status extrapolates the position from the last report while playing.
func (e *Embedded) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.lastTime
	if e.playing && !e.lastReport.IsZero() {
		t += time.Since(e.lastReport).Seconds() * e.rate
	}
	if e.duration > 0 && t > e.duration {
		t = e.duration
	}

	return Status{HasMedia: true, Playing: e.playing, Time: t, Duration: e.duration}
}

// Handle returns nil: the embedded backend has no local decoder.
func (e *Embedded) Handle() *mpv.Client {
	return nil
}

// Close fails all pending acknowledgments and drops future reports.
func (e *Embedded) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	for id, ch := range e.pending {
		ch <- ErrEngineClosed
		delete(e.pending, id)
	}
	return nil
}

// HandleAck resolves a pending command acknowledgment relayed from
// the client. ok=false means the embedded player refused the command.
func (e *Embedded) HandleAck(requestID string, ok bool, reason string) {
	e.mu.Lock()
	ch, exists := e.pending[requestID]
	delete(e.pending, requestID)
	e.mu.Unlock()

	if !exists {
		return
	}
	if ok {
		ch <- nil
		return
	}
	if reason == "" {
		reason = "rejected"
	}
	ch <- fmt.Errorf("%w: %s", ErrPlayRejected, reason)
}

// HandleRemoteEvent applies a player report relayed from the client.
// Recognized events: timeupdate {time}, loadedmetadata {duration},
// play, pause, ended.
func (e *Embedded) HandleRemoteEvent(name string, payload map[string]interface{}) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	now := time.Now()
	var notify func()
	switch name {
	case "timeupdate":
		t, ok := floatField(payload, "time")
		if !ok {
			break
		}
		e.lastTime = t
		e.lastReport = now
		if cb := e.events.OnTimeUpdate; cb != nil {
			notify = func() { cb(t) }
		}
	case "loadedmetadata":
		d, ok := floatField(payload, "duration")
		if !ok || d <= 0 {
			break
		}
		e.duration = d
		if !e.metadataSeen {
			e.metadataSeen = true
			if cb := e.events.OnLoadedMetadata; cb != nil {
				notify = func() { cb(d) }
			}
		}
	case "play":
		if !e.playing {
			e.playing = true
			e.lastReport = now
			notify = e.events.OnPlay
		}
	case "pause":
		if e.playing {
			e.foldElapsedLocked(now)
			e.playing = false
			notify = e.events.OnPause
		}
	case "ended":
		e.playing = false
		if e.duration > 0 {
			e.lastTime = e.duration
		}
		e.lastReport = now
		notify = e.events.OnEnded
	default:
		log.Debug().Str("event", name).Msg("Unknown embedded player event")
	}
	e.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// foldElapsedLocked rolls wall-clock progress since the last report
// into the position mirror. Callers hold e.mu.
func (e *Embedded) foldElapsedLocked(now time.Time) {
	if e.playing && !e.lastReport.IsZero() {
		e.lastTime += now.Sub(e.lastReport).Seconds() * e.rate
	}
	e.lastReport = now
}

func (e *Embedded) emit(name string, payload map[string]interface{}) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.mu.Unlock()
	return e.emitter.EmitCommand(uuid.NewString(), name, payload)
}

func floatField(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
