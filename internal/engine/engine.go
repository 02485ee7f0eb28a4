// Package engine abstracts playback backends behind one control
// surface, whether the media plays in a local decoder process or in an
// embedded third-party player on the client.
package engine

import (
	"context"
	"errors"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/infra/mpv"
)

// ErrPlayRejected is returned when the backend refuses to start
// playback, the remote equivalent of an autoplay-policy rejection.
// Callers surface it rather than retrying; a retry would just be
// rejected again.
var ErrPlayRejected = errors.New("backend rejected play")

// Events are push callbacks invoked from an engine's event loop. All
// fields are optional.
type Events struct {
	OnTimeUpdate     func(seconds float64)
	OnLoadedMetadata func(duration float64)
	OnEnded          func()
	OnPlay           func()
	OnPause          func()
}

// Status is an engine's local view of its media.
type Status struct {
	HasMedia bool
	Playing  bool
	Time     float64
	Duration float64
}

// Engine drives one playback backend. Play is the only call that
// waits on the backend; everything else is fire-and-forget with
// effects observed later through Events.
type Engine interface {
	Play(ctx context.Context) error
	Pause() error
	Seek(seconds float64) error
	SetVolume(volume float64) error
	SetMuted(muted bool) error
	SetPlaybackRate(rate float64) error

	// Status returns the engine's current local view.
	Status() Status

	// Handle exposes the underlying mpv client for callers that need
	// direct access, such as a seek-preview capturer. It returns nil
	// for the embedded backend.
	Handle() *mpv.Client

	Close() error
}
