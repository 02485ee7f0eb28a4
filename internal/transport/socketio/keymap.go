package socketio

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/player"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/timeline"
)

// defaultSpaceDebounce drops key-repeat space presses. A held key
// autorepeats far faster than any deliberate toggle; distinct presses
// slower than this still go through, and the operation guard covers
// whatever the debounce lets past.
const defaultSpaceDebounce = 300 * time.Millisecond

// PlaybackControls is the slice of the playback service the keymap drives.
type PlaybackControls interface {
	TogglePlayback(ctx context.Context) error
	StepFrames(frames int) error
	GetState() player.State
}

// KeymapOptions configures a Keymap.
type KeymapOptions struct {
	Controls PlaybackControls
	Ruler    *timeline.Ruler
	Editor   *timeline.Editor

	// SpaceDebounce overrides the toggle debounce window. Zero means
	// the default.
	SpaceDebounce time.Duration

	// PlayTimeout bounds the wait for a toggle that starts playback.
	// Zero means the default.
	PlayTimeout time.Duration
}

// Keymap translates relayed keyboard input into playback and editing
// actions: space toggles play/pause, arrows step frames, "t" splits the
// clip under the playhead.
type Keymap struct {
	controls      PlaybackControls
	ruler         *timeline.Ruler
	editor        *timeline.Editor
	spaceDebounce time.Duration
	playTimeout   time.Duration

	mu        sync.Mutex
	lastSpace time.Time
}

// NewKeymap creates a keymap over the given playback and timeline
// surfaces. Ruler and Editor may be nil; split is then a no-op.
func NewKeymap(opts KeymapOptions) *Keymap {
	if opts.SpaceDebounce <= 0 {
		opts.SpaceDebounce = defaultSpaceDebounce
	}
	if opts.PlayTimeout <= 0 {
		opts.PlayTimeout = playTimeout
	}
	return &Keymap{
		controls:      opts.Controls,
		ruler:         opts.Ruler,
		editor:        opts.Editor,
		spaceDebounce: opts.SpaceDebounce,
		playTimeout:   opts.PlayTimeout,
	}
}

// HandleKey dispatches a single key press. Unmapped keys are ignored.
func (k *Keymap) HandleKey(key string, shift bool) error {
	switch key {
	case " ", "Space", "Spacebar":
		if !k.spaceAllowed() {
			log.Debug().Msg("Space repeat dropped by debounce")
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), k.playTimeout)
		defer cancel()
		return k.controls.TogglePlayback(ctx)

	case "ArrowLeft":
		return k.controls.StepFrames(-k.stepSize(shift))

	case "ArrowRight":
		return k.controls.StepFrames(k.stepSize(shift))

	case "t", "T":
		return k.splitAtPlayhead()
	}
	return nil
}

// spaceAllowed records a space press and reports whether it falls
// outside the debounce window of the previous accepted press.
func (k *Keymap) spaceAllowed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := time.Now()
	if now.Sub(k.lastSpace) < k.spaceDebounce {
		return false
	}
	k.lastSpace = now
	return true
}

func (k *Keymap) stepSize(shift bool) int {
	if shift {
		return 10
	}
	return 1
}

// splitAtPlayhead splits the clip under the current playback position.
func (k *Keymap) splitAtPlayhead() error {
	if k.editor == nil || k.ruler == nil {
		return nil
	}
	state := k.controls.GetState()
	return k.editor.SplitAt(k.ruler.FrameAtTime(state.CurrentTime))
}
