package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/infra/mpv"
)

// NativeOptions configures the local decoder process.
type NativeOptions struct {
	// Binary is the mpv executable, found on PATH when empty.
	Binary string
	// SocketDir holds the per-instance IPC socket.
	SocketDir string
	// ExtraArgs are appended to the decoder command line.
	ExtraArgs []string
}

// Native plays a direct media URL or file path in a local mpv
// process. Property changes stream back over a dedicated IPC
// connection and surface through the Events callbacks; Status mirrors
// the latest reported values.
type Native struct {
	client   *mpv.Client
	listener *mpv.EventListener
	events   Events

	mu           sync.Mutex
	status       Status
	metadataSent bool
	closed       bool
}

// NewNative spawns the decoder for the given media and starts
// watching its properties. The decoder starts paused; playback waits
// for an explicit Play.
func NewNative(media string, opts NativeOptions, events Events) (*Native, error) {
	client := mpv.NewClient(opts.Binary, opts.SocketDir, opts.ExtraArgs)
	if err := client.Start(media); err != nil {
		return nil, fmt.Errorf("start decoder: %w", err)
	}

	n := &Native{
		client: client,
		events: events,
		status: Status{HasMedia: true},
	}

	n.listener = mpv.NewEventListener(client.SocketPath(), n.handleProperty)
	if err := n.listener.Start(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("start decoder event listener: %w", err)
	}

	return n, nil
}

// Play clears the decoder's pause flag. The transition is confirmed
// asynchronously through the pause property, not through this call; an
// IPC failure here means the decoder is gone and play cannot start.
func (n *Native) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.client.SetProperty("pause", false); err != nil {
		return fmt.Errorf("%w: %v", ErrPlayRejected, err)
	}
	return nil
}

func (n *Native) Pause() error {
	return n.client.SetProperty("pause", true)
}

// Seek jumps to an absolute position, clamped to the known duration.
func (n *Native) Seek(seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}
	n.mu.Lock()
	if d := n.status.Duration; d > 0 && seconds > d {
		seconds = d
	}
	n.mu.Unlock()
	return n.client.Seek(seconds)
}

// SetVolume maps the session's 0..1 range onto the decoder's 0..100.
func (n *Native) SetVolume(volume float64) error {
	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}
	return n.client.SetProperty("volume", math.Round(volume*100))
}

func (n *Native) SetMuted(muted bool) error {
	return n.client.SetProperty("mute", muted)
}

func (n *Native) SetPlaybackRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("invalid playback rate %g", rate)
	}
	return n.client.SetProperty("speed", rate)
}

func (n *Native) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// Handle exposes the decoder's IPC client for direct callers.
func (n *Native) Handle() *mpv.Client {
	return n.client
}

// Close stops the event listener and shuts the decoder down.
func (n *Native) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	n.listener.Stop()
	return n.client.Close()
}

// handleProperty translates decoder property changes into engine
// events. Duplicate pause reports and duration refinements after the
// first metadata are absorbed here so callbacks only fire on real
// transitions.
func (n *Native) handleProperty(property string, data interface{}) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}

	var notify func()
	switch property {
	case "time-pos":
		t, ok := data.(float64)
		if !ok {
			break
		}
		n.status.Time = t
		if cb := n.events.OnTimeUpdate; cb != nil {
			notify = func() { cb(t) }
		}
	case "duration":
		d, ok := data.(float64)
		if !ok || d <= 0 {
			break
		}
		n.status.Duration = d
		if !n.metadataSent {
			n.metadataSent = true
			if cb := n.events.OnLoadedMetadata; cb != nil {
				notify = func() { cb(d) }
			}
		}
	case "pause":
		paused, ok := data.(bool)
		if !ok {
			break
		}
		wasPlaying := n.status.Playing
		n.status.Playing = !paused
		if paused && wasPlaying {
			notify = n.events.OnPause
		} else if !paused && !wasPlaying {
			notify = n.events.OnPlay
		}
	case "eof-reached":
		eof, ok := data.(bool)
		if !ok || !eof {
			break
		}
		n.status.Playing = false
		notify = n.events.OnEnded
	}
	n.mu.Unlock()

	if notify != nil {
		notify()
	}
}
