package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type emittedCommand struct {
	requestID string
	name      string
	payload   map[string]interface{}
}

type fakeEmitter struct {
	mu       sync.Mutex
	commands []emittedCommand
	err      error
}

func (f *fakeEmitter) EmitCommand(requestID, name string, payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.commands = append(f.commands, emittedCommand{requestID, name, payload})
	return nil
}

func (f *fakeEmitter) last() (emittedCommand, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return emittedCommand{}, false
	}
	return f.commands[len(f.commands)-1], true
}

func (f *fakeEmitter) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.commands))
	for i, c := range f.commands {
		names[i] = c.name
	}
	return names
}

// ackWhenSeen acknowledges the next play command as soon as it lands.
func ackWhenSeen(e *Embedded, em *fakeEmitter, ok bool, reason string) {
	go func() {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if cmd, found := em.last(); found && cmd.name == "play" {
				e.HandleAck(cmd.requestID, ok, reason)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
}

func TestEmbeddedPlayAcknowledged(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{})

	ackWhenSeen(e, em, true, "")
	if err := e.Play(context.Background()); err != nil {
		t.Fatalf("expected play to succeed, got %v", err)
	}
}

func TestEmbeddedPlayRejected(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{})

	ackWhenSeen(e, em, false, "autoplay blocked")
	err := e.Play(context.Background())
	if !errors.Is(err, ErrPlayRejected) {
		t.Fatalf("expected ErrPlayRejected, got %v", err)
	}
}

func TestEmbeddedPlayAckTimeout(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{AckTimeout: 50 * time.Millisecond})

	err := e.Play(context.Background())
	if err == nil {
		t.Fatal("expected an error for an unacknowledged play")
	}
	if errors.Is(err, ErrPlayRejected) {
		t.Errorf("a silent bridge is not a rejection: %v", err)
	}
}

func TestEmbeddedPlayContextCanceled(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{AckTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := e.Play(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEmbeddedPlayEmitterFailure(t *testing.T) {
	em := &fakeEmitter{err: errors.New("no client attached")}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{AckTimeout: time.Minute})

	if err := e.Play(context.Background()); err == nil {
		t.Error("expected an error when the bridge cannot emit")
	}
}

func TestEmbeddedExtrapolatesWhilePlaying(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{})

	e.HandleRemoteEvent("play", nil)
	e.HandleRemoteEvent("timeupdate", map[string]interface{}{"time": 10.0})

	time.Sleep(50 * time.Millisecond)

	got := e.Status().Time
	if got <= 10.0 || got > 10.5 {
		t.Errorf("expected extrapolated time just past 10, got %f", got)
	}
}

func TestEmbeddedFreezesWhenPaused(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{})

	e.HandleRemoteEvent("play", nil)
	e.HandleRemoteEvent("timeupdate", map[string]interface{}{"time": 10.0})
	e.HandleRemoteEvent("pause", nil)

	frozen := e.Status().Time
	time.Sleep(50 * time.Millisecond)

	if got := e.Status().Time; got != frozen {
		t.Errorf("expected frozen position %f, got %f", frozen, got)
	}
	if e.Status().Playing {
		t.Error("expected status paused")
	}
}

func TestEmbeddedSeekClampsAndMirrors(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{})

	e.HandleRemoteEvent("loadedmetadata", map[string]interface{}{"duration": 100.0})

	if err := e.Seek(500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cmd, ok := em.last()
	if !ok || cmd.name != "seek" {
		t.Fatalf("expected a seek command, got %v", em.names())
	}
	if cmd.payload["seconds"] != 100.0 {
		t.Errorf("expected seek clamped to 100, got %v", cmd.payload["seconds"])
	}
	if got := e.Status().Time; got != 100.0 {
		t.Errorf("expected optimistic mirror at 100, got %f", got)
	}
}

func TestEmbeddedSeekPassesThroughUnknownDuration(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{})

	if err := e.Seek(245.3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cmd, _ := em.last()
	if cmd.payload["seconds"] != 245.3 {
		t.Errorf("expected unclamped seek before metadata, got %v", cmd.payload["seconds"])
	}
}

func TestEmbeddedEventCallbacks(t *testing.T) {
	rec := &eventRecorder{}
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, rec.events(), EmbeddedOptions{})

	e.HandleRemoteEvent("loadedmetadata", map[string]interface{}{"duration": 90.0})
	e.HandleRemoteEvent("loadedmetadata", map[string]interface{}{"duration": 90.0})
	e.HandleRemoteEvent("play", nil)
	e.HandleRemoteEvent("play", nil)
	e.HandleRemoteEvent("timeupdate", map[string]interface{}{"time": 3.0})
	e.HandleRemoteEvent("pause", nil)
	e.HandleRemoteEvent("ended", nil)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.metadata) != 1 {
		t.Errorf("expected metadata once, got %v", rec.metadata)
	}
	if rec.plays != 1 {
		t.Errorf("expected 1 play (duplicates absorbed), got %d", rec.plays)
	}
	if rec.pauses != 1 {
		t.Errorf("expected 1 pause, got %d", rec.pauses)
	}
	if rec.ended != 1 {
		t.Errorf("expected 1 ended, got %d", rec.ended)
	}
}

func TestEmbeddedEndedPinsToDuration(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{})

	e.HandleRemoteEvent("loadedmetadata", map[string]interface{}{"duration": 90.0})
	e.HandleRemoteEvent("play", nil)
	e.HandleRemoteEvent("timeupdate", map[string]interface{}{"time": 89.0})
	e.HandleRemoteEvent("ended", nil)

	st := e.Status()
	if st.Time != 90.0 {
		t.Errorf("expected position pinned to duration, got %f", st.Time)
	}
	if st.Playing {
		t.Error("expected playback stopped after ended")
	}
}

func TestEmbeddedCloseFailsPendingPlay(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{AckTimeout: time.Minute})

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Play(context.Background())
	}()

	// Let the play command land before closing
	time.Sleep(20 * time.Millisecond)
	if err := e.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrEngineClosed) {
			t.Errorf("expected ErrEngineClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("play did not return after close")
	}
}

func TestEmbeddedCommandsAfterClose(t *testing.T) {
	em := &fakeEmitter{}
	e := NewEmbedded("dQw4w9WgXcQ", em, Events{}, EmbeddedOptions{})

	_ = e.Close()

	if err := e.Pause(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("expected ErrEngineClosed from pause, got %v", err)
	}
	if err := e.Seek(5); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("expected ErrEngineClosed from seek, got %v", err)
	}

	// Late reports are dropped silently
	e.HandleRemoteEvent("timeupdate", map[string]interface{}{"time": 42.0})
	if got := e.Status().Time; got == 42.0 {
		t.Error("expected reports after close to be ignored")
	}
}
