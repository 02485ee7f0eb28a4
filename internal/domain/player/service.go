package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/guard"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/engine"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/infra/mpv"
)

// Source names and priorities for the two built-in state sources.
// Lower numbers are more authoritative: user intent wins the fields it
// claims, the engine supplies what the store cannot know moment to
// moment (position, duration).
const (
	SourceUserIntent = "user-intent"
	SourceEngine     = "engine"

	PriorityUserIntent = 0
	PriorityEngine     = 10
)

const (
	defaultFrameRate       = 30.0
	defaultMetadataTimeout = 10 * time.Second
	watchBufferSize        = 16
)

// ErrNoMedia is returned by transport commands before any media has
// been loaded.
var ErrNoMedia = errors.New("no media loaded")

// EngineFactory builds the engine matching a parsed media reference.
type EngineFactory func(ref engine.MediaRef, events engine.Events) (engine.Engine, error)

// Hooks are optional host callbacks fired alongside playback events:
// resume tracking, lesson completion, unavailability notices. All
// fields are optional. Callbacks run on the engine's event goroutine
// and must not block.
type Hooks struct {
	OnTimeUpdate  func(mediaID string, position, duration float64)
	OnPlay        func(mediaID string)
	OnPause       func(mediaID string, position, duration float64)
	OnEnded       func(mediaID string, duration float64)
	OnUnavailable func(mediaID string)
}

// Option configures a Service.
type Option func(*Service)

// WithHooks installs the host callbacks.
func WithHooks(h Hooks) Option {
	return func(s *Service) {
		s.hooks = h
	}
}

// WithMetadataTimeout bounds the wait for media metadata after a load
// before the media is flagged unavailable.
func WithMetadataTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.metadataTimeout = d
		}
	}
}

// WithFrameRate sets the frame rate used for frame stepping.
func WithFrameRate(fps float64) Option {
	return func(s *Service) {
		if fps > 0 {
			s.fps = fps
		}
	}
}

// Service is the playback controller. Every transport command passes
// through the guard, runs against the current engine and lands in the
// intent store on success; engine events flow back through the store
// and out to state watchers.
type Service struct {
	guard           *guard.Guard
	coord           *Coordinator
	store           *Store
	factory         EngineFactory
	hooks           Hooks
	metadataTimeout time.Duration
	fps             float64

	mu           sync.Mutex
	eng          engine.Engine
	ref          engine.MediaRef
	epoch        int
	metadataSeen bool
	unavailable  bool
	watchdog     *time.Timer
	scrubID      string

	watchMu  sync.Mutex
	watchers map[<-chan State]chan State
}

// NewService creates the controller and registers the intent store as
// a coordinator source.
func NewService(g *guard.Guard, coord *Coordinator, store *Store, factory EngineFactory, opts ...Option) *Service {
	s := &Service{
		guard:           g,
		coord:           coord,
		store:           store,
		factory:         factory,
		metadataTimeout: defaultMetadataTimeout,
		fps:             defaultFrameRate,
		watchers:        make(map[<-chan State]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}
	coord.RegisterSource(store)
	return s
}

// LoadMedia parses a raw media reference, tears the current engine
// down and builds the matching backend. Persistent user settings
// (volume, mute, rate) are replayed onto the fresh engine; the
// transport claim is cleared so the new media starts paused.
func (s *Service) LoadMedia(raw string) error {
	ref, err := engine.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse media reference: %w", err)
	}

	return s.guard.Do(guard.ClassLoad, func() error {
		s.mu.Lock()
		s.epoch++
		epoch := s.epoch
		old := s.eng
		s.eng = nil
		if s.watchdog != nil {
			s.watchdog.Stop()
			s.watchdog = nil
		}
		// A scrub against the outgoing media cannot continue
		if s.scrubID != "" {
			s.guard.CompleteOperation(s.scrubID)
			s.scrubID = ""
		}
		s.mu.Unlock()

		if old != nil {
			s.coord.UnregisterSource(SourceEngine)
			if err := old.Close(); err != nil {
				log.Warn().Err(err).Msg("Closing previous engine failed")
			}
		}

		eng, err := s.factory(ref, s.engineEvents(epoch))
		if err != nil {
			return fmt.Errorf("create %s engine: %w", ref.Kind, err)
		}

		s.mu.Lock()
		s.eng = eng
		s.ref = ref
		s.metadataSeen = false
		s.unavailable = false
		s.watchdog = time.AfterFunc(s.metadataTimeout, func() {
			s.metadataTimedOut(epoch)
		})
		s.mu.Unlock()

		s.coord.RegisterSource(&engineSource{eng: eng})
		s.store.ClearPlaying()
		s.applyIntent(eng)

		log.Info().Str("media", ref.String()).Msg("Media loaded")
		s.notifyWatchers()
		return nil
	})
}

// applyIntent replays stored user settings onto a fresh engine.
func (s *Service) applyIntent(eng engine.Engine) {
	snap := s.store.Snapshot()
	if snap.Volume != nil {
		if err := eng.SetVolume(*snap.Volume); err != nil {
			log.Debug().Err(err).Msg("Replaying volume failed")
		}
	}
	if snap.Muted != nil {
		if err := eng.SetMuted(*snap.Muted); err != nil {
			log.Debug().Err(err).Msg("Replaying mute failed")
		}
	}
	if snap.Rate != nil {
		if err := eng.SetPlaybackRate(*snap.Rate); err != nil {
			log.Debug().Err(err).Msg("Replaying playback rate failed")
		}
	}
}

// Play asks the engine to start playback. A backend rejection is
// returned to the caller rather than retried; a retry would just be
// rejected again.
func (s *Service) Play(ctx context.Context) error {
	return s.guard.Do(guard.ClassPlayPause, func() error {
		eng := s.currentEngine()
		if eng == nil {
			return ErrNoMedia
		}
		if err := eng.Play(ctx); err != nil {
			return err
		}
		s.store.SetPlaying(true)
		s.notifyWatchers()
		return nil
	})
}

// Pause asks the engine to stop playback.
func (s *Service) Pause() error {
	return s.guard.Do(guard.ClassPlayPause, func() error {
		eng := s.currentEngine()
		if eng == nil {
			return ErrNoMedia
		}
		if err := eng.Pause(); err != nil {
			return err
		}
		s.store.SetPlaying(false)
		s.notifyWatchers()
		return nil
	})
}

// TogglePlayback flips between play and pause based on the reconciled
// state. Reading and acting happen inside one guarded operation, so a
// rapid double press cannot run both directions.
func (s *Service) TogglePlayback(ctx context.Context) error {
	return s.guard.Do(guard.ClassPlayPause, func() error {
		eng := s.currentEngine()
		if eng == nil {
			return ErrNoMedia
		}
		if s.coord.GetState().Playing {
			if err := eng.Pause(); err != nil {
				return err
			}
			s.store.SetPlaying(false)
		} else {
			if err := eng.Play(ctx); err != nil {
				return err
			}
			s.store.SetPlaying(true)
		}
		s.notifyWatchers()
		return nil
	})
}

// Seek jumps to an absolute position in seconds, clamped to the known
// duration. Before metadata arrives the value passes through for the
// backend to clamp.
func (s *Service) Seek(seconds float64) error {
	return s.guard.Do(guard.ClassSeek, func() error {
		eng := s.currentEngine()
		if eng == nil {
			return ErrNoMedia
		}
		if err := eng.Seek(s.clampSeek(seconds)); err != nil {
			return err
		}
		s.notifyWatchers()
		return nil
	})
}

// StepFrames nudges the position by a signed number of frames at the
// configured frame rate.
func (s *Service) StepFrames(frames int) error {
	return s.guard.Do(guard.ClassSeek, func() error {
		eng := s.currentEngine()
		if eng == nil {
			return ErrNoMedia
		}
		target := s.coord.GetState().CurrentTime + float64(frames)/s.fps
		if err := eng.Seek(s.clampSeek(target)); err != nil {
			return err
		}
		s.notifyWatchers()
		return nil
	})
}

// SetVolume sets the volume level (0.0-1.0). The setting is stored
// even with no media loaded and replayed onto the next engine.
func (s *Service) SetVolume(volume float64) error {
	return s.guard.Do(guard.ClassVolume, func() error {
		if eng := s.currentEngine(); eng != nil {
			if err := eng.SetVolume(volume); err != nil {
				return err
			}
		}
		s.store.SetVolume(volume)
		s.notifyWatchers()
		return nil
	})
}

// SetMuted sets the mute state, stored across media changes.
func (s *Service) SetMuted(muted bool) error {
	return s.guard.Do(guard.ClassVolume, func() error {
		if eng := s.currentEngine(); eng != nil {
			if err := eng.SetMuted(muted); err != nil {
				return err
			}
		}
		s.store.SetMuted(muted)
		s.notifyWatchers()
		return nil
	})
}

// SetPlaybackRate sets the rate multiplier, stored across media
// changes.
func (s *Service) SetPlaybackRate(rate float64) error {
	return s.guard.Do(guard.ClassRate, func() error {
		if eng := s.currentEngine(); eng != nil {
			if err := eng.SetPlaybackRate(rate); err != nil {
				return err
			}
		}
		s.store.SetRate(rate)
		s.notifyWatchers()
		return nil
	})
}

// BeginScrub opens a drag-to-scrub session holding a single seek slot
// for the whole drag, so pointer moves inside it are never refused by
// the guard. It reports false when a conflicting operation is already
// in flight.
func (s *Service) BeginScrub() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scrubID != "" {
		return false
	}
	id := guard.NewOperationID(guard.ClassSeek)
	if !s.guard.StartOperation(id, guard.ClassSeek) {
		return false
	}
	s.scrubID = id
	return true
}

// Scrub seeks live inside the held session. Outside a session it does
// nothing.
func (s *Service) Scrub(seconds float64) {
	target := s.clampSeek(seconds)

	s.mu.Lock()
	if s.scrubID == "" {
		s.mu.Unlock()
		return
	}
	eng := s.eng
	s.mu.Unlock()

	if eng != nil {
		if err := eng.Seek(target); err != nil {
			log.Debug().Err(err).Msg("Scrub seek failed")
		}
	}
	s.notifyWatchers()
}

// EndScrub performs the final seek and releases the session slot.
func (s *Service) EndScrub(seconds float64) {
	target := s.clampSeek(seconds)

	s.mu.Lock()
	id := s.scrubID
	s.scrubID = ""
	eng := s.eng
	s.mu.Unlock()

	if id == "" {
		return
	}
	if eng != nil {
		if err := eng.Seek(target); err != nil {
			log.Debug().Err(err).Msg("Final scrub seek failed")
		}
	}
	s.guard.CompleteOperation(id)
	s.notifyWatchers()
}

// CancelScrub releases the session without a final seek.
func (s *Service) CancelScrub() {
	s.mu.Lock()
	id := s.scrubID
	s.scrubID = ""
	s.mu.Unlock()

	if id != "" {
		s.guard.CompleteOperation(id)
	}
}

// IsScrubbing reports whether a drag session holds the seek slot.
func (s *Service) IsScrubbing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrubID != ""
}

// GetState returns the reconciled snapshot across all sources.
func (s *Service) GetState() State {
	return s.coord.GetState()
}

// Unavailable reports whether the loaded media produced no metadata
// within the deadline.
func (s *Service) Unavailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unavailable
}

// CurrentMedia returns the loaded media reference.
func (s *Service) CurrentMedia() (engine.MediaRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ref, s.eng != nil
}

// EngineHandle exposes the native decoder's IPC client, the escape
// hatch for callers that need direct access such as the seek-preview
// capturer. Nil with no media loaded or the embedded backend active.
func (s *Service) EngineHandle() *mpv.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng == nil {
		return nil
	}
	return s.eng.Handle()
}

// Watch returns a channel of reconciled snapshots pushed after every
// state-affecting event. Sends never block: a slow consumer loses
// intermediate snapshots, never the stream. Unwatch releases it.
func (s *Service) Watch() <-chan State {
	ch := make(chan State, watchBufferSize)
	s.watchMu.Lock()
	s.watchers[ch] = ch
	s.watchMu.Unlock()
	return ch
}

// Unwatch removes and closes a watcher channel.
func (s *Service) Unwatch(ch <-chan State) {
	s.watchMu.Lock()
	w, exists := s.watchers[ch]
	delete(s.watchers, ch)
	s.watchMu.Unlock()
	if exists {
		close(w)
	}
}

// Close tears the session down: watchdog stopped, engine closed,
// watchers closed. Guarded operations still in flight are logged as
// abandoned.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	if s.scrubID != "" {
		s.guard.CompleteOperation(s.scrubID)
		s.scrubID = ""
	}
	eng := s.eng
	s.eng = nil
	s.epoch++
	s.mu.Unlock()

	s.coord.UnregisterSource(SourceEngine)

	var err error
	if eng != nil {
		err = eng.Close()
	}

	for _, op := range s.guard.Active() {
		log.Warn().
			Str("id", op.ID).
			Str("class", string(op.Class)).
			Time("started_at", op.StartedAt).
			Msg("Operation abandoned at teardown")
	}

	s.watchMu.Lock()
	for _, ch := range s.watchers {
		close(ch)
	}
	s.watchers = make(map[<-chan State]chan State)
	s.watchMu.Unlock()

	return err
}

// engineEvents binds the callbacks for one engine generation. The
// epoch check drops events from an engine that has since been
// replaced; without it a stale decoder could overwrite the new
// media's state.
func (s *Service) engineEvents(epoch int) engine.Events {
	return engine.Events{
		OnTimeUpdate:     func(t float64) { s.engineTime(epoch, t) },
		OnLoadedMetadata: func(d float64) { s.engineMetadata(epoch, d) },
		OnPlay:           func() { s.enginePlay(epoch) },
		OnPause:          func() { s.enginePause(epoch) },
		OnEnded:          func() { s.engineEnded(epoch) },
	}
}

func (s *Service) engineTime(epoch int, seconds float64) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	id := s.ref.ID()
	s.mu.Unlock()

	if cb := s.hooks.OnTimeUpdate; cb != nil {
		cb(id, seconds, s.coord.GetState().Duration)
	}
	s.notifyWatchers()
}

func (s *Service) engineMetadata(epoch int, duration float64) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.metadataSeen = true
	s.unavailable = false
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	s.mu.Unlock()

	log.Info().Float64("duration", duration).Msg("Media metadata loaded")
	s.notifyWatchers()
}

func (s *Service) enginePlay(epoch int) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	id := s.ref.ID()
	s.mu.Unlock()

	s.store.SetPlaying(true)
	if cb := s.hooks.OnPlay; cb != nil {
		cb(id)
	}
	s.notifyWatchers()
}

func (s *Service) enginePause(epoch int) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	id := s.ref.ID()
	s.mu.Unlock()

	s.store.SetPlaying(false)
	if cb := s.hooks.OnPause; cb != nil {
		st := s.coord.GetState()
		cb(id, st.CurrentTime, st.Duration)
	}
	s.notifyWatchers()
}

func (s *Service) engineEnded(epoch int) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	id := s.ref.ID()
	s.mu.Unlock()

	s.store.SetPlaying(false)
	if cb := s.hooks.OnEnded; cb != nil {
		cb(id, s.coord.GetState().Duration)
	}
	s.notifyWatchers()
}

func (s *Service) metadataTimedOut(epoch int) {
	s.mu.Lock()
	if epoch != s.epoch || s.metadataSeen {
		s.mu.Unlock()
		return
	}
	s.unavailable = true
	s.watchdog = nil
	id := s.ref.ID()
	s.mu.Unlock()

	log.Warn().
		Str("media", id).
		Dur("timeout", s.metadataTimeout).
		Msg("No metadata from engine, marking media unavailable")
	if cb := s.hooks.OnUnavailable; cb != nil {
		cb(id)
	}
	s.notifyWatchers()
}

func (s *Service) currentEngine() engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng
}

// clampSeek holds a requested position inside the known media bounds.
func (s *Service) clampSeek(seconds float64) float64 {
	if seconds < 0 {
		return 0
	}
	if d := s.coord.GetState().Duration; d > 0 && seconds > d {
		return d
	}
	return seconds
}

func (s *Service) notifyWatchers() {
	state := s.coord.GetState()
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- state:
		default:
		}
	}
}

// engineSource adapts an engine's status mirror into a read-only
// state source. The engine owns position and transport direction once
// media is loaded; duration is claimed only after metadata arrives.
type engineSource struct {
	eng engine.Engine
}

func (e *engineSource) Name() string   { return SourceEngine }
func (e *engineSource) Priority() int  { return PriorityEngine }
func (e *engineSource) Writable() bool { return false }

func (e *engineSource) Snapshot() Partial {
	st := e.eng.Status()
	if !st.HasMedia {
		return Partial{}
	}
	p := Partial{
		Playing:     &st.Playing,
		CurrentTime: &st.Time,
	}
	if st.Duration > 0 {
		p.Duration = &st.Duration
	}
	return p
}
