// Package socketio provides the Socket.io server for client communication.
package socketio

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/player"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/timeline"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/infra/preview"
)

// defaultBroadcastWindow is the debounce applied to outgoing pushes.
const defaultBroadcastWindow = 50 * time.Millisecond

// ServerOptions bundles the collaborators and tuning for a Server.
type ServerOptions struct {
	Service  *player.Service
	Editor   *timeline.Editor
	Scrubber *timeline.Scrubber
	Keymap   *Keymap
	Previews *preview.Store
	Bridge   *Bridge

	// MaxExternalClients caps concurrent non-localhost connections.
	// Zero disables the limiter.
	MaxExternalClients int

	// BroadcastWindow overrides the push debounce. Zero means the
	// default.
	BroadcastWindow time.Duration

	// PingTimeout and PingInterval override the Socket.io heartbeat.
	// Zero means the defaults.
	PingTimeout  time.Duration
	PingInterval time.Duration
}

// Server handles Socket.io connections and events.
type Server struct {
	io          *socket.Server
	service     *player.Service
	editor      *timeline.Editor
	bridge      *Bridge
	limiter     *ConnectionLimiter
	broadcaster *BroadcastDebouncer

	playerHandlers   *PlayerHandlers
	timelineHandlers *TimelineHandlers
	inputHandlers    *InputHandlers

	mu      sync.RWMutex
	clients map[string]*socket.Socket

	lastStateMu sync.Mutex
	lastState   map[string]interface{}
}

// NewServer creates a new Socket.io server.
func NewServer(opts ServerOptions) (*Server, error) {
	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 20 * time.Second
	}
	pingInterval := opts.PingInterval
	if pingInterval <= 0 {
		pingInterval = 25 * time.Second
	}

	// Configure Socket.io server options
	ioOpts := socket.DefaultServerOptions()
	ioOpts.SetPingTimeout(pingTimeout)
	ioOpts.SetPingInterval(pingInterval)
	ioOpts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	server := socket.NewServer(nil, ioOpts)

	window := opts.BroadcastWindow
	if window <= 0 {
		window = defaultBroadcastWindow
	}

	s := &Server{
		io:      server,
		service: opts.Service,
		editor:  opts.Editor,
		bridge:  opts.Bridge,
		clients: make(map[string]*socket.Socket),
	}
	if s.bridge == nil {
		s.bridge = NewBridge()
	}
	if opts.MaxExternalClients > 0 {
		s.limiter = NewConnectionLimiter(opts.MaxExternalClients)
	}
	s.broadcaster = NewBroadcastDebouncer(window, s.BroadcastState, s.BroadcastTimeline)

	s.playerHandlers = NewPlayerHandlers(opts.Service, opts.Previews, s)
	s.timelineHandlers = NewTimelineHandlers(opts.Editor, s)
	s.inputHandlers = NewInputHandlers(opts.Scrubber, opts.Keymap, s)

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers all Socket.io event handlers.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remoteIP := handshakeAddress(client)

		if s.limiter != nil {
			if _, evicted := s.limiter.TryAdd(clientID, remoteIP); evicted != "" {
				s.evictClient(evicted)
			}
		}

		log.Info().Str("id", clientID).Str("addr", remoteIP).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushState(client)
			s.pushTimeline(client)
		}()

		// Handle disconnect
		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()

			if s.limiter != nil {
				s.limiter.Remove(clientID)
			}
			s.bridge.DetachClient(clientID)
		})

		// getSystemInfo - Daemon identity for discovery UIs
		client.On("getSystemInfo", func(args ...any) {
			log.Debug().Str("id", clientID).Msg("getSystemInfo")
			client.Emit("pushSystemInfo", GetSystemInfo())
		})

		s.playerHandlers.RegisterHandlers(client)
		s.timelineHandlers.RegisterHandlers(client)
		s.inputHandlers.RegisterHandlers(client)
		s.bridge.RegisterHandlers(client)
	})
}

// evictClient force-disconnects a client that lost its slot to a newer
// external connection.
func (s *Server) evictClient(clientID string) {
	s.mu.RLock()
	client := s.clients[clientID]
	s.mu.RUnlock()

	if client == nil {
		return
	}
	log.Info().Str("id", clientID).Msg("Evicting oldest external client")
	client.Disconnect(true)
}

// statePayload builds the wire form of the reconciled playback state.
func (s *Server) statePayload() map[string]interface{} {
	state := s.service.GetState()
	payload := map[string]interface{}{
		"playing":     state.Playing,
		"currentTime": state.CurrentTime,
		"duration":    state.Duration,
		"volume":      state.Volume,
		"muted":       state.Muted,
		"rate":        state.Rate,
		"scrubbing":   s.service.IsScrubbing(),
	}
	if ref, loaded := s.service.CurrentMedia(); loaded {
		payload["mediaId"] = ref.ID()
		payload["mediaKind"] = ref.Kind.String()
	}
	if s.service.Unavailable() {
		payload["unavailable"] = true
	}
	return payload
}

// timelinePayload builds the wire form of the timeline.
func (s *Server) timelinePayload() map[string]interface{} {
	return map[string]interface{}{
		"tracks":   s.editor.Tracks(),
		"selected": s.editor.SelectedClip(),
		"duration": s.editor.TotalDuration(),
	}
}

// pushState sends current state to a client.
func (s *Server) pushState(client *socket.Socket) {
	client.Emit("pushState", s.statePayload())
}

// pushTimeline sends the current timeline to a client.
func (s *Server) pushTimeline(client *socket.Socket) {
	client.Emit("pushTimeline", s.timelinePayload())
}

// BroadcastState sends state to all connected clients, unless nothing a
// client cannot interpolate itself has changed since the last push.
func (s *Server) BroadcastState() {
	payload := s.statePayload()
	if s.isStateSame(payload) {
		return
	}
	s.saveLastState(payload)

	s.io.Emit("pushState", payload)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(payload)
		s.mu.RLock()
		clientCount := len(s.clients)
		s.mu.RUnlock()
		log.Debug().RawJSON("state", data).Int("clients", clientCount).Msg("Broadcast state")
	}
}

// BroadcastTimeline sends the timeline to all connected clients.
func (s *Server) BroadcastTimeline() {
	s.io.Emit("pushTimeline", s.timelinePayload())
}

// BroadcastUnavailable tells every client the loaded media produced no
// metadata in time.
func (s *Server) BroadcastUnavailable(mediaID string) {
	log.Warn().Str("media", mediaID).Msg("Media unavailable")
	s.io.Emit("videoUnavailable", map[string]interface{}{
		"mediaId": mediaID,
	})
}

// NotifyStateChanged schedules a debounced state broadcast.
func (s *Server) NotifyStateChanged() {
	s.broadcaster.Trigger("state")
}

// NotifyTimelineChanged schedules a debounced timeline broadcast. Wired
// into the editor's OnChange callback.
func (s *Server) NotifyTimelineChanged() {
	s.broadcaster.Trigger("timeline")
}

// ForceStateBroadcast schedules a state broadcast that bypasses the
// diff. Explicit repositioning must reach every client even though
// position drift alone is suppressed.
func (s *Server) ForceStateBroadcast() {
	s.lastStateMu.Lock()
	s.lastState = nil
	s.lastStateMu.Unlock()
	s.broadcaster.Trigger("state")
}

// StartStateWatcher drains reconciled snapshots from the playback
// service into debounced broadcasts until the context ends.
func (s *Server) StartStateWatcher(ctx context.Context) {
	states := s.service.Watch()

	go func() {
		log.Info().Msg("State watcher started")
		defer s.service.Unwatch(states)
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("State watcher stopped")
				return
			case _, ok := <-states:
				if !ok {
					log.Warn().Msg("State watcher channel closed")
					return
				}
				s.broadcaster.Trigger("state")
			}
		}
	}()
}

// Bridge returns the embedded player bridge.
func (s *Server) Bridge() *Bridge {
	return s.bridge
}

// handshakeAddress returns the client's remote address, or "" when the
// handshake is not available.
func handshakeAddress(client *socket.Socket) string {
	hs := client.Handshake()
	if hs == nil {
		return ""
	}
	return hs.Address
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close stops broadcasting and closes the Socket.io server.
func (s *Server) Close() error {
	s.broadcaster.Stop()
	s.io.Close(nil)
	return nil
}
