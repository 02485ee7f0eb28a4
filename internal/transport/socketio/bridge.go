package socketio

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
)

// ErrNoBridgeClient is returned when a command is emitted while no client
// has registered as the embedded player surface.
var ErrNoBridgeClient = errors.New("socketio: no embedded player client attached")

// RemoteSink receives player events and command acknowledgments relayed
// from the embedded player surface.
type RemoteSink interface {
	HandleRemoteEvent(name string, payload map[string]interface{})
	HandleAck(requestID string, ok bool, reason string)
}

// Bridge connects the embedded web player to the playback service. Exactly
// one connected client owns the player surface at a time: commands flow out
// to it over "player:command", and events and acks flow back in over
// "player:event" and "player:ack".
type Bridge struct {
	mu       sync.Mutex
	client   *socket.Socket
	clientID string
	sink     RemoteSink
}

// NewBridge creates a bridge with no attached client or engine.
func NewBridge() *Bridge {
	return &Bridge{}
}

// AttachClient registers the given client as the embedded player surface.
// A later registration replaces an earlier one; the frontend that actually
// hosts the player iframe is the one that registers.
func (b *Bridge) AttachClient(client *socket.Socket) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil && b.clientID != string(client.Id()) {
		log.Info().Str("old", b.clientID).Str("new", string(client.Id())).Msg("Embedded player surface replaced")
	}
	b.client = client
	b.clientID = string(client.Id())
}

// DetachClient clears the player surface if it is still owned by the given
// client ID. A stale disconnect never detaches a newer registration.
func (b *Bridge) DetachClient(clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.clientID == clientID {
		b.client = nil
		b.clientID = ""
	}
}

// AttachEngine routes relayed events and acks to the given sink.
func (b *Bridge) AttachEngine(sink RemoteSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

// DetachEngine stops routing events. Relayed events arriving afterwards
// are dropped.
func (b *Bridge) DetachEngine() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = nil
}

// HasClient reports whether a player surface is currently attached.
func (b *Bridge) HasClient() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client != nil
}

// EmitCommand sends a command to the attached player surface. The payload
// travels nested so the frontend can forward it to the player verbatim.
func (b *Bridge) EmitCommand(requestID, name string, payload map[string]interface{}) error {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()

	if client == nil {
		return ErrNoBridgeClient
	}

	msg := map[string]interface{}{
		"requestId": requestID,
		"name":      name,
	}
	if payload != nil {
		msg["payload"] = payload
	}
	client.Emit("player:command", msg)
	return nil
}

// RelayEvent forwards a player event to the attached engine.
func (b *Bridge) RelayEvent(name string, payload map[string]interface{}) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()

	if sink == nil {
		log.Debug().Str("event", name).Msg("Dropping player event, no engine attached")
		return
	}
	sink.HandleRemoteEvent(name, payload)
}

// RelayAck forwards a command acknowledgment to the attached engine.
func (b *Bridge) RelayAck(requestID string, ok bool, reason string) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()

	if sink == nil {
		log.Debug().Str("requestId", requestID).Msg("Dropping player ack, no engine attached")
		return
	}
	sink.HandleAck(requestID, ok, reason)
}

// RegisterHandlers wires the player surface events for a connected client.
// Events from clients other than the attached surface are ignored.
func (b *Bridge) RegisterHandlers(client *socket.Socket) {
	clientID := string(client.Id())

	// player:register - Claim the embedded player surface
	client.On("player:register", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("player:register")
		b.AttachClient(client)
	})

	// player:event - Playback events from the embedded player
	client.On("player:event", func(args ...any) {
		if !b.ownsSurface(clientID) {
			log.Debug().Str("id", clientID).Msg("Ignoring player event from non-surface client")
			return
		}

		m, ok := firstMapArg(args)
		if !ok {
			return
		}
		name := getStringFromMap(m, "name", "")
		if name == "" {
			return
		}

		// Tolerate both nested and flat payload shapes
		payload, _ := m["payload"].(map[string]interface{})
		if payload == nil {
			payload = m
		}
		b.RelayEvent(name, payload)
	})

	// player:ack - Command acknowledgments from the embedded player
	client.On("player:ack", func(args ...any) {
		if !b.ownsSurface(clientID) {
			log.Debug().Str("id", clientID).Msg("Ignoring player ack from non-surface client")
			return
		}

		m, ok := firstMapArg(args)
		if !ok {
			return
		}
		requestID := getStringFromMap(m, "requestId", "")
		if requestID == "" {
			return
		}
		b.RelayAck(requestID, getBoolFromMap(m, "ok", false), getStringFromMap(m, "reason", ""))
	})
}

// ownsSurface reports whether the given client ID currently owns the
// player surface.
func (b *Bridge) ownsSurface(clientID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clientID == clientID
}
