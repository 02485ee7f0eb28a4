// This file contains raw input relay handlers: pointer gestures on the
// timeline surface and keyboard shortcuts.
package socketio

import (
	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/timeline"
)

// InputHandlers relays pointer and keyboard input into the scrubber and
// keymap. The frontend forwards raw events; all gesture interpretation
// happens server-side.
type InputHandlers struct {
	scrubber *timeline.Scrubber
	keymap   *Keymap
	server   *Server
}

// NewInputHandlers creates a new InputHandlers instance.
func NewInputHandlers(scrubber *timeline.Scrubber, keymap *Keymap, server *Server) *InputHandlers {
	return &InputHandlers{
		scrubber: scrubber,
		keymap:   keymap,
		server:   server,
	}
}

// RegisterHandlers registers all input relay Socket.IO event handlers.
func (h *InputHandlers) RegisterHandlers(client *socket.Socket) {
	clientID := string(client.Id())

	// timelinePointerDown / Move / Up / Cancel - Scrub gesture relay.
	// Down and up may reposition the playhead, so they force the next
	// state push through the diff.
	client.On("timelinePointerDown", func(args ...any) {
		if m, ok := firstMapArg(args); ok {
			h.scrubber.PointerDown(getFloatFromMap(m, "x", 0))
			h.server.ForceStateBroadcast()
		}
	})

	client.On("timelinePointerMove", func(args ...any) {
		if m, ok := firstMapArg(args); ok {
			h.scrubber.PointerMove(getFloatFromMap(m, "x", 0))
		}
	})

	client.On("timelinePointerUp", func(args ...any) {
		if m, ok := firstMapArg(args); ok {
			h.scrubber.PointerUp(getFloatFromMap(m, "x", 0))
			h.server.ForceStateBroadcast()
		}
	})

	client.On("timelinePointerCancel", func(args ...any) {
		h.scrubber.PointerCancel()
	})

	// timelineWheel - Zoom with the modifier held, pan without
	client.On("timelineWheel", func(args ...any) {
		m, ok := firstMapArg(args)
		if !ok {
			return
		}
		h.scrubber.Wheel(
			getFloatFromMap(m, "deltaY", 0),
			getFloatFromMap(m, "x", 0),
			getBoolFromMap(m, "zoom", false),
		)
	})

	// keydown - Keyboard shortcut relay
	client.On("keydown", func(args ...any) {
		m, ok := firstMapArg(args)
		if !ok {
			return
		}
		key := getStringFromMap(m, "key", "")
		if key == "" {
			return
		}
		shift := getBoolFromMap(m, "shift", false)
		log.Debug().Str("id", clientID).Str("key", key).Bool("shift", shift).Msg("keydown")

		if err := h.keymap.HandleKey(key, shift); err != nil {
			reportCommandError(client, clientID, "keydown:"+key, err)
			return
		}
		if key == "ArrowLeft" || key == "ArrowRight" {
			h.server.ForceStateBroadcast()
		}
	})
}
