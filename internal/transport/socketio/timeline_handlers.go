// This file contains timeline editing and query handlers.
package socketio

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/timeline"
)

// TimelineHandlers handles clip editing and timeline query events.
// Structural changes propagate through the editor's OnChange callback,
// so successful edits here broadcast without any explicit push.
type TimelineHandlers struct {
	editor *timeline.Editor
	server *Server
}

// NewTimelineHandlers creates a new TimelineHandlers instance.
func NewTimelineHandlers(editor *timeline.Editor, server *Server) *TimelineHandlers {
	return &TimelineHandlers{
		editor: editor,
		server: server,
	}
}

// RegisterHandlers registers all timeline Socket.IO event handlers.
func (h *TimelineHandlers) RegisterHandlers(client *socket.Socket) {
	clientID := string(client.Id())

	// getTimeline - Request the current track list
	client.On("getTimeline", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getTimeline")
		h.server.pushTimeline(client)
	})

	// setTimeline - Replace the working track list
	client.On("setTimeline", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("setTimeline")

		tracks, err := parseTracks(args)
		if err != nil {
			log.Warn().Err(err).Str("id", clientID).Msg("setTimeline with malformed tracks")
			return
		}
		h.editor.SetTracks(tracks)
	})

	// moveClip - Reposition a clip's start frame
	client.On("moveClip", func(args ...any) {
		m, ok := firstMapArg(args)
		if !ok {
			return
		}
		id := getStringFromMap(m, "id", "")
		frame := getIntFromMap(m, "startFrame", -1)
		if id == "" || frame < 0 {
			log.Warn().Str("id", clientID).Interface("data", args).Msg("moveClip with malformed payload")
			return
		}
		log.Debug().Str("id", clientID).Str("clip", id).Int("startFrame", frame).Msg("moveClip")

		if err := h.editor.MoveClip(id, frame); err != nil {
			log.Warn().Err(err).Str("clip", id).Msg("MoveClip failed")
		}
	})

	// splitClip - Cut a clip in two at a frame
	client.On("splitClip", func(args ...any) {
		m, ok := firstMapArg(args)
		if !ok {
			return
		}
		id := getStringFromMap(m, "id", "")
		frame := getIntFromMap(m, "frame", -1)
		if id == "" || frame < 0 {
			log.Warn().Str("id", clientID).Interface("data", args).Msg("splitClip with malformed payload")
			return
		}
		log.Debug().Str("id", clientID).Str("clip", id).Int("frame", frame).Msg("splitClip")

		if err := h.editor.SplitClip(id, frame); err != nil {
			log.Warn().Err(err).Str("clip", id).Msg("SplitClip failed")
		}
	})

	// deleteClip - Remove a clip
	client.On("deleteClip", func(args ...any) {
		id := ""
		if len(args) > 0 {
			if s, ok := args[0].(string); ok {
				id = s
			} else if m, ok := firstMapArg(args); ok {
				id = getStringFromMap(m, "id", "")
			}
		}
		if id == "" {
			log.Warn().Str("id", clientID).Interface("data", args).Msg("deleteClip without clip ID")
			return
		}
		log.Debug().Str("id", clientID).Str("clip", id).Msg("deleteClip")

		if err := h.editor.DeleteClip(id); err != nil {
			log.Warn().Err(err).Str("clip", id).Msg("DeleteClip failed")
		}
	})

	// clipPointerDown / Move / Up / Cancel - Clip drag interaction relay
	client.On("clipPointerDown", func(args ...any) {
		m, ok := firstMapArg(args)
		if !ok {
			return
		}
		id := getStringFromMap(m, "id", "")
		if id == "" {
			return
		}
		h.editor.ClipPointerDown(id, getFloatFromMap(m, "x", 0))
	})

	client.On("clipPointerMove", func(args ...any) {
		if m, ok := firstMapArg(args); ok {
			h.editor.ClipPointerMove(getFloatFromMap(m, "x", 0))
		}
	})

	client.On("clipPointerUp", func(args ...any) {
		if m, ok := firstMapArg(args); ok {
			h.editor.ClipPointerUp(getFloatFromMap(m, "x", 0))
		}
	})

	client.On("clipPointerCancel", func(args ...any) {
		h.editor.ClipPointerCancel()
	})
}

// parseTracks decodes a track list sent either bare or under a
// "tracks" key. Round-tripping through JSON turns the transport's
// loose maps into typed tracks.
func parseTracks(args []any) ([]timeline.Track, error) {
	if len(args) == 0 {
		return nil, nil
	}

	payload := args[0]
	if m, ok := payload.(map[string]interface{}); ok {
		if inner, exists := m["tracks"]; exists {
			payload = inner
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var tracks []timeline.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}
