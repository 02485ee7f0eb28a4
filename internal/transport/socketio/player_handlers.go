// This file contains playback command and query handlers.
package socketio

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/guard"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/player"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/engine"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/infra/preview"
)

// playTimeout bounds the wait for a play command to be confirmed by the
// backend. Embedded acks normally arrive well inside this; the ceiling
// only matters when the surface never answers.
const playTimeout = 10 * time.Second

// PlayerHandlers handles playback command and query events.
type PlayerHandlers struct {
	service  *player.Service
	previews *preview.Store
	server   *Server
}

// NewPlayerHandlers creates a new PlayerHandlers instance.
func NewPlayerHandlers(svc *player.Service, previews *preview.Store, server *Server) *PlayerHandlers {
	return &PlayerHandlers{
		service:  svc,
		previews: previews,
		server:   server,
	}
}

// RegisterHandlers registers all playback Socket.IO event handlers.
func (h *PlayerHandlers) RegisterHandlers(client *socket.Socket) {
	clientID := string(client.Id())

	// play - Start playback
	client.On("play", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("play")

		ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
		defer cancel()
		if err := h.service.Play(ctx); err != nil {
			reportCommandError(client, clientID, "play", err)
		}
	})

	// pause - Stop playback
	client.On("pause", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("pause")

		if err := h.service.Pause(); err != nil {
			reportCommandError(client, clientID, "pause", err)
		}
	})

	// toggle - Flip between play and pause
	client.On("toggle", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("toggle")

		ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
		defer cancel()
		if err := h.service.TogglePlayback(ctx); err != nil {
			reportCommandError(client, clientID, "toggle", err)
		}
	})

	// seek - Jump to an absolute position in seconds
	client.On("seek", func(args ...any) {
		seconds, ok := numberOrField(args, "value")
		if !ok {
			log.Warn().Str("id", clientID).Interface("data", args).Msg("seek without position")
			return
		}
		log.Debug().Str("id", clientID).Float64("seconds", seconds).Msg("seek")

		if err := h.service.Seek(seconds); err != nil {
			reportCommandError(client, clientID, "seek", err)
			return
		}
		// Repositioning must reach mirrors despite the position diff
		h.server.ForceStateBroadcast()
	})

	// volume - Set volume level (0.0-1.0)
	client.On("volume", func(args ...any) {
		value, ok := numberOrField(args, "value")
		if !ok {
			log.Warn().Str("id", clientID).Interface("data", args).Msg("volume without value")
			return
		}
		log.Debug().Str("id", clientID).Float64("value", value).Msg("volume")

		if err := h.service.SetVolume(value); err != nil {
			reportCommandError(client, clientID, "volume", err)
		}
	})

	// mute - Set or toggle mute
	client.On("mute", func(args ...any) {
		muted, ok := boolArg(args)
		if !ok {
			// No argument means toggle
			muted = !h.service.GetState().Muted
		}
		log.Debug().Str("id", clientID).Bool("muted", muted).Msg("mute")

		if err := h.service.SetMuted(muted); err != nil {
			reportCommandError(client, clientID, "mute", err)
		}
	})

	// setPlaybackRate - Set the rate multiplier
	client.On("setPlaybackRate", func(args ...any) {
		rate, ok := numberOrField(args, "rate")
		if !ok {
			log.Warn().Str("id", clientID).Interface("data", args).Msg("setPlaybackRate without rate")
			return
		}
		log.Debug().Str("id", clientID).Float64("rate", rate).Msg("setPlaybackRate")

		if err := h.service.SetPlaybackRate(rate); err != nil {
			reportCommandError(client, clientID, "setPlaybackRate", err)
		}
	})

	// loadVideo - Load a new media reference
	client.On("loadVideo", func(args ...any) {
		raw := ""
		if len(args) > 0 {
			if s, ok := args[0].(string); ok {
				raw = s
			} else if m, ok := firstMapArg(args); ok {
				raw = getStringFromMap(m, "url", "")
				if raw == "" {
					raw = getStringFromMap(m, "videoId", "")
				}
			}
		}
		if raw == "" {
			log.Warn().Str("id", clientID).Interface("data", args).Msg("loadVideo without reference")
			return
		}
		log.Debug().Str("id", clientID).Str("media", raw).Msg("loadVideo")

		if err := h.service.LoadMedia(raw); err != nil {
			reportCommandError(client, clientID, "loadVideo", err)
			return
		}
		h.server.ForceStateBroadcast()
	})

	// getState - Request current state snapshot
	client.On("getState", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getState")
		h.server.pushState(client)
	})

	// capturePreview - Grab a seek-preview still at the given second.
	// Only the native backend exposes the decoder handle this needs.
	client.On("capturePreview", func(args ...any) {
		seconds, ok := numberOrField(args, "t")
		if !ok || seconds < 0 {
			log.Warn().Str("id", clientID).Interface("data", args).Msg("capturePreview without position")
			return
		}

		ref, loaded := h.service.CurrentMedia()
		if !loaded {
			log.Debug().Str("id", clientID).Msg("capturePreview with no media")
			return
		}
		handle := h.service.EngineHandle()
		if handle == nil {
			log.Debug().Str("id", clientID).Msg("capturePreview needs the native backend")
			return
		}

		if _, err := h.previews.Capture(handle, ref.ID(), int(seconds)); err != nil {
			log.Error().Err(err).Str("media", ref.ID()).Float64("t", seconds).Msg("Preview capture failed")
		}
	})
}

// reportCommandError routes a failed command to the right severity. A
// guard refusal is the system working as intended, not a fault.
func reportCommandError(client *socket.Socket, clientID, command string, err error) {
	switch {
	case errors.Is(err, guard.ErrOperationInFlight):
		log.Debug().Str("id", clientID).Str("command", command).Msg("Command dropped, conflicting operation in flight")
	case errors.Is(err, engine.ErrPlayRejected):
		log.Info().Err(err).Str("id", clientID).Str("command", command).Msg("Playback rejected by backend")
		client.Emit("playRejected", map[string]interface{}{
			"command": command,
			"reason":  err.Error(),
		})
	case errors.Is(err, player.ErrNoMedia):
		log.Debug().Str("id", clientID).Str("command", command).Msg("Command with no media loaded")
	default:
		log.Error().Err(err).Str("id", clientID).Str("command", command).Msg("Command failed")
	}
}

// numberOrField extracts a number sent either bare or under the given
// map key.
func numberOrField(args []any, key string) (float64, bool) {
	if v, ok := firstNumberArg(args); ok {
		return v, true
	}
	if m, ok := firstMapArg(args); ok {
		sentinel := -1.0
		if v := getFloatFromMap(m, key, sentinel); v != sentinel {
			return v, true
		}
	}
	return 0, false
}

// boolArg extracts a boolean sent either bare or under common map keys.
func boolArg(args []any) (bool, bool) {
	if len(args) == 0 {
		return false, false
	}
	if v, ok := args[0].(bool); ok {
		return v, true
	}
	if m, ok := firstMapArg(args); ok {
		if v, ok := m["muted"].(bool); ok {
			return v, true
		}
		if v, ok := m["value"].(bool); ok {
			return v, true
		}
	}
	return false, false
}
