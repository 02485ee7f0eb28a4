// Package main is the entry point for the Unpuzzle playback coordination daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/config"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/guard"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/player"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/timeline"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/engine"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/infra/preview"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/infra/progress"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/transport/socketio"
	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/version"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to config file (optional)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	media := flag.String("media", "", "Media reference to load on startup (optional)")
	staticDir := flag.String("static", "", "Directory to serve static files from (optional)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Playback Coordination Daemon")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Int("port", cfg.Server.Port).
		Float64("frame_rate", cfg.Playback.FrameRate).
		Str("progress_db", cfg.Progress.DBPath).
		Str("preview_dir", cfg.Preview.Dir).
		Msg("Configuration")

	// Open resume-position store
	progressStore := progress.NewStore(cfg.Progress.DBPath)
	if err := progressStore.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to open progress database")
	}
	defer progressStore.Close()

	tracker := progress.NewTracker(progressStore,
		progress.WithWriteInterval(cfg.Progress.WriteInterval()))

	// Seek-preview still cache
	previews := preview.NewStore(cfg.Preview.Dir, cfg.Preview.Height, cfg.Preview.LookupWindow)

	// Playback core
	opGuard := guard.NewGuard()
	coordinator := player.NewCoordinator()
	intent := player.NewStore(player.SourceUserIntent, player.PriorityUserIntent)
	bridge := socketio.NewBridge()

	factory := func(ref engine.MediaRef, events engine.Events) (engine.Engine, error) {
		switch ref.Kind {
		case engine.KindEmbedded:
			eng := engine.NewEmbedded(ref.VideoID, bridge, events, engine.EmbeddedOptions{
				AckTimeout: cfg.Bridge.AckTimeout(),
			})
			bridge.AttachEngine(eng)
			return eng, nil
		default:
			bridge.DetachEngine()
			return engine.NewNative(ref.URL, engine.NativeOptions{
				Binary:    cfg.Mpv.Binary,
				SocketDir: cfg.Mpv.SocketDir,
				ExtraArgs: cfg.Mpv.ExtraArgs,
			}, events)
		}
	}

	// Assigned below; the hooks and the editor callback close over it
	var socketServer *socketio.Server

	svc := player.NewService(opGuard, coordinator, intent, factory,
		player.WithFrameRate(cfg.Playback.FrameRate),
		player.WithMetadataTimeout(cfg.Playback.MetadataTimeout()),
		player.WithHooks(player.Hooks{
			OnTimeUpdate: tracker.RecordTime,
			OnPause:      tracker.RecordPause,
			OnEnded:      tracker.RecordEnded,
			OnUnavailable: func(mediaID string) {
				if socketServer != nil {
					socketServer.BroadcastUnavailable(mediaID)
				}
			},
		}),
	)
	defer svc.Close()

	// Timeline geometry and editing
	ruler := timeline.NewRuler(timeline.RulerOptions{
		BasePixelsPerSecond: cfg.Timeline.BasePixelsPerSecond,
		GutterWidth:         cfg.Timeline.GutterWidth,
		FrameRate:           cfg.Playback.FrameRate,
		MinZoom:             cfg.Timeline.MinZoom,
		MaxZoom:             cfg.Timeline.MaxZoom,
	})
	editor := timeline.NewEditor(timeline.EditorOptions{
		Ruler:          ruler,
		ClickThreshold: cfg.Timeline.ClickThreshold,
		OnChange: func() {
			if socketServer != nil {
				socketServer.NotifyTimelineChanged()
			}
		},
	})
	scrubber := timeline.NewScrubber(timeline.ScrubberOptions{
		Ruler:  ruler,
		Target: svc,
		Playhead: func() float64 {
			return svc.GetState().CurrentTime
		},
		MaxSeconds: func() float64 {
			// The edited timeline bounds the scrub range once clips
			// exist; otherwise the media duration does.
			if d := editor.TotalDuration(); d > 0 {
				return d
			}
			return svc.GetState().Duration
		},
		SnapRadius: cfg.Timeline.SnapRadius,
	})
	keymap := socketio.NewKeymap(socketio.KeymapOptions{
		Controls:      svc,
		Ruler:         ruler,
		Editor:        editor,
		SpaceDebounce: cfg.Playback.ToggleDebounce(),
	})

	// Create Socket.io server
	socketServer, err = socketio.NewServer(socketio.ServerOptions{
		Service:            svc,
		Editor:             editor,
		Scrubber:           scrubber,
		Keymap:             keymap,
		Previews:           previews,
		Bridge:             bridge,
		MaxExternalClients: cfg.Server.MaxExternal,
		BroadcastWindow:    cfg.Server.Debounce(),
		PingTimeout:        time.Duration(cfg.Server.PingTimeout) * time.Second,
		PingInterval:       time.Duration(cfg.Server.PingInterval) * time.Second,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	socketServer.StartStateWatcher(ctx)

	// Load initial media if given
	if *media != "" {
		if err := svc.LoadMedia(*media); err != nil {
			log.Error().Err(err).Str("media", *media).Msg("Initial media load failed")
		}
	}

	// Setup HTTP server
	mux := http.NewServeMux()

	// Socket.io endpoint
	mux.Handle("/socket.io/", socketServer)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, loaded := svc.CurrentMedia(); loaded {
			w.Write([]byte(`{"status":"ok","media":"loaded"}`))
			return
		}
		w.Write([]byte(`{"status":"ok","media":"none"}`))
	})

	// Version endpoint
	mux.HandleFunc("/api/v1/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(version.GetInfo())
	})

	// Basic state endpoint (REST fallback)
	mux.HandleFunc("/api/v1/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(svc.GetState())
	})

	// Recently watched media with stored resume positions
	mux.HandleFunc("/api/v1/recent", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		positions, err := progressStore.Recent(limit)
		if err != nil {
			log.Error().Err(err).Msg("Recent positions query failed")
			http.Error(w, "store error", http.StatusInternalServerError)
			return
		}
		if positions == nil {
			positions = []progress.Position{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(positions)
	})

	// Seek-preview stills
	mux.Handle("/preview", previews.Handler())

	// Serve static files if directory specified (SPA mode)
	if *staticDir != "" {
		log.Info().Str("dir", *staticDir).Msg("Serving static files")
		fs := http.FileServer(http.Dir(*staticDir))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			// Check if the file exists
			path := *staticDir + r.URL.Path
			if r.URL.Path == "/" {
				path = *staticDir + "/index.html"
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				// For SPA routing, serve index.html for non-existing paths
				http.ServeFile(w, r, *staticDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
	}

	// Start HTTP server
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
