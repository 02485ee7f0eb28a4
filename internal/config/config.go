package config

import "time"

// Config represents the complete daemon configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Timeline TimelineConfig `mapstructure:"timeline"`
	Mpv      MpvConfig      `mapstructure:"mpv"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Progress ProgressConfig `mapstructure:"progress"`
	Preview  PreviewConfig  `mapstructure:"preview"`
}

// ServerConfig contains HTTP/Socket.IO listener settings
type ServerConfig struct {
	Port         int `mapstructure:"port"`
	MaxExternal  int `mapstructure:"max_external"`
	DebounceMs   int `mapstructure:"debounce_ms"`
	PingTimeout  int `mapstructure:"ping_timeout"`  // in seconds
	PingInterval int `mapstructure:"ping_interval"` // in seconds
}

// PlaybackConfig contains playback session settings
type PlaybackConfig struct {
	FrameRate         float64 `mapstructure:"frame_rate"`
	MetadataTimeoutMs int     `mapstructure:"metadata_timeout_ms"`
	ToggleDebounceMs  int     `mapstructure:"toggle_debounce_ms"`
}

// TimelineConfig contains timeline geometry settings
type TimelineConfig struct {
	BasePixelsPerSecond float64 `mapstructure:"base_pixels_per_second"`
	GutterWidth         float64 `mapstructure:"gutter_width"`
	SnapRadius          float64 `mapstructure:"snap_radius"`
	ClickThreshold      float64 `mapstructure:"click_threshold"`
	MinZoom             float64 `mapstructure:"min_zoom"`
	MaxZoom             float64 `mapstructure:"max_zoom"`
}

// MpvConfig contains native engine process settings
type MpvConfig struct {
	Binary    string   `mapstructure:"binary"`
	SocketDir string   `mapstructure:"socket_dir"`
	ExtraArgs []string `mapstructure:"extra_args"`
}

// BridgeConfig contains embedded player bridge settings
type BridgeConfig struct {
	AckTimeoutMs int `mapstructure:"ack_timeout_ms"`
}

// ProgressConfig contains resume-position store settings
type ProgressConfig struct {
	DBPath          string `mapstructure:"db_path"`
	WriteIntervalMs int    `mapstructure:"write_interval_ms"`
}

// PreviewConfig contains seek-preview still cache settings
type PreviewConfig struct {
	Dir          string `mapstructure:"dir"`
	Height       int    `mapstructure:"height"`
	LookupWindow int    `mapstructure:"lookup_window"` // in seconds
}

// MetadataTimeout returns the metadata watchdog deadline as a time.Duration
func (p *PlaybackConfig) MetadataTimeout() time.Duration {
	return time.Duration(p.MetadataTimeoutMs) * time.Millisecond
}

// ToggleDebounce returns the space-toggle debounce window as a time.Duration
func (p *PlaybackConfig) ToggleDebounce() time.Duration {
	return time.Duration(p.ToggleDebounceMs) * time.Millisecond
}

// Debounce returns the broadcast debounce window as a time.Duration
func (s *ServerConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// AckTimeout returns the bridge command ack deadline as a time.Duration
func (b *BridgeConfig) AckTimeout() time.Duration {
	return time.Duration(b.AckTimeoutMs) * time.Millisecond
}

// WriteInterval returns the minimum spacing between resume writes
func (p *ProgressConfig) WriteInterval() time.Duration {
	return time.Duration(p.WriteIntervalMs) * time.Millisecond
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         3000,
			MaxExternal:  8,
			DebounceMs:   40,
			PingTimeout:  20,
			PingInterval: 25,
		},
		Playback: PlaybackConfig{
			FrameRate:         30,
			MetadataTimeoutMs: 10000,
			ToggleDebounceMs:  200,
		},
		Timeline: TimelineConfig{
			BasePixelsPerSecond: 50,
			GutterWidth:         16,
			SnapRadius:          15,
			ClickThreshold:      5,
			MinZoom:             0.25,
			MaxZoom:             8,
		},
		Mpv: MpvConfig{
			Binary:    "mpv",
			SocketDir: "/tmp",
		},
		Bridge: BridgeConfig{
			AckTimeoutMs: 3000,
		},
		Progress: ProgressConfig{
			DBPath:          "data/progress.db",
			WriteIntervalMs: 5000,
		},
		Preview: PreviewConfig{
			Dir:          "data/previews",
			Height:       90,
			LookupWindow: 10,
		},
	}
}
