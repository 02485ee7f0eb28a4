package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Load reads the configuration from unpuzzle.toml and returns a Config struct.
// A missing config file is not an error; defaults cover every setting.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("unpuzzle")
		v.SetConfigType("toml")
		v.AddConfigPath("$HOME/.config/unpuzzle/")
		v.AddConfigPath(".")
	}

	// Set defaults from DefaultConfig
	defaults := DefaultConfig()
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.max_external", defaults.Server.MaxExternal)
	v.SetDefault("server.debounce_ms", defaults.Server.DebounceMs)
	v.SetDefault("server.ping_timeout", defaults.Server.PingTimeout)
	v.SetDefault("server.ping_interval", defaults.Server.PingInterval)
	v.SetDefault("playback.frame_rate", defaults.Playback.FrameRate)
	v.SetDefault("playback.metadata_timeout_ms", defaults.Playback.MetadataTimeoutMs)
	v.SetDefault("playback.toggle_debounce_ms", defaults.Playback.ToggleDebounceMs)
	v.SetDefault("timeline.base_pixels_per_second", defaults.Timeline.BasePixelsPerSecond)
	v.SetDefault("timeline.gutter_width", defaults.Timeline.GutterWidth)
	v.SetDefault("timeline.snap_radius", defaults.Timeline.SnapRadius)
	v.SetDefault("timeline.click_threshold", defaults.Timeline.ClickThreshold)
	v.SetDefault("timeline.min_zoom", defaults.Timeline.MinZoom)
	v.SetDefault("timeline.max_zoom", defaults.Timeline.MaxZoom)
	v.SetDefault("mpv.binary", defaults.Mpv.Binary)
	v.SetDefault("mpv.socket_dir", defaults.Mpv.SocketDir)
	v.SetDefault("bridge.ack_timeout_ms", defaults.Bridge.AckTimeoutMs)
	v.SetDefault("progress.db_path", defaults.Progress.DBPath)
	v.SetDefault("progress.write_interval_ms", defaults.Progress.WriteIntervalMs)
	v.SetDefault("preview.dir", defaults.Preview.Dir)
	v.SetDefault("preview.height", defaults.Preview.Height)
	v.SetDefault("preview.lookup_window", defaults.Preview.LookupWindow)

	// Read config file if one exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Playback.FrameRate <= 0 {
		return fmt.Errorf("invalid playback.frame_rate: %f", c.Playback.FrameRate)
	}
	if c.Timeline.MinZoom <= 0 || c.Timeline.MaxZoom < c.Timeline.MinZoom {
		return fmt.Errorf("invalid timeline zoom bounds: %f..%f", c.Timeline.MinZoom, c.Timeline.MaxZoom)
	}
	return nil
}
