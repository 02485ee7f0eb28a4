// Package socketio provides the Socket.io server for client communication.
package socketio

import (
	"os"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/version"
)

// SystemInfo represents basic daemon and host information.
type SystemInfo struct {
	ID            string `json:"id"`            // Unique instance ID
	Host          string `json:"host"`          // Hostname
	Name          string `json:"name"`          // Display name
	Type          string `json:"type"`          // Service type
	ServiceName   string `json:"serviceName"`   // Service name for discovery
	SystemVersion string `json:"systemversion"` // Daemon version
	BuildDate     string `json:"builddate"`     // Build date
}

// GetSystemInfo returns basic daemon and host information.
func GetSystemInfo() SystemInfo {
	info := SystemInfo{
		Type:          "playback_coordinator",
		ServiceName:   "unpuzzle",
		SystemVersion: version.GetInfo().Version,
		BuildDate:     version.GetInfo().BuildTime,
	}

	// Get hostname
	if hostname, err := os.Hostname(); err == nil {
		info.Host = hostname
		info.Name = hostname
		info.ID = hostname
	}

	return info
}
