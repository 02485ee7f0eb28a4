// Package mpv manages a local mpv process over its JSON-IPC socket.
package mpv

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	maxRetries   = 3
	retryDelay   = 100 * time.Millisecond
	readDeadline = 1 * time.Second
	readBufSize  = 4096

	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitTimeout       = 3 * time.Second
)

// ipcCommand is the JSON structure sent to mpv's IPC socket.
type ipcCommand struct {
	Command []interface{} `json:"command"`
}

// ipcResponse is the JSON structure received from mpv's IPC socket.
type ipcResponse struct {
	Data  interface{} `json:"data"`
	Error string      `json:"error"`
}

// Client spawns and controls one mpv process. Commands travel as
// newline-delimited JSON over a Unix domain socket.
type Client struct {
	mu         sync.Mutex
	binary     string
	socketDir  string
	extraArgs  []string
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{}
}

// NewClient creates a client for the given mpv binary. The process is
// not started until Start.
func NewClient(binary, socketDir string, extraArgs []string) *Client {
	if binary == "" {
		binary = "mpv"
	}
	if socketDir == "" {
		socketDir = os.TempDir()
	}
	return &Client{
		binary:    binary,
		socketDir: socketDir,
		extraArgs: extraArgs,
		exited:    make(chan struct{}),
	}
}

// Start launches mpv paused on the given media and waits for the IPC
// socket to accept connections.
func (c *Client) Start(media string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return fmt.Errorf("generate socket name: %w", err)
		}
		c.socketPath = filepath.Join(c.socketDir, fmt.Sprintf("unpuzzle-mpv-%x.sock", randomBytes))
	}

	args := []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", c.socketPath),
		"--idle=yes",
		"--pause",
		"--keep-open=yes",
	}
	args = append(args, c.extraArgs...)
	args = append(args, media)

	c.cmd = exec.Command(c.binary, args...)
	c.cmd.Stdout = nil
	c.cmd.Stderr = nil
	c.cmd.Stdin = nil

	log.Info().Str("binary", c.binary).Str("socket", c.socketPath).Msg("Starting mpv")

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	c.exited = make(chan struct{})
	cmd := c.cmd
	exited := c.exited
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	if err := c.waitForSocket(); err != nil {
		select {
		case <-c.exited:
		default:
			log.Warn().Msg("Killing mpv, socket never became ready")
			_ = c.cmd.Process.Kill()
		}
		return fmt.Errorf("mpv socket not ready: %w", err)
	}

	return nil
}

// waitForSocket polls until the mpv IPC socket accepts connections.
func (c *Client) waitForSocket() error {
	for i := 0; i < socketWaitRetries; i++ {
		time.Sleep(socketWaitDelay)

		select {
		case <-c.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		default:
		}

		conn, err := net.Dial("unix", c.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", c.socketPath, socketWaitRetries)
}

// SendCommand sends a JSON-IPC command to mpv, retrying transient
// connection errors.
func (c *Client) SendCommand(command []interface{}) (interface{}, error) {
	c.mu.Lock()
	socketPath := c.socketPath
	c.mu.Unlock()

	if socketPath == "" {
		return nil, fmt.Errorf("mpv not started")
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		result, err := sendCommand(socketPath, command)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("ipc command failed after %d attempts: %w", maxRetries, lastErr)
}

// sendCommand performs a single IPC command attempt on a fresh
// connection. mpv requires newline-delimited JSON.
func sendCommand(socketPath string, command []interface{}) (interface{}, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	payload, err := json.Marshal(ipcCommand{Command: command})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	buf := make([]byte, readBufSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var resp ipcResponse
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	if resp.Error != "" && resp.Error != "success" {
		return nil, fmt.Errorf("mpv error: %s", resp.Error)
	}

	return resp.Data, nil
}

// LoadFile replaces the current media.
func (c *Client) LoadFile(media string) error {
	_, err := c.SendCommand([]interface{}{"loadfile", media, "replace"})
	return err
}

// Seek moves playback to an absolute position in seconds.
func (c *Client) Seek(seconds float64) error {
	_, err := c.SendCommand([]interface{}{"seek", seconds, "absolute"})
	return err
}

// SetProperty sets an mpv property.
func (c *Client) SetProperty(name string, value interface{}) error {
	_, err := c.SendCommand([]interface{}{"set_property", name, value})
	return err
}

// Screenshot writes the current video frame to the given path.
func (c *Client) Screenshot(path string) error {
	_, err := c.SendCommand([]interface{}{"screenshot-to-file", path, "video"})
	return err
}

// GetFloat retrieves a float64 mpv property.
func (c *Client) GetFloat(name string) (float64, error) {
	data, err := c.SendCommand([]interface{}{"get_property", name})
	if err != nil {
		return 0, err
	}
	val, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: expected float64, got %T", name, data)
	}
	return val, nil
}

// GetBool retrieves a boolean mpv property.
func (c *Client) GetBool(name string) (bool, error) {
	data, err := c.SendCommand([]interface{}{"get_property", name})
	if err != nil {
		return false, err
	}
	val, ok := data.(bool)
	if !ok {
		return false, fmt.Errorf("property %s: expected bool, got %T", name, data)
	}
	return val, nil
}

// SocketPath returns the IPC socket path.
func (c *Client) SocketPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socketPath
}

// Exited returns a channel closed when the mpv process exits.
func (c *Client) Exited() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exited
}

// Close quits mpv, force-killing it if the graceful quit stalls, and
// removes the socket file.
func (c *Client) Close() error {
	c.mu.Lock()
	socketPath := c.socketPath
	cmd := c.cmd
	exited := c.exited
	c.mu.Unlock()

	if socketPath == "" {
		return nil
	}

	_, _ = c.SendCommand([]interface{}{"quit"})

	if cmd != nil {
		select {
		case <-exited:
		case <-time.After(quitTimeout):
			log.Warn().Msg("mpv did not quit, killing")
			_ = cmd.Process.Kill()
		}
	}

	_ = os.Remove(socketPath)
	return nil
}
