package mpv

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeServer answers IPC commands like an mpv socket would.
type fakeServer struct {
	ln       net.Listener
	mu       sync.Mutex
	eventsCh chan net.Conn
	commands []string
}

func newFakeServer(t *testing.T, sock string, commandConns int) *fakeServer {
	t.Helper()

	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	f := &fakeServer{
		ln:       ln,
		eventsCh: make(chan net.Conn, 1),
	}

	go func() {
		for i := 0; ; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			if i < commandConns {
				go f.handleCommand(conn)
			} else {
				f.eventsCh <- conn
			}
		}
	}()

	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeServer) handleCommand(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		f.mu.Lock()
		f.commands = append(f.commands, strings.TrimSpace(line))
		f.mu.Unlock()

		resp, _ := json.Marshal(map[string]interface{}{"data": 42.5, "error": "success"})
		if _, err := conn.Write(append(resp, '\n')); err != nil {
			return
		}
	}
}

func (f *fakeServer) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func TestSendCommand(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "mpv.sock")
	srv := newFakeServer(t, sock, 1)

	data, err := sendCommand(sock, []interface{}{"get_property", "duration"})
	if err != nil {
		t.Fatalf("sendCommand failed: %v", err)
	}
	if data != 42.5 {
		t.Errorf("expected 42.5, got %v", data)
	}

	cmds := srv.received()
	if len(cmds) != 1 || !strings.Contains(cmds[0], "get_property") {
		t.Errorf("unexpected commands received: %v", cmds)
	}
}

func TestSendCommandPropertyError(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "mpv.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		reader := bufio.NewReader(conn)
		if _, err := reader.ReadString('\n'); err != nil {
			return
		}
		resp, _ := json.Marshal(map[string]interface{}{"error": "property unavailable"})
		conn.Write(append(resp, '\n'))
	}()

	_, err = sendCommand(sock, []interface{}{"get_property", "time-pos"})
	if err == nil || !strings.Contains(err.Error(), "property unavailable") {
		t.Errorf("expected property unavailable error, got %v", err)
	}
}

func TestSendCommandNoSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "missing.sock")

	if _, err := sendCommand(sock, []interface{}{"get_property", "pause"}); err == nil {
		t.Error("expected error for a missing socket")
	}
}

func TestClientSendCommandBeforeStart(t *testing.T) {
	c := NewClient("", "", nil)

	if _, err := c.SendCommand([]interface{}{"get_property", "pause"}); err == nil {
		t.Error("expected error before Start")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", "", nil)

	if c.binary != "mpv" {
		t.Errorf("expected default binary mpv, got %q", c.binary)
	}
	if c.socketDir == "" {
		t.Error("expected a default socket dir")
	}
}

func TestEventListener(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "mpv.sock")
	srv := newFakeServer(t, sock, len(observedProperties))

	var mu sync.Mutex
	type received struct {
		property string
		data     interface{}
	}
	var got []received

	el := NewEventListener(sock, func(property string, data interface{}) {
		mu.Lock()
		got = append(got, received{property, data})
		mu.Unlock()
	})

	if err := el.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer el.Stop()

	var eventConn net.Conn
	select {
	case eventConn = <-srv.eventsCh:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never opened the event connection")
	}

	// One complete line, then a second line split across two writes to
	// exercise remainder carry-over.
	eventConn.Write([]byte(`{"event":"property-change","id":1,"name":"time-pos","data":12.3}` + "\n" +
		`{"event":"property-change","id":3,"na`))
	time.Sleep(50 * time.Millisecond)
	eventConn.Write([]byte(`me":"pause","data":true}` + "\n"))

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d: %v", len(got), got)
	}
	if got[0].property != "time-pos" || got[0].data != 12.3 {
		t.Errorf("unexpected first event: %+v", got[0])
	}
	if got[1].property != "pause" || got[1].data != true {
		t.Errorf("unexpected second event: %+v", got[1])
	}

	// Every observed property was registered
	cmds := srv.received()
	if len(cmds) != len(observedProperties) {
		t.Errorf("expected %d observe commands, got %d", len(observedProperties), len(cmds))
	}
	for _, cmd := range cmds {
		if !strings.Contains(cmd, "observe_property") {
			t.Errorf("unexpected command: %s", cmd)
		}
	}
}
