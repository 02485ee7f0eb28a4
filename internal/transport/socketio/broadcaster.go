package socketio

import (
	"sync"
	"time"
)

// BroadcastDebouncer collapses rapid state mutations into batched broadcasts.
// A burst of changes within the debounce window results in a single broadcast
// for each affected kind (state and/or timeline).
type BroadcastDebouncer struct {
	window           time.Duration
	stateCallback    func()
	timelineCallback func()

	mu              sync.Mutex
	pendingState    bool
	pendingTimeline bool
	timer           *time.Timer
	stopped         bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
// stateCallback is called when playback state needs broadcasting.
// timelineCallback is called when the timeline structure needs broadcasting.
func NewBroadcastDebouncer(window time.Duration, stateCallback, timelineCallback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:           window,
		stateCallback:    stateCallback,
		timelineCallback: timelineCallback,
	}
}

// Trigger records that the given kind of data has changed.
// The actual broadcast callbacks are deferred until the debounce window elapses
// without further triggers.
func (d *BroadcastDebouncer) Trigger(kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	switch kind {
	case "state":
		d.pendingState = true
	case "timeline":
		// Edits shift clip boundaries, so the playback state view changes too.
		d.pendingState = true
		d.pendingTimeline = true
	}

	// Reset the timer
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush fires callbacks for any pending flags and resets them.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	doState := d.pendingState
	doTimeline := d.pendingTimeline
	d.pendingState = false
	d.pendingTimeline = false
	d.mu.Unlock()

	if doState && d.stateCallback != nil {
		d.stateCallback()
	}
	if doTimeline && d.timelineCallback != nil {
		d.timelineCallback()
	}
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pendingState = false
	d.pendingTimeline = false
}
