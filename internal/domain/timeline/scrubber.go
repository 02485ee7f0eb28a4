package timeline

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"
)

// zoomStep is the zoom factor applied per wheel notch.
const zoomStep = 1.25

// SeekTarget receives the scrubber's seek intents. A drag is one
// begin/scrub/end session; a plain click is a single discrete seek.
type SeekTarget interface {
	Seek(seconds float64) error
	BeginScrub() bool
	Scrub(seconds float64)
	EndScrub(seconds float64)
	CancelScrub()
}

type pointerState int

const (
	stateIdle pointerState = iota
	stateArmed
	stateDragging
)

func (s pointerState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateArmed:
		return "armed"
	case stateDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// ScrubberOptions configures a Scrubber.
type ScrubberOptions struct {
	Ruler  *Ruler
	Target SeekTarget

	// Playhead supplies the reconciled playback position in seconds.
	Playhead func() float64

	// MaxSeconds supplies the upper seek bound. 0 means unknown and
	// leaves seeks unclamped at the top.
	MaxSeconds func() float64

	// SnapRadius is the pixel distance within which a pointer-down
	// grabs the playhead instead of seeking.
	SnapRadius float64
}

// Scrubber turns ruler pointer and wheel input into seek, drag and
// zoom intents. One pointer interaction walks idle, armed, dragging
// and back; a pointer-down away from the playhead seeks immediately.
// It is safe for concurrent use.
type Scrubber struct {
	mu         sync.Mutex
	ruler      *Ruler
	target     SeekTarget
	playhead   func() float64
	maxSeconds func() float64
	snapRadius float64

	state    pointerState
	dragTime float64
}

// NewScrubber creates a scrubber in the idle state.
func NewScrubber(opts ScrubberOptions) *Scrubber {
	s := &Scrubber{
		ruler:      opts.Ruler,
		target:     opts.Target,
		playhead:   opts.Playhead,
		maxSeconds: opts.MaxSeconds,
		snapRadius: opts.SnapRadius,
	}
	if s.ruler == nil {
		s.ruler = NewRuler(RulerOptions{})
	}
	if s.playhead == nil {
		s.playhead = func() float64 { return 0 }
	}
	if s.maxSeconds == nil {
		s.maxSeconds = func() float64 { return 0 }
	}
	if s.snapRadius <= 0 {
		s.snapRadius = 15
	}
	return s
}

// PointerDown handles a pointer-down on the ruler. Within the snap
// radius of the playhead it grabs the playhead for dragging; anywhere
// else it seeks to the clicked time at once.
func (s *Scrubber) PointerDown(x float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateIdle {
		return
	}

	playheadAt := s.playhead()
	if math.Abs(x-s.ruler.PixelAtTime(playheadAt)) <= s.snapRadius {
		if !s.target.BeginScrub() {
			log.Debug().Msg("Playhead grab rejected, seek in flight")
			return
		}
		s.state = stateArmed
		s.dragTime = playheadAt
		return
	}

	if err := s.target.Seek(s.clampedTimeAt(x)); err != nil {
		log.Debug().Err(err).Msg("Ruler click seek dropped")
	}
}

// PointerMove advances an active interaction. The first move after a
// grab enters the drag; every move during a drag scrubs live.
func (s *Scrubber) PointerMove(x float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateArmed:
		s.state = stateDragging
		fallthrough
	case stateDragging:
		s.dragTime = s.clampedTimeAt(x)
		s.target.Scrub(s.dragTime)
	}
}

// PointerUp ends an interaction. A grab released without movement
// leaves the playhead where it was.
func (s *Scrubber) PointerUp(x float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateArmed:
		s.target.CancelScrub()
	case stateDragging:
		s.dragTime = s.clampedTimeAt(x)
		s.target.EndScrub(s.dragTime)
	}
	s.state = stateIdle
}

// PointerCancel force-ends an interaction, seeking to the last known
// drag position. The scrubber always re-enters idle.
func (s *Scrubber) PointerCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateArmed:
		s.target.CancelScrub()
	case stateDragging:
		s.target.EndScrub(s.dragTime)
	}
	s.state = stateIdle
}

// Wheel applies wheel input: with the zoom modifier it rescales around
// the pointer, without it it pans the ruler.
func (s *Scrubber) Wheel(deltaY float64, x float64, zoomModifier bool) {
	if !zoomModifier {
		s.ruler.ScrollBy(deltaY)
		return
	}

	zoom := s.ruler.Zoom()
	if deltaY < 0 {
		zoom *= zoomStep
	} else {
		zoom /= zoomStep
	}
	s.ruler.ZoomAt(zoom, x)
}

// Position returns the scrubber position: the live drag position
// during a drag, the reconciled playhead otherwise.
func (s *Scrubber) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateDragging {
		return s.dragTime
	}
	return s.playhead()
}

// Dragging reports whether a pointer interaction is active.
func (s *Scrubber) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != stateIdle
}

func (s *Scrubber) clampedTimeAt(x float64) float64 {
	t := s.ruler.SnapToFrame(s.ruler.TimeAtPixel(x))
	if t < 0 {
		return 0
	}
	if limit := s.maxSeconds(); limit > 0 && t > limit {
		return limit
	}
	return t
}
