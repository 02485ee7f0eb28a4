package timeline

import (
	"errors"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

var (
	// ErrClipNotFound is returned when a clip ID matches nothing.
	ErrClipNotFound = errors.New("clip not found")

	// ErrSplitOutOfRange is returned when a split frame does not fall
	// strictly inside the clip.
	ErrSplitOutOfRange = errors.New("split point outside clip")
)

// EditorOptions configures an Editor.
type EditorOptions struct {
	Ruler *Ruler

	// ClickThreshold is the pointer travel in pixels below which a
	// down/up pair counts as a click instead of a drag.
	ClickThreshold float64

	// OnChange fires after every structural mutation: move, split,
	// delete, selection change, new clip list.
	OnChange func()
}

// Editor holds the working copy of the timeline's tracks and clips and
// applies edits to it. It is safe for concurrent use.
type Editor struct {
	mu             sync.Mutex
	ruler          *Ruler
	clickThreshold float64
	onChange       func()

	tracks   []Track
	selected string

	dragClipID string
	dragStartX float64
	dragOrigin int
	dragMoved  bool
}

// NewEditor creates an editor with no tracks.
func NewEditor(opts EditorOptions) *Editor {
	e := &Editor{
		ruler:          opts.Ruler,
		clickThreshold: opts.ClickThreshold,
		onChange:       opts.OnChange,
	}
	if e.ruler == nil {
		e.ruler = NewRuler(RulerOptions{})
	}
	if e.clickThreshold <= 0 {
		e.clickThreshold = 5
	}
	return e
}

// SetTracks replaces the working copy of the track list.
func (e *Editor) SetTracks(tracks []Track) {
	e.mu.Lock()
	e.tracks = copyTracks(tracks)
	e.selected = ""
	e.mu.Unlock()

	e.notify()
}

// Tracks returns a copy of the track list.
func (e *Editor) Tracks() []Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyTracks(e.tracks)
}

// Clips returns every clip across all tracks.
func (e *Editor) Clips() []Clip {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clipsLocked()
}

// SelectedClip returns the selected clip ID, or "" when none is.
func (e *Editor) SelectedClip() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// TotalFrames returns the end of the furthest clip.
func (e *Editor) TotalFrames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalFramesLocked()
}

// TotalDuration returns the timeline length in seconds.
func (e *Editor) TotalDuration() float64 {
	return e.ruler.TimeAtFrame(e.TotalFrames())
}

// ClipAt returns the clip containing the given frame, if any.
func (e *Editor) ClipAt(frame int) (Clip, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return lo.Find(e.clipsLocked(), func(c Clip) bool {
		return c.Contains(frame)
	})
}

// MoveClip repositions a clip's start frame, clamped at 0.
func (e *Editor) MoveClip(id string, newStartFrame int) error {
	e.mu.Lock()
	err := e.moveLocked(id, newStartFrame)
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.notify()
	return nil
}

// SplitClip cuts a clip in two at the given frame. The left half keeps
// the original ID, the right half gets a fresh one. The split frame
// must fall strictly inside the clip so both halves keep at least one
// frame.
func (e *Editor) SplitClip(id string, atFrame int) error {
	e.mu.Lock()
	err := e.splitLocked(id, atFrame)
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.notify()
	return nil
}

// SplitAt splits whichever clip contains the given frame.
func (e *Editor) SplitAt(frame int) error {
	e.mu.Lock()
	clip, found := lo.Find(e.clipsLocked(), func(c Clip) bool {
		return c.Contains(frame)
	})
	if !found {
		e.mu.Unlock()
		return ErrClipNotFound
	}
	err := e.splitLocked(clip.ID, frame)
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.notify()
	return nil
}

// DeleteClip removes a clip. Deleting the selected clip clears the
// selection.
func (e *Editor) DeleteClip(id string) error {
	e.mu.Lock()

	found := false
	for i := range e.tracks {
		before := len(e.tracks[i].Clips)
		e.tracks[i].Clips = lo.Filter(e.tracks[i].Clips, func(c Clip, _ int) bool {
			return c.ID != id
		})
		if len(e.tracks[i].Clips) != before {
			found = true
		}
	}
	if found && e.selected == id {
		e.selected = ""
	}
	e.mu.Unlock()

	if !found {
		return ErrClipNotFound
	}
	e.notify()
	return nil
}

// ClipPointerDown starts a pointer interaction on a clip.
func (e *Editor) ClipPointerDown(id string, x float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clip, _, ok := e.findLocked(id)
	if !ok {
		return
	}
	e.dragClipID = id
	e.dragStartX = x
	e.dragOrigin = clip.StartFrame
	e.dragMoved = false
}

// ClipPointerMove updates an active clip interaction. Once the pointer
// travels past the click threshold the interaction becomes a drag and
// the clip follows it live.
func (e *Editor) ClipPointerMove(x float64) {
	e.mu.Lock()
	if e.dragClipID == "" {
		e.mu.Unlock()
		return
	}

	if !e.dragMoved && math.Abs(x-e.dragStartX) < e.clickThreshold {
		e.mu.Unlock()
		return
	}
	e.dragMoved = true

	newStart := e.dragOrigin + e.framesForPixels(x-e.dragStartX)
	err := e.moveLocked(e.dragClipID, newStart)
	e.mu.Unlock()

	if err == nil {
		e.notify()
	}
}

// ClipPointerUp ends a clip interaction. Travel below the threshold
// counts as a click and toggles the clip's selection; an actual drag
// leaves the selection alone.
func (e *Editor) ClipPointerUp(x float64) {
	e.mu.Lock()
	if e.dragClipID == "" {
		e.mu.Unlock()
		return
	}

	toggled := false
	if !e.dragMoved && math.Abs(x-e.dragStartX) < e.clickThreshold {
		if e.selected == e.dragClipID {
			e.selected = ""
		} else {
			e.selected = e.dragClipID
		}
		toggled = true
	}
	e.resetDragLocked()
	e.mu.Unlock()

	if toggled {
		e.notify()
	}
}

// ClipPointerCancel ends a clip interaction without toggling selection.
func (e *Editor) ClipPointerCancel() {
	e.mu.Lock()
	e.resetDragLocked()
	e.mu.Unlock()
}

func (e *Editor) clipsLocked() []Clip {
	return lo.FlatMap(e.tracks, func(tr Track, _ int) []Clip {
		return append([]Clip(nil), tr.Clips...)
	})
}

func (e *Editor) totalFramesLocked() int {
	clips := e.clipsLocked()
	if len(clips) == 0 {
		return 0
	}
	furthest := lo.MaxBy(clips, func(a, b Clip) bool {
		return a.EndFrame() > b.EndFrame()
	})
	return furthest.EndFrame()
}

func (e *Editor) findLocked(id string) (Clip, int, bool) {
	for ti := range e.tracks {
		for _, c := range e.tracks[ti].Clips {
			if c.ID == id {
				return c, ti, true
			}
		}
	}
	return Clip{}, 0, false
}

func (e *Editor) moveLocked(id string, newStartFrame int) error {
	if newStartFrame < 0 {
		newStartFrame = 0
	}
	for ti := range e.tracks {
		for ci := range e.tracks[ti].Clips {
			if e.tracks[ti].Clips[ci].ID == id {
				e.tracks[ti].Clips[ci].StartFrame = newStartFrame
				return nil
			}
		}
	}
	return ErrClipNotFound
}

func (e *Editor) splitLocked(id string, atFrame int) error {
	for ti := range e.tracks {
		for ci := range e.tracks[ti].Clips {
			c := e.tracks[ti].Clips[ci]
			if c.ID != id {
				continue
			}
			if atFrame <= c.StartFrame || atFrame >= c.EndFrame() {
				return ErrSplitOutOfRange
			}

			left := Clip{
				ID:             c.ID,
				StartFrame:     c.StartFrame,
				DurationFrames: atFrame - c.StartFrame,
			}
			right := Clip{
				ID:             uuid.NewString(),
				StartFrame:     atFrame,
				DurationFrames: c.EndFrame() - atFrame,
			}

			clips := e.tracks[ti].Clips
			clips[ci] = left
			clips = append(clips, Clip{})
			copy(clips[ci+2:], clips[ci+1:])
			clips[ci+1] = right
			e.tracks[ti].Clips = clips
			return nil
		}
	}
	return ErrClipNotFound
}

func (e *Editor) framesForPixels(px float64) int {
	return int(math.Round(px / e.ruler.PixelsPerSecond() * e.ruler.FrameRate()))
}

func (e *Editor) resetDragLocked() {
	e.dragClipID = ""
	e.dragStartX = 0
	e.dragOrigin = 0
	e.dragMoved = false
}

func (e *Editor) notify() {
	if e.onChange != nil {
		e.onChange()
	}
}
