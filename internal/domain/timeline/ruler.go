// Package timeline implements the interactive ruler, scrubber and clip
// editing model for a playback session.
package timeline

import (
	"fmt"
	"math"
	"sync"

	"github.com/samber/lo"
)

// tickIntervals are the candidate label spacings in seconds, smallest
// first. Ticks picks the first one wide enough at the current zoom.
var tickIntervals = []float64{0.25, 0.5, 1, 2, 5, 10, 15, 30, 60, 120, 300, 600}

// minLabelSpacing is the minimum pixel distance between labeled ticks.
const minLabelSpacing = 80.0

// RulerOptions configures a Ruler. Zero fields fall back to defaults.
type RulerOptions struct {
	BasePixelsPerSecond float64
	GutterWidth         float64
	FrameRate           float64
	MinZoom             float64
	MaxZoom             float64
}

// Ruler owns the horizontal geometry of the timeline: the mapping
// between viewport pixels, seconds and frames at the current zoom and
// scroll. It is safe for concurrent use.
type Ruler struct {
	mu sync.RWMutex

	basePPS float64
	gutter  float64
	fps     float64
	minZoom float64
	maxZoom float64

	zoom   float64
	scroll float64
}

// NewRuler creates a ruler at zoom 1 and scroll 0.
func NewRuler(opts RulerOptions) *Ruler {
	r := &Ruler{
		basePPS: opts.BasePixelsPerSecond,
		gutter:  opts.GutterWidth,
		fps:     opts.FrameRate,
		minZoom: opts.MinZoom,
		maxZoom: opts.MaxZoom,
		zoom:    1,
	}
	if r.basePPS <= 0 {
		r.basePPS = 50
	}
	if r.fps <= 0 {
		r.fps = 30
	}
	if r.minZoom <= 0 {
		r.minZoom = 0.25
	}
	if r.maxZoom < r.minZoom {
		r.maxZoom = 8
	}
	return r
}

// FrameRate returns the frames-per-second the ruler converts with.
func (r *Ruler) FrameRate() float64 {
	return r.fps
}

// Zoom returns the current zoom level.
func (r *Ruler) Zoom() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.zoom
}

// ScrollOffset returns the current horizontal scroll in pixels.
func (r *Ruler) ScrollOffset() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scroll
}

// PixelsPerSecond returns the effective scale at the current zoom.
func (r *Ruler) PixelsPerSecond() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.basePPS * r.zoom
}

// TimeAtPixel converts a viewport x coordinate to seconds, accounting
// for the label gutter and scroll. Negative results clamp to 0.
func (r *Ruler) TimeAtPixel(x float64) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timeAtPixelLocked(x)
}

func (r *Ruler) timeAtPixelLocked(x float64) float64 {
	t := (x - r.gutter + r.scroll) / (r.basePPS * r.zoom)
	if t < 0 {
		return 0
	}
	return t
}

// PixelAtTime converts seconds to a viewport x coordinate.
func (r *Ruler) PixelAtTime(t float64) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gutter + t*r.basePPS*r.zoom - r.scroll
}

// FrameAtTime converts seconds to the nearest frame number.
func (r *Ruler) FrameAtTime(t float64) int {
	return int(math.Round(t * r.fps))
}

// TimeAtFrame converts a frame number to seconds.
func (r *Ruler) TimeAtFrame(frame int) float64 {
	return float64(frame) / r.fps
}

// SnapToFrame rounds seconds to the nearest frame boundary.
func (r *Ruler) SnapToFrame(t float64) float64 {
	return r.TimeAtFrame(r.FrameAtTime(t))
}

// SetZoom sets the zoom level, clamped to the configured bounds.
func (r *Ruler) SetZoom(zoom float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zoom = r.clampZoom(zoom)
}

// ZoomAt rescales around the given viewport x coordinate so the
// timestamp under the pointer stays visually stationary: the anchor
// time is captured before the rescale and the scroll offset is
// adjusted after it.
func (r *Ruler) ZoomAt(zoom float64, x float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	anchor := r.timeAtPixelLocked(x)
	r.zoom = r.clampZoom(zoom)

	r.scroll = anchor*r.basePPS*r.zoom - (x - r.gutter)
	if r.scroll < 0 {
		r.scroll = 0
	}
}

// ScrollBy pans the ruler by the given pixel delta, clamped at 0.
func (r *Ruler) ScrollBy(delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scroll += delta
	if r.scroll < 0 {
		r.scroll = 0
	}
}

func (r *Ruler) clampZoom(zoom float64) float64 {
	if zoom < r.minZoom {
		return r.minZoom
	}
	if zoom > r.maxZoom {
		return r.maxZoom
	}
	return zoom
}

// Tick is one ruler marking. Major ticks carry a timecode label.
type Tick struct {
	Pixel   float64 `json:"pixel"`
	Seconds float64 `json:"seconds"`
	Major   bool    `json:"major"`
	Label   string  `json:"label,omitempty"`
}

// Ticks returns the markings visible in a viewport of the given width.
// The label interval grows as the ruler zooms out so adjacent labels
// keep at least minLabelSpacing pixels between them. maxSeconds > 0
// cuts the ruler off at the end of the media.
func (r *Ruler) Ticks(viewportWidth float64, maxSeconds float64) []Tick {
	r.mu.RLock()
	pps := r.basePPS * r.zoom
	gutter := r.gutter
	scroll := r.scroll
	r.mu.RUnlock()

	if viewportWidth <= gutter {
		return nil
	}

	interval, found := lo.Find(tickIntervals, func(iv float64) bool {
		return iv*pps >= minLabelSpacing
	})
	if !found {
		interval = tickIntervals[len(tickIntervals)-1]
	}
	step := interval / 5

	tStart := scroll / pps
	tEnd := (viewportWidth - gutter + scroll) / pps
	if maxSeconds > 0 && tEnd > maxSeconds {
		tEnd = maxSeconds
	}

	var ticks []Tick
	for i := int(math.Ceil(tStart / step)); float64(i)*step <= tEnd; i++ {
		t := float64(i) * step
		major := i%5 == 0
		tick := Tick{
			Pixel:   gutter + t*pps - scroll,
			Seconds: t,
			Major:   major,
		}
		if major {
			tick.Label = formatTimecode(t, interval < 1)
		}
		ticks = append(ticks, tick)
	}
	return ticks
}

// formatTimecode renders seconds as m:ss, h:mm:ss above an hour, with
// tenths appended when sub-second labels are in play.
func formatTimecode(t float64, withTenths bool) string {
	whole := int(t)
	h := whole / 3600
	m := (whole % 3600) / 60
	s := whole % 60

	var out string
	if h > 0 {
		out = fmt.Sprintf("%d:%02d:%02d", h, m, s)
	} else {
		out = fmt.Sprintf("%d:%02d", m, s)
	}
	if withTenths {
		tenths := int(math.Round((t-float64(whole))*10)) % 10
		out = fmt.Sprintf("%s.%d", out, tenths)
	}
	return out
}
