package timeline_test

import (
	"math"
	"testing"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/domain/timeline"
)

func newTestRuler() *timeline.Ruler {
	return timeline.NewRuler(timeline.RulerOptions{
		BasePixelsPerSecond: 50,
		GutterWidth:         16,
		FrameRate:           30,
		MinZoom:             0.25,
		MaxZoom:             8,
	})
}

func TestPixelsPerSecond(t *testing.T) {
	r := newTestRuler()

	if pps := r.PixelsPerSecond(); pps != 50 {
		t.Errorf("expected 50 px/s at zoom 1, got %f", pps)
	}

	r.SetZoom(2)
	if pps := r.PixelsPerSecond(); pps != 100 {
		t.Errorf("expected 100 px/s at zoom 2, got %f", pps)
	}
}

func TestTimePixelRoundTrip(t *testing.T) {
	r := newTestRuler()

	px := r.PixelAtTime(10)
	if px != 516 {
		t.Errorf("expected second 10 at pixel 516, got %f", px)
	}

	if got := r.TimeAtPixel(px); math.Abs(got-10) > 1e-9 {
		t.Errorf("expected 10s back from pixel %f, got %f", px, got)
	}
}

func TestTimeAtPixelClampsNegative(t *testing.T) {
	r := newTestRuler()

	// Inside the gutter, left of second 0
	if got := r.TimeAtPixel(4); got != 0 {
		t.Errorf("expected 0 for a gutter click, got %f", got)
	}
}

func TestFrameConversions(t *testing.T) {
	r := newTestRuler()

	if f := r.FrameAtTime(10); f != 300 {
		t.Errorf("expected frame 300 at 10s, got %d", f)
	}
	if ts := r.TimeAtFrame(300); ts != 10 {
		t.Errorf("expected 10s at frame 300, got %f", ts)
	}

	snapped := r.SnapToFrame(10.012)
	if snapped != 10 {
		t.Errorf("expected 10.012 to snap to 10, got %f", snapped)
	}
}

func TestSetZoomClamps(t *testing.T) {
	tests := []struct {
		name     string
		zoom     float64
		expected float64
	}{
		{"normal zoom", 2, 2},
		{"below min", 0.1, 0.25},
		{"above max", 20, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRuler()
			r.SetZoom(tt.zoom)

			if got := r.Zoom(); got != tt.expected {
				t.Errorf("expected zoom %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestZoomAtKeepsAnchorStationary(t *testing.T) {
	r := newTestRuler()

	// Second 10 sits at pixel 516 at zoom 1
	pointer := r.PixelAtTime(10)

	r.ZoomAt(2, pointer)

	if got := r.TimeAtPixel(pointer); math.Abs(got-10) > 1e-9 {
		t.Errorf("expected second 10 to stay under the pointer, got %f", got)
	}
	if r.Zoom() != 2 {
		t.Errorf("expected zoom 2, got %f", r.Zoom())
	}
}

func TestZoomAtClampsScroll(t *testing.T) {
	r := newTestRuler()

	// Zooming out near the left edge would need negative scroll
	r.SetZoom(2)
	r.ZoomAt(1, 26)

	if r.ScrollOffset() != 0 {
		t.Errorf("expected scroll clamped to 0, got %f", r.ScrollOffset())
	}
}

func TestScrollBy(t *testing.T) {
	r := newTestRuler()

	r.ScrollBy(100)
	if r.ScrollOffset() != 100 {
		t.Errorf("expected scroll 100, got %f", r.ScrollOffset())
	}

	r.ScrollBy(-300)
	if r.ScrollOffset() != 0 {
		t.Errorf("expected scroll clamped to 0, got %f", r.ScrollOffset())
	}
}

func TestTicks(t *testing.T) {
	r := newTestRuler()

	// At 50 px/s the first interval with >= 80px between labels is 2s
	ticks := r.Ticks(516, 0)
	if len(ticks) == 0 {
		t.Fatal("expected ticks for a 516px viewport")
	}

	first := ticks[0]
	if !first.Major || first.Label != "0:00" || first.Pixel != 16 {
		t.Errorf("expected major 0:00 tick at pixel 16, got %+v", first)
	}

	var majors []timeline.Tick
	for _, tick := range ticks {
		if tick.Major {
			majors = append(majors, tick)
		}
		if tick.Pixel < 16 || tick.Pixel > 516 {
			t.Errorf("tick at pixel %f outside viewport", tick.Pixel)
		}
	}

	if len(majors) < 2 {
		t.Fatalf("expected at least two labeled ticks, got %d", len(majors))
	}
	if majors[1].Label != "0:02" {
		t.Errorf("expected second label 0:02, got %q", majors[1].Label)
	}
	if spacing := majors[1].Pixel - majors[0].Pixel; spacing < 80 {
		t.Errorf("expected >= 80px between labels, got %f", spacing)
	}
}

func TestTicksStopAtMediaEnd(t *testing.T) {
	r := newTestRuler()

	ticks := r.Ticks(516, 5)
	for _, tick := range ticks {
		if tick.Seconds > 5 {
			t.Errorf("expected no tick past 5s, got one at %f", tick.Seconds)
		}
	}
}

func TestTicksSubSecondLabels(t *testing.T) {
	r := newTestRuler()
	r.SetZoom(8)

	// 400 px/s puts labels every 0.25s
	ticks := r.Ticks(516, 0)

	var found bool
	for _, tick := range ticks {
		if tick.Label == "0:00.5" {
			found = true
		}
	}
	if !found {
		t.Error("expected a 0:00.5 label at maximum zoom")
	}
}
