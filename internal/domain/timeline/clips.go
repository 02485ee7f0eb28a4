package timeline

// Clip is one media segment on a timeline track. Frame ranges within a
// track are kept non-overlapping by whoever owns the clip list.
type Clip struct {
	ID             string `json:"id"`
	StartFrame     int    `json:"startFrame"`
	DurationFrames int    `json:"durationFrames"`
}

// EndFrame returns the exclusive end of the clip's frame range.
func (c Clip) EndFrame() int {
	return c.StartFrame + c.DurationFrames
}

// Contains reports whether the frame falls inside the clip.
func (c Clip) Contains(frame int) bool {
	return frame >= c.StartFrame && frame < c.EndFrame()
}

// Track is an ordered row of clips.
type Track struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Clips []Clip `json:"clips"`
}

func copyTracks(tracks []Track) []Track {
	out := make([]Track, len(tracks))
	for i, tr := range tracks {
		out[i] = Track{
			ID:    tr.ID,
			Name:  tr.Name,
			Clips: append([]Clip(nil), tr.Clips...),
		}
	}
	return out
}
