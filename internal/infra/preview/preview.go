// Package preview caches downscaled seek-preview stills and serves
// them over HTTP for timeline hover thumbnails.
package preview

import (
	"fmt"
	"image"
	_ "image/gif" // GIF decoder
	"image/jpeg"
	_ "image/png" // PNG decoder
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/infra/mpv"
)

const (
	// DefaultHeight is the stored still height in pixels.
	DefaultHeight = 90
	// DefaultLookupWindow is how many seconds back Lookup searches for
	// the nearest earlier still.
	DefaultLookupWindow = 10
)

// Store keeps one downscaled JPEG per (media, second) on disk.
type Store struct {
	dir    string
	height int
	window int
}

// NewStore creates a preview store rooted at dir. Zero height or
// window fall back to the defaults.
func NewStore(dir string, height, lookupWindow int) *Store {
	if height <= 0 {
		height = DefaultHeight
	}
	if lookupWindow <= 0 {
		lookupWindow = DefaultLookupWindow
	}
	return &Store{
		dir:    dir,
		height: height,
		window: lookupWindow,
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// safeKey flattens a media identifier, which may be a URL or file
// path, into a filename-safe token.
func safeKey(mediaID string) string {
	return unsafeKeyChars.ReplaceAllString(mediaID, "-")
}

func (s *Store) stillPath(mediaID string, second int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d.jpg", safeKey(mediaID), second))
}

// Put decodes an image, downscales it to the configured height and
// stores it as the still for (mediaID, second). Returns the stored
// path.
func (s *Store) Put(mediaID string, second int, r io.Reader) (string, error) {
	if second < 0 {
		return "", fmt.Errorf("negative second %d", second)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode still: %w", err)
	}

	log.Debug().
		Str("media", mediaID).
		Int("second", second).
		Str("format", format).
		Msg("Storing preview still")

	still := s.resize(img)

	path := s.stillPath(mediaID, second)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create still file: %w", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, still, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode still: %w", err)
	}

	return path, nil
}

// Capture grabs the decoder's current frame through its IPC handle
// and stores it as the still for (mediaID, second). Only the native
// backend exposes the handle this needs.
func (s *Store) Capture(client *mpv.Client, mediaID string, second int) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}

	tmp := filepath.Join(s.dir, fmt.Sprintf(".capture-%s-%d.png", safeKey(mediaID), second))
	if err := client.Screenshot(tmp); err != nil {
		return "", fmt.Errorf("failed to capture frame: %w", err)
	}
	defer os.Remove(tmp)

	f, err := os.Open(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to open captured frame: %w", err)
	}
	defer f.Close()

	return s.Put(mediaID, second, f)
}

// resize scales a frame down to the configured height, preserving
// aspect ratio. Frames already small enough pass through.
func (s *Store) resize(src image.Image) image.Image {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	if srcH <= s.height {
		return src
	}

	newH := s.height
	newW := int(float64(srcW) * float64(newH) / float64(srcH))
	if newW < 1 {
		newW = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// Lookup returns the still at or nearest before t, searching back at
// most the lookup window.
func (s *Store) Lookup(mediaID string, t float64) (string, bool) {
	if t < 0 {
		t = 0
	}
	second := int(t)
	for i := second; i >= 0 && i >= second-s.window; i-- {
		path := s.stillPath(mediaID, i)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Handler serves stills over HTTP:
//
//	GET /preview?media=<id>&t=<seconds>
func (s *Store) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		mediaID := r.URL.Query().Get("media")
		if mediaID == "" {
			http.Error(w, "missing media parameter", http.StatusBadRequest)
			return
		}
		t, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
		if err != nil || t < 0 {
			http.Error(w, "invalid t parameter", http.StatusBadRequest)
			return
		}

		path, found := s.Lookup(mediaID, t)
		if !found {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, path)
	})
}
