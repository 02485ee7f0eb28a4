package engine

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// Kind selects the playback backend for a media reference. The kind
// is decided once at parse time and never changes for the life of an
// engine instance.
type Kind int

const (
	// KindNative plays a direct media URL or file path in the local
	// decoder process.
	KindNative Kind = iota
	// KindEmbedded plays a third-party hosted video in the embedded
	// player on the client.
	KindEmbedded
)

func (k Kind) String() string {
	switch k {
	case KindEmbedded:
		return "embedded"
	default:
		return "native"
	}
}

// ErrEmptyMediaRef is returned by Parse for a blank reference.
var ErrEmptyMediaRef = errors.New("empty media reference")

// MediaRef is the parsed form of a raw media reference.
type MediaRef struct {
	Kind Kind
	// URL is the direct media location. Set for native refs.
	URL string
	// VideoID is the hosting site's video identifier. Set for
	// embedded refs.
	VideoID string
}

// ID returns the stable identifier used for resume positions and
// preview stills: the video ID for embedded media, the location for
// native media.
func (m MediaRef) ID() string {
	if m.Kind == KindEmbedded {
		return m.VideoID
	}
	return m.URL
}

func (m MediaRef) String() string {
	return m.Kind.String() + ":" + m.ID()
}

// Hosted video IDs are exactly 11 characters from a fixed alphabet.
// File names with an extension never match because the alphabet has
// no dot.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var embeddedHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// Parse classifies a raw media reference. Watch URLs, short links,
// embed URLs and bare video IDs of the hosting site become embedded
// refs; anything else passes through as a native location for the
// local decoder. Unrecognized shapes on a hosting domain also fall
// through to native rather than failing the load.
func Parse(raw string) (MediaRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MediaRef{}, ErrEmptyMediaRef
	}

	if videoIDPattern.MatchString(raw) {
		return MediaRef{Kind: KindEmbedded, VideoID: raw}, nil
	}

	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host := strings.ToLower(u.Hostname())

		if host == "youtu.be" {
			if id := firstSegment(u.Path); videoIDPattern.MatchString(id) {
				return MediaRef{Kind: KindEmbedded, VideoID: id}, nil
			}
		}

		if embeddedHosts[host] {
			if id := u.Query().Get("v"); videoIDPattern.MatchString(id) {
				return MediaRef{Kind: KindEmbedded, VideoID: id}, nil
			}
			for _, prefix := range []string{"/embed/", "/shorts/", "/live/", "/v/"} {
				if strings.HasPrefix(u.Path, prefix) {
					if id := firstSegment(u.Path[len(prefix):]); videoIDPattern.MatchString(id) {
						return MediaRef{Kind: KindEmbedded, VideoID: id}, nil
					}
				}
			}
		}
	}

	return MediaRef{Kind: KindNative, URL: raw}, nil
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
