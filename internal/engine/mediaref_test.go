package engine_test

import (
	"errors"
	"testing"

	"github.com/Muscled-clients-repo/unpuzzle-mvp-sub003/internal/engine"
)

func TestParseEmbeddedShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		id   string
	}{
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch URL with extra params", "https://youtube.com/watch?t=42&v=dQw4w9WgXcQ&list=PL1", "dQw4w9WgXcQ"},
		{"mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link with query", "https://youtu.be/dQw4w9WgXcQ?t=30", "dQw4w9WgXcQ"},
		{"embed URL", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts URL", "https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"bare video ID", "dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"bare ID with underscore and dash", "a_b-c_d-e_f", "a_b-c_d-e_f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := engine.Parse(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref.Kind != engine.KindEmbedded {
				t.Fatalf("expected embedded kind, got %s", ref.Kind)
			}
			if ref.VideoID != tt.id {
				t.Errorf("expected video ID %q, got %q", tt.id, ref.VideoID)
			}
		})
	}
}

func TestParseNativeShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"absolute file path", "/media/lessons/intro.mp4"},
		{"relative file path", "lessons/intro.mp4"},
		{"direct HTTP URL", "https://cdn.example.com/lessons/intro.mp4"},
		{"eleven char file name", "intro01.mp4"},
		{"hosting URL without recognizable ID", "https://www.youtube.com/watch?v=short"},
		{"unrelated host with v param", "https://example.com/watch?v=dQw4w9WgXcQ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := engine.Parse(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref.Kind != engine.KindNative {
				t.Fatalf("expected native kind, got %s", ref.Kind)
			}
			if ref.URL != tt.raw {
				t.Errorf("expected URL %q, got %q", tt.raw, ref.URL)
			}
		})
	}
}

func TestParseEmptyRef(t *testing.T) {
	if _, err := engine.Parse("   "); !errors.Is(err, engine.ErrEmptyMediaRef) {
		t.Errorf("expected ErrEmptyMediaRef, got %v", err)
	}
}

func TestMediaRefID(t *testing.T) {
	embedded := engine.MediaRef{Kind: engine.KindEmbedded, VideoID: "dQw4w9WgXcQ"}
	if embedded.ID() != "dQw4w9WgXcQ" {
		t.Errorf("expected video ID, got %q", embedded.ID())
	}

	native := engine.MediaRef{Kind: engine.KindNative, URL: "/media/intro.mp4"}
	if native.ID() != "/media/intro.mp4" {
		t.Errorf("expected URL, got %q", native.ID())
	}
}
