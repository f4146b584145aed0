package generation

import (
	"strings"
	"testing"
)

func TestBuildVideoPrompt(t *testing.T) {
	got := buildVideoPrompt("A dog chases a ball through tall grass", "Studio Ghibli watercolor")
	want := "Use the reference image as the opening frame of the video, fully retaining its visual texture.\n" +
		"Scene: A dog chases a ball through tall grass\n" +
		"Style: Studio Ghibli watercolor\n" +
		"Camera: slow cinematic push-in.\n"
	if got != want {
		t.Fatalf("video prompt mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestBuildVideoPromptTrimsInputs(t *testing.T) {
	got := buildVideoPrompt("  padded scene  ", "\tpadded style\n")
	if !strings.Contains(got, "Scene: padded scene\n") {
		t.Fatalf("scene not trimmed: %q", got)
	}
	if !strings.Contains(got, "Style: padded style\n") {
		t.Fatalf("style not trimmed: %q", got)
	}
}

func TestBuildStylizePrompt(t *testing.T) {
	got := buildStylizePrompt("Cyberpunk neon", "A cat on a rooftop", 2)
	if !strings.HasPrefix(got, "Restyle the first image. Target style: Cyberpunk neon.\n") {
		t.Fatalf("missing style line: %q", got)
	}
	if !strings.Contains(got, "Scene content: A cat on a rooftop\n") {
		t.Fatalf("missing scene content: %q", got)
	}
	if !strings.Contains(got, "The 2 additional image(s) are character/object references") {
		t.Fatalf("missing reference line: %q", got)
	}
	if !strings.HasSuffix(got, "Return the restyled frame as an image.") {
		t.Fatalf("missing closing instruction: %q", got)
	}
}

func TestBuildStylizePromptOmitsEmptySections(t *testing.T) {
	got := buildStylizePrompt("Oil painting", "   ", 0)
	if strings.Contains(got, "Scene content:") {
		t.Fatalf("blank description must be omitted: %q", got)
	}
	if strings.Contains(got, "additional image") {
		t.Fatalf("zero references must omit the reference line: %q", got)
	}
}
