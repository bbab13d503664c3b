package reconcile

import (
	"testing"

	"ptsync/catalog"
	"ptsync/peertube"
)

func TestMatchExactNormalizedTitle(t *testing.T) {
	led := newFakeLedger()
	m := NewMatcher(led)

	locals := []*catalog.VideoRecord{
		{LocalID: "v1", Title: "Episode 12: The Return!"},
	}
	remotes := []peertube.Video{
		{UUID: "0dd23ca1-b82a-4c9d-9925-ffce9e4b7b72", Name: "episode 12 - the return"},
	}

	summary := m.Match(locals, remotes)
	if summary.Mapped != 1 {
		t.Fatalf("Mapped = %d, want 1", summary.Mapped)
	}
	remoteID, ok := led.RemoteID("v1")
	if !ok || remoteID != "0dd23ca1-b82a-4c9d-9925-ffce9e4b7b72" {
		t.Errorf("mapping = %q, %v", remoteID, ok)
	}
}

func TestMatchFuzzyAboveCutoff(t *testing.T) {
	led := newFakeLedger()
	m := NewMatcher(led)

	locals := []*catalog.VideoRecord{
		{LocalID: "v1", Title: "Building a File Server From Scratch"},
	}
	// One transposed word character relative to the local title.
	remotes := []peertube.Video{
		{UUID: "0dd23ca1-b82a-4c9d-9925-ffce9e4b7b72", Name: "Building a File Sever From Scratch"},
	}

	summary := m.Match(locals, remotes)
	if summary.Mapped != 1 {
		t.Fatalf("Mapped = %d, want 1 for near-identical titles", summary.Mapped)
	}
}

func TestMatchBelowCutoffUnmatched(t *testing.T) {
	led := newFakeLedger()
	m := NewMatcher(led)

	locals := []*catalog.VideoRecord{
		{LocalID: "v1", Title: "Building a File Server From Scratch"},
	}
	remotes := []peertube.Video{
		{UUID: "0dd23ca1-b82a-4c9d-9925-ffce9e4b7b72", Name: "Completely Unrelated Stream"},
	}

	summary := m.Match(locals, remotes)
	if summary.Mapped != 0 {
		t.Errorf("Mapped = %d, want 0", summary.Mapped)
	}
	if len(summary.Unmatched) != 1 {
		t.Errorf("Unmatched = %d, want 1", len(summary.Unmatched))
	}
	if _, ok := led.RemoteID("v1"); ok {
		t.Error("unrelated remote must not be mapped")
	}
}

func TestMatchLeavesExistingMappingsAlone(t *testing.T) {
	led := newFakeLedger()
	led.remote["v1"] = "r-original"
	m := NewMatcher(led)

	locals := []*catalog.VideoRecord{
		{LocalID: "v1", Title: "Some Title"},
	}
	remotes := []peertube.Video{
		{UUID: "0dd23ca1-b82a-4c9d-9925-ffce9e4b7b72", Name: "Some Title"},
	}

	summary := m.Match(locals, remotes)
	if summary.Mapped != 0 {
		t.Errorf("Mapped = %d, want 0 for an already-mapped video", summary.Mapped)
	}
	if remoteID, _ := led.RemoteID("v1"); remoteID != "r-original" {
		t.Errorf("mapping overwritten to %q", remoteID)
	}
}

func TestMatchEmptyTitlesIgnored(t *testing.T) {
	led := newFakeLedger()
	m := NewMatcher(led)

	locals := []*catalog.VideoRecord{
		{LocalID: "v1", Title: "   "},
	}
	remotes := []peertube.Video{
		{UUID: "0dd23ca1-b82a-4c9d-9925-ffce9e4b7b72", Name: ""},
	}

	summary := m.Match(locals, remotes)
	if summary.Mapped != 0 {
		t.Errorf("Mapped = %d, want 0", summary.Mapped)
	}
	if len(summary.Unmatched) != 1 {
		t.Errorf("Unmatched = %d, want 1", len(summary.Unmatched))
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Episode 12: The Return!", "episode12thereturn"},
		{"  spaced   out  ", "spacedout"},
		{"ÜBER-Führung", "überführung"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := normalizeTitle(tt.in); got != tt.want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
