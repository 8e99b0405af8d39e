package session

import (
	"regexp"
	"strings"
	"testing"
)

var roomIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestNewRoomID(t *testing.T) {
	tests := []struct {
		name       string
		seed       string
		wantPrefix string
	}{
		{name: "plain seed", seed: "Mathematics101", wantPrefix: "Mathematics101_"},
		{name: "seed with spaces and punctuation", seed: "Intro to Go!", wantPrefix: "IntrotoGo_"},
		{name: "empty seed", seed: "", wantPrefix: neutralRoomPrefix + "_"},
		{name: "lobby marker", seed: "lobbyTalk", wantPrefix: neutralRoomPrefix + "_"},
		{name: "class underscore marker", seed: "class_10A", wantPrefix: neutralRoomPrefix + "_"},
		{name: "marker created by suffixing", seed: "advanced class", wantPrefix: neutralRoomPrefix + "_"},
		{name: "emergency marker", seed: "Emergency Drill", wantPrefix: neutralRoomPrefix + "_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRoomID(tt.seed)
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("NewRoomID(%q) = %q; want prefix %q", tt.seed, got, tt.wantPrefix)
			}
			if !roomIDRegex.MatchString(got) {
				t.Errorf("NewRoomID(%q) = %q; not URL-safe", tt.seed, got)
			}
		})
	}
}

func TestNewRoomIDNeverGated(t *testing.T) {
	seeds := []string{"", "Algebra", "lobby", "class_", "emergency exit", "Physics Lab"}
	for i := 0; i < 10000; i++ {
		id := NewRoomID(seeds[i%len(seeds)])
		for _, marker := range disallowedRoomMarkers {
			if strings.HasPrefix(strings.ToLower(id), marker) {
				t.Fatalf("NewRoomID() = %q; contains gating marker %q", id, marker)
			}
		}
		if !roomIDRegex.MatchString(id) {
			t.Fatalf("NewRoomID() = %q; not URL-safe", id)
		}
	}
}

func TestNewRoomIDFreshness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := NewRoomID("Algebra")
		if seen[id] {
			t.Fatalf("NewRoomID() produced duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestNeutralRoomID(t *testing.T) {
	id := NeutralRoomID()
	if !strings.HasPrefix(id, "videoroom_") {
		t.Errorf("NeutralRoomID() = %q; want videoroom_ prefix", id)
	}
	if !roomIDRegex.MatchString(id) {
		t.Errorf("NeutralRoomID() = %q; not URL-safe", id)
	}
}
