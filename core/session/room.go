package session

import (
	"crypto/rand"
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Room name patterns known to trigger the conferencing provider's
// access-control path (lobby / members-only gating). A candidate containing any
// of these markers is discarded wholesale and rebuilt from a neutral prefix:
// partial substitution could re-introduce a disallowed combination.
var disallowedRoomMarkers = []string{"lobby", "class_", "emergency", "waitingroom"}

const (
	neutralRoomPrefix = "room"
	maxRoomSeedLen    = 24
)

var roomSeedRegex = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// NewRoomID derives a URL-safe, collision-resistant room identifier from a
// candidate seed (course-title prefix or session id). The result carries a
// base36 high-resolution timestamp plus base36 random bytes so that recovery
// paths always get a fresh room; determinism is intentionally not provided.
func NewRoomID(seed string) string {
	cleaned := sanitizeRoomSeed(seed)
	// the trailing separator participates in the check: a seed ending in
	// "class" would otherwise produce a "class_" marker once suffixed
	if cleaned == "" || hasDisallowedMarker(cleaned+"_") {
		cleaned = neutralRoomPrefix
	}
	return cleaned + "_" + roomSuffix()
}

// NeutralRoomID returns a fresh room identifier built from the neutral prefix;
// used for fallback synthesis when the intended room cannot be confirmed.
func NeutralRoomID() string {
	return "video" + neutralRoomPrefix + "_" + roomSuffix()
}

func sanitizeRoomSeed(seed string) string {
	s := roomSeedRegex.ReplaceAllString(strings.TrimSpace(seed), "")
	s = strings.Trim(s, "_-")
	if len(s) > maxRoomSeedLen {
		s = s[:maxRoomSeedLen]
	}
	return s
}

func hasDisallowedMarker(s string) bool {
	ls := strings.ToLower(s)
	for _, marker := range disallowedRoomMarkers {
		if strings.Contains(ls, marker) {
			return true
		}
	}
	return false
}

func roomSuffix() string {
	ts := strconv.FormatInt(time.Now().UnixNano(), 36)

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failure is not worth failing a join over; the timestamp
		// still provides freshness
		return ts
	}
	return ts + strconv.FormatUint(binary.BigEndian.Uint64(buf[:]), 36)
}
