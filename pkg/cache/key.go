package cache

import (
	"strings"
)

// ProfileKey generates a deterministic cache key for a profile record.
// Format: profile:<id> (lower-cased, trimmed)
//
// Example:
//
//	profile:h0042
func ProfileKey(id string) string {
	return "profile:" + normalize(id)
}

// RaceKey generates a deterministic cache key for a race record.
// Format: race:<state>:<race> (lower-cased, trimmed, colon-joined)
//
// Example:
//
//	race:ca:senate district 7
func RaceKey(state, race string) string {
	return "race:" + normalize(state) + ":" + normalize(race)
}

// normalize lower-cases and trims a key segment so that keys built from
// user input stay deterministic.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
