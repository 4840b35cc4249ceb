package component

import "github.com/google/uuid"

// UnknownID is the identifier used when no resolution strategy succeeds.
// Records stored under it need manual follow-up.
const UnknownID = "UNKNOWN"

// LooksLikeUUID reports whether s is in the 8-4-4-4-12 hexadecimal form, any case.
// The braced, urn: and unhyphenated forms uuid.Parse also accepts are not UUID-shaped here.
func LooksLikeUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
