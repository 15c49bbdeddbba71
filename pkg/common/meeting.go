package common

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// MeetingID derives the identifier of a meeting from its title and resolved
// date. Equal inputs always give equal ids, which lets follow-up notes link to
// earlier meetings without any in-memory state.
func MeetingID(title, date string) string {
	base := strings.ToLower(strings.TrimSpace(title)) + "_" + date
	sum := md5.Sum([]byte(base))
	return hex.EncodeToString(sum[:])
}
