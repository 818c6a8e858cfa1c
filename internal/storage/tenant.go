package storage

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// maxNamePrefix bounds the readable part of a collection name so the full
// name stays inside the 63 character limit shared by vector store backends.
const maxNamePrefix = 40

// CollectionName derives the backing collection name for a session key. The
// readable prefix keeps collections recognizable in store tooling; the hash
// suffix keeps distinct keys distinct after sanitization.
func CollectionName(session string) string {
	sanitized := sanitize(session)
	if len(sanitized) > maxNamePrefix {
		sanitized = sanitized[:maxNamePrefix]
	}
	if sanitized == "" {
		return "user_" + shortHash(session)
	}
	return "user_" + sanitized + "_" + shortHash(session)
}

// sanitize maps a session key onto the character set collection names allow.
// Dots and spaces become underscores; anything else outside [A-Za-z0-9_-] is
// dropped.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.' || r == ' ':
			b.WriteByte('_')
		}
	}
	return b.String()
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}

// pointID is stable for a chunk position, so re-uploading a file replaces
// its chunks instead of duplicating them.
func pointID(collection, filename string, index int) string {
	name := fmt.Sprintf("%s/%s/%d", collection, filename, index)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
