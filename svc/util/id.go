package util

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"

	"github.com/pkg/errors"
)

const (
	IDLength = 8
	// 6 random bytes encode to exactly 8 unpadded base64url characters.
	idEntropyBytes = IDLength * 6 / 8
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8}$`)

// GenID returns a fresh URL-safe paste ID. It never consults storage;
// uniqueness is the primary key's job.
func GenID() (string, error) {
	buf := make([]byte, idEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "rand fail")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidID reports whether s has the shape GenID produces.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}
