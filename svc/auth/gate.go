package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

const (
	maxPasswordLength = 1024
	argonPrefix       = "$argon2id$"
	saltLength        = 16
	keyLength         = 32
	maxIterations     = 100
	minMemory         = 1024
	maxMemory         = 2 * 1024 * 1024
	maxParallelism    = 128
)

var ErrPasswordTooLong = errors.New("password too long")

// Gate decides what gets stored for a paste password and whether a supplied
// password unlocks a paste. In plain mode the password is stored verbatim.
type Gate struct {
	hashing     bool
	iterations  uint32
	memory      uint32
	parallelism uint8
}

func NewPlainGate() *Gate {
	return &Gate{}
}
func NewArgon2Gate(iterations, memory uint32, parallelism uint8) (*Gate, error) {
	if iterations == 0 || iterations > maxIterations {
		return nil, errors.New("iterations must be between 1 and 100")
	}
	if memory < minMemory || memory > maxMemory {
		return nil, errors.New("memory must be between 1024 and 2097152 KiB")
	}
	if parallelism == 0 || parallelism > maxParallelism {
		return nil, errors.New("parallelism must be between 1 and 128")
	}
	return &Gate{hashing: true, iterations: iterations, memory: memory, parallelism: parallelism}, nil
}
func (g *Gate) Hashing() bool {
	return g.hashing
}

// Seal returns the value to persist for password. An empty password means
// the paste is unprotected and Seal returns nil.
func (g *Gate) Seal(password string) (*string, error) {
	if password == "" {
		return nil, nil
	}
	if len(password) > maxPasswordLength {
		return nil, ErrPasswordTooLong
	}
	if !g.hashing {
		return &password, nil
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "read salt")
	}
	key := argon2.IDKey([]byte(password), salt, g.iterations, g.memory, g.parallelism, keyLength)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, g.memory, g.iterations, g.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
	return &encoded, nil
}

// Check reports whether supplied unlocks a paste whose stored password is
// stored. A nil or empty stored value means the paste is open. Rows written
// under either mode are readable, so toggling PASSWORD_HASHING is safe. A
// plain gate also accepts an exact match against a hash-shaped value, which
// keeps passwords that look like argon2 encodings usable.
func (g *Gate) Check(stored *string, supplied string) bool {
	if stored == nil || *stored == "" {
		return true
	}
	if supplied == "" || len(supplied) > maxPasswordLength {
		return false
	}
	if h, ok := parseArgon2(*stored); ok {
		if h.verify(supplied) {
			return true
		}
		if g.hashing {
			return false
		}
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(supplied)) == 1
}

type argon2Hash struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// parseArgon2 decodes the encoding Seal writes. Parameters outside what
// NewArgon2Gate accepts are rejected so a stored value cannot demand an
// unbounded derivation.
func parseArgon2(encoded string) (argon2Hash, bool) {
	var h argon2Hash
	if !strings.HasPrefix(encoded, argonPrefix) {
		return h, false
	}
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return h, false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return h, false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.iterations, &h.parallelism); err != nil {
		return h, false
	}
	if h.iterations == 0 || h.iterations > maxIterations ||
		h.memory < minMemory || h.memory > maxMemory ||
		h.parallelism == 0 || h.parallelism > maxParallelism {
		return h, false
	}
	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(h.salt) == 0 {
		return h, false
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.key) < 16 || len(h.key) > 64 {
		return h, false
	}
	return h, true
}
func (h argon2Hash) verify(supplied string) bool {
	got := argon2.IDKey([]byte(supplied), h.salt, h.iterations, h.memory, h.parallelism, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(got, h.key) == 1
}
