// Package auth holds the credential and session primitives: salted,
// peppered password hashing and signed session tokens.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	saltBytes     = 16
	argon2Prefix  = "argon2id"
	legacyHashLen = sha256.Size * 2
)

var (
	ErrEmptyPassword  = errors.New("password must not be empty")
	ErrSaltGeneration = errors.New("failed to generate salt")
)

// Argon2Params is the work factor of the password KDF.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultArgon2Params follows the RFC 9106 second recommended option.
var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
}

// PasswordHasher derives and verifies password hashes mixed with a
// per-record salt and a deployment-wide pepper.
type PasswordHasher struct {
	pepper string
	params Argon2Params
}

// HasherOption customises a PasswordHasher.
type HasherOption func(*PasswordHasher)

// WithArgon2Params overrides the KDF work factor.
func WithArgon2Params(p Argon2Params) HasherOption {
	return func(h *PasswordHasher) {
		h.params = p
	}
}

// NewPasswordHasher creates a PasswordHasher bound to pepper.
func NewPasswordHasher(pepper string, opts ...HasherOption) *PasswordHasher {
	h := &PasswordHasher{
		pepper: pepper,
		params: DefaultArgon2Params,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash generates a fresh salt and returns the encoded hash and the hex salt.
func (h *PasswordHasher) Hash(password string) (hash, salt string, err error) {
	if password == "" {
		return "", "", ErrEmptyPassword
	}

	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrSaltGeneration, err)
	}
	salt = hex.EncodeToString(raw)

	key := h.derive(password, raw, h.params)
	return encodeArgon2(h.params, key), salt, nil
}

// Verify reports whether password matches the stored hash and salt.
// Absent or malformed inputs yield false.
func (h *PasswordHasher) Verify(password, hash, salt string) bool {
	if password == "" || hash == "" || salt == "" {
		return false
	}

	if strings.HasPrefix(hash, argon2Prefix+"$") {
		params, want, ok := decodeArgon2(hash)
		if !ok {
			return false
		}
		rawSalt, err := hex.DecodeString(salt)
		if err != nil || len(rawSalt) == 0 {
			return false
		}
		got := h.derive(password, rawSalt, params)
		return subtle.ConstantTimeCompare(got, want) == 1
	}

	if isLegacyHash(hash) {
		got := h.legacy(password, salt)
		return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(hash))) == 1
	}

	return false
}

// NeedsRehash reports whether a stored hash was produced by the legacy
// single-pass digest or with a different work factor.
func (h *PasswordHasher) NeedsRehash(hash string) bool {
	params, _, ok := decodeArgon2(hash)
	if !ok {
		return true
	}
	return params != h.params
}

func (h *PasswordHasher) derive(password string, salt []byte, p Argon2Params) []byte {
	return argon2.IDKey([]byte(password+h.pepper), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
}

// legacy reproduces sha256(password || salt || pepper) as lowercase hex,
// the format of credential stores created before the KDF switch.
func (h *PasswordHasher) legacy(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt + h.pepper))
	return hex.EncodeToString(sum[:])
}

func isLegacyHash(hash string) bool {
	if len(hash) != legacyHashLen {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

// encodeArgon2 renders argon2id$v=19$m=...,t=...,p=...$<base64 key>.
func encodeArgon2(p Argon2Params, key []byte) string {
	return fmt.Sprintf("%s$v=%d$m=%d,t=%d,p=%d$%s",
		argon2Prefix, argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(key))
}

func decodeArgon2(hash string) (Argon2Params, []byte, bool) {
	parts := strings.Split(hash, "$")
	if len(parts) != 4 || parts[0] != argon2Prefix {
		return Argon2Params{}, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return Argon2Params{}, nil, false
	}

	var p Argon2Params
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return Argon2Params{}, nil, false
	}
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 {
		return Argon2Params{}, nil, false
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return Argon2Params{}, nil, false
	}
	p.KeyLen = uint32(len(key))

	return p, key, true
}
