package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Encoded password hashes carry their scheme as a "{id}" prefix, e.g.
// "{bcrypt}$2a$10$...". A hash without a prefix is treated as bcrypt.
const (
	SchemeBcrypt = "bcrypt"
	SchemePBKDF2 = "pbkdf2"
)

const (
	pbkdf2Iterations = 310000
	pbkdf2SaltLen    = 16
	pbkdf2KeyLen     = 32
)

var ErrUnknownScheme = errors.New("unknown password scheme")

// EncodePassword hashes raw with the given scheme and returns the prefixed form.
func EncodePassword(scheme, raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemeBcrypt:
		return encodeBcrypt(raw, bcrypt.DefaultCost)
	case SchemePBKDF2:
		return encodePBKDF2(raw, pbkdf2Iterations)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

func encodeBcrypt(raw string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", err
	}
	return "{" + SchemeBcrypt + "}" + string(hash), nil
}

// pbkdf2 hashes are "{pbkdf2}<iterations>$<salt>$<key>" with raw-url base64
// salt and key, derived with SHA-256.
func encodePBKDF2(raw string, iterations int) (string, error) {
	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(raw), salt, iterations, pbkdf2KeyLen, sha256.New)
	return fmt.Sprintf("{%s}%d$%s$%s", SchemePBKDF2, iterations,
		base64.RawURLEncoding.EncodeToString(salt),
		base64.RawURLEncoding.EncodeToString(key)), nil
}

// CheckPassword reports whether raw matches the encoded hash.
// Malformed hashes and unknown schemes never match.
func CheckPassword(encoded, raw string) bool {
	scheme, hash := splitScheme(encoded)
	switch scheme {
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
	case SchemePBKDF2:
		return checkPBKDF2(hash, raw)
	default:
		return false
	}
}

func splitScheme(encoded string) (string, string) {
	encoded = strings.TrimSpace(encoded)
	if !strings.HasPrefix(encoded, "{") {
		return SchemeBcrypt, encoded
	}
	end := strings.IndexByte(encoded, '}')
	if end < 0 {
		return "", ""
	}
	return strings.ToLower(encoded[1:end]), encoded[end+1:]
}

func checkPBKDF2(hash, raw string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 3 {
		return false
	}
	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	want, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(raw), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
