// Package auth hashes and verifies the bearer tokens that authorize roster
// writes.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidTokenHash    = errors.New("invalid token hash format")
	ErrIncompatibleVersion = errors.New("incompatible token hash version")
	ErrInvalidToken        = errors.New("invalid token")
)

// Argon2idParams tunes the key derivation.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// GenerateToken returns a random URL-safe token of 32 bytes of entropy.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken derives an encoded argon2id hash of token.
func HashToken(token string, params Argon2idParams) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(token), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	// $argon2id$v=19$m=...,t=...,p=...$salt$hash
	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

type decodedHash struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func decodeHash(encoded string) (decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return decodedHash{}, ErrInvalidTokenHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidTokenHash, err)
	}
	if version != argon2.Version {
		return decodedHash{}, ErrIncompatibleVersion
	}

	var d decodedHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.params.Memory, &d.params.Iterations, &d.params.Parallelism); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidTokenHash, err)
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidTokenHash, err)
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return decodedHash{}, fmt.Errorf("%w: %v", ErrInvalidTokenHash, err)
	}
	if len(d.key) == 0 {
		return decodedHash{}, ErrInvalidTokenHash
	}
	d.params.SaltLength = uint32(len(d.salt))
	d.params.KeyLength = uint32(len(d.key))
	return d, nil
}

func (d decodedHash) matches(token string) bool {
	candidate := argon2.IDKey([]byte(token), d.salt, d.params.Iterations, d.params.Memory, d.params.Parallelism, d.params.KeyLength)
	return subtle.ConstantTimeCompare(d.key, candidate) == 1
}

// VerifyToken checks token against an encoded hash.
func VerifyToken(encodedHash, token string) error {
	d, err := decodeHash(encodedHash)
	if err != nil {
		return err
	}
	if !d.matches(token) {
		return ErrInvalidToken
	}
	return nil
}

// Verifier checks tokens against one configured hash. The hash is parsed
// once, and the SHA-256 digest of the last accepted token is remembered so a
// client repeating its token skips the key derivation.
type Verifier struct {
	hash decodedHash

	mu       sync.Mutex
	accepted [sha256.Size]byte
	hasLast  bool
}

// NewVerifier parses encodedHash.
func NewVerifier(encodedHash string) (*Verifier, error) {
	d, err := decodeHash(encodedHash)
	if err != nil {
		return nil, err
	}
	return &Verifier{hash: d}, nil
}

// Verify returns nil when token matches the configured hash.
func (v *Verifier) Verify(token string) error {
	if token == "" {
		return ErrInvalidToken
	}
	digest := sha256.Sum256([]byte(token))

	v.mu.Lock()
	cached := v.hasLast && subtle.ConstantTimeCompare(v.accepted[:], digest[:]) == 1
	v.mu.Unlock()
	if cached {
		return nil
	}

	if !v.hash.matches(token) {
		return ErrInvalidToken
	}

	v.mu.Lock()
	v.accepted = digest
	v.hasLast = true
	v.mu.Unlock()
	return nil
}
