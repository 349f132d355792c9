package library

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

const (
	// SaltSize is the number of random bytes drawn per credential.
	SaltSize   = 16
	digestSize = 32
)

// Digest names the 256-bit hash used for credentials. A deployment must keep
// the same digest for the lifetime of its user store.
type Digest string

const (
	DigestSHA256  Digest = "sha256"
	DigestSHA3256 Digest = "sha3-256"
)

// Hasher derives and verifies credentials as hex(digest(salt || password)).
type Hasher struct {
	newHash func() hash.Hash
	rand    io.Reader
}

// NewHasher returns a hasher for d; an empty digest selects SHA-256.
func NewHasher(d Digest) (*Hasher, error) {
	switch d {
	case DigestSHA256, "":
		return &Hasher{newHash: sha256.New, rand: rand.Reader}, nil
	case DigestSHA3256:
		return &Hasher{newHash: sha3.New256, rand: rand.Reader}, nil
	}
	return nil, errors.Errorf("unsupported digest %q", d)
}

// Derive draws a fresh salt and hashes password with it. Two calls with the
// same password yield different credentials.
func (h *Hasher) Derive(password string) (Credential, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return Credential{}, errors.Wrap(err, "generate salt")
	}
	return Credential{Hash: h.digest(salt, password), Salt: salt}, nil
}

// Verify recomputes the digest with the stored salt.
func (h *Hasher) Verify(password string, c Credential) bool {
	got := h.digest(c.Salt, password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(c.Hash)) == 1
}

func (h *Hasher) digest(salt []byte, password string) string {
	d := h.newHash()
	d.Write(salt)
	d.Write([]byte(password))
	return hex.EncodeToString(d.Sum(nil))
}
