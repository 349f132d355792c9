package library

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasherDeriveUsesFreshSalt(t *testing.T) {
	h, err := NewHasher(DigestSHA256)
	require.NoError(t, err)

	a, err := h.Derive("hunter2")
	require.NoError(t, err)
	b, err := h.Derive("hunter2")
	require.NoError(t, err)

	assert.Len(t, a.Salt, SaltSize)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Hash, b.Hash)
	assert.True(t, isDigestHex(a.Hash))
}

func TestHasherVerify(t *testing.T) {
	for _, d := range []Digest{DigestSHA256, DigestSHA3256} {
		t.Run(string(d), func(t *testing.T) {
			h, err := NewHasher(d)
			require.NoError(t, err)
			c, err := h.Derive("hunter2")
			require.NoError(t, err)

			assert.True(t, h.Verify("hunter2", c))
			assert.False(t, h.Verify("hunter3", c))
			assert.False(t, h.Verify("", c))
		})
	}
}

func TestHasherKnownDigest(t *testing.T) {
	// The digest covers salt||password, so salt "a" and password "bc" hash "abc".
	cases := map[Digest]string{
		DigestSHA256:  "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		DigestSHA3256: "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532",
	}
	for d, want := range cases {
		h, err := NewHasher(d)
		require.NoError(t, err)
		assert.Equal(t, want, h.digest([]byte("a"), "bc"), string(d))
	}
}

func TestHasherSaltComesFromRandSource(t *testing.T) {
	h, err := NewHasher(DigestSHA256)
	require.NoError(t, err)
	h.rand = bytes.NewReader([]byte("0123456789abcdef"))

	c, err := h.Derive("pw")
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), c.Salt)

	// An exhausted source is an error, not a short salt.
	_, err = h.Derive("pw")
	assert.Error(t, err)
}

func TestDigestsDiffer(t *testing.T) {
	sha2, err := NewHasher(DigestSHA256)
	require.NoError(t, err)
	sha3, err := NewHasher(DigestSHA3256)
	require.NoError(t, err)

	salt := []byte("0123456789abcdef")
	assert.NotEqual(t, sha2.digest(salt, "pw"), sha3.digest(salt, "pw"))

	c, err := sha2.Derive("pw")
	require.NoError(t, err)
	assert.False(t, sha3.Verify("pw", c))
}

func TestNewHasherRejectsUnknownDigest(t *testing.T) {
	_, err := NewHasher("md5")
	assert.Error(t, err)
}
