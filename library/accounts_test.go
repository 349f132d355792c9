package library

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newDirectory(t *testing.T, store Store[User], opts ...DirectoryOption) *Directory {
	t.Helper()
	d, err := NewDirectory(store, opts...)
	require.NoError(t, err)
	return d
}

func TestRegisterAndAuthenticate(t *testing.T) {
	store := &memStore[User]{}
	d := newDirectory(t, store)

	require.NoError(t, d.Register("bob", "s3cret", RoleMember))

	u, err := d.Authenticate("bob", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.Equal(t, RoleMember, u.Role)

	_, err = d.Authenticate("bob", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = d.Authenticate("nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	// Lookup at login is exact.
	_, err = d.Authenticate("BOB", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.Len(t, store.records, 1)
	assert.NotEqual(t, "s3cret", store.records[0].Credential.Hash)
}

func TestRegisterDuplicateIgnoresCase(t *testing.T) {
	store := &memStore[User]{}
	d := newDirectory(t, store)
	require.NoError(t, d.Register("bob", "one", RoleMember))

	err := d.Register("Bob", "two", RoleAdmin)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Len(t, store.records, 1)
	assert.True(t, d.Exists("BOB"))
	assert.False(t, d.Exists("alice"))
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	d := newDirectory(t, &memStore[User]{})
	assert.ErrorIs(t, d.Register("", "pw", RoleMember), ErrInvalidInput)
	assert.ErrorIs(t, d.Register("bo b", "pw", RoleMember), ErrInvalidInput)
	assert.ErrorIs(t, d.Register("bo|b", "pw", RoleMember), ErrInvalidInput)
	assert.ErrorIs(t, d.Register("bob", "", RoleMember), ErrInvalidInput)
	assert.Empty(t, d.Users())
}

func TestBootstrapOnlyOnEmptyDirectory(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := &memStore[User]{}
	d := newDirectory(t, store, WithDirectoryLogger(zap.New(core)))

	created, err := d.Bootstrap("admin", "admin123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, logs.Len())

	u, err := d.Authenticate("admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)

	created, err = d.Bootstrap("admin", "admin123")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, store.records, 1)
}

func TestDirectoryPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.txt")
	h, err := NewHasher(DigestSHA3256)
	require.NoError(t, err)

	d := newDirectory(t, NewFileStore(path, RecordCodec[User](UserCodec{}), nil), WithHasher(h))
	require.NoError(t, d.Register("bob", "s3cret", RoleAdmin))

	d = newDirectory(t, NewFileStore(path, RecordCodec[User](UserCodec{}), nil), WithHasher(h))
	u, err := d.Authenticate("bob", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
}

func TestUsersReturnsCopies(t *testing.T) {
	d := newDirectory(t, &memStore[User]{})
	require.NoError(t, d.Register("bob", "s3cret", RoleMember))

	users := d.Users()
	users[0].Credential.Salt[0] ^= 0xff

	_, err := d.Authenticate("bob", "s3cret")
	assert.NoError(t, err)
}
