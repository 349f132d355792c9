package library

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Directory owns the user accounts.
type Directory struct {
	store  Store[User]
	users  []User
	hasher *Hasher
	log    *zap.Logger
}

// DirectoryOption customises a Directory.
type DirectoryOption func(*Directory)

// WithHasher sets the credential hasher; the default uses SHA-256.
func WithHasher(h *Hasher) DirectoryOption {
	return func(d *Directory) { d.hasher = h }
}

// WithDirectoryLogger sets the logger.
func WithDirectoryLogger(log *zap.Logger) DirectoryOption {
	return func(d *Directory) { d.log = log }
}

// NewDirectory loads the user store.
func NewDirectory(users Store[User], opts ...DirectoryOption) (*Directory, error) {
	d := &Directory{store: users, log: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	d.log = d.log.Named("accounts")
	if d.hasher == nil {
		h, err := NewHasher(DigestSHA256)
		if err != nil {
			return nil, err
		}
		d.hasher = h
	}

	var err error
	if d.users, err = users.Load(); err != nil {
		return nil, errors.Wrap(err, "load users")
	}
	return d, nil
}

// Bootstrap creates a single Admin account when the directory is empty and
// reports whether it did. The credentials are well known and must be changed
// in any real deployment.
func (d *Directory) Bootstrap(username, password string) (bool, error) {
	if len(d.users) > 0 {
		return false, nil
	}
	if err := d.Register(username, password, RoleAdmin); err != nil {
		return false, errors.Wrap(err, "create default admin")
	}
	d.log.Warn("default admin account created; change its password", zap.String("username", username))
	return true, nil
}

// Register adds an account. Usernames are unique regardless of case.
func (d *Directory) Register(username, password string, role Role) error {
	if err := validateInput(accountInput{Username: username, Password: password}); err != nil {
		return err
	}
	if d.Exists(username) {
		return errors.Wrapf(ErrDuplicateKey, "username %s", username)
	}
	cred, err := d.hasher.Derive(password)
	if err != nil {
		return err
	}
	d.users = append(d.users, User{Username: username, Credential: cred, Role: role})
	if err := d.store.SaveAll(d.users); err != nil {
		d.log.Error("saving users", zap.Error(err))
		return err
	}
	d.log.Info("account registered", zap.String("username", username), zap.Stringer("role", role))
	return nil
}

// Authenticate matches the username exactly and verifies the password. An
// unknown user and a wrong password yield the same error.
func (d *Directory) Authenticate(username, password string) (User, error) {
	for _, u := range d.users {
		if u.Username == username && d.hasher.Verify(password, u.Credential) {
			return u, nil
		}
	}
	d.log.Debug("authentication failed", zap.String("username", username))
	return User{}, ErrInvalidCredentials
}

// Exists reports whether username is taken, ignoring case.
func (d *Directory) Exists(username string) bool {
	for _, u := range d.users {
		if strings.EqualFold(u.Username, username) {
			return true
		}
	}
	return false
}

// Users returns the accounts in registration order.
func (d *Directory) Users() []User {
	out := make([]User, len(d.users))
	for i, u := range d.users {
		u.Credential.Salt = append([]byte(nil), u.Credential.Salt...)
		out[i] = u
	}
	return out
}
