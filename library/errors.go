package library

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrNotFound           = errors.New("not found")
	ErrNotAvailable       = errors.New("book is not available")
	ErrNotIssued          = errors.New("book is not issued")
	ErrNoOpenLoan         = errors.New("no open loan for this book and user")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrStorageWrite       = errors.New("storage write failed")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPermissionDenied   = errors.New("permission denied")
)

// StorageError describes an I/O failure against a backing store.
type StorageError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorageWrite) match failed saves.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageWrite && e.Op == "save"
}
