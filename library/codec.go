package library

import (
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// FieldSeparator delimits the fields of one persisted record. Field values
// never contain it; inputs carrying it are rejected before they are stored.
const FieldSeparator = "|"

// RecordCodec maps a record to a single line of text and back. Decode must
// accept everything Encode produces and return ErrMalformedRecord otherwise.
type RecordCodec[T any] interface {
	Encode(record T) string
	Decode(line string) (T, error)
}

func splitFields(line string, want int) ([]string, error) {
	fields := strings.Split(line, FieldSeparator)
	if len(fields) != want {
		return nil, errors.Wrapf(ErrMalformedRecord, "want %d fields, got %d", want, len(fields))
	}
	return fields, nil
}

// ---------------------------------------------------------------------------
// Books: title|author|isbn|status
// ---------------------------------------------------------------------------

type BookCodec struct{}

func (BookCodec) Encode(b Book) string {
	return strings.Join([]string{b.Title, b.Author, b.ISBN, b.Status.String()}, FieldSeparator)
}

func (BookCodec) Decode(line string) (Book, error) {
	f, err := splitFields(line, 4)
	if err != nil {
		return Book{}, err
	}
	status, err := ParseStatus(f[3])
	if err != nil {
		return Book{}, errors.Wrap(ErrMalformedRecord, err.Error())
	}
	if f[2] == "" {
		return Book{}, errors.Wrap(ErrMalformedRecord, "empty isbn")
	}
	return Book{Title: f[0], Author: f[1], ISBN: f[2], Status: status}, nil
}

// ---------------------------------------------------------------------------
// Users: username|passwordHashHex|saltBase64|role
// ---------------------------------------------------------------------------

type UserCodec struct{}

func (UserCodec) Encode(u User) string {
	return strings.Join([]string{
		u.Username,
		u.Credential.Hash,
		base64.StdEncoding.EncodeToString(u.Credential.Salt),
		u.Role.String(),
	}, FieldSeparator)
}

func (UserCodec) Decode(line string) (User, error) {
	f, err := splitFields(line, 4)
	if err != nil {
		return User{}, err
	}
	if f[0] == "" {
		return User{}, errors.Wrap(ErrMalformedRecord, "empty username")
	}
	if !isDigestHex(f[1]) {
		return User{}, errors.Wrap(ErrMalformedRecord, "password hash is not a 256-bit lowercase hex digest")
	}
	salt, err := base64.StdEncoding.DecodeString(f[2])
	if err != nil || len(salt) == 0 {
		return User{}, errors.Wrap(ErrMalformedRecord, "salt is not base64")
	}
	role, err := ParseRole(f[3])
	if err != nil {
		return User{}, errors.Wrap(ErrMalformedRecord, err.Error())
	}
	return User{Username: f[0], Credential: Credential{Hash: f[1], Salt: salt}, Role: role}, nil
}

func isDigestHex(s string) bool {
	if len(s) != hex.EncodedLen(digestSize) || strings.ToLower(s) != s {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// ---------------------------------------------------------------------------
// Transactions: username|isbn|issueDate|dueDate|returnDate|fine
// ---------------------------------------------------------------------------

type TransactionCodec struct{}

func (TransactionCodec) Encode(t Transaction) string {
	returned := ""
	if t.ReturnDate != nil {
		returned = FormatDate(*t.ReturnDate)
	}
	return strings.Join([]string{
		t.Username,
		t.ISBN,
		FormatDate(t.IssueDate),
		FormatDate(t.DueDate),
		returned,
		strconv.FormatInt(t.Fine, 10),
	}, FieldSeparator)
}

func (TransactionCodec) Decode(line string) (Transaction, error) {
	f, err := splitFields(line, 6)
	if err != nil {
		return Transaction{}, err
	}
	issued, err := parseDate(f[2])
	if err != nil {
		return Transaction{}, err
	}
	due, err := parseDate(f[3])
	if err != nil {
		return Transaction{}, err
	}
	var returned *time.Time
	if f[4] != "" {
		d, err := parseDate(f[4])
		if err != nil {
			return Transaction{}, err
		}
		returned = &d
	}
	fine, err := strconv.ParseInt(f[5], 10, 64)
	if err != nil || fine < 0 {
		return Transaction{}, errors.Wrapf(ErrMalformedRecord, "bad fine %q", f[5])
	}
	return Transaction{
		Username:   f[0],
		ISBN:       f[1],
		IssueDate:  issued,
		DueDate:    due,
		ReturnDate: returned,
		Fine:       fine,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrMalformedRecord, "bad date %q", s)
	}
	return d, nil
}
