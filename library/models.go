package library

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DateLayout is the DD-MM-YYYY pattern used for every persisted date.
const DateLayout = "02-01-2006"

// Status is the availability state of a book.
type Status int

const (
	StatusAvailable Status = iota
	StatusIssued
)

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "Available"
	case StatusIssued:
		return "Issued"
	default:
		return "Unknown"
	}
}

// ParseStatus accepts the persisted status names.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "Available":
		return StatusAvailable, nil
	case "Issued":
		return StatusIssued, nil
	}
	return 0, errors.Errorf("unknown status %q", s)
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Role is the closed set of account roles.
type Role int

const (
	RoleMember Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleMember:
		return "Member"
	default:
		return "Unknown"
	}
}

// ParseRole is case-insensitive; the legacy "User" spelling maps to RoleMember.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "admin":
		return RoleAdmin, nil
	case "member", "user":
		return RoleMember, nil
	}
	return 0, errors.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Permission names an action guarded by role.
type Permission int

const (
	PermBrowse Permission = iota
	PermBorrow
	PermManageBooks
	PermViewReports
	PermManageUsers
)

// Can reports whether the role grants p.
func (r Role) Can(p Permission) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleMember:
		return p == PermBrowse || p == PermBorrow
	default:
		return false
	}
}

// Book is a catalogued title keyed by ISBN.
type Book struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
	Status Status `json:"status"`
}

// Credential is a salted one-way password digest.
type Credential struct {
	Hash string `json:"-"` // lowercase hex
	Salt []byte `json:"-"`
}

// User is a registered account. Username uniqueness is case-insensitive.
type User struct {
	Username   string     `json:"username"`
	Credential Credential `json:"-"`
	Role       Role       `json:"role"`
}

// Transaction records one loan. ReturnDate is nil while the loan is open.
type Transaction struct {
	Username   string     `json:"username"`
	ISBN       string     `json:"isbn"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Fine       int64      `json:"fine"`
}

// Open reports whether the loan has not been returned yet.
func (t Transaction) Open() bool { return t.ReturnDate == nil }

func (t Transaction) clone() Transaction {
	if t.ReturnDate != nil {
		d := *t.ReturnDate
		t.ReturnDate = &d
	}
	return t
}

// ReturnReceipt is the outcome of a successful return.
type ReturnReceipt struct {
	LateDays int64 `json:"late_days"`
	Fine     int64 `json:"fine"`
}

// Tally is a key with its aggregated amount.
type Tally struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// Report aggregates the inventory and loan history. MostBorrowed and TopFine
// are nil when no transactions exist.
type Report struct {
	TotalBooks   int    `json:"total_books"`
	Available    int    `json:"available"`
	Issued       int    `json:"issued"`
	MostBorrowed *Tally `json:"most_borrowed,omitempty"`
	TopFine      *Tally `json:"top_fine,omitempty"`
}

// civilDate truncates t to its calendar day, expressed at UTC midnight so day
// differences are exact multiples of 24h.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int64 {
	return int64(civilDate(to).Sub(civilDate(from)).Hours() / 24)
}

// FormatDate renders d with DateLayout.
func FormatDate(d time.Time) string { return d.Format(DateLayout) }
