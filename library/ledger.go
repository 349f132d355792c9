package library

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultLoanDays   = 7
	DefaultFinePerDay = 10
)

// Ledger owns the book inventory and the loan history. Every mutation is
// written through to both stores before it reports success; a failed write
// leaves the in-memory change in place until the next successful save.
// A Ledger is not safe for concurrent use.
type Ledger struct {
	bookStore Store[Book]
	txStore   Store[Transaction]

	books []Book
	txs   []Transaction

	loanDays   int
	finePerDay int64
	now        func() time.Time
	log        *zap.Logger
}

// LedgerOption customises a Ledger.
type LedgerOption func(*Ledger)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithLoanPolicy sets the loan length in days and the fine charged per late day.
func WithLoanPolicy(days int, finePerDay int64) LedgerOption {
	return func(l *Ledger) {
		l.loanDays = days
		l.finePerDay = finePerDay
	}
}

// WithLedgerLogger sets the logger.
func WithLedgerLogger(log *zap.Logger) LedgerOption {
	return func(l *Ledger) { l.log = log }
}

// NewLedger loads both collections and returns a ready ledger.
func NewLedger(books Store[Book], txs Store[Transaction], opts ...LedgerOption) (*Ledger, error) {
	l := &Ledger{
		bookStore:  books,
		txStore:    txs,
		loanDays:   DefaultLoanDays,
		finePerDay: DefaultFinePerDay,
		now:        time.Now,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(l)
	}
	l.log = l.log.Named("ledger")

	var err error
	if l.books, err = books.Load(); err != nil {
		return nil, errors.Wrap(err, "load books")
	}
	if l.txs, err = txs.Load(); err != nil {
		return nil, errors.Wrap(err, "load transactions")
	}
	return l, nil
}

func (l *Ledger) today() time.Time { return civilDate(l.now()) }

func (l *Ledger) bookIndex(isbn string) int {
	for i := range l.books {
		if l.books[i].ISBN == isbn {
			return i
		}
	}
	return -1
}

// ------------------ Books ------------------

// AddBook catalogues a new Available book.
func (l *Ledger) AddBook(title, author, isbn string) error {
	if err := validateInput(bookInput{Title: title, Author: author, ISBN: isbn}); err != nil {
		return err
	}
	if l.bookIndex(isbn) >= 0 {
		return errors.Wrapf(ErrDuplicateKey, "isbn %s", isbn)
	}
	l.books = append(l.books, Book{Title: title, Author: author, ISBN: isbn, Status: StatusAvailable})
	if err := l.saveBooks(); err != nil {
		return err
	}
	l.log.Info("book added", zap.String("isbn", isbn))
	return nil
}

// DeleteBook removes a book. An open loan on it is left as is.
func (l *Ledger) DeleteBook(isbn string) error {
	i := l.bookIndex(isbn)
	if i < 0 {
		return errors.Wrapf(ErrNotFound, "isbn %s", isbn)
	}
	issued := l.books[i].Status == StatusIssued
	l.books = append(l.books[:i], l.books[i+1:]...)
	if err := l.saveBooks(); err != nil {
		return err
	}
	if issued {
		l.log.Warn("deleted a book that is still on loan", zap.String("isbn", isbn))
	}
	l.log.Info("book deleted", zap.String("isbn", isbn))
	return nil
}

// GetBook returns a copy of the book with the given isbn.
func (l *Ledger) GetBook(isbn string) (Book, error) {
	i := l.bookIndex(isbn)
	if i < 0 {
		return Book{}, errors.Wrapf(ErrNotFound, "isbn %s", isbn)
	}
	return l.books[i], nil
}

// ListBooks returns every book in insertion order.
func (l *Ledger) ListBooks() []Book {
	out := make([]Book, len(l.books))
	copy(out, l.books)
	return out
}

// SearchBooks matches keyword case-insensitively against title and author,
// and exactly against isbn.
func (l *Ledger) SearchBooks(keyword string) []Book {
	kw := strings.ToLower(keyword)
	out := []Book{}
	for _, b := range l.books {
		if strings.Contains(strings.ToLower(b.Title), kw) ||
			strings.Contains(strings.ToLower(b.Author), kw) ||
			b.ISBN == keyword {
			out = append(out, b)
		}
	}
	return out
}

// ------------------ Circulation ------------------

// BorrowBook issues an Available book to username and returns the due date.
func (l *Ledger) BorrowBook(isbn, username string) (time.Time, error) {
	if err := validateInput(borrowerInput{Username: username}); err != nil {
		return time.Time{}, err
	}
	i := l.bookIndex(isbn)
	if i < 0 {
		return time.Time{}, errors.Wrapf(ErrNotFound, "isbn %s", isbn)
	}
	if l.books[i].Status != StatusAvailable {
		return time.Time{}, errors.Wrapf(ErrNotAvailable, "isbn %s", isbn)
	}

	issued := l.today()
	due := issued.AddDate(0, 0, l.loanDays)
	l.books[i].Status = StatusIssued
	l.txs = append(l.txs, Transaction{
		Username:  username,
		ISBN:      isbn,
		IssueDate: issued,
		DueDate:   due,
	})
	if err := l.saveAll(); err != nil {
		return time.Time{}, err
	}
	l.log.Info("book borrowed",
		zap.String("isbn", isbn),
		zap.String("username", username),
		zap.String("due", FormatDate(due)))
	return due, nil
}

// ReturnBook closes the open loan of isbn held by username and charges the
// fine for every day past the due date.
func (l *Ledger) ReturnBook(isbn, username string) (ReturnReceipt, error) {
	i := l.bookIndex(isbn)
	if i < 0 {
		return ReturnReceipt{}, errors.Wrapf(ErrNotFound, "isbn %s", isbn)
	}
	if l.books[i].Status != StatusIssued {
		return ReturnReceipt{}, errors.Wrapf(ErrNotIssued, "isbn %s", isbn)
	}
	t := l.openLoan(isbn, username)
	if t < 0 {
		return ReturnReceipt{}, errors.Wrapf(ErrNoOpenLoan, "isbn %s, user %s", isbn, username)
	}

	today := l.today()
	late := max(0, daysBetween(l.txs[t].DueDate, today))
	fine := late * l.finePerDay

	l.txs[t].ReturnDate = &today
	l.txs[t].Fine = fine
	l.books[i].Status = StatusAvailable
	if err := l.saveAll(); err != nil {
		return ReturnReceipt{}, err
	}
	l.log.Info("book returned",
		zap.String("isbn", isbn),
		zap.String("username", username),
		zap.Int64("late_days", late),
		zap.Int64("fine", fine))
	return ReturnReceipt{LateDays: late, Fine: fine}, nil
}

// openLoan finds the open transaction for (isbn, username). Borrowing is
// gated on Available, so at most one can exist.
func (l *Ledger) openLoan(isbn, username string) int {
	for i := range l.txs {
		t := &l.txs[i]
		if t.ISBN == isbn && t.Username == username && t.Open() {
			return i
		}
	}
	return -1
}

// History returns username's transactions in insertion order.
func (l *Ledger) History(username string) []Transaction {
	out := []Transaction{}
	for _, t := range l.txs {
		if t.Username == username {
			out = append(out, t.clone())
		}
	}
	return out
}

// Report aggregates counts and the leading borrower statistics. Ties go to
// the key that appears first in the transaction history.
func (l *Ledger) Report() Report {
	r := Report{TotalBooks: len(l.books)}
	for _, b := range l.books {
		if b.Status == StatusAvailable {
			r.Available++
		} else {
			r.Issued++
		}
	}
	if len(l.txs) == 0 {
		return r
	}

	borrowed := newTallies()
	fines := newTallies()
	for _, t := range l.txs {
		borrowed.add(t.ISBN, 1)
		fines.add(t.Username, t.Fine)
	}
	r.MostBorrowed = borrowed.top()
	r.TopFine = fines.top()
	return r
}

// tallies sums values per key and remembers first-seen order.
type tallies struct {
	order []string
	sums  map[string]int64
}

func newTallies() *tallies { return &tallies{sums: map[string]int64{}} }

func (t *tallies) add(key string, v int64) {
	if _, ok := t.sums[key]; !ok {
		t.order = append(t.order, key)
	}
	t.sums[key] += v
}

func (t *tallies) top() *Tally {
	if len(t.order) == 0 {
		return nil
	}
	best := Tally{Key: t.order[0], Value: t.sums[t.order[0]]}
	for _, k := range t.order[1:] {
		if t.sums[k] > best.Value {
			best = Tally{Key: k, Value: t.sums[k]}
		}
	}
	return &best
}

// ------------------ Persistence ------------------

func (l *Ledger) saveBooks() error {
	if err := l.bookStore.SaveAll(l.books); err != nil {
		l.log.Error("saving books", zap.Error(err))
		return err
	}
	return nil
}

// saveAll writes books then transactions; a crash in between can leave the
// two files disagreeing.
func (l *Ledger) saveAll() error {
	if err := l.saveBooks(); err != nil {
		return err
	}
	if err := l.txStore.SaveAll(l.txs); err != nil {
		l.log.Error("saving transactions", zap.Error(err))
		return err
	}
	return nil
}
