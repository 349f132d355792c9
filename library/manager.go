package library

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"library-ledger/config"
)

// LibraryManager is a thin façade over the Ledger and the Directory, keeping
// CLI code simple.
type LibraryManager struct {
	ledger   *Ledger
	accounts *Directory
	closers  []io.Closer
	log      *zap.Logger

	// DefaultAdminCreated is set when this run bootstrapped the admin account.
	DefaultAdminCreated bool
}

// ManagerOption customises NewLibraryManager.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	ledger []LedgerOption
}

// WithLedgerOptions forwards options to the Ledger, e.g. WithClock in tests.
func WithLedgerOptions(opts ...LedgerOption) ManagerOption {
	return func(o *managerOptions) { o.ledger = append(o.ledger, opts...) }
}

// NewLibraryManager opens (or creates) the three stores under cfg.DataDir and
// bootstraps the default admin on first run.
func NewLibraryManager(cfg config.Config, log *zap.Logger, opts ...ManagerOption) (*LibraryManager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var mo managerOptions
	for _, o := range opts {
		o(&mo)
	}

	lm := &LibraryManager{log: log}
	fail := func(err error) (*LibraryManager, error) {
		lm.Close()
		return nil, err
	}

	books, err := openStore(lm, cfg, "books", RecordCodec[Book](BookCodec{}))
	if err != nil {
		return fail(err)
	}
	txs, err := openStore(lm, cfg, "transactions", RecordCodec[Transaction](TransactionCodec{}))
	if err != nil {
		return fail(err)
	}
	users, err := openStore(lm, cfg, "users", RecordCodec[User](UserCodec{}))
	if err != nil {
		return fail(err)
	}

	ledgerOpts := append([]LedgerOption{
		WithLoanPolicy(cfg.Loan.Days, cfg.Loan.FinePerDay),
		WithLedgerLogger(log),
	}, mo.ledger...)
	if lm.ledger, err = NewLedger(books, txs, ledgerOpts...); err != nil {
		return fail(err)
	}

	hasher, err := NewHasher(Digest(cfg.Credential.Digest))
	if err != nil {
		return fail(err)
	}
	if lm.accounts, err = NewDirectory(users, WithHasher(hasher), WithDirectoryLogger(log)); err != nil {
		return fail(err)
	}
	if lm.DefaultAdminCreated, err = lm.accounts.Bootstrap(cfg.Bootstrap.Username, cfg.Bootstrap.Password); err != nil {
		return fail(err)
	}
	return lm, nil
}

var storeNames = []string{"books", "transactions", "users"}

func storePath(cfg config.Config, name string) string {
	if cfg.Storage.Backend == config.BackendSQLite {
		return filepath.Join(cfg.DataDir, name+".sqlite")
	}
	return filepath.Join(cfg.DataDir, name+".txt")
}

// StoreFiles lists every file the configured backend may create, including
// SQLite's WAL side files.
func StoreFiles(cfg config.Config) []string {
	var out []string
	for _, name := range storeNames {
		p := storePath(cfg, name)
		out = append(out, p)
		if cfg.Storage.Backend == config.BackendSQLite {
			out = append(out, p+"-shm", p+"-wal")
		}
	}
	return out
}

func openStore[T any](lm *LibraryManager, cfg config.Config, name string, codec RecordCodec[T]) (Store[T], error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		s, err := NewSQLiteStore(storePath(cfg, name), codec, lm.log)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s store", name)
		}
		lm.closers = append(lm.closers, s)
		return s, nil
	case config.BackendFlat, "":
		return NewFileStore(storePath(cfg, name), codec, lm.log), nil
	}
	return nil, errors.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// Close releases any open store handles.
func (lm *LibraryManager) Close() error {
	var first error
	for _, c := range lm.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	lm.closers = nil
	return first
}

// ------------------ Accounts ------------------

func (lm *LibraryManager) Register(username, password string) error {
	return lm.accounts.Register(username, password, RoleMember)
}

// RegisterWithRole is for admins creating other accounts.
func (lm *LibraryManager) RegisterWithRole(actor User, username, password string, role Role) error {
	if role == RoleAdmin && actor.Role != RoleAdmin {
		return errors.Wrap(ErrPermissionDenied, "only admins can create admins")
	}
	return lm.accounts.Register(username, password, role)
}

func (lm *LibraryManager) Login(username, password string) (User, error) {
	return lm.accounts.Authenticate(username, password)
}

func (lm *LibraryManager) UserExists(username string) bool { return lm.accounts.Exists(username) }
func (lm *LibraryManager) GetAllUsers() []User             { return lm.accounts.Users() }

// Authorize fails with ErrPermissionDenied when u's role does not grant p.
func (lm *LibraryManager) Authorize(u User, p Permission) error {
	if !u.Role.Can(p) {
		return errors.Wrapf(ErrPermissionDenied, "%s (%s)", u.Username, u.Role)
	}
	return nil
}

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(title, author, isbn string) error {
	return lm.ledger.AddBook(title, author, isbn)
}

func (lm *LibraryManager) DeleteBook(isbn string) error      { return lm.ledger.DeleteBook(isbn) }
func (lm *LibraryManager) GetBook(isbn string) (Book, error) { return lm.ledger.GetBook(isbn) }
func (lm *LibraryManager) GetAllBooks() []Book               { return lm.ledger.ListBooks() }
func (lm *LibraryManager) SearchBooks(q string) []Book       { return lm.ledger.SearchBooks(q) }

// ImportCatalog reads a YAML catalog from r and adds its books.
func (lm *LibraryManager) ImportCatalog(r io.Reader) (ImportSummary, error) {
	c, err := LoadCatalog(r)
	if err != nil {
		return ImportSummary{}, err
	}
	return lm.ledger.Import(c), nil
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) BorrowBook(isbn, username string) (time.Time, error) {
	return lm.ledger.BorrowBook(isbn, username)
}

func (lm *LibraryManager) ReturnBook(isbn, username string) (ReturnReceipt, error) {
	return lm.ledger.ReturnBook(isbn, username)
}

func (lm *LibraryManager) History(username string) []Transaction { return lm.ledger.History(username) }
func (lm *LibraryManager) Report() Report                        { return lm.ledger.Report() }

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b Book) string {
	return fmt.Sprintf("%-15s %-30s %-25s %-10s", b.ISBN, truncate(b.Title, 30), truncate(b.Author, 25), b.Status)
}

// PrettyTransaction formats a loan for history listings.
func PrettyTransaction(t Transaction) string {
	returned := "Not Returned"
	if t.ReturnDate != nil {
		returned = FormatDate(*t.ReturnDate)
	}
	return fmt.Sprintf("%-15s %-12s %-12s %-12s %d", t.ISBN, FormatDate(t.IssueDate), FormatDate(t.DueDate), returned, t.Fine)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
