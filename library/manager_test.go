package library

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-ledger/config"
)

func newManager(t *testing.T, backend string, opts ...ManagerOption) (*LibraryManager, config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Backend = backend
	mgr, err := NewLibraryManager(cfg, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr, cfg
}

func TestManagerBootstrapsAdmin(t *testing.T) {
	mgr, cfg := newManager(t, config.BackendFlat)
	assert.True(t, mgr.DefaultAdminCreated)

	u, err := mgr.Login("admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)

	// A second open finds the account already there.
	again, err := NewLibraryManager(cfg, nil)
	require.NoError(t, err)
	defer again.Close()
	assert.False(t, again.DefaultAdminCreated)
	assert.Len(t, again.GetAllUsers(), 1)
}

func TestManagerEndToEnd(t *testing.T) {
	for _, backend := range []string{config.BackendFlat, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			now := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
			mgr, cfg := newManager(t, backend, WithLedgerOptions(WithClock(func() time.Time { return now })))

			require.NoError(t, mgr.Register("bob", "pw"))
			require.NoError(t, mgr.AddBook("Dune", "Herbert", "111"))

			due, err := mgr.BorrowBook("111", "bob")
			require.NoError(t, err)
			assert.Equal(t, "08-03-2024", FormatDate(due))

			now = now.AddDate(0, 0, 9)
			rr, err := mgr.ReturnBook("111", "bob")
			require.NoError(t, err)
			assert.Equal(t, ReturnReceipt{LateDays: 2, Fine: 20}, rr)
			require.NoError(t, mgr.Close())

			reopened, err := NewLibraryManager(cfg, nil)
			require.NoError(t, err)
			defer reopened.Close()

			_, err = reopened.Login("bob", "pw")
			require.NoError(t, err)
			h := reopened.History("bob")
			require.Len(t, h, 1)
			assert.Equal(t, int64(20), h[0].Fine)

			r := reopened.Report()
			assert.Equal(t, 1, r.Available)
			assert.Equal(t, "bob", r.TopFine.Key)
		})
	}
}

func TestManagerStoreFiles(t *testing.T) {
	for backend, ext := range map[string]string{config.BackendFlat: ".txt", config.BackendSQLite: ".sqlite"} {
		mgr, cfg := newManager(t, backend)
		require.NoError(t, mgr.AddBook("Dune", "Herbert", "111"))

		files := StoreFiles(cfg)
		for _, name := range storeNames {
			assert.Contains(t, files, storePath(cfg, name))
			assert.True(t, strings.HasSuffix(storePath(cfg, name), ext))
		}
		_, err := os.Stat(storePath(cfg, "books"))
		assert.NoError(t, err, backend)
	}
}

func TestManagerUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Backend = "postgres"
	_, err := NewLibraryManager(cfg, nil)
	assert.Error(t, err)
}

func TestAuthorizeAndRegisterWithRole(t *testing.T) {
	mgr, _ := newManager(t, config.BackendFlat)
	admin, err := mgr.Login("admin", "admin123")
	require.NoError(t, err)

	require.NoError(t, mgr.Register("bob", "pw"))
	bob, err := mgr.Login("bob", "pw")
	require.NoError(t, err)

	assert.NoError(t, mgr.Authorize(bob, PermBorrow))
	assert.ErrorIs(t, mgr.Authorize(bob, PermManageBooks), ErrPermissionDenied)
	assert.ErrorIs(t, mgr.Authorize(bob, PermViewReports), ErrPermissionDenied)
	assert.NoError(t, mgr.Authorize(admin, PermViewReports))

	assert.ErrorIs(t, mgr.RegisterWithRole(bob, "eve", "pw", RoleAdmin), ErrPermissionDenied)
	require.NoError(t, mgr.RegisterWithRole(admin, "carol", "pw", RoleAdmin))
	carol, err := mgr.Login("carol", "pw")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, carol.Role)
}

func TestImportCatalogThroughManager(t *testing.T) {
	mgr, _ := newManager(t, config.BackendSQLite)
	sum, err := mgr.ImportCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Added)
	assert.Len(t, mgr.GetAllBooks(), 2)

	_, err = mgr.ImportCatalog(strings.NewReader("books: {"))
	assert.Error(t, err)
}

func TestPrettyBook(t *testing.T) {
	line := PrettyBook(Book{Title: strings.Repeat("x", 40), Author: "A", ISBN: "111", Status: StatusIssued})
	assert.Contains(t, line, strings.Repeat("x", 27)+"...")
	assert.Contains(t, line, "Issued")
}
