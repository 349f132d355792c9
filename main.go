package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"library-ledger/config"
	"library-ledger/library"
	"library-ledger/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// app carries what every command needs once the root pre-run has opened the
// library.
type app struct {
	cfgPath string
	dataDir string
	backend string
	user    string
	asJSON  bool

	cfg    config.Config
	log    *zap.Logger
	mgr    *library.LibraryManager
	prompt *prompter
	out    io.Writer
}

func main() {
	a := &app{out: os.Stdout}
	err := newRootCmd(a, os.Stdin).Execute()
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
		fmt.Fprintln(os.Stderr, "Error:", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app, in io.Reader) *cobra.Command {
	root := &cobra.Command{
		Use:   "library",
		Short: "Lending-library ledger",
		Long: `Manage a small lending library: catalogue books, borrow and return them,
track fines, and report on circulation. Run without a subcommand for the
interactive shell.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			a.prompt = newPrompter(in, cmd.ErrOrStderr())
			return a.open()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return newShell(a.mgr, a.prompt, a.out).run()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "YAML config file")
	pf.StringVarP(&a.dataDir, "data-dir", "d", "", "directory holding the store files (overrides config)")
	pf.StringVar(&a.backend, "backend", "", "storage backend: flat or sqlite (overrides config)")
	pf.StringVarP(&a.user, "user", "u", "", "username to act as (prompted when empty)")
	pf.BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newRegisterCmd(a),
		newBooksCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newHistoryCmd(a),
		newReportCmd(a),
		newUsersCmd(a),
	)
	return root
}

func (a *app) open() error {
	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "load .env")
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.backend != "" {
		cfg.Storage.Backend = a.backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.log = logger.NewLogger(cfg.Log, "library")

	a.mgr, err = library.NewLibraryManager(cfg, a.log)
	if err != nil {
		return errors.Wrap(err, "open library")
	}
	if a.mgr.DefaultAdminCreated {
		fmt.Fprintf(a.out, "Default admin created (username: %s, password: %s). Change it before real use.\n",
			cfg.Bootstrap.Username, cfg.Bootstrap.Password)
	}
	return nil
}

func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

// describe turns a library error into a message for the person at the keyboard.
func describe(err error) string {
	switch {
	case errors.Is(err, library.ErrDuplicateKey):
		return "already exists"
	case errors.Is(err, library.ErrNotFound):
		return "not found"
	case errors.Is(err, library.ErrNotAvailable):
		return "this book is not available"
	case errors.Is(err, library.ErrNotIssued):
		return "this book was not issued"
	case errors.Is(err, library.ErrNoOpenLoan):
		return "this book was not issued to you, or has already been returned"
	case errors.Is(err, library.ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, library.ErrPermissionDenied):
		return "access denied"
	case errors.Is(err, library.ErrInvalidInput):
		return "invalid input: " + err.Error()
	case errors.Is(err, library.ErrStorageWrite):
		return "the change was applied but could not be saved: " + err.Error()
	}
	return err.Error()
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
