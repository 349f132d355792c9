package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"library-ledger/config"
	"library-ledger/library"
	"library-ledger/logger"
)

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var (
		cfgPath string
		dataDir string
		reset   bool
	)
	cmd := &cobra.Command{
		Use:   "import_books <catalog.yaml>",
		Short: "Import books from a YAML catalog",
		Long: `Adds every book listed in a YAML catalog to the library. Books whose ISBN
is already catalogued are skipped.

  books:
    - title: Dune
      author: Frank Herbert
      isbn: "9780441013593"`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return errors.Wrap(err, "load .env")
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			log := logger.NewLogger(cfg.Log, "import_books")
			defer log.Sync()

			out := cmd.OutOrStdout()
			if reset {
				fmt.Fprintln(out, "Cleaning up existing store files...")
				for _, f := range library.StoreFiles(cfg) {
					if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
						fmt.Fprintf(out, "Warning: Could not remove %s: %v\n", f, err)
					}
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open catalog")
			}
			defer f.Close()

			mgr, err := library.NewLibraryManager(cfg, log)
			if err != nil {
				return errors.Wrap(err, "open library")
			}
			defer mgr.Close()

			fmt.Fprintf(out, "Importing books from %s...\n", args[0])
			sum, err := mgr.ImportCatalog(f)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nImport complete!\n")
			fmt.Fprintf(out, "Successfully imported: %d books\n", sum.Added)
			fmt.Fprintf(out, "Already catalogued:    %d\n", sum.Duplicates)
			fmt.Fprintf(out, "Invalid entries:       %d\n", sum.Invalid)
			for _, e := range sum.Failed {
				fmt.Fprintf(out, "ERROR - %v\n", e)
			}

			if sum.Added > 0 {
				fmt.Fprintln(out, "\nCatalogue:")
				fmt.Fprintf(out, "%-15s %-30s %-25s %-10s\n", "ISBN", "Title", "Author", "Status")
				fmt.Fprintln(out, strings.Repeat("-", 83))
				for _, b := range mgr.GetAllBooks() {
					fmt.Fprintln(out, library.PrettyBook(b))
				}
			}
			if len(sum.Failed) > 0 {
				return errors.Errorf("%d books could not be saved", len(sum.Failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "YAML config file")
	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "directory holding the store files (overrides config)")
	cmd.Flags().BoolVar(&reset, "reset", false, "remove existing store files before importing")
	return cmd
}
