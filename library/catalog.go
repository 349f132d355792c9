package library

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// CatalogEntry is one book in a catalog file.
type CatalogEntry struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	ISBN   string `yaml:"isbn"`
}

// Catalog is the YAML document accepted by the import tool:
//
//	books:
//	  - title: Dune
//	    author: Frank Herbert
//	    isbn: "9780441013593"
type Catalog struct {
	Books []CatalogEntry `yaml:"books"`
}

// LoadCatalog parses a catalog document.
func LoadCatalog(r io.Reader) (Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return Catalog{}, nil
		}
		return Catalog{}, errors.Wrap(err, "parse catalog")
	}
	return c, nil
}

// ImportSummary counts the outcome of an import.
type ImportSummary struct {
	Added      int
	Duplicates int
	Invalid    int
	Failed     []error // storage failures, in entry order
}

// Import adds every entry through AddBook. Duplicate and invalid entries are
// counted and skipped.
func (l *Ledger) Import(c Catalog) ImportSummary {
	var s ImportSummary
	for _, e := range c.Books {
		err := l.AddBook(e.Title, e.Author, e.ISBN)
		switch {
		case err == nil:
			s.Added++
		case errors.Is(err, ErrDuplicateKey):
			s.Duplicates++
		case errors.Is(err, ErrInvalidInput):
			s.Invalid++
		default:
			s.Failed = append(s.Failed, errors.Wrapf(err, "isbn %s", e.ISBN))
		}
	}
	return s
}
