package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalog = `books:
  - title: Dune
    author: Frank Herbert
    isbn: "111"
  - title: Emma
    author: Jane Austen
    isbn: "222"
`

func runImport(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LIBRARY_LOG_LEVEL", "error")
	cmd := newImportCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportBooks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))
	data := filepath.Join(dir, "data")

	out, err := runImport(t, "-d", data, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully imported: 2 books")
	assert.Contains(t, out, "Dune")

	out, err = runImport(t, "-d", data, path)
	require.NoError(t, err)
	assert.Contains(t, out, "Already catalogued:    2")

	out, err = runImport(t, "-d", data, "--reset", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully imported: 2 books")
}

func TestImportBooksMissingCatalog(t *testing.T) {
	_, err := runImport(t, "-d", t.TempDir(), filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
