package library

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Store is a durable collection of one record type. Load materialises the
// whole collection; SaveAll replaces it.
type Store[T any] interface {
	Load() ([]T, error)
	SaveAll(records []T) error
}

// FileStore keeps one record per line in a flat text file. Every SaveAll
// rewrites the file from scratch; there is no append log and no partial-write
// recovery.
type FileStore[T any] struct {
	path  string
	codec RecordCodec[T]
	log   *zap.Logger
}

// NewFileStore returns a store backed by path. The file is not touched until
// the first Load or SaveAll.
func NewFileStore[T any](path string, codec RecordCodec[T], log *zap.Logger) *FileStore[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore[T]{path: path, codec: codec, log: log.Named("store")}
}

// Path returns the backing file.
func (s *FileStore[T]) Path() string { return s.path }

// Load reads every line; a missing file is an empty collection. Malformed
// lines are logged and skipped.
func (s *FileStore[T]) Load() ([]T, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "load", Path: s.path, Err: err}
	}
	defer f.Close()

	dec := newLineDecoder(s.codec, s.log, s.path)
	r := bufio.NewReader(f)
	for {
		// No line length cap: an oversized line is just another malformed record.
		line, err := r.ReadString('\n')
		if line != "" {
			dec.add(strings.TrimSuffix(line, "\n"))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &StorageError{Op: "load", Path: s.path, Err: err}
		}
	}
	return dec.done(), nil
}

// SaveAll overwrites the file with records in order.
func (s *FileStore[T]) SaveAll(records []T) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &StorageError{Op: "save", Path: s.path, Err: err}
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}
	w := bufio.NewWriter(f)
	for _, r := range records {
		if _, err := w.WriteString(s.codec.Encode(r) + lineEnding); err != nil {
			f.Close()
			return &StorageError{Op: "save", Path: s.path, Err: err}
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

// lineDecoder applies the malformed-record policy shared by all backends.
type lineDecoder[T any] struct {
	codec   RecordCodec[T]
	log     *zap.Logger
	source  string
	line    int
	skipped int
	out     []T
}

func newLineDecoder[T any](codec RecordCodec[T], log *zap.Logger, source string) *lineDecoder[T] {
	return &lineDecoder[T]{codec: codec, log: log, source: source, out: []T{}}
}

func (d *lineDecoder[T]) add(raw string) {
	d.line++
	line := strings.TrimRight(raw, "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	rec, err := d.codec.Decode(line)
	if err != nil {
		d.skipped++
		d.log.Warn("skipping malformed record",
			zap.String("source", d.source),
			zap.Int("line", d.line),
			zap.Error(err))
		return
	}
	d.out = append(d.out, rec)
}

func (d *lineDecoder[T]) done() []T {
	d.log.Debug("store loaded",
		zap.String("source", d.source),
		zap.Int("records", len(d.out)),
		zap.Int("skipped", d.skipped))
	return d.out
}
