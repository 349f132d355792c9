package library

import (
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SQLiteStore keeps a collection in its own SQLite file as codec-encoded
// lines, so both backends share one record format and one malformed-record
// policy.
type SQLiteStore[T any] struct {
	db    *sqlx.DB
	path  string
	codec RecordCodec[T]
	log   *zap.Logger
}

// insertBatch keeps multi-row inserts well under SQLite's variable limit.
const insertBatch = 400

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewSQLiteStore[T any](dbPath string, codec RecordCodec[T], log *zap.Logger) (*SQLiteStore[T], error) {
	if log == nil {
		log = zap.NewNop()
	}

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create db dir")
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// One connection keeps the delete-and-reinsert rewrite on a single handle.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore[T]{db: db, path: dbPath, codec: codec, log: log.Named("store")}, nil
}

// Close closes the DB.
func (s *SQLiteStore[T]) Close() error { return s.db.Close() }

// Path returns the database file.
func (s *SQLiteStore[T]) Path() string { return s.path }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	// WAL keeps readers of the file unblocked during a rewrite.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return errors.Wrap(err, "enable WAL")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return errors.Wrap(err, "create meta table")
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return errors.Wrap(err, "begin migration")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS records (
            seq  INTEGER PRIMARY KEY,
            line TEXT NOT NULL
        );`); err != nil {
		return errors.Wrap(err, "apply migration")
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return errors.Wrap(err, "record schema version")
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Load decodes every row in insertion order. Malformed rows are logged and
// skipped.
func (s *SQLiteStore[T]) Load() ([]T, error) {
	query, args, err := qb.Select("line").From("records").OrderBy("seq").ToSql()
	if err != nil {
		return nil, &StorageError{Op: "load", Path: s.path, Err: err}
	}

	var lines []string
	if err := s.db.Select(&lines, query, args...); err != nil {
		return nil, &StorageError{Op: "load", Path: s.path, Err: err}
	}

	dec := newLineDecoder(s.codec, s.log, s.path)
	for _, l := range lines {
		dec.add(l)
	}
	return dec.done(), nil
}

// SaveAll replaces every row in one SQL transaction.
func (s *SQLiteStore[T]) SaveAll(records []T) error {
	if err := s.saveAll(records); err != nil {
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

func (s *SQLiteStore[T]) saveAll(records []T) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	del, args, err := qb.Delete("records").ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(del, args...); err != nil {
		return err
	}

	for start := 0; start < len(records); start += insertBatch {
		end := min(start+insertBatch, len(records))
		ins := qb.Insert("records").Columns("seq", "line")
		for i := start; i < end; i++ {
			ins = ins.Values(i+1, s.codec.Encode(records[i]))
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}
