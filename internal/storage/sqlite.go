package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"receipts/internal/stream"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a row looked up by id does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write would break a UNIQUE constraint,
// which happens when two writers pass the name check at the same time.
var ErrDuplicate = errors.New("duplicate value")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db      *sql.DB
	changes *stream.Broadcaster
}

// dsn enables foreign keys and WAL on every pooled connection. Transactions
// take the write lock up front so their reads cannot go stale.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers; multi-statement writes run
	// in a transaction on it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		changes: stream.NewBroadcaster(),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Changes signals after every committed write.
func (r *SQLiteRepository) Changes() *stream.Broadcaster {
	return r.changes
}

// Version increases with every committed write. Readers use it to key
// cached query results.
func (r *SQLiteRepository) Version() uint64 {
	return r.changes.Version()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// exec runs a single write statement and signals the change.
func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, duplicate(err)
	}
	r.changes.Publish()
	return res, nil
}

// insert runs an INSERT and returns the generated id.
func (r *SQLiteRepository) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// update runs an UPDATE of a single row by id, returning ErrNotFound when
// no row matched.
func (r *SQLiteRepository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return duplicate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	r.changes.Publish()
	return nil
}

// WithTx runs fn in a transaction. Subscribers are signalled once, after
// the commit.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	r.changes.Publish()
	return nil
}

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var found int
	err := q.QueryRowContext(ctx, "SELECT EXISTS("+query+")", args...).Scan(&found)
	if err != nil {
		return false, err
	}
	return found == 1, nil
}

func count(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// execAll runs statements in order, all with the same arguments.
func execAll(ctx context.Context, q querier, args []any, statements ...string) error {
	for _, stmt := range statements {
		if _, err := q.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func ptrInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func ptrString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Dependents counts the rows that reference an entity. A delete is
// dangerous when any of them is non-zero.
type Dependents struct {
	Items        int64
	Transactions int64
	Products     int64
	Variants     int64
}

func (d Dependents) Any() bool {
	return d.Items > 0 || d.Transactions > 0 || d.Products > 0 || d.Variants > 0
}

// ErrHasDependents is returned by an unconfirmed delete of a referenced row.
var ErrHasDependents = errors.New("entity has dependents")

type dependentsFunc func(ctx context.Context, q querier, id int64) (Dependents, error)

// guard fails with ErrHasDependents when the delete is not confirmed and
// deps finds rows referencing id. It runs inside the delete's transaction,
// so nothing can start referencing id between the check and the delete.
func guard(ctx context.Context, q querier, id int64, confirmed bool, deps dependentsFunc) error {
	if confirmed {
		return nil
	}
	d, err := deps(ctx, q, id)
	if err != nil {
		return err
	}
	if d.Any() {
		return ErrHasDependents
	}
	return nil
}

func duplicate(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
