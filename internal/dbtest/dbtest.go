// Package dbtest opens a gorm postgres handle over a recording database/sql
// driver. Statements are kept for inspection and queries are answered with
// rows registered by the test.
package dbtest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Stmt is one statement received by the driver.
type Stmt struct {
	SQL  string
	Args []driver.Value
}

// Column returns the argument bound to column in an INSERT statement.
func (s Stmt) Column(name string) (driver.Value, bool) {
	start, end := strings.Index(s.SQL, "("), strings.Index(s.SQL, ")")
	if start < 0 || end < start {
		return nil, false
	}
	for i, col := range strings.Split(s.SQL[start+1:end], ",") {
		if strings.Trim(strings.TrimSpace(col), `"`) == name && i < len(s.Args) {
			return s.Args[i], true
		}
	}
	return nil, false
}

type reply struct {
	match    string
	columns  []string
	rows     [][]driver.Value
	affected int64
	err      error
}

// Recorder keeps every statement and the canned replies.
type Recorder struct {
	mu      sync.Mutex
	stmts   []Stmt
	queries []reply
	execs   []reply
}

// Rows answers queries containing match with the given rows.
func (r *Recorder) Rows(match string, columns []string, rows ...[]driver.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, reply{match: match, columns: columns, rows: rows})
}

// Affected makes statements containing match report n affected rows. The
// default is one.
func (r *Recorder) Affected(match string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs = append(r.execs, reply{match: match, affected: n})
}

// Fail makes every statement containing match return err.
func (r *Recorder) Fail(match string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, reply{match: match, err: err})
	r.execs = append(r.execs, reply{match: match, err: err})
}

// Statements returns the statements seen so far.
func (r *Recorder) Statements() []Stmt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Stmt(nil), r.stmts...)
}

// Last returns the latest statement starting with prefix, case-insensitive.
func (r *Recorder) Last(prefix string) (Stmt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.stmts) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.ToUpper(r.stmts[i].SQL), strings.ToUpper(prefix)) {
			return r.stmts[i], true
		}
	}
	return Stmt{}, false
}

func (r *Recorder) record(query string, args []driver.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stmts = append(r.stmts, Stmt{SQL: query, Args: append([]driver.Value(nil), args...)})
}

func find(replies []reply, query string) (reply, bool) {
	for _, rp := range replies {
		if strings.Contains(query, rp.match) {
			return rp, true
		}
	}
	return reply{}, false
}

func (r *Recorder) exec(query string, args []driver.Value) (driver.Result, error) {
	r.record(query, args)
	r.mu.Lock()
	rp, ok := find(r.execs, query)
	r.mu.Unlock()
	if !ok {
		return driver.RowsAffected(1), nil
	}
	if rp.err != nil {
		return nil, rp.err
	}
	return driver.RowsAffected(rp.affected), nil
}

func (r *Recorder) query(query string, args []driver.Value) (driver.Rows, error) {
	r.record(query, args)
	r.mu.Lock()
	rp, ok := find(r.queries, query)
	r.mu.Unlock()
	if !ok {
		return &rows{}, nil
	}
	if rp.err != nil {
		return nil, rp.err
	}
	return &rows{columns: rp.columns, data: rp.rows}, nil
}

// Open returns a postgres dialect gorm handle backed by a fresh Recorder.
func Open(t testing.TB) (*gorm.DB, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	sqlDB := sql.OpenDB(connector{rec: rec})
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db, rec
}

type connector struct{ rec *Recorder }

func (c connector) Connect(context.Context) (driver.Conn, error) { return &conn{rec: c.rec}, nil }
func (c connector) Driver() driver.Driver                        { return drv{rec: c.rec} }

type drv struct{ rec *Recorder }

func (d drv) Open(string) (driver.Conn, error) { return &conn{rec: d.rec}, nil }

type conn struct{ rec *Recorder }

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{rec: c.rec, query: query}, nil
}

func (c *conn) Close() error              { return nil }
func (c *conn) Begin() (driver.Tx, error) { return tx{}, nil }

type tx struct{}

func (tx) Commit() error   { return nil }
func (tx) Rollback() error { return nil }

type stmt struct {
	rec   *Recorder
	query string
}

func (s *stmt) Close() error  { return nil }
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.rec.exec(s.query, args)
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.rec.query(s.query, args)
}

type rows struct {
	columns []string
	data    [][]driver.Value
	index   int
}

func (r *rows) Columns() []string { return r.columns }
func (r *rows) Close() error      { return nil }

func (r *rows) Next(dest []driver.Value) error {
	if r.index >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.index])
	r.index++
	return nil
}
