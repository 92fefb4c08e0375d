package referral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ ProviderStorage = (*SQLiteProviderStorage)(nil)

// SQLiteProviderStorage keeps one row per provider and one INTEGER column
// per insurance key. AUTOINCREMENT keeps deleted ids from being reissued.
type SQLiteProviderStorage struct {
	db  *sql.DB
	reg *InsuranceRegistry
	dsn string
}

func NewSQLiteProviderStorage(ctx context.Context, config *SQLStorageConfig, reg *InsuranceRegistry) (*SQLiteProviderStorage, error) {
	dsn := config.DSN
	if dsn == "" {
		dsn = "referral.db"
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; also keeps a :memory: database alive on one connection
	db.SetMaxOpenConns(1)
	s := &SQLiteProviderStorage{db: db, reg: reg, dsn: dsn}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func sqliteQuote(name string) string {
	return `"` + name + `"`
}

func sqlitePlaceholder(int) string {
	return "?"
}

func (s *SQLiteProviderStorage) ensureSchema(ctx context.Context) error {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS providers (
		id INTEGER PRIMARY KEY AUTOINCREMENT`)
	for _, c := range textColumns {
		fmt.Fprintf(&b, ",\n\t\t%s TEXT NOT NULL", sqliteQuote(c))
	}
	for _, k := range s.reg.Keys() {
		fmt.Fprintf(&b, ",\n\t\t%s INTEGER NOT NULL DEFAULT 0", sqliteQuote(s.reg.Column(k)))
	}
	b.WriteString("\n\t)")
	if _, err := s.db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create providers table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS providers_specialty ON providers(specialty)`); err != nil {
		return fmt.Errorf("create specialty index: %w", err)
	}

	existing, err := s.columns(ctx)
	if err != nil {
		return err
	}
	for _, k := range s.reg.Keys() {
		col := s.reg.Column(k)
		if existing[col] {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE providers ADD COLUMN %s INTEGER NOT NULL DEFAULT 0`, sqliteQuote(col))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", col, err)
		}
	}
	return nil
}

func (s *SQLiteProviderStorage) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `PRAGMA table_info(providers)`)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer func() { _ = rows.Close() }()
	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func (s *SQLiteProviderStorage) selectByID(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}, id int64) (*Provider, error) {
	query := fmt.Sprintf(`SELECT %s FROM providers WHERE id = ?`, selectList(s.reg, sqliteQuote))
	p, err := scanProvider(s.reg, q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, internalErr("select provider", err)
	}
	return p, nil
}

func (s *SQLiteProviderStorage) Insert(ctx context.Context, in *ProviderInput) (_ *Provider, retErr error) {
	if err := checkInput(s.reg, in); err != nil {
		return nil, err
	}
	cols := inputColumns(s.reg, in)
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		names[i] = sqliteQuote(c.name)
		marks[i] = "?"
		args[i] = c.value
	}
	stmt := fmt.Sprintf(`INSERT INTO providers (%s) VALUES (%s)`, strings.Join(names, ", "), strings.Join(marks, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, internalErr("begin", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, internalErr("insert provider", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, internalErr("insert provider", err)
	}
	p, err := s.selectByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, internalErr("commit", err)
	}
	return p, nil
}

func (s *SQLiteProviderStorage) Update(ctx context.Context, id int64, patch *ProviderPatch) (_ *Provider, retErr error) {
	if err := checkPatch(s.reg, patch); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, internalErr("begin", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if cols := patchColumns(s.reg, patch); len(cols) > 0 {
		set, args := joinColumns(cols, ", ", 0, sqliteQuote, sqlitePlaceholder)
		args = append(args, id)
		res, err := tx.ExecContext(ctx, `UPDATE providers SET `+set+` WHERE id = ?`, args...)
		if err != nil {
			return nil, internalErr("update provider", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, internalErr("update provider", err)
		}
		if n == 0 {
			return nil, errNotFound(id)
		}
	}
	p, err := s.selectByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, internalErr("commit", err)
	}
	return p, nil
}

func (s *SQLiteProviderStorage) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM providers WHERE id = ?`, id)
	if err != nil {
		return internalErr("delete provider", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return internalErr("delete provider", err)
	}
	if n == 0 {
		return errNotFound(id)
	}
	return nil
}

func (s *SQLiteProviderStorage) FindBy(ctx context.Context, filter ProviderFilter) ([]*Provider, error) {
	if err := checkFilter(s.reg, filter); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM providers`, selectList(s.reg, sqliteQuote))
	var args []interface{}
	if cols := filterColumns(s.reg, filter); len(cols) > 0 {
		var where string
		where, args = joinColumns(cols, " AND ", 0, sqliteQuote, sqlitePlaceholder)
		query += " WHERE " + where
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internalErr("select providers", err)
	}
	defer func() { _ = rows.Close() }()
	result := make([]*Provider, 0)
	for rows.Next() {
		p, err := scanProvider(s.reg, rows)
		if err != nil {
			return nil, internalErr("scan provider", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("select providers", err)
	}
	return result, nil
}

func (s *SQLiteProviderStorage) All(ctx context.Context) ([]*Provider, error) {
	return s.FindBy(ctx, ProviderFilter{})
}

func (s *SQLiteProviderStorage) Specialties(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT specialty FROM providers`)
	if err != nil {
		return nil, internalErr("select specialties", err)
	}
	defer func() { _ = rows.Close() }()
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, internalErr("scan specialty", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr("select specialties", err)
	}
	return distinctSorted(values), nil
}

// DB exposes the underlying sql.DB for tests.
func (s *SQLiteProviderStorage) DB() *sql.DB { return s.db }

func (s *SQLiteProviderStorage) Close() error {
	return s.db.Close()
}
