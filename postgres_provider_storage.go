package referral

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ProviderStorage = (*PostgresProviderStorage)(nil)

const defaultPostgresDSN = "postgres://localhost/referral?sslmode=disable"

// PostgresProviderStorage keeps one row per provider and one BOOLEAN column
// per insurance key. Identity ids are never reissued.
type PostgresProviderStorage struct {
	pool *pgxpool.Pool
	reg  *InsuranceRegistry
}

func NewPostgresProviderStorage(ctx context.Context, config *SQLStorageConfig, reg *InsuranceRegistry) (*PostgresProviderStorage, error) {
	dsn := config.DSN
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	if config.MaxConns > 0 {
		poolConfig.MaxConns = int32(config.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &PostgresProviderStorage{pool: pool, reg: reg}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func pgQuote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func pgPlaceholder(i int) string {
	return "$" + strconv.Itoa(i)
}

func (s *PostgresProviderStorage) ensureSchema(ctx context.Context) error {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS providers (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY`)
	for _, c := range textColumns {
		fmt.Fprintf(&b, ",\n\t\t%s TEXT NOT NULL", pgQuote(c))
	}
	b.WriteString("\n\t)")
	stmts := []string{
		b.String(),
		`CREATE INDEX IF NOT EXISTS providers_specialty_idx ON providers (specialty)`,
	}
	for _, k := range s.reg.Keys() {
		stmts = append(stmts, fmt.Sprintf(
			`ALTER TABLE providers ADD COLUMN IF NOT EXISTS %s BOOLEAN NOT NULL DEFAULT FALSE`,
			pgQuote(s.reg.Column(k)),
		))
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresProviderStorage) returning() string {
	return " RETURNING " + selectList(s.reg, pgQuote)
}

func (s *PostgresProviderStorage) Insert(ctx context.Context, in *ProviderInput) (*Provider, error) {
	if err := checkInput(s.reg, in); err != nil {
		return nil, err
	}
	cols := inputColumns(s.reg, in)
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		names[i] = pgQuote(c.name)
		marks[i] = pgPlaceholder(i + 1)
		args[i] = c.value
	}
	stmt := fmt.Sprintf(`INSERT INTO providers (%s) VALUES (%s)`, strings.Join(names, ", "), strings.Join(marks, ", ")) + s.returning()
	p, err := scanProvider(s.reg, s.pool.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, internalErr("insert provider", err)
	}
	return p, nil
}

func (s *PostgresProviderStorage) Update(ctx context.Context, id int64, patch *ProviderPatch) (*Provider, error) {
	if err := checkPatch(s.reg, patch); err != nil {
		return nil, err
	}
	var p *Provider
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var (
			query string
			args  []interface{}
		)
		if cols := patchColumns(s.reg, patch); len(cols) > 0 {
			var set string
			set, args = joinColumns(cols, ", ", 0, pgQuote, pgPlaceholder)
			args = append(args, id)
			query = `UPDATE providers SET ` + set + ` WHERE id = ` + pgPlaceholder(len(args)) + s.returning()
		} else {
			query = fmt.Sprintf(`SELECT %s FROM providers WHERE id = $1`, selectList(s.reg, pgQuote))
			args = []interface{}{id}
		}
		var err error
		p, err = scanProvider(s.reg, tx.QueryRow(ctx, query, args...))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, internalErr("update provider", err)
	}
	return p, nil
}

func (s *PostgresProviderStorage) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	if err != nil {
		return internalErr("delete provider", err)
	}
	if tag.RowsAffected() == 0 {
		return errNotFound(id)
	}
	return nil
}

func (s *PostgresProviderStorage) FindBy(ctx context.Context, filter ProviderFilter) ([]*Provider, error) {
	if err := checkFilter(s.reg, filter); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM providers`, selectList(s.reg, pgQuote))
	var args []interface{}
	if cols := filterColumns(s.reg, filter); len(cols) > 0 {
		var where string
		where, args = joinColumns(cols, " AND ", 0, pgQuote, pgPlaceholder)
		query += " WHERE " + where
	}
	query += " ORDER BY id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, internalErr("select providers", err)
	}
	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Provider, error) {
		return scanProvider(s.reg, row)
	})
	if err != nil {
		return nil, internalErr("select providers", err)
	}
	if result == nil {
		result = make([]*Provider, 0)
	}
	return result, nil
}

func (s *PostgresProviderStorage) All(ctx context.Context) ([]*Provider, error) {
	return s.FindBy(ctx, ProviderFilter{})
}

func (s *PostgresProviderStorage) Specialties(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT specialty FROM providers`)
	if err != nil {
		return nil, internalErr("select specialties", err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, internalErr("select specialties", err)
	}
	return distinctSorted(values), nil
}

// Pool exposes the connection pool for tests.
func (s *PostgresProviderStorage) Pool() *pgxpool.Pool { return s.pool }

func (s *PostgresProviderStorage) Close() error {
	s.pool.Close()
	return nil
}
