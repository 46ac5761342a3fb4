package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/crudkit/internal/queryir"
	"github.com/roach88/crudkit/internal/querysql"
	"github.com/roach88/crudkit/internal/value"
)

// Handle is the storage surface the resource engine consumes.
//
// A Handle is either bound to the connection pool (Store.Handle) or to one
// transaction (the handle passed by Store.Transact). Callers never learn
// which; writes through a transactional handle become visible on commit.
type Handle interface {
	// Insert writes a new row and returns it as stored, including a key
	// assigned by the database for int-keyed tables.
	Insert(ctx context.Context, t *Table, row value.Object) (value.Object, error)

	// FindByKey returns the row whose key equals key, or ErrNotFound.
	FindByKey(ctx context.Context, t *Table, key value.Value) (value.Object, error)

	// Update overwrites the columns present in row on the row currently
	// identified by key. Returns ErrNotFound when no row matched.
	Update(ctx context.Context, t *Table, key value.Value, row value.Object) error

	// DeleteByKey removes the row identified by key, or returns ErrNotFound.
	DeleteByKey(ctx context.Context, t *Table, key value.Value) error

	// Select runs q against t. From and Columns are taken from t.
	Select(ctx context.Context, t *Table, q queryir.Select) ([]value.Object, error)

	// Count returns the number of rows of t matching filter.
	Count(ctx context.Context, t *Table, filter queryir.Predicate) (int64, error)

	// Distinct returns the distinct non-null values of column, ascending.
	Distinct(ctx context.Context, t *Table, column string) ([]value.Value, error)

	// Exec and Query run raw SQL on the same connection or transaction.
	// Intended for hooks that maintain their own tables.
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type sqlHandle struct {
	q        querier
	compiler *querysql.SQLCompiler
}

var _ Handle = (*sqlHandle)(nil)

func (h *sqlHandle) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return h.q.ExecContext(ctx, query, args...)
}

func (h *sqlHandle) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return h.q.QueryContext(ctx, query, args...)
}

// Insert writes row into t.
//
// For int-keyed tables a missing or null key is left for SQLite to assign.
// The stored row is read back through the same handle, so callers see
// exactly what the database holds.
func (h *sqlHandle) Insert(ctx context.Context, t *Table, row value.Object) (value.Object, error) {
	cols, args, err := encodeRow(t, row)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", t.Name, err)
	}

	autoKey := t.KeyKind() == KindInt && value.IsNull(row[t.Key])
	if autoKey {
		cols, args = withoutColumn(cols, args, t.Key)
	} else if value.IsNull(row[t.Key]) {
		return nil, fmt.Errorf("insert into %s: missing key %q", t.Name, t.Key)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = querysql.QuoteIdent(c)
	}

	var stmt string
	if len(cols) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", querysql.QuoteIdent(t.Name))
	} else {
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			querysql.QuoteIdent(t.Name),
			strings.Join(quoted, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	}

	result, err := h.q.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", t.Name, err)
	}

	key := row[t.Key]
	if autoKey {
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert into %s: last insert id: %w", t.Name, err)
		}
		key = value.Int(id)
	}

	stored, err := h.FindByKey(ctx, t, key)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: read back: %w", t.Name, err)
	}
	return stored, nil
}

func (h *sqlHandle) FindByKey(ctx context.Context, t *Table, key value.Value) (value.Object, error) {
	q := t.Select()
	q.Filter = queryir.Equals{Field: t.Key, Value: key}
	q.Limit = 1

	rows, err := h.Select(ctx, t, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (h *sqlHandle) Update(ctx context.Context, t *Table, key value.Value, row value.Object) error {
	cols, args, err := encodeRow(t, row)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.Name, err)
	}
	if len(cols) == 0 {
		return fmt.Errorf("update %s: no columns to set", t.Name)
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = querysql.QuoteIdent(c) + " = ?"
	}
	keyArg, err := querysql.Param(key)
	if err != nil {
		return fmt.Errorf("update %s: key: %w", t.Name, err)
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		querysql.QuoteIdent(t.Name), strings.Join(sets, ", "), querysql.QuoteIdent(t.Key))
	result, err := h.q.ExecContext(ctx, stmt, append(args, keyArg)...)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.Name, err)
	}
	return requireAffected(result, t.Name)
}

func (h *sqlHandle) DeleteByKey(ctx context.Context, t *Table, key value.Value) error {
	keyArg, err := querysql.Param(key)
	if err != nil {
		return fmt.Errorf("delete from %s: key: %w", t.Name, err)
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", querysql.QuoteIdent(t.Name), querysql.QuoteIdent(t.Key))
	result, err := h.q.ExecContext(ctx, stmt, keyArg)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", t.Name, err)
	}
	return requireAffected(result, t.Name)
}

func (h *sqlHandle) Select(ctx context.Context, t *Table, q queryir.Select) ([]value.Object, error) {
	q.From = t.Name
	q.Columns = t.ColumnNames()

	stmt, args, err := h.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", t.Name, err)
	}

	rows, err := h.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", t.Name, err)
	}
	defer rows.Close()

	out := []value.Object{}
	for rows.Next() {
		row, err := scanRow(rows, t)
		if err != nil {
			return nil, fmt.Errorf("select from %s: %w", t.Name, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.Name, err)
	}
	return out, nil
}

func (h *sqlHandle) Count(ctx context.Context, t *Table, filter queryir.Predicate) (int64, error) {
	stmt, args, err := h.compiler.Compile(queryir.Count{From: t.Name, Columns: t.ColumnNames(), Filter: filter})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}

	rows, err := h.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("count %s: %w", t.Name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}
	return n, nil
}

func (h *sqlHandle) Distinct(ctx context.Context, t *Table, column string) ([]value.Value, error) {
	stmt, args, err := h.compiler.Compile(queryir.Distinct{From: t.Name, Columns: t.ColumnNames(), Column: column})
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", t.Name, column, err)
	}
	col, _ := t.Column(column)

	rows, err := h.q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", t.Name, column, err)
	}
	defer rows.Close()

	out := []value.Value{}
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("distinct %s.%s: %w", t.Name, column, err)
		}
		v, err := decodeColumn(col, raw)
		if err != nil {
			return nil, fmt.Errorf("distinct %s.%s: %w", t.Name, column, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", t.Name, column, err)
	}
	return out, nil
}

// encodeRow returns the row's columns in table order with their arguments.
// Row fields that are not columns of t are rejected.
func encodeRow(t *Table, row value.Object) ([]string, []any, error) {
	var unknown []string
	for _, name := range row.SortedKeys() {
		if _, ok := t.Column(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, nil, &querysql.UnknownColumnError{Table: t.Name, Fields: unknown}
	}

	var cols []string
	var args []any
	for _, c := range t.Columns {
		v, ok := row[c.Name]
		if !ok {
			continue
		}
		arg, err := encodeColumn(c, v)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, c.Name)
		args = append(args, arg)
	}
	return cols, args, nil
}

func withoutColumn(cols []string, args []any, name string) ([]string, []any) {
	outCols := cols[:0:0]
	outArgs := args[:0:0]
	for i, c := range cols {
		if c == name {
			continue
		}
		outCols = append(outCols, c)
		outArgs = append(outArgs, args[i])
	}
	return outCols, outArgs
}

// scanRow scans one row of t's columns, in declaration order.
func scanRow(rows *sql.Rows, t *Table) (value.Object, error) {
	raw := make([]any, len(t.Columns))
	dest := make([]any, len(t.Columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	row := make(value.Object, len(t.Columns))
	for i, c := range t.Columns {
		v, err := decodeColumn(c, raw[i])
		if err != nil {
			return nil, err
		}
		row[c.Name] = v
	}
	return row, nil
}

func requireAffected(result sql.Result, table string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", table, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
