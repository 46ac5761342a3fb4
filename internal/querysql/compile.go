package querysql

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/crudkit/internal/queryir"
	"github.com/roach88/crudkit/internal/value"
)

// ErrUnknownColumn is matched (via errors.Is) by errors reporting that a
// query referenced a column outside the table's column set.
var ErrUnknownColumn = errors.New("unknown column")

// UnknownColumnError lists the unknown fields a query referenced.
type UnknownColumnError struct {
	Table  string
	Fields []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column(s) %s on %q", strings.Join(e.Fields, ", "), e.Table)
}

// Is makes errors.Is(err, ErrUnknownColumn) true.
func (e *UnknownColumnError) Is(target error) bool {
	return target == ErrUnknownColumn
}

// SQLCompiler compiles queryir queries to parameterized SQL for SQLite.
//
// CRITICAL: All values are parameterized (never interpolated).
// CRITICAL: Only columns declared on the query are ever emitted.
type SQLCompiler struct {
	// FoldFunction is the SQL function used by ContainsFold predicates.
	// The store registers it on every connection.
	FoldFunction string
}

// NewSQLCompiler creates a new SQLCompiler using the default fold function.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{FoldFunction: FoldFunc}
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error) tuple.
//
// Unknown columns yield an *UnknownColumnError; other structural defects
// yield a plain error.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	result := queryir.Validate(q)
	if len(result.Problems) > 0 {
		return "", nil, fmt.Errorf("invalid query: %s", strings.Join(result.Problems, "; "))
	}
	if len(result.UnknownFields) > 0 {
		return "", nil, &UnknownColumnError{Table: tableOf(q), Fields: result.UnknownFields}
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Count:
		return c.compileCount(query)
	case *queryir.Count:
		return c.compileCount(*query)
	case queryir.Distinct:
		return c.compileDistinct(query)
	case *queryir.Distinct:
		return c.compileDistinct(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect compiles a queryir.Select to SQL.
func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	columns := make([]string, len(q.Columns))
	for i, col := range q.Columns {
		columns[i] = QuoteIdent(col)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(columns, ", "), QuoteIdent(q.From))

	params, err := c.writeWhere(&b, q.Filter)
	if err != nil {
		return "", nil, err
	}

	if orderBy := orderClause(q.Order, q.TieBreaker); orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(orderBy)
	}

	switch {
	case q.Limit > 0:
		b.WriteString(" LIMIT ? OFFSET ?")
		params = append(params, int64(q.Limit), int64(q.Offset))
	case q.Offset > 0:
		// SQLite requires LIMIT before OFFSET; -1 means unbounded
		b.WriteString(" LIMIT -1 OFFSET ?")
		params = append(params, int64(q.Offset))
	}

	return b.String(), params, nil
}

// compileCount compiles a queryir.Count to SQL.
func (c *SQLCompiler) compileCount(q queryir.Count) (string, []any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT COUNT(*) FROM %s", QuoteIdent(q.From))

	params, err := c.writeWhere(&b, q.Filter)
	if err != nil {
		return "", nil, err
	}
	return b.String(), params, nil
}

// compileDistinct compiles a queryir.Distinct to SQL.
// NULLs are excluded and values come back in ascending order.
func (c *SQLCompiler) compileDistinct(q queryir.Distinct) (string, []any, error) {
	col := QuoteIdent(q.Column)
	sql := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s ASC",
		col, QuoteIdent(q.From), col, col)
	return sql, nil, nil
}

func (c *SQLCompiler) writeWhere(b *strings.Builder, filter queryir.Predicate) ([]any, error) {
	if filter == nil {
		return nil, nil
	}
	filterSQL, params, err := c.compilePredicate(filter)
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	b.WriteString(" WHERE ")
	b.WriteString(filterSQL)
	return params, nil
}

// orderClause renders ORDER BY terms followed by the tie-breaker, unless the
// tie-breaker is already ordered on.
func orderClause(order []queryir.Order, tieBreaker string) string {
	var parts []string
	seen := make([]string, 0, len(order))
	for _, o := range order {
		parts = append(parts, fmt.Sprintf("%s %s", QuoteIdent(o.Field), o.Direction))
		seen = append(seen, o.Field)
	}
	if tieBreaker != "" && !slices.Contains(seen, tieBreaker) {
		parts = append(parts, fmt.Sprintf("%s %s", QuoteIdent(tieBreaker), queryir.Asc))
	}
	return strings.Join(parts, ", ")
}

// compilePredicate compiles a queryir.Predicate to a SQL WHERE fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.ContainsFold:
		return c.compileContainsFold(pred)
	case *queryir.ContainsFold:
		return c.compileContainsFold(*pred)
	case queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case *queryir.And:
		return c.compileJunction(pred.Predicates, " AND ", "1 = 1")
	case queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "1 = 0")
	case *queryir.Or:
		return c.compileJunction(pred.Predicates, " OR ", "1 = 0")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "field = ?".
// A null value compiles to "field IS NULL" since NULL never equals anything.
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	if value.IsNull(eq.Value) {
		return fmt.Sprintf("%s IS NULL", QuoteIdent(eq.Field)), nil, nil
	}

	param, err := Param(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("convert value for %q: %w", eq.Field, err)
	}

	return fmt.Sprintf("%s = ?", QuoteIdent(eq.Field)), []any{param}, nil
}

// compileContainsFold compiles a ContainsFold predicate to a LIKE over
// folded text. The term is folded here and the column by the SQL function.
func (c *SQLCompiler) compileContainsFold(cf queryir.ContainsFold) (string, []any, error) {
	sql := fmt.Sprintf(`%s(%s) LIKE ? ESCAPE '\'`, c.foldFunction(), QuoteIdent(cf.Field))
	pattern := "%" + EscapeLike(Fold(cf.Term)) + "%"
	return sql, []any{pattern}, nil
}

// compileJunction compiles And/Or. Multiple children are parenthesized so
// nesting never depends on operator precedence.
func (c *SQLCompiler) compileJunction(children []queryir.Predicate, sep, empty string) (string, []any, error) {
	if len(children) == 0 {
		return empty, nil, nil
	}

	var sqlParts []string
	var allParams []any
	for _, child := range children {
		sql, params, err := c.compilePredicate(child)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	if len(sqlParts) == 1 {
		return sqlParts[0], allParams, nil
	}
	return "(" + strings.Join(sqlParts, sep) + ")", allParams, nil
}

func (c *SQLCompiler) foldFunction() string {
	if c.FoldFunction == "" {
		return FoldFunc
	}
	return c.FoldFunction
}

// QuoteIdent quotes a SQL identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// EscapeLike escapes LIKE wildcards so s matches literally with ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Param converts a value to a database/sql argument.
// Arrays and objects are stored as their JSON encoding.
func Param(v value.Value) (any, error) {
	switch val := v.(type) {
	case nil, value.Null:
		return nil, nil
	case value.String:
		return string(val), nil
	case value.Int:
		return int64(val), nil
	case value.Float:
		return float64(val), nil
	case value.Bool:
		return bool(val), nil
	case value.Array, value.Object:
		data, err := value.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

func tableOf(q queryir.Query) string {
	switch query := q.(type) {
	case queryir.Select:
		return query.From
	case *queryir.Select:
		return query.From
	case queryir.Count:
		return query.From
	case *queryir.Count:
		return query.From
	case queryir.Distinct:
		return query.From
	case *queryir.Distinct:
		return query.From
	default:
		return ""
	}
}
