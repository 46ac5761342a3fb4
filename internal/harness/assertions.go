package harness

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/crudkit/internal/querysql"
	"github.com/roach88/crudkit/internal/store"
	"github.com/roach88/crudkit/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s -> %s\n", event.Seq, event.Op, event.Outcome)
		}
	}
	return buf.String()
}

// checkExpect compares an executed step against its expectation. A nil
// expectation requires success.
func checkExpect(expect *Expect, event TraceEvent) []string {
	if expect == nil {
		if event.Outcome != OutcomeOK {
			return []string{fmt.Sprintf("expected success, got %s: %s", event.Outcome, event.Message)}
		}
		return nil
	}

	if expect.Error != "" {
		var errs []string
		if event.Outcome != expect.Error {
			errs = append(errs, fmt.Sprintf("expected error %s, got %s", expect.Error, describe(event)))
		}
		if expect.Message != "" && event.Message != expect.Message {
			errs = append(errs, fmt.Sprintf("expected message %q, got %q", expect.Message, event.Message))
		}
		return errs
	}

	if event.Outcome != OutcomeOK {
		return []string{fmt.Sprintf("expected success, got %s: %s", event.Outcome, event.Message)}
	}

	var errs []string
	if expect.Result != nil {
		if err := matchSubset("result", event.Result, expect.Result); err != nil {
			errs = append(errs, err.Error())
		}
	}

	page, _ := event.Result.(value.Object)
	if expect.Count != nil {
		if count := page["count"]; !value.Equal(count, value.Int(*expect.Count)) {
			errs = append(errs, fmt.Sprintf("expected count %d, got %s", *expect.Count, value.Text(count)))
		}
	}
	if expect.Items != nil {
		items, _ := page["items"].(value.Array)
		if len(items) != len(expect.Items) {
			errs = append(errs, fmt.Sprintf("expected %d items, got %d", len(expect.Items), len(items)))
		} else {
			for i, want := range expect.Items {
				if err := matchSubset(fmt.Sprintf("items[%d]", i), items[i], want); err != nil {
					errs = append(errs, err.Error())
				}
			}
		}
	}
	if expect.Values != nil {
		if err := matchSubset("values", event.Result, toAnySlice(expect.Values)); err != nil {
			errs = append(errs, err.Error())
		} else if arr, _ := event.Result.(value.Array); len(arr) != len(expect.Values) {
			errs = append(errs, fmt.Sprintf("expected %d values, got %d", len(expect.Values), len(arr)))
		}
	}
	return errs
}

func describe(event TraceEvent) string {
	if event.Outcome == OutcomeOK {
		return "success"
	}
	return fmt.Sprintf("%s (%s)", event.Outcome, event.Message)
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// matchSubset checks actual against expected YAML data. Objects match
// when every expected key matches; arrays match element-wise with equal
// length; scalars compare by value.
func matchSubset(path string, actual value.Value, expected any) error {
	want, err := value.FromGo(expected)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return matchValue(path, actual, want)
}

func matchValue(path string, actual, want value.Value) error {
	switch w := want.(type) {
	case value.Object:
		got, ok := actual.(value.Object)
		if !ok {
			return fmt.Errorf("%s: expected object, got %s", path, value.TypeName(actual))
		}
		for _, k := range w.SortedKeys() {
			if err := matchValue(path+"."+k, valueOrNull(got[k]), w[k]); err != nil {
				return err
			}
		}
		return nil
	case value.Array:
		got, ok := actual.(value.Array)
		if !ok {
			return fmt.Errorf("%s: expected array, got %s", path, value.TypeName(actual))
		}
		if len(got) != len(w) {
			return fmt.Errorf("%s: expected %d elements, got %d", path, len(w), len(got))
		}
		for i := range w {
			if err := matchValue(fmt.Sprintf("%s[%d]", path, i), got[i], w[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		if !value.Equal(valueOrNull(actual), want) {
			return fmt.Errorf("%s: expected %s, got %s", path, render(want), render(actual))
		}
		return nil
	}
}

func valueOrNull(v value.Value) value.Value {
	if v == nil {
		return value.Null{}
	}
	return v
}

func render(v value.Value) string {
	data, err := value.Marshal(valueOrNull(v))
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// assertTraceContains checks for an event with op whose args match
// Args as a subset.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Op != a.Op {
			continue
		}
		if len(a.Args) == 0 || matchSubset("args", event.Args, a.Args) == nil {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("op %s with args %v", a.Op, a.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrences of ops appear in
// order. Intervening ops are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if _, seen := positions[event.Op]; !seen {
			positions[event.Op] = i + 1
		}
	}

	for _, op := range a.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops present: %v", a.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}
	for i := 1; i < len(a.Ops); i++ {
		prev, curr := a.Ops[i-1], a.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", a.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that op appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState queries a table directly and checks the single row
// matching Where, or that none matches when Absent is set.
func assertFinalState(ctx context.Context, h store.Handle, a Assertion) error {
	if !store.ValidIdent(a.Table) {
		return fmt.Errorf("invalid table name %q", a.Table)
	}
	whereSQL, whereArgs, err := buildWhereClause(a.Where)
	if err != nil {
		return err
	}

	query := "SELECT * FROM " + querysql.QuoteIdent(a.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := h.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", a.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	var matched []value.Object
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		row := make(value.Object, len(columns))
		for i, col := range columns {
			row[col] = sqlValue(raw[i])
		}
		matched = append(matched, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}

	whereDesc := formatWhereClause(a.Where)
	if a.Absent {
		if len(matched) > 0 {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("no row in %s where %s", a.Table, whereDesc),
				Actual:   fmt.Sprintf("%d rows matched", len(matched)),
			}
		}
		return nil
	}

	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", a.Table, whereDesc),
			Actual:   "row not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", a.Table, whereDesc),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := matched[0]
	for _, key := range sortedKeys(a.Expect) {
		actual, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("columns are %v", columns),
			}
		}
		want, err := value.FromGo(a.Expect[key])
		if err != nil {
			return fmt.Errorf("expect %q: %w", key, err)
		}
		if !stateValuesEqual(want, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %s", key, render(want)),
				Actual:   fmt.Sprintf("field %q = %s", key, render(actual)),
			}
		}
	}
	return nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are
// sorted for determinism and must be valid identifiers.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(where))
	args := make([]any, 0, len(where))
	for _, key := range sortedKeys(where) {
		if !store.ValidIdent(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause", key)
		}
		v, err := value.FromGo(where[key])
		if err != nil {
			return "", nil, fmt.Errorf("where %q: %w", key, err)
		}
		clauses = append(clauses, querysql.QuoteIdent(key)+" = ?")
		args = append(args, sqlArg(v))
	}
	return strings.Join(clauses, " AND "), args, nil
}

// sqlArg converts a value to a driver argument. Composite values compare
// as their canonical JSON text, which is how json columns are stored.
func sqlArg(v value.Value) any {
	switch val := v.(type) {
	case value.Null:
		return nil
	case value.String:
		return string(val)
	case value.Int:
		return int64(val)
	case value.Float:
		return float64(val)
	case value.Bool:
		return bool(val)
	default:
		data, err := value.Marshal(v)
		if err != nil {
			return nil
		}
		return string(data)
	}
}

// sqlValue converts a scanned driver value.
func sqlValue(raw any) value.Value {
	switch val := raw.(type) {
	case []byte:
		return value.String(string(val))
	default:
		v, err := value.FromGo(val)
		if err != nil {
			return value.String(fmt.Sprintf("%v", val))
		}
		return v
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares an expected value with a raw column value.
// Booleans are stored as 0 or 1 and json columns as text.
func stateValuesEqual(expected, actual value.Value) bool {
	if b, ok := expected.(value.Bool); ok {
		n, err := value.AsInt(actual)
		return err == nil && (n != 0) == bool(b)
	}
	if value.Equal(expected, actual) {
		return true
	}
	switch expected.(type) {
	case value.Object, value.Array:
		s, ok := actual.(value.String)
		if !ok {
			return false
		}
		stored, err := value.Decode([]byte(s))
		return err == nil && value.Equal(expected, stored)
	}
	return false
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion, h store.Handle) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(ctx, h, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
