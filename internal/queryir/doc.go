// Package queryir provides the query intermediate representation (IR) that
// sits between request handling and the SQL backend.
//
// The resource engine never writes SQL. It describes what it wants as IR
// values and the querysql package compiles them to parameterized SQL:
//
//	[request params] → [queryspec.Spec] → [queryir.Select] → [querysql] → SQL + args
//
// QUERIES:
//   - Select: columns of one table, optional filter, ordering, limit/offset
//   - Count: number of rows of one table matching a filter
//   - Distinct: distinct non-null values of one column
//
// PREDICATES:
//   - Equals: field = bound value
//   - ContainsFold: case-insensitive substring match against a bound term
//   - And: every child must hold (empty And is true)
//   - Or: at least one child must hold (empty Or is false)
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed with marker methods, so backends can use
// exhaustive type switches:
//
//	switch q := query.(type) {
//	case Select:
//	    // Handle select
//	case Count:
//	    // Handle count
//	case Distinct:
//	    // Handle distinct
//	}
//
// Values in predicates are always value.Value and are always bound as
// parameters by the backend, never interpolated into query text.
package queryir
