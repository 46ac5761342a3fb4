// Package store provides the SQLite-backed storage collaborator for the
// resource engine.
//
// The store knows tables, not entity types. A Table names its columns and
// their kinds; rows travel as value.Object keyed by column name.
//
// # Handles
//
// All reads and writes go through a Handle. Store.Handle returns a plain
// handle over the connection pool; Store.Transact passes a transactional
// handle to a unit of work:
//
//	err := s.Transact(ctx, func(ctx context.Context, h store.Handle) error {
//	    row, err := h.FindByKey(ctx, table, key)
//	    ...
//	    return h.Update(ctx, table, key, row)
//	})
//
// The unit of work commits when fn returns nil and rolls back on any error,
// on panic, and when ctx is cancelled before commit.
//
// # Query Safety
//
//   - Every value is a bound parameter, never interpolated
//   - Every identifier is quoted and must be a declared column of the table
//   - Unknown columns fail with an error matching ErrUnknownColumn
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - crudkit_fold(x): Unicode case folding for search, registered per connection
package store
