package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// TxFunc is a unit of work run inside a transaction.
// Returning an error rolls the transaction back.
type TxFunc func(ctx context.Context, h Handle) error

// Transact runs fn inside a single transaction, handling commit and
// rollback automatically.
//
// The transaction is bound to ctx: if ctx is cancelled before commit the
// driver rolls back and the commit fails. If fn returns an error or panics
// the transaction is rolled back and the error (or panic) propagates
// unchanged. If fn succeeds the transaction is committed.
//
// The handle passed to fn must not be used after fn returns.
func (s *Store) Transact(ctx context.Context, fn TxFunc) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// No-op (ErrTxDone) if the driver already rolled back on cancellation
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warn("rollback failed", "error", rbErr)
			if err != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err := fn(ctx, &sqlHandle{q: tx, compiler: s.compiler}); err != nil {
		s.logger.Debug("transaction rolled back", "error", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
