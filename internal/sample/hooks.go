package sample

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/crudkit/internal/resource"
	"github.com/roach88/crudkit/internal/store"
)

// Clock supplies wall-clock time to the hooks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Audit actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Timestamps stamps createdAt on create and updatedAt on every save.
func Timestamps(clock Clock) resource.SaveHook[*Test] {
	return func(_ context.Context, _ store.Handle, t *Test, creating bool) (*Test, error) {
		now := clock.Now().UTC()
		if creating {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
		return t, nil
	}
}

// AuditSave records a create or update in the audit table.
func AuditSave(clock Clock) resource.SaveHook[*Test] {
	return func(ctx context.Context, h store.Handle, t *Test, creating bool) (*Test, error) {
		action := ActionUpdate
		if creating {
			action = ActionCreate
		}
		if err := writeAudit(ctx, h, clock, t.UUID, action); err != nil {
			return nil, err
		}
		return t, nil
	}
}

// AuditDelete records a delete in the audit table.
func AuditDelete(clock Clock) resource.DeleteHook[*Test] {
	return func(ctx context.Context, h store.Handle, t *Test) error {
		return writeAudit(ctx, h, clock, t.UUID, ActionDelete)
	}
}

func writeAudit(ctx context.Context, h store.Handle, clock Clock, uuid, action string) error {
	_, err := h.Exec(ctx,
		`INSERT INTO "`+AuditTable+`" ("uuid", "action", "at") VALUES (?, ?, ?)`,
		uuid, action, clock.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}

// AuditEntry is one row of the audit table.
type AuditEntry struct {
	UUID   string
	Action string
	At     string
}

// AuditTrail returns the audit entries for uuid, oldest first.
func AuditTrail(ctx context.Context, h store.Handle, uuid string) ([]AuditEntry, error) {
	rows, err := h.Query(ctx,
		`SELECT "uuid", "action", "at" FROM "`+AuditTable+`" WHERE "uuid" = ? ORDER BY "id" ASC`, uuid)
	if err != nil {
		return nil, fmt.Errorf("read audit: %w", err)
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.UUID, &e.Action, &e.At); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit: %w", err)
	}
	return entries, nil
}
