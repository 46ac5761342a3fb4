package store

import (
	"errors"

	"github.com/roach88/crudkit/internal/querysql"
)

// ErrNotFound is returned when no row matches a key.
var ErrNotFound = errors.New("row not found")

// ErrUnknownColumn is matched by errors for queries or rows that reference
// a column the table does not declare.
var ErrUnknownColumn = querysql.ErrUnknownColumn
