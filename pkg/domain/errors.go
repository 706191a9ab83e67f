package domain

import "fmt"

// NotFoundError reports that an id resolved to no entity of the given type.
// It is a client-visible, recoverable condition.
type NotFoundError struct {
	Entity EntityType
	ID     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError reports a rejected argument such as a non-positive price or
// quantity. It is a client-visible, recoverable condition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientStockError reports a sale line that asked for more units than
// the product has on hand. It is surfaced distinctly from ValidationError so
// callers can render a specific message.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int64
	Available   int64
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (%d): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

// PersistenceError wraps a disk I/O failure during load or atomic replace.
// It is not retried internally; the in-memory state may disagree with disk
// once it is observed, so callers should treat it as a server-class failure.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying I/O error for errors.Is/As chains.
func (e PersistenceError) Unwrap() error { return e.Err }
