// Package apperror holds the error taxonomy shared by the forecasting use cases.
package apperror

import (
	"errors"
	"fmt"
)

// ErrStockConflict is returned when product stock changed between read and write.
var ErrStockConflict = errors.New("stock changed concurrently")

// ErrBusy is returned when the per-product apply lock could not be acquired.
var ErrBusy = errors.New("system busy, please try again later (lock)")

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InsufficientHistoryError marks a product to skip, not fail, in velocity batches.
type InsufficientHistoryError struct {
	ProductID   string
	HistoryDays int
	MinimumDays int
}

func (e *InsufficientHistoryError) Error() string {
	if e.HistoryDays < 0 {
		return fmt.Sprintf("product %s has no order history", e.ProductID)
	}
	return fmt.Sprintf("product %s has %d days of history, need %d", e.ProductID, e.HistoryDays, e.MinimumDays)
}

type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

func Configuration(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps a store error; nil stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsInsufficientHistory(err error) bool {
	var ih *InsufficientHistoryError
	return errors.As(err, &ih)
}

func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
