// Package persistcore wires the Registry, Dialect, ObjectStore,
// RecordCache, Loader, Saver, Deleter, ExclusiveAllocator, IdGenerator,
// and ValueCodec components (spec.md §2) into one explicit, non-singleton
// Controller instance per database (spec.md §9: "no singletons").
package persistcore

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for controller-level failures that don't carry
// per-occurrence data.
var (
	// ErrNotOpen reports that a Controller is not open. No function in this
	// package returns it.
	ErrNotOpen = errors.New("persistcore: controller not open")

	// ErrUnknownDialect is returned when Config names a dialect family
	// with no registered family.Mapper.
	ErrUnknownDialect = errors.New("persistcore: unknown dialect family")
)

// ConfigurationError represents spec.md §7's Configuration kind: a missing
// or invalid connection string, or an unknown dialect. Fatal to
// Controller initialization.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("persistcore: configuration: %s: %s", e.Field, e.Reason)
}

// Is reports whether the target error matches ConfigurationError.
func (e *ConfigurationError) Is(err error) bool {
	var other *ConfigurationError
	return errors.As(err, &other)
}

// NewConfigurationError returns a new ConfigurationError for the named
// property.
func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// SchemaMismatchError represents spec.md §7's SchemaMismatch kind: an
// expected table, column, unique constraint, or foreign key was not found
// by SchemaBinder. Fails initialization for the named type only; the
// caller may choose to continue binding the rest of the Registry.
type SchemaMismatchError struct {
	TypeName string
	Detail   string
}

// Error returns the error string.
func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("persistcore: schema mismatch for %s: %s", e.TypeName, e.Detail)
}

// NewSchemaMismatchError returns a new SchemaMismatchError.
func NewSchemaMismatchError(typeName, detail string) *SchemaMismatchError {
	return &SchemaMismatchError{TypeName: typeName, Detail: detail}
}

// IsSchemaMismatchError reports whether err is a SchemaMismatchError.
func IsSchemaMismatchError(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaMismatchError
	return errors.As(err, &e)
}

// ConstraintError represents spec.md §7's Constraint kind: a NOT NULL,
// UNIQUE, or column-size violation caught by the Saver's pre-flight
// check, before any statement reaches the database.
type ConstraintError struct {
	TypeName  string
	FieldName string
	Reason    string
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("persistcore: constraint: %s.%s: %s", e.TypeName, e.FieldName, e.Reason)
}

// NewConstraintError returns a new ConstraintError.
func NewConstraintError(typeName, fieldName, reason string) *ConstraintError {
	return &ConstraintError{TypeName: typeName, FieldName: fieldName, Reason: reason}
}

// IsConstraintError reports whether err is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConstraintError
	return errors.As(err, &e)
}

// PersistenceError represents spec.md §7's Persistence kind: a SQL-level
// failure during an insert, update, delete, or select statement.
type PersistenceError struct {
	Op  string // "insert", "update", "delete", "select"
	Err error
}

// Error returns the error string.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistcore: persistence: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError returns a new PersistenceError.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// IsPersistenceError reports whether err is a PersistenceError.
func IsPersistenceError(err error) bool {
	if err == nil {
		return false
	}
	var e *PersistenceError
	return errors.As(err, &e)
}

// IntegrityError represents spec.md §7's Integrity kind: a referenced row
// still missing after every load cycle, or an entry-table row orphaned
// from its main-table parent.
type IntegrityError struct {
	TypeName string
	ID       any
	Reason   string
}

// Error returns the error string.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("persistcore: integrity: %s(id=%v): %s", e.TypeName, e.ID, e.Reason)
}

// NewIntegrityError returns a new IntegrityError.
func NewIntegrityError(typeName string, id any, reason string) *IntegrityError {
	return &IntegrityError{TypeName: typeName, ID: id, Reason: reason}
}

// IsIntegrityError reports whether err is an IntegrityError.
func IsIntegrityError(err error) bool {
	if err == nil {
		return false
	}
	var e *IntegrityError
	return errors.As(err, &e)
}

// ConflictWarning represents spec.md §7's Conflict kind: an unsaved local
// field change was overridden by the database's value on reload. Never
// fails a call; recorded on the Object (objstore.Object.Warnings) and
// logged.
type ConflictWarning struct {
	TypeName  string
	FieldName string
}

// Error returns the warning string.
func (w *ConflictWarning) Error() string {
	return fmt.Sprintf("persistcore: conflict: %s.%s overridden by database value", w.TypeName, w.FieldName)
}

// NewConflictWarning returns a new ConflictWarning.
func NewConflictWarning(typeName, fieldName string) *ConflictWarning {
	return &ConflictWarning{TypeName: typeName, FieldName: fieldName}
}

// CryptoWarning represents spec.md §7's Crypto kind: encryption was
// requested for a field (FieldSpec.IsEncrypted) but no cryptPassword is
// configured, so the value is stored as plaintext. Emitted once per
// Controller per field.
type CryptoWarning struct {
	TypeName  string
	FieldName string
}

// Error returns the warning string.
func (w *CryptoWarning) Error() string {
	return fmt.Sprintf("persistcore: crypto: %s.%s is marked encrypted but no cryptPassword is configured; storing plaintext", w.TypeName, w.FieldName)
}

// NewCryptoWarning returns a new CryptoWarning.
func NewCryptoWarning(typeName, fieldName string) *CryptoWarning {
	return &CryptoWarning{TypeName: typeName, FieldName: fieldName}
}

// AggregateError collects multiple errors from an operation that attempts
// every sub-step rather than stopping at the first failure into a single
// error. (SchemaBinder.Bind and Open return such errors as a []error
// instead.)
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	s := fmt.Sprintf("persistcore: %d errors:", len(e.Errors))
	for _, err := range e.Errors {
		s += "\n  - " + err.Error()
	}
	return s
}

// NewAggregateError returns an AggregateError wrapping the non-nil errors
// in errs, or nil if none are non-nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
