/*
errors.go - Error types for schedule generation and persistence

ERROR CATEGORIES:
  1. Argument errors - structural preconditions of the generators
     (cycle < 1, negative term, negative money). Raised before any I/O.
  2. Persistence errors - raised by store implementations during the
     delete/insert unit of work. The regeneration path returns them
     unmodified; the enclosing transaction has already rolled back.
  3. Lookup errors - missing contracts, receivables or directory entries,
     duplicate codes, deletes blocked by referencing contracts.

USAGE:
  if errors.Is(err, billing.ErrInvalidArgument) {
      // 400
  }
  var argErr *billing.InvalidArgumentError
  if errors.As(err, &argErr) {
      log.Printf("bad field %s", argErr.Field)
  }
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned when a generator precondition fails.
	// No records are produced and no store call is made.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPersistence marks failures raised by the backing store.
	ErrPersistence = errors.New("persistence failure")

	// ErrContractNotFound is returned when a contract code does not exist.
	ErrContractNotFound = errors.New("contract not found")

	// ErrReceivableNotFound is returned when (kind, code, seq) matches no record.
	ErrReceivableNotFound = errors.New("receivable not found")

	// ErrDuplicateContract is returned when creating a contract whose code exists.
	ErrDuplicateContract = errors.New("contract code already exists")

	// ErrCustomerNotFound is returned when a customer code does not exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrCompanyNotFound is returned when a company code does not exist.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrDuplicateCustomer is returned when creating a customer whose code exists.
	ErrDuplicateCustomer = errors.New("customer code already exists")

	// ErrDuplicateCompany is returned when creating a company whose code exists.
	ErrDuplicateCompany = errors.New("company code already exists")

	// ErrInUse is returned when deleting a directory entry that contracts
	// still reference.
	ErrInUse = errors.New("still referenced by contracts")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvalidArgumentError names the offending input.
type InvalidArgumentError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

func invalidArg(field string, value any, reason string) error {
	return &InvalidArgumentError{Field: field, Value: value, Reason: reason}
}

// PersistenceError wraps a store failure with the operation that raised it.
// errors.Is matches both ErrPersistence and the driver error.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// Persistence wraps err as a PersistenceError. A nil err stays nil and an
// error that already carries ErrPersistence is returned as is.
func Persistence(op string, err error) error {
	if err == nil || errors.Is(err, ErrPersistence) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrReceivableNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrCompanyNotFound)
}

// IsConflict returns true if the error indicates an identity clash.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateContract) ||
		errors.Is(err, ErrDuplicateCustomer) ||
		errors.Is(err, ErrDuplicateCompany) ||
		errors.Is(err, ErrInUse)
}
