// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrAlreadySet      = errors.New("already set")
	ErrExpired         = errors.New("expired")

	// Membership / eligibility errors
	ErrNotEligible = errors.New("not eligible")
	ErrNotAMember  = errors.New("not a member")

	// Ledger errors
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSameLocation      = errors.New("source and destination are the same location")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "expedition", "resource", "character"
	Op      string // Operation that failed, e.g., "Join", "Transfer"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Expedition domain errors
var (
	ErrExpeditionNotFound   = NewDomainError("expedition", "Find", ErrNotFound, "expedition not found")
	ErrAlreadyMember        = NewDomainError("expedition", "Join", ErrAlreadyExists, "character is already a member of this expedition")
	ErrAlreadyOnExpedition  = NewDomainError("expedition", "Join", ErrNotEligible, "character is already on another active expedition")
	ErrCharacterNotMember   = NewDomainError("expedition", "CheckMember", ErrNotAMember, "character is not a member of this expedition")
	ErrExpeditionLocked     = NewDomainError("expedition", "Membership", ErrStateTransition, "membership is frozen outside of planning")
	ErrDirectionAlreadySet  = NewDomainError("expedition", "SetDirection", ErrAlreadySet, "direction already chosen for the current day")
	ErrLastDayNoChoice      = NewDomainError("expedition", "SetDirection", ErrInvalidState, "the final travel day has no discretionary routing")
	ErrInvalidDirection     = NewDomainError("expedition", "SetDirection", ErrInvalidInput, "unknown direction")
	ErrVoteNotOpen          = NewDomainError("expedition", "ToggleVote", ErrInvalidState, "emergency votes are only open while departed")
	ErrExpeditionNoMembers  = NewDomainError("expedition", "Lock", ErrInvalidState, "expedition has no members")
	ErrExpeditionReturned   = NewDomainError("expedition", "Mutate", ErrStateTransition, "a returned expedition is immutable")
	ErrDurationOutOfRange   = NewDomainError("expedition", "Validate", ErrInvalidInput, "duration must be at least one day")
	ErrExpeditionNameNeeded = NewDomainError("expedition", "Validate", ErrEmptyValue, "expedition name is required")
)

// Resource domain errors
var (
	ErrResourceTypeNotFound = NewDomainError("resource", "FindType", ErrNotFound, "resource type not found")
	ErrStockUnderflow       = NewDomainError("resource", "Debit", ErrInsufficientStock, "not enough stock at location")
	ErrTransferSameLocation = NewDomainError("resource", "Transfer", ErrSameLocation, "cannot transfer to the same location")
	ErrNonPositiveQuantity  = NewDomainError("resource", "Validate", ErrInvalidInput, "quantity must be positive")
)

// Character / town collaborator errors
var (
	ErrCharacterNotFound = NewDomainError("character", "Find", ErrNotFound, "character not found")
	ErrCharacterDead     = NewDomainError("character", "CheckEligibility", ErrNotEligible, "character is dead")
	ErrCharacterInactive = NewDomainError("character", "CheckEligibility", ErrNotEligible, "character is not active")
	ErrTownNotFound      = NewDomainError("town", "Find", ErrNotFound, "town not found")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStateTransition checks if the error is an illegal state transition.
func IsStateTransition(err error) bool {
	return errors.Is(err, ErrStateTransition)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue)
}

// IsClientRecoverable reports whether the error is one the caller can fix by
// changing the request, as opposed to an infrastructure failure.
func IsClientRecoverable(err error) bool {
	return IsNotFound(err) ||
		IsStateTransition(err) ||
		IsValidation(err) ||
		errors.Is(err, ErrNotEligible) ||
		errors.Is(err, ErrNotAMember) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrAlreadySet) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrSameLocation)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
