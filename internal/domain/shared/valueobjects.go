// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// ExpeditionID represents a unique expedition identifier (UUID format).
type ExpeditionID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the expedition ID is a valid UUID.
func (e ExpeditionID) IsValid() bool {
	return uuidRegex.MatchString(string(e))
}

// String returns the string representation.
func (e ExpeditionID) String() string {
	return string(e)
}

// IsEmpty checks if the ID is empty.
func (e ExpeditionID) IsEmpty() bool {
	return e == ""
}

// NewExpeditionID creates a new ExpeditionID with validation.
func NewExpeditionID(id string) (ExpeditionID, error) {
	eid := ExpeditionID(strings.ToLower(strings.TrimSpace(id)))
	if !eid.IsValid() {
		return "", NewDomainError("shared", "NewExpeditionID", ErrInvalidID, "invalid expedition ID format")
	}
	return eid, nil
}

// CharacterID represents a unique character identifier.
// Characters live in an external subsystem; the ID is treated as opaque.
type CharacterID string

// IsValid checks that the character ID is non-empty and printable.
func (c CharacterID) IsValid() bool {
	s := string(c)
	return len(s) >= 1 && len(s) <= 64 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (c CharacterID) String() string {
	return string(c)
}

// NewCharacterID creates a new CharacterID with validation.
func NewCharacterID(id string) (CharacterID, error) {
	cid := CharacterID(strings.TrimSpace(id))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewCharacterID", ErrInvalidID, "invalid character ID")
	}
	return cid, nil
}

// TownID represents a unique town identifier.
type TownID string

// IsValid checks that the town ID is non-empty and printable.
func (t TownID) IsValid() bool {
	s := string(t)
	return len(s) >= 1 && len(s) <= 64 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the string representation.
func (t TownID) String() string {
	return string(t)
}

// NewTownID creates a new TownID with validation.
func NewTownID(id string) (TownID, error) {
	tid := TownID(strings.TrimSpace(id))
	if !tid.IsValid() {
		return "", NewDomainError("shared", "NewTownID", ErrInvalidID, "invalid town ID")
	}
	return tid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Quantity Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Quantity represents a non-negative stock amount.
type Quantity int

// IsValid checks that the quantity is non-negative.
func (q Quantity) IsValid() bool {
	return q >= 0
}

// Int returns the underlying int value.
func (q Quantity) Int() int {
	return int(q)
}

// CanSubtract reports whether subtracting amount keeps the quantity >= 0.
func (q Quantity) CanSubtract(amount Quantity) bool {
	return q >= amount
}

// Add adds the amount and returns the result.
func (q Quantity) Add(amount Quantity) Quantity {
	return q + amount
}

// Subtract subtracts the amount. The caller must check CanSubtract first;
// quantities never go negative.
func (q Quantity) Subtract(amount Quantity) (Quantity, error) {
	if !q.CanSubtract(amount) {
		return q, ErrStockUnderflow
	}
	return q - amount, nil
}

// NewQuantity creates a new Quantity with validation.
func NewQuantity(amount int) (Quantity, error) {
	if amount < 0 {
		return 0, NewDomainError("shared", "NewQuantity", ErrNegativeValue, "quantity cannot be negative")
	}
	return Quantity(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Duration Value Object
// ═══════════════════════════════════════════════════════════════════════════

// DurationDays represents an expedition duration measured in whole in-game days.
type DurationDays int

const (
	// MinDurationDays is the shortest allowed expedition.
	MinDurationDays DurationDays = 1
	// MaxDurationDays caps runaway admin input.
	MaxDurationDays DurationDays = 30
)

// IsValid checks if the duration is within the allowed range.
func (d DurationDays) IsValid() bool {
	return d >= MinDurationDays && d <= MaxDurationDays
}

// Int returns the underlying int value.
func (d DurationDays) Int() int {
	return int(d)
}

// AsDuration converts the day count to a time.Duration.
func (d DurationDays) AsDuration() time.Duration {
	return time.Duration(d) * 24 * time.Hour
}

// NewDurationDays creates a new DurationDays with validation.
func NewDurationDays(days int) (DurationDays, error) {
	d := DurationDays(days)
	if !d.IsValid() {
		return 0, ErrDurationOutOfRange
	}
	return d, nil
}
