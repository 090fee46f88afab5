// Package resource contains the stock-accounting domain model: every location
// (a town or an expedition) holds quantities of typed resources, and all
// movement goes through the ledger so balances can never dip below zero.
package resource

import (
	"fmt"
	"strings"

	"github.com/bourgade-rp/bourgade-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// Locations
// ═══════════════════════════════════════════════════════════════════════════

// LocationKind discriminates the owner of a stock row.
type LocationKind string

const (
	// LocationCity - the persistent town stockpile.
	LocationCity LocationKind = "CITY"

	// LocationExpedition - the detachable stockpile an expedition carries.
	LocationExpedition LocationKind = "EXPEDITION"
)

// IsValid checks if the location kind is known.
func (k LocationKind) IsValid() bool {
	return k == LocationCity || k == LocationExpedition
}

// Location identifies one stockpile: a kind plus the owning entity's ID.
type Location struct {
	Kind LocationKind
	ID   string
}

// TownLocation builds the stock location of a town.
func TownLocation(townID shared.TownID) Location {
	return Location{Kind: LocationCity, ID: townID.String()}
}

// ExpeditionLocation builds the stock location of an expedition.
func ExpeditionLocation(expeditionID shared.ExpeditionID) Location {
	return Location{Kind: LocationExpedition, ID: expeditionID.String()}
}

// IsValid checks the location is fully specified.
func (l Location) IsValid() bool {
	return l.Kind.IsValid() && l.ID != ""
}

// Equal compares two locations.
func (l Location) Equal(other Location) bool {
	return l.Kind == other.Kind && l.ID == other.ID
}

// String returns a printable representation, e.g. "CITY:abc123".
func (l Location) String() string {
	return fmt.Sprintf("%s:%s", l.Kind, l.ID)
}

// ═══════════════════════════════════════════════════════════════════════════
// Resource types
// ═══════════════════════════════════════════════════════════════════════════

// ResourceType is a catalog entry, e.g. "Vivres" or "Bois". The catalog is
// seeded externally; the core only resolves names to IDs.
type ResourceType struct {
	ID   int
	Name string
}

// IsValid checks the type carries an ID and a name.
func (t ResourceType) IsValid() bool {
	return t.ID > 0 && strings.TrimSpace(t.Name) != ""
}

// ═══════════════════════════════════════════════════════════════════════════
// Stock
// ═══════════════════════════════════════════════════════════════════════════

// Stock is one ledger row: how much of one resource a location holds.
// Absence of a row means a zero balance, never an error.
type Stock struct {
	Location       Location
	ResourceTypeID int
	Quantity       shared.Quantity
}

// ═══════════════════════════════════════════════════════════════════════════
// Transfer direction (town <-> expedition)
// ═══════════════════════════════════════════════════════════════════════════

// TransferDirection names the two legal movement directions for expedition
// transfers, as the external API spells them.
type TransferDirection string

const (
	// ToExpedition moves stock town -> expedition.
	ToExpedition TransferDirection = "toExpedition"

	// ToTown moves stock expedition -> town.
	ToTown TransferDirection = "toTown"
)

// IsValid checks the direction is one of the two supported values.
func (d TransferDirection) IsValid() bool {
	return d == ToExpedition || d == ToTown
}

// ParseTransferDirection accepts the canonical values plus the legacy
// "from_town"/"to_town" aliases still used by older bot clients.
func ParseTransferDirection(raw string) (TransferDirection, error) {
	switch strings.TrimSpace(raw) {
	case string(ToExpedition), "from_town":
		return ToExpedition, nil
	case string(ToTown), "to_town":
		return ToTown, nil
	default:
		return "", shared.NewDomainError("resource", "ParseTransferDirection", shared.ErrInvalidInput,
			fmt.Sprintf("unknown transfer direction %q", raw))
	}
}

// ValidateTransfer applies the pure transfer rules shared by every ledger
// implementation: positive quantity, distinct valid endpoints.
func ValidateTransfer(from, to Location, qty shared.Quantity) error {
	if qty <= 0 {
		return shared.ErrNonPositiveQuantity
	}
	if !from.IsValid() || !to.IsValid() {
		return shared.NewDomainError("resource", "Transfer", shared.ErrInvalidInput, "invalid transfer location")
	}
	if from.Equal(to) {
		return shared.ErrTransferSameLocation
	}
	return nil
}
