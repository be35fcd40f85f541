package entitlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// BankConnection represents a linked bank institution and the products it is
// billed for. A billed connection always carries at least one product; a
// connection flagged for removal stays billed until the next cycle rollover.
type BankConnection struct {
	shared.AccountAggregateRoot
	ItemID          string // opaque item id from the aggregation provider
	AccessToken     string // provider credential; never exposed to clients
	InstitutionName string
	BilledProducts  []ProductType
	RemovalFlag     bool
}

// NewBankConnection creates a new bank connection for an account
func NewBankConnection(accountID uuid.UUID, itemID, institutionName string, billedProducts []ProductType) (*BankConnection, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if itemID == "" {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item ID cannot be empty")
	}
	if institutionName == "" {
		return nil, shared.NewDomainError("INVALID_INSTITUTION", "Institution name cannot be empty")
	}
	if len(billedProducts) == 0 {
		return nil, shared.NewDomainError("INVALID_PRODUCTS", "A billed connection requires at least one product")
	}

	seen := make(map[ProductType]bool, len(billedProducts))
	for _, p := range billedProducts {
		if !p.IsValid() {
			return nil, shared.NewDomainError("INVALID_PRODUCTS", "Invalid product type")
		}
		if seen[p] {
			return nil, shared.NewDomainError("INVALID_PRODUCTS", "Duplicate product type")
		}
		seen[p] = true
	}

	conn := &BankConnection{
		AccountAggregateRoot: shared.NewAccountAggregateRoot(accountID),
		ItemID:               itemID,
		InstitutionName:      institutionName,
		BilledProducts:       billedProducts,
	}

	conn.AddDomainEvent(NewConnectionLinkedEvent(conn))

	return conn, nil
}

// BillsProduct returns true if the connection is billed for the given product
func (c *BankConnection) BillsProduct(p ProductType) bool {
	for _, bp := range c.BilledProducts {
		if bp == p {
			return true
		}
	}
	return false
}

// SetRemovalFlag marks or unmarks the connection for removal at the next
// rollover. Setting the same value twice is a no-op.
func (c *BankConnection) SetRemovalFlag(flagged bool) {
	if c.RemovalFlag == flagged {
		return
	}

	c.RemovalFlag = flagged
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewConnectionRemovalFlagChangedEvent(c, flagged))
}

// ConnectionSet is the full set of an account's bank connections. The
// entitlement policy derives all of its counts from it.
type ConnectionSet []*BankConnection

// CountActive returns the number of connections billed for the given product
func (s ConnectionSet) CountActive(p ProductType) int {
	n := 0
	for _, c := range s {
		if c.BillsProduct(p) {
			n++
		}
	}
	return n
}

// CountFlagged returns the number of flagged connections billed for the product
func (s ConnectionSet) CountFlagged(p ProductType) int {
	n := 0
	for _, c := range s {
		if c.RemovalFlag && c.BillsProduct(p) {
			n++
		}
	}
	return n
}

// CountUnflagged returns the connections of the product type that will survive
// the next rollover
func (s ConnectionSet) CountUnflagged(p ProductType) int {
	return s.CountActive(p) - s.CountFlagged(p)
}

// Flagged returns the subset of connections marked for removal
func (s ConnectionSet) Flagged() ConnectionSet {
	var flagged ConnectionSet
	for _, c := range s {
		if c.RemovalFlag {
			flagged = append(flagged, c)
		}
	}
	return flagged
}

// FindByID returns the connection with the given id, or nil
func (s ConnectionSet) FindByID(id uuid.UUID) *BankConnection {
	for _, c := range s {
		if c.ID == id {
			return c
		}
	}
	return nil
}
