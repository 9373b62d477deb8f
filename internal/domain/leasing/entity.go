// Package leasing models stores, renters, store-rent contracts and the
// standing debits charged to renters.  The billing engine reads these
// records; it never mutates them.
package leasing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractStatus is the administrative state of a contract.
type ContractStatus string

const (
	ContractActive    ContractStatus = "Active"
	ContractExpired   ContractStatus = "Expired"
	ContractCancelled ContractStatus = "Cancelled"
)

// Store is a rentable unit in a mall.
type Store struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	MallID int64  `json:"mall_id"`
}

// Renter occupies one or more stores.
type Renter struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// StoreRentContract binds a store to a renter over [StartDate, EndDate).
type StoreRentContract struct {
	ID          int64           `json:"id"`
	StoreID     int64           `json:"store_id"`
	RenterID    int64           `json:"renter_id"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	MonthlyRent decimal.Decimal `json:"monthly_rent"`
	Status      ContractStatus  `json:"status"`
}

// IsActive reports whether the contract is administratively active.
func (c *StoreRentContract) IsActive() bool {
	return c.Status == ContractActive
}

// Covers reports whether instant t falls inside [StartDate, EndDate).
func (c *StoreRentContract) Covers(t time.Time) bool {
	return !t.Before(c.StartDate) && t.Before(c.EndDate)
}

// Overlaps reports whether the contract interval intersects [from, to).
func (c *StoreRentContract) Overlaps(from, to time.Time) bool {
	return c.StartDate.Before(to) && from.Before(c.EndDate)
}

// StandingDebit is a pre-existing charge deducted at invoice issue time.
type StandingDebit struct {
	ID          int64           `json:"id"`
	RenterID    int64           `json:"renter_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	IsActive    bool            `json:"is_active"`
}

// SumActive totals the active debits.
func SumActive(debits []StandingDebit) decimal.Decimal {
	total := decimal.Zero
	for _, d := range debits {
		if d.IsActive {
			total = total.Add(d.Amount)
		}
	}
	return total
}

//Personal.AI order the ending
