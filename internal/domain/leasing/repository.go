package leasing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StoreSource resolves stores and their renters.
type StoreSource interface {
	// GetStore returns BILL_001 when the store does not exist.
	GetStore(ctx context.Context, storeID int64) (*Store, error)

	// RenterForStore returns the renter associated with the store, preferring
	// preferredRenterID when it is among the associations.  BILL_002 when the
	// store has no renter.
	RenterForStore(ctx context.Context, storeID, preferredRenterID int64) (*Renter, error)

	// GetRenter returns BILL_002 when the renter does not exist.
	GetRenter(ctx context.Context, renterID int64) (*Renter, error)
}

// ContractSource is the read-only contract ledger.
type ContractSource interface {
	// ActiveContractsCovering lists active contracts of storeID whose interval
	// intersects [from, to), ordered by id.
	ActiveContractsCovering(ctx context.Context, storeID int64, from, to time.Time) ([]*StoreRentContract, error)

	// StoresWithCoverage lists the distinct stores that have at least one
	// active contract intersecting [from, to).
	StoresWithCoverage(ctx context.Context, from, to time.Time) ([]int64, error)

	// ActiveContractsEndingBetween lists active contracts whose end date lies
	// in [from, to].
	ActiveContractsEndingBetween(ctx context.Context, from, to time.Time) ([]*StoreRentContract, error)
}

// LedgerSource sums a renter's standing debits.
type LedgerSource interface {
	StandingDebitsFor(ctx context.Context, renterID int64) (decimal.Decimal, error)
}

//Personal.AI order the ending
