// Package sheets defines the ledger mirror port. The worker appends every
// registered transaction to an external spreadsheet for the household's own
// analysis; the bot never reads it back.
package sheets

import (
	"context"
	"time"
)

// LedgerRow is one mirrored transaction.
type LedgerRow struct {
	Date        time.Time
	Phone       string
	Description string
	AmountCents int64
	Type        string
	Category    string
}

// LedgerWriter appends rows to the mirror and returns a row reference.
type LedgerWriter interface {
	Append(ctx context.Context, row LedgerRow) (rowRef string, err error)
}
