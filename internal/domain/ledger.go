package domain

import "time"

// LedgerEntry records that a natural key has been reserved by the dedup
// gate. Corresponds to the listing_ledger table in PostgreSQL.
// Entries are never deleted; Confirmed is set after a successful persist,
// and unconfirmed entries become reclaimable after a timeout.
type LedgerEntry struct {
	NaturalKey  string
	FirstSeenAt time.Time
	ReservedAt  time.Time
	Confirmed   bool
	ConfirmedAt *time.Time
}
