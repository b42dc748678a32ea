package port

// DedupStore is the durable, append-only record of transaction ids already
// acted upon. The in-memory view stays authoritative for the lifetime of the
// process even when a durable flush fails.
type DedupStore interface {
	// IsProcessed is a pure lookup with no side effects.
	IsProcessed(id string) bool
	// MarkProcessed records id in memory first, then flushes durably. A
	// returned error means the flush failed; the in-memory record stands.
	MarkProcessed(id string) error
}
