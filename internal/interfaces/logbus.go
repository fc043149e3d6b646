package interfaces

import "github.com/94faddy/dz-wrokshop/internal/models"

// LogBus accepts structured log records from any component, retains the
// most recent N in memory, and fans them out to live subscribers (§4.6).
type LogBus interface {
	// Publish is non-blocking from the publisher's perspective.
	Publish(record models.LogRecord)

	// Subscribe registers ch to receive records published after the call;
	// it sends no backlog, so a caller wanting a burst of recent records
	// reads Recent itself. The returned unsubscribe func is idempotent.
	Subscribe(ch chan<- models.LogRecord) (unsubscribe func())

	// Recent returns up to n of the most recently published records,
	// oldest first.
	Recent(n int) []models.LogRecord
}

// MetadataFetcher is the out-of-scope external scraper's contract: given a
// workshop item id, return its metadata snapshot (§2, Non-goals).
type MetadataFetcher interface {
	Fetch(itemID string) (models.Metadata, error)
}
