// Package ledger holds the append-only activity ledger of a request and the
// predicates that derive approval state from it.
//
// No request field records "has been approved". Every such fact is inferred by
// scanning the ledger in insertion order. Entries carry a structured EventKind
// and EventScope which are authoritative; entries without a kind (imported or
// historical rows) are interpreted from their Action text using the legacy
// phrasing produced by the wording helpers in this package.
package ledger

import (
	"time"

	"docroute/internal/models"
)

// Ledger is an immutable ordered view over activity entries.
// Append returns a new Ledger; the receiver is never modified.
type Ledger struct {
	entries []models.ActivityEntry
}

// New builds a ledger from existing entries. The slice is copied.
func New(entries []models.ActivityEntry) Ledger {
	cp := make([]models.ActivityEntry, len(entries))
	copy(cp, entries)
	return Ledger{entries: cp}
}

// Len returns the number of entries.
func (l Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in insertion order.
func (l Ledger) Entries() []models.ActivityEntry {
	cp := make([]models.ActivityEntry, len(l.entries))
	copy(cp, l.entries)
	return cp
}

// Append returns a new ledger with e added at the end. Seq is assigned from
// the insertion index and a zero Timestamp is rejected in favour of now.
func (l Ledger) Append(e models.ActivityEntry, now time.Time) Ledger {
	next := make([]models.ActivityEntry, len(l.entries), len(l.entries)+1)
	copy(next, l.entries)
	e.ID = 0
	e.Seq = len(l.entries)
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return Ledger{entries: append(next, e)}
}
