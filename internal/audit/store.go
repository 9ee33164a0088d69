package audit

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no entry or payload has the given hash.
var ErrNotFound = errors.New("not found in audit log")

// Link builds the next record from the current chain head. head is nil
// when the log is empty.
type Link func(head *Record) (Record, error)

// Store persists entries and the payloads they reference. Implementations
// only append: there is no update or delete.
type Store interface {
	// Append stores the record link builds and returns it. Reading the head
	// and writing the record is atomic with respect to every other writer
	// of the same log, including other processes. Appending an entry whose
	// hash already exists is an error.
	Append(ctx context.Context, link Link) (Record, error)
	// Last returns the entry with the highest sequence number.
	Last(ctx context.Context) (Record, bool, error)
	// Entry returns the entry with hash h.
	Entry(ctx context.Context, h Hash) (Record, error)
	// Tail returns up to n most recent entries, oldest first.
	Tail(ctx context.Context, n int) ([]Record, error)

	// PutPayload stores data under h. Storing the same hash twice is a
	// no-op.
	PutPayload(ctx context.Context, h Hash, data []byte) error
	// Payload returns the data stored under h.
	Payload(ctx context.Context, h Hash) ([]byte, error)

	Close() error
}
