package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xdg/warden/internal/clog"
)

// ErrTampered is returned by Verify when stored content does not match its
// hash or the chain is broken.
var ErrTampered = errors.New("audit log verification failed")

// Options configures a Recorder.
type Options struct {
	Algorithm Algorithm
	// Trail, when set, receives one text line per appended entry.
	Trail *Trail
}

// Recorder appends entries to a Store. The Store assigns each entry its
// place in the chain; the Recorder's lock keeps the trail in the same
// order as the log.
type Recorder struct {
	store Store
	algo  Algorithm
	trail *Trail
	now   func() time.Time

	mu sync.Mutex
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(store Store, opts Options) *Recorder {
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	return &Recorder{
		store: store,
		algo:  opts.Algorithm,
		trail: opts.Trail,
		now:   time.Now,
	}
}

// Algorithm returns the hash algorithm for new content.
func (r *Recorder) Algorithm() Algorithm { return r.algo }

// Store returns the underlying store.
func (r *Recorder) Store() Store { return r.store }

// Put stores the canonical encoding of v as a payload and returns its hash.
func (r *Recorder) Put(ctx context.Context, v any) (Hash, error) {
	h, data, err := r.algo.Of(v)
	if err != nil {
		return "", err
	}
	if err := r.store.PutPayload(ctx, h, data); err != nil {
		return "", err
	}
	return h, nil
}

// Record appends e and returns its hash. Time is assigned here when unset;
// Seq and Prev come from the chain head at the moment of the append.
func (r *Recorder) Record(ctx context.Context, e Entry) (Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Time.IsZero() {
		e.Time = r.now().UTC()
	}

	rec, err := r.store.Append(ctx, func(head *Record) (Record, error) {
		e.Seq, e.Prev = 1, ""
		if head != nil {
			e.Seq, e.Prev = head.Entry.Seq+1, head.Hash
		}
		return newRecord(r.algo, e)
	})
	if err != nil {
		return "", err
	}

	if r.trail != nil {
		if err := r.trail.Write(rec); err != nil {
			clog.Warn("audit: trail: %v", err)
		}
	}
	return rec.Hash, nil
}

// Lookup resolves h to an entry or, failing that, a stored payload.
func (r *Recorder) Lookup(ctx context.Context, h Hash) (Lookup, error) {
	rec, err := r.store.Entry(ctx, h)
	if err == nil {
		return Lookup{Hash: h, Kind: KindEntry, Entry: &rec}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Lookup{}, err
	}

	data, err := r.store.Payload(ctx, h)
	if err != nil {
		return Lookup{}, err
	}
	var payload map[string]any
	if err := Decode(data, &payload); err != nil {
		return Lookup{}, fmt.Errorf("decode payload %s: %w", h, err)
	}
	return Lookup{Hash: h, Kind: KindPayload, Payload: payload}, nil
}

// Kinds of Lookup result.
const (
	KindEntry   = "entry"
	KindPayload = "payload"
)

// Lookup is what a hash resolved to.
type Lookup struct {
	Hash    Hash           `json:"hash"`
	Kind    string         `json:"kind"`
	Entry   *Record        `json:"-"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Verify recomputes the hash of the entry h, its link to the previous
// entry, and the hashes of the payloads it references.
func (r *Recorder) Verify(ctx context.Context, h Hash) (Record, error) {
	rec, err := r.store.Entry(ctx, h)
	if err != nil {
		return Record{}, err
	}

	algo := h.Algorithm()
	if got := algo.Sum(rec.Raw); got != h {
		return rec, fmt.Errorf("%w: entry %s hashes to %s", ErrTampered, h, got)
	}

	e := rec.Entry
	switch {
	case e.Seq == 1 && e.Prev != "":
		return rec, fmt.Errorf("%w: first entry links to %s", ErrTampered, e.Prev)
	case e.Seq > 1:
		prev, err := r.store.Entry(ctx, e.Prev)
		if err != nil {
			return rec, fmt.Errorf("%w: previous entry %s: %v", ErrTampered, e.Prev, err)
		}
		if prev.Entry.Seq != e.Seq-1 {
			return rec, fmt.Errorf("%w: previous entry has seq %d, want %d", ErrTampered, prev.Entry.Seq, e.Seq-1)
		}
	}

	for _, ref := range []Hash{e.Request, e.Result} {
		if ref == "" {
			continue
		}
		data, err := r.store.Payload(ctx, ref)
		if err != nil {
			return rec, fmt.Errorf("%w: payload %s: %v", ErrTampered, ref, err)
		}
		if got := ref.Algorithm().Sum(data); got != ref {
			return rec, fmt.Errorf("%w: payload %s hashes to %s", ErrTampered, ref, got)
		}
	}
	return rec, nil
}

// Close closes the trail and the store.
func (r *Recorder) Close() error {
	var errs []error
	if r.trail != nil {
		errs = append(errs, r.trail.Close())
	}
	errs = append(errs, r.store.Close())
	return errors.Join(errs...)
}
