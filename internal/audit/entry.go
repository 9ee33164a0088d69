// Package audit keeps the append-only, content-addressed record of every
// request the engine decides on.
//
// Each entry links the hash of a request, the validation decision, and
// the hash of the returned result. Entries are chained: an entry's content
// includes the hash of the entry before it, so rewriting history changes
// every later hash. The log is tamper-evident, not tamper-proof.
package audit

import (
	"time"
)

// Decision is the validation outcome as stored in an entry.
type Decision struct {
	Verdict string `json:"verdict"`
	Pattern string `json:"pattern,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Entry is one audit record. Seq starts at 1; Prev is empty only for the
// first entry.
type Entry struct {
	Seq      uint64        `json:"seq"`
	Time     time.Time     `json:"time"`
	TaskID   string        `json:"task_id"`
	Policy   string        `json:"policy"`
	Command  string        `json:"command"`
	Request  Hash          `json:"request"`
	Decision Decision      `json:"decision"`
	Status   string        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	ExitCode *int          `json:"exit_code,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Result   Hash          `json:"result"`
	Prev     Hash          `json:"prev,omitempty"`
}

// Record is a stored entry with its content hash and the exact bytes that
// were hashed.
type Record struct {
	Hash  Hash
	Entry Entry
	Raw   []byte
}

// newRecord hashes e with algo.
func newRecord(algo Algorithm, e Entry) (Record, error) {
	h, raw, err := algo.Of(e)
	if err != nil {
		return Record{}, err
	}
	return Record{Hash: h, Entry: e, Raw: raw}, nil
}

// decodeRecord rebuilds a Record from stored bytes. The hash is taken as
// given; Verify recomputes it.
func decodeRecord(h Hash, raw []byte) (Record, error) {
	var e Entry
	if err := Decode(raw, &e); err != nil {
		return Record{}, err
	}
	return Record{Hash: h, Entry: e, Raw: raw}, nil
}
