package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// Algorithm names a content hash function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// DefaultAlgorithm is used when none is configured.
const DefaultAlgorithm = SHA256

// ErrInvalidHash is returned for strings that are not "<algorithm>:<hex>".
var ErrInvalidHash = errors.New("invalid content hash")

// ParseAlgorithm returns the named algorithm. Empty selects the default.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q (want sha256 or blake3)", name)
	}
}

// Sum hashes data and returns it in "<algorithm>:<hex>" form.
func (a Algorithm) Sum(data []byte) Hash {
	var digest []byte
	switch a {
	case BLAKE3:
		sum := blake3.Sum256(data)
		digest = sum[:]
	default:
		sum := sha256.Sum256(data)
		digest = sum[:]
		a = SHA256
	}
	return Hash(string(a) + ":" + hex.EncodeToString(digest))
}

// Hash is a content address such as "sha256:9f86d0...".
type Hash string

// ParseHash validates s and returns it as a Hash.
func ParseHash(s string) (Hash, error) {
	algo, digest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}
	if _, err := ParseAlgorithm(algo); err != nil || algo == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}
	raw, err := hex.DecodeString(digest)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}
	return Hash(strings.ToLower(algo) + ":" + strings.ToLower(digest)), nil
}

// Algorithm returns the algorithm part of h.
func (h Hash) Algorithm() Algorithm {
	algo, _, _ := strings.Cut(string(h), ":")
	return Algorithm(algo)
}

// Short returns the algorithm and the first 12 hex digits, for display.
func (h Hash) Short() string {
	if len(h) <= len(h.Algorithm())+13 {
		return string(h)
	}
	return string(h[:len(h.Algorithm())+13])
}

func (h Hash) String() string { return string(h) }

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Core deterministic encoding: the same value always yields the same
	// bytes, and therefore the same hash.
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("audit: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("audit: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode returns the canonical CBOR encoding of v.
func Encode(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Decode decodes canonical CBOR into v.
func Decode(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Of encodes v canonically and hashes the encoding.
func (a Algorithm) Of(v any) (Hash, []byte, error) {
	data, err := Encode(v)
	if err != nil {
		return "", nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return a.Sum(data), data, nil
}
