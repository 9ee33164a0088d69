package audit

import (
	"errors"
	"strings"
	"testing"
)

func TestAlgorithmSum(t *testing.T) {
	tests := []struct {
		algo Algorithm
		want Hash
	}{
		{SHA256, "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{BLAKE3, "blake3:af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
	}

	for _, tt := range tests {
		if got := tt.algo.Sum(nil); got != tt.want {
			t.Errorf("%s.Sum(nil) = %s, want %s", tt.algo, got, tt.want)
		}
	}
}

func TestOfIsCanonical(t *testing.T) {
	type payload struct {
		B string `json:"b"`
		A int    `json:"a"`
	}

	h1, _, err := SHA256.Of(payload{B: "x", A: 1})
	if err != nil {
		t.Fatalf("Of() error = %v", err)
	}
	h2, _, err := SHA256.Of(map[string]any{"a": 1, "b": "x"})
	if err != nil {
		t.Fatalf("Of() error = %v", err)
	}
	if h1 != h2 {
		t.Errorf("struct and map with the same content hash differently: %s != %s", h1, h2)
	}

	h3, _, _ := SHA256.Of(payload{B: "x", A: 2})
	if h3 == h1 {
		t.Error("different content produced the same hash")
	}
}

func TestParseHash(t *testing.T) {
	valid := string(SHA256.Sum([]byte("x")))

	tests := []struct {
		input   string
		want    Hash
		wantErr bool
	}{
		{valid, Hash(valid), false},
		{strings.ToUpper(valid), Hash(valid), false},
		{" " + valid + " ", Hash(valid), false},
		{"sha256:abc", "", true},
		{"md5:" + valid[7:], "", true},
		{valid[7:], "", true},
		{":" + valid[7:], "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseHash(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHash(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidHash) {
			t.Errorf("ParseHash(%q) error = %v, want ErrInvalidHash", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseHash(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestHashShort(t *testing.T) {
	h := SHA256.Sum([]byte("x"))
	if got := h.Short(); got != string(h)[:19] {
		t.Errorf("Short() = %q, want %q", got, string(h)[:19])
	}
	if got := Hash("sha256:ab").Short(); got != "sha256:ab" {
		t.Errorf("Short() of a short hash = %q", got)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for input, want := range map[string]Algorithm{"": SHA256, "SHA256": SHA256, "blake3": BLAKE3} {
		got, err := ParseAlgorithm(input)
		if err != nil || got != want {
			t.Errorf("ParseAlgorithm(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseAlgorithm("md5"); err == nil {
		t.Error("ParseAlgorithm(md5) succeeded")
	}
}

func TestCompressRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("warden audit payload ", 200))

	stored, encoding := compress(data, CompressionZstd)
	if encoding != CompressionZstd || len(stored) >= len(data) {
		t.Fatalf("compress() = %d bytes %s, want smaller zstd output", len(stored), encoding)
	}
	got, err := decompress(stored, encoding, len(data))
	if err != nil {
		t.Fatalf("decompress() error = %v", err)
	}
	if string(got) != string(data) {
		t.Error("decompress() did not restore the input")
	}

	tiny := []byte("x")
	if _, encoding := compress(tiny, CompressionZstd); encoding != CompressionNone {
		t.Errorf("incompressible input encoded as %s, want none", encoding)
	}
}
