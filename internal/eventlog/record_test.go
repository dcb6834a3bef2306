package eventlog

import (
	"errors"
	"strings"
	"testing"
)

func TestRecordEncoding(t *testing.T) {
	tests := []struct {
		name     string
		fields   Fields
		compress bool
	}{
		{"plain", Fields{"audioChunk": "chunk1"}, false},
		{"compressed", Fields{"audioChunk": strings.Repeat("abc", 500)}, true},
		{"multi field", Fields{"audioChunk": "x", "source": "mic-1"}, false},
		{"empty value", Fields{"audioChunk": ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRecord(EncodeRecord(tt.fields, tt.compress))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != len(tt.fields) {
				t.Fatalf("got %d fields want %d", len(got), len(tt.fields))
			}
			for k, v := range tt.fields {
				if got[k] != v {
					t.Fatalf("field %s: got %q want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestCompressionShrinksRepetitivePayload(t *testing.T) {
	f := Fields{"audioChunk": strings.Repeat("0", 4096)}
	if plain, packed := EncodeRecord(f, false), EncodeRecord(f, true); len(packed) >= len(plain) {
		t.Fatalf("expected compression: %d >= %d", len(packed), len(plain))
	}
}

func TestDecodeDetectsCorruption(t *testing.T) {
	b := EncodeRecord(Fields{"audioChunk": "hello"}, false)
	b[3] ^= 0xff
	if _, err := DecodeRecord(b); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if _, err := DecodeRecord([]byte{0}); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for short input, got %v", err)
	}
}
