package eth

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HashLength is the byte length of block and transaction hashes.
const HashLength = 32

// Hash is a 32-byte Keccak digest as used for block and transaction hashes.
type Hash [HashLength]byte

// HashFromHex decodes s, with or without a 0x prefix, into a Hash. Shorter
// inputs are left-padded with zero bytes; longer inputs are rejected.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	raw := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) > HashLength {
		return h, fmt.Errorf("invalid hash %q: %d bytes exceeds %d", s, len(b), HashLength)
	}
	copy(h[HashLength-len(b):], b)
	return h, nil
}

// ParseHash is HashFromHex without padding: s must encode exactly 32 bytes.
func ParseHash(s string) (Hash, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(raw) != 2*HashLength {
		return Hash{}, fmt.Errorf("invalid hash %q: want %d hex digits, got %d", s, 2*HashLength, len(raw))
	}
	return HashFromHex(raw)
}

// MustHash is HashFromHex for known-good literals; it panics on error.
func MustHash(s string) Hash {
	h, err := HashFromHex(s)
	if err != nil {
		panic(err)
	}
	return h
}

// Hex returns the lower-case 0x-prefixed encoding.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

// IsZero reports whether h is all zero bytes.
func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalText encodes h as its Hex form.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }

// UnmarshalText decodes a hex hash using HashFromHex.
func (h *Hash) UnmarshalText(b []byte) error {
	v, err := HashFromHex(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}
