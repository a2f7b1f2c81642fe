package eth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the byte length of an account address.
const AddressLength = 20

var ErrInvalidAddress = errors.New("invalid address")

// IsAddress reports whether s is a 20-byte hex address, with or without the
// 0x prefix. Mixed-case input must carry a valid EIP-55 checksum.
func IsAddress(s string) bool {
	raw, ok := addressHex(s)
	if !ok {
		return false
	}
	if raw == strings.ToLower(raw) || raw == strings.ToUpper(raw) {
		return true
	}
	return checksum(strings.ToLower(raw)) == raw
}

// ToChecksumAddress returns the EIP-55 mixed-case form of s.
func ToChecksumAddress(s string) (string, error) {
	if !IsAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	raw, _ := addressHex(s)
	return "0x" + checksum(strings.ToLower(raw)), nil
}

// IsSameAddress reports whether a and b name the same account regardless of
// letter case. Invalid addresses never match.
func IsSameAddress(a, b string) bool {
	if !IsAddress(a) || !IsAddress(b) {
		return false
	}
	ra, _ := addressHex(a)
	rb, _ := addressHex(b)
	return strings.EqualFold(ra, rb)
}

// addressHex strips the prefix and checks length and alphabet.
func addressHex(s string) (string, bool) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*AddressLength {
		return "", false
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", false
	}
	return raw, true
}

// checksum applies EIP-55 casing to a lower-case 40 character hex string.
func checksum(lower string) string {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	sum := hasher.Sum(nil)
	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
