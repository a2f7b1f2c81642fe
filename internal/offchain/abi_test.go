package offchain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func wordHex(v int) string { return fmt.Sprintf("%064x", v) }

func padHex(h string) string {
	if r := len(h) % 64; r != 0 {
		return h + strings.Repeat("0", 64-r)
	}
	return h
}

func TestEncodeBytesPair(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want string
	}{
		{
			name: "short values",
			a:    "deadbeef",
			b:    "0102",
			want: wordHex(0x40) + wordHex(0x80) + wordHex(4) + padHex("deadbeef") + wordHex(2) + padHex("0102"),
		},
		{
			name: "empty values",
			want: wordHex(0x40) + wordHex(0x60) + wordHex(0) + wordHex(0),
		},
		{
			name: "exactly one word",
			a:    strings.Repeat("ab", 32),
			b:    "ff",
			want: wordHex(0x40) + wordHex(0x80) + wordHex(32) + strings.Repeat("ab", 32) + wordHex(1) + padHex("ff"),
		},
		{
			name: "spills into a second word",
			a:    strings.Repeat("cd", 33),
			want: wordHex(0x40) + wordHex(0xa0) + wordHex(33) + padHex(strings.Repeat("cd", 33)) + wordHex(0),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := hex.DecodeString(tt.a)
			b, _ := hex.DecodeString(tt.b)
			assert.Equal(t, tt.want, hex.EncodeToString(encodeBytesPair(a, b)))
		})
	}
}
