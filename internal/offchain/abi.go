package offchain

import "encoding/binary"

const word = 32

// encodeBytesPair ABI-encodes the tuple (bytes a, bytes b).
func encodeBytesPair(a, b []byte) []byte {
	out := make([]byte, 0, 2*word+paddedLen(a)+paddedLen(b)+2*word)
	out = append(out, uintWord(2*word)...)
	out = append(out, uintWord(uint64(2*word+word+paddedLen(a)))...)
	out = appendBytes(out, a)
	out = appendBytes(out, b)
	return out
}

func appendBytes(out, b []byte) []byte {
	out = append(out, uintWord(uint64(len(b)))...)
	out = append(out, b...)
	return append(out, make([]byte, paddedLen(b)-len(b))...)
}

func paddedLen(b []byte) int {
	return (len(b) + word - 1) / word * word
}

func uintWord(v uint64) []byte {
	w := make([]byte, word)
	binary.BigEndian.PutUint64(w[word-8:], v)
	return w
}
