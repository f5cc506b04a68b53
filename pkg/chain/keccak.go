package chain

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes the concatenation of the inputs with legacy Keccak-256,
// the digest used for event topics and order keys.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Hash is Keccak256 wrapped into a Hash.
func Keccak256Hash(data ...[]byte) Hash {
	return BytesToHash(Keccak256(data...))
}

// EventTopic derives the topic0 hash from a canonical event signature,
// e.g. "Deposited(bytes32,address,address,uint256)".
func EventTopic(signature string) Hash {
	return Keccak256Hash([]byte(signature))
}

// OrderKey maps a canonical order identifier to its on-chain escrow key.
// The key is derived, never stored input: verifiers recompute it from the
// order id rather than trusting a caller-supplied value.
func OrderKey(orderID string) Hash {
	return Keccak256Hash([]byte(orderID))
}

// EncodeUint64Word ABI-encodes an amount as a 32-byte big-endian word.
func EncodeUint64Word(v uint64) []byte {
	var word [32]byte
	binary.BigEndian.PutUint64(word[24:], v)
	return word[:]
}

// DecodeUint64Word decodes a 32-byte ABI word into a uint64, rejecting
// values that overflow.
func DecodeUint64Word(b []byte) (uint64, error) {
	if len(b) != 32 {
		return 0, fmt.Errorf("word is %d bytes, want 32", len(b))
	}
	for _, c := range b[:24] {
		if c != 0 {
			return 0, fmt.Errorf("word overflows uint64")
		}
	}
	return binary.BigEndian.Uint64(b[24:]), nil
}
