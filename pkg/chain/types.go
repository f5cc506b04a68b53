package chain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	addressHexLen = 40
	hashHexLen    = 64

	// ReceiptStatusSuccess marks a transaction that executed without revert.
	ReceiptStatusSuccess uint64 = 1
)

// Address is a 20-byte account or contract address as lowercase 0x-prefixed hex.
type Address string

// Hash is a 32-byte transaction hash, event topic, or order key as
// lowercase 0x-prefixed hex.
type Hash string

// ParseAddress normalizes raw input into an Address.
func ParseAddress(value string) (Address, error) {
	normalized, err := normalizeHex(value, addressHexLen)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", value, err)
	}
	return Address(normalized), nil
}

// ParseHash normalizes raw input into a Hash.
func ParseHash(value string) (Hash, error) {
	normalized, err := normalizeHex(value, hashHexLen)
	if err != nil {
		return "", fmt.Errorf("invalid hash %q: %w", value, err)
	}
	return Hash(normalized), nil
}

// BytesToHash converts a 32-byte slice into a Hash. Shorter input is
// left-padded with zeros.
func BytesToHash(b []byte) Hash {
	var padded [32]byte
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(padded[32-len(b):], b)
	return Hash("0x" + hex.EncodeToString(padded[:]))
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is unset or the zero address.
func (a Address) IsZero() bool {
	return a == "" || a == Address("0x"+strings.Repeat("0", addressHexLen))
}

// Topic left-pads the address into a 32-byte indexed event topic.
func (a Address) Topic() Hash {
	return Hash("0x" + strings.Repeat("0", hashHexLen-addressHexLen) + strings.TrimPrefix(string(a), "0x"))
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return string(h)
}

// Bytes decodes the hash back into its 32 raw bytes.
func (h Hash) Bytes() ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(string(h), "0x"))
}

// Address extracts the trailing 20 bytes of a topic as an Address.
func (h Hash) Address() (Address, error) {
	raw := strings.TrimPrefix(string(h), "0x")
	if len(raw) != hashHexLen {
		return "", fmt.Errorf("topic %q is not 32 bytes", h)
	}
	return ParseAddress("0x" + raw[hashHexLen-addressHexLen:])
}

// Log is a single contract event emitted by a transaction.
type Log struct {
	Address     Address
	Topics      []Hash
	Data        []byte
	BlockNumber uint64
	TxHash      Hash
	Index       uint
}

// Topic0 returns the event signature topic, or "" for anonymous logs.
func (l Log) Topic0() Hash {
	if len(l.Topics) == 0 {
		return ""
	}
	return l.Topics[0]
}

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash      Hash
	BlockNumber uint64
	Status      uint64
	Logs        []Log
}

// Succeeded reports whether the transaction executed without revert.
func (r Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccess
}

// FilterQuery selects logs by block range, emitting contract, and
// signature topic. Zero Topic0 matches all events.
type FilterQuery struct {
	FromBlock uint64
	ToBlock   uint64
	Address   Address
	Topic0    Hash
}

func normalizeHex(value string, wantLen int) (string, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(strings.ToLower(trimmed), "0x")
	if len(trimmed) != wantLen {
		return "", fmt.Errorf("want %d hex chars, got %d", wantLen, len(trimmed))
	}
	if _, err := hex.DecodeString(trimmed); err != nil {
		return "", err
	}
	return "0x" + trimmed, nil
}
