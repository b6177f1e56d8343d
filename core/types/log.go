package types

import "github.com/ethereum/go-ethereum/crypto"

// Log represents a contract log event emitted during execution.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte

	// Derived fields, filled in by the block executor.
	BlockNumber uint64
	TxHash      Hash
	TxIndex     uint
	Index       uint
}

// bloom9 sets the three bloom bits for the given input, per the Yellow
// Paper: the low 11 bits of bytes (0,1), (2,3), (4,5) of keccak256(input).
func bloom9(b *Bloom, data []byte) {
	h := crypto.Keccak256(data)
	for i := 0; i < 6; i += 2 {
		bit := (uint(h[i+1]) + (uint(h[i]) << 8)) & 2047
		b[BloomLength-1-bit/8] |= 1 << (bit % 8)
	}
}

// Add folds a log entry into the bloom filter.
func (b *Bloom) Add(l *Log) {
	bloom9(b, l.Address[:])
	for _, t := range l.Topics {
		bloom9(b, t[:])
	}
}

// LogsBloom computes the bloom filter for a set of logs.
func LogsBloom(logs []*Log) Bloom {
	var b Bloom
	for _, l := range logs {
		b.Add(l)
	}
	return b
}

// CreateBloom computes the combined bloom over all receipts in a block.
func CreateBloom(receipts []*Receipt) Bloom {
	var b Bloom
	for _, r := range receipts {
		for _, l := range r.Logs {
			b.Add(l)
		}
	}
	return b
}
