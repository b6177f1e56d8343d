package vm

import "github.com/holiman/uint256"

// Memory is the byte-addressed, word-expanded EVM memory.
type Memory struct {
	store []byte
}

// NewMemory returns a new empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Len returns the current memory size in bytes.
func (m *Memory) Len() int {
	return len(m.store)
}

// Resize grows memory to the given size (never shrinks).
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
	}
}

// Set writes data at offset. The caller has sized memory beforehand.
func (m *Memory) Set(offset, size uint64, data []byte) {
	if size == 0 {
		return
	}
	copy(m.store[offset:offset+size], data)
}

// Set32 writes a 32-byte big-endian word at offset.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	b := val.Bytes32()
	copy(m.store[offset:offset+32], b[:])
}

// SetByte writes one byte at offset.
func (m *Memory) SetByte(offset uint64, b byte) {
	m.store[offset] = b
}

// GetCopy returns a copy of memory[offset:offset+size], zero-extended.
func (m *Memory) GetCopy(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	if offset < uint64(len(m.store)) {
		copy(out, m.store[offset:])
	}
	return out
}

// GetPtr returns the in-place slice memory[offset:offset+size]. The caller
// has sized memory beforehand.
func (m *Memory) GetPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Data returns the raw backing slice.
func (m *Memory) Data() []byte {
	return m.store
}
