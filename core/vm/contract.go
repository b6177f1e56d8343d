package vm

import (
	"github.com/holiman/uint256"

	"github.com/megaeth-labs/mega-evm-sub001/core/types"
)

// Contract is the execution context of one frame: the code being run, the
// frame's gas, and the call parameters.
type Contract struct {
	Caller  types.Address
	Address types.Address
	Value   *uint256.Int
	Code    []byte
	CodeHash types.Hash
	Input   []byte
	Gas     uint64

	jumpdests []byte // lazily-built bitmap of valid JUMPDESTs
}

// NewContract creates a contract frame.
func NewContract(caller, address types.Address, value *uint256.Int, gas uint64) *Contract {
	if value == nil {
		value = new(uint256.Int)
	}
	return &Contract{Caller: caller, Address: address, Value: value, Gas: gas}
}

// GetOp returns the opcode at pc, STOP beyond the end of code.
func (c *Contract) GetOp(pc uint64) OpCode {
	if pc < uint64(len(c.Code)) {
		return OpCode(c.Code[pc])
	}
	return STOP
}

// UseGas deducts gas, reporting false when insufficient.
func (c *Contract) UseGas(gas uint64) bool {
	if c.Gas < gas {
		return false
	}
	c.Gas -= gas
	return true
}

// RefundGas returns gas to the frame.
func (c *Contract) RefundGas(gas uint64) {
	c.Gas += gas
}

// ValidJumpdest reports whether dest is a JUMPDEST not inside push data.
func (c *Contract) ValidJumpdest(dest *uint256.Int) bool {
	udest, overflow := dest.Uint64WithOverflow()
	if overflow || udest >= uint64(len(c.Code)) {
		return false
	}
	if OpCode(c.Code[udest]) != JUMPDEST {
		return false
	}
	if c.jumpdests == nil {
		c.jumpdests = codeBitmap(c.Code)
	}
	return c.jumpdests[udest/8]&(1<<(udest%8)) != 0
}

// codeBitmap builds a bitmap with a set bit for every position that is an
// opcode boundary (not push immediate data).
func codeBitmap(code []byte) []byte {
	bits := make([]byte, len(code)/8+1)
	for pc := 0; pc < len(code); {
		op := OpCode(code[pc])
		bits[pc/8] |= 1 << (pc % 8)
		if op.IsPush() {
			pc += int(op-PUSH1) + 2
		} else {
			pc++
		}
	}
	return bits
}
