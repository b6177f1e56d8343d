package types

// DelegationPrefix marks EIP-7702 delegation designator code: the account's
// code is 0xef0100 followed by the delegated-to address.
var DelegationPrefix = []byte{0xef, 0x01, 0x00}

// AddressToDelegation builds the designator code for a delegation target.
func AddressToDelegation(addr Address) []byte {
	return append(append([]byte(nil), DelegationPrefix...), addr.Bytes()...)
}

// ParseDelegation returns the delegation target when code is a designator.
func ParseDelegation(code []byte) (Address, bool) {
	if len(code) != len(DelegationPrefix)+AddressLength {
		return Address{}, false
	}
	for i, b := range DelegationPrefix {
		if code[i] != b {
			return Address{}, false
		}
	}
	return BytesToAddress(code[len(DelegationPrefix):]), true
}

// HasDelegationPrefix reports whether code is a delegation designator.
func HasDelegationPrefix(code []byte) bool {
	_, ok := ParseDelegation(code)
	return ok
}
