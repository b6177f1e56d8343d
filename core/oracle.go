package core

import (
	"github.com/megaeth-labs/mega-evm-sub001/core/state"
	"github.com/megaeth-labs/mega-evm-sub001/core/types"
)

// The oracle system contract lets the payload builder surface volatile
// values to contracts through ordinary SLOADs, intercepted by the EVM. The
// deployed bytecode is opaque to the core; only its address, its code hash
// (for the idempotent deploy), and the SLOAD intercept matter.

// oracleContractCodeHex is the deployed oracle runtime bytecode.
const oracleContractCodeHex = "0x608060405234801561000f575f5ffd5b506004361061006f575f3560e01c80635747f6d41161004d5780635747f6d4146101185780636317e00b14610138578063d3607ed914610158575f5ffd5b80630dc9b5da1461007357806312838160146100c457806354fd4d50146100d9575b5f5ffd5b61009a7f000000000000000000000000a887dcb9d5f39ef79272801d05abdf707cfbbd1d81565b60405173ffffffffffffffffffffffffffffffffffffffff90911681526020015b60405180910390f35b6100d76100d23660046103bd565b61016b565b005b604080518082018252600581527f312e302e30000000000000000000000000000000000000000000000000000000602082015290516100bb9190610429565b61012b61012636600461047c565b610276565b6040516100bb91906104bb565b61014a6101463660046104fd565b5490565b6040519081526020016100bb565b6100d7610166366004610514565b610302565b3373ffffffffffffffffffffffffffffffffffffffff7f000000000000000000000000a887dcb9d5f39ef79272801d05abdf707cfbbd1d16146101da576040517f5e742c5a00000000000000000000000000000000000000000000000000000000815260040160405180910390fd5b828114610221576040517f5b7232fa000000000000000000000000000000000000000000000000000000008152600481018490526024810182905260440160405180910390fd5b5f5b8381101561026f575f85858381811061023e5761023e610534565b9050602002013590505f84848481811061025a5761025a610534565b60200291909101359092555050600101610223565b5050505050565b60608167ffffffffffffffff81111561029157610291610561565b6040519080825280602002602001820160405280156102ba578160200160208202803683370190505b5090505f5b828110156102fb575f8484838181106102da576102da610534565b905060200201359050805460208302602085010152816001019150506102bf565b5092915050565b3373ffffffffffffffffffffffffffffffffffffffff7f000000000000000000000000a887dcb9d5f39ef79272801d05abdf707cfbbd1d1614610371576040517f5e742c5a00000000000000000000000000000000000000000000000000000000815260040160405180910390fd5b9055565b5f5f83601f840112610385575f5ffd5b50813567ffffffffffffffff81111561039c575f5ffd5b6020830191508360208260051b85010111156103b6575f5ffd5b9250929050565b5f5f5f5f604085870312156103d0575f5ffd5b843567ffffffffffffffff8111156103e6575f5ffd5b6103f287828801610375565b909550935050602085013567ffffffffffffffff811115610411575f5ffd5b61041d87828801610375565b95989497509550505050565b602081525f82518060208401528060208501604085015e5f6040828501015260407fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe0601f83011684010191505092915050565b5f5f6020838503121561048d575f5ffd5b823567ffffffffffffffff8111156104a3575f5ffd5b6104af85828601610375565b90969095509350505050565b602080825282518282018190525f918401906040840190835b818110156104f25783518352602093840193909201916001016104d4565b509095945050505050565b5f6020828403121561050d575f5ffd5b5035919050565b5f5f60408385031215610525575f5ffd5b50508035926020909101359150565b7f4e487b71000000000000000000000000000000000000000000000000000000005f52603260045260245ffd5b7f4e487b71000000000000000000000000000000000000000000000000000000005f52604160045260245ffdfea2646970667358221220ca6e75612122f091d09fc4d7eb6d1c6faad6ab67c2183e5067014152683f274364736f6c634300081e0033"

// oracleCode holds the decoded bytecode.
var oracleCode = hexToBytes(oracleContractCodeHex)

// OracleContractCodeHash is keccak256 of the oracle bytecode; the deploy
// is a no-op when the account already carries it.
var OracleContractCodeHash = types.Keccak256Hash(oracleCode)

// OracleCode returns a copy of the oracle runtime bytecode.
func OracleCode() []byte {
	return append([]byte(nil), oracleCode...)
}

// DeployOracleContract writes the oracle bytecode to its designated
// address unless the correct code is already present. Called pre-block
// under MiniRex; idempotent by code-hash equality.
func DeployOracleContract(statedb *state.StateDB) error {
	if statedb.GetCodeHash(types.OracleContractAddress) == OracleContractCodeHash {
		return nil
	}
	if !statedb.Exist(types.OracleContractAddress) {
		statedb.CreateAccount(types.OracleContractAddress)
	}
	statedb.SetCode(types.OracleContractAddress, OracleCode())
	return statedb.Error()
}

func hexToBytes(s string) []byte {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		out[i] = hexNibble(s[2*i])<<4 | hexNibble(s[2*i+1])
	}
	return out
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
