package vm

import (
	"crypto/sha256"
	"errors"
	"sync"

	goethkzg "github.com/crate-crypto/go-eth-kzg"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"

	"github.com/megaeth-labs/mega-evm-sub001/core/types"
	"github.com/megaeth-labs/mega-evm-sub001/params"
)

// PrecompiledContract is a native contract reachable at a fixed address.
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// Precompile addresses where MegaETH behavior is specified. The remaining
// upstream precompiles are carried verbatim from the Isthmus set and are
// not re-specified here.
var (
	ecrecoverAddr = types.BytesToAddress([]byte{0x01})
	sha256Addr    = types.BytesToAddress([]byte{0x02})
	ripemd160Addr = types.BytesToAddress([]byte{0x03})
	identityAddr  = types.BytesToAddress([]byte{0x04})
	kzgPointAddr  = types.BytesToAddress([]byte{0x0a})
)

// PrecompiledContracts returns the precompile map for a spec. The MiniRex
// map differs from Equivalence only in the KZG point-evaluation gas cost.
func PrecompiledContracts(spec params.SpecID) map[types.Address]PrecompiledContract {
	kzgGas := uint64(50000)
	if spec.Enabled(params.MiniRex) {
		kzgGas = params.KZGPointEvaluationGasMiniRex
	}
	return map[types.Address]PrecompiledContract{
		ecrecoverAddr: &ecrecover{},
		sha256Addr:    &sha256hash{},
		ripemd160Addr: &ripemd160hash{},
		identityAddr:  &dataCopy{},
		kzgPointAddr:  &kzgPointEvaluation{gas: kzgGas},
	}
}

// PrecompileAddresses returns the addresses to pre-warm per EIP-2929.
func PrecompileAddresses(spec params.SpecID) []types.Address {
	addrs := make([]types.Address, 0, 10)
	for a := range PrecompiledContracts(spec) {
		addrs = append(addrs, a)
	}
	return addrs
}

// --- ecrecover (0x01) ---

type ecrecover struct{}

func (c *ecrecover) RequiredGas(input []byte) uint64 { return 3000 }

func (c *ecrecover) Run(input []byte) ([]byte, error) {
	const inputLen = 128
	input = rightPad(input, inputLen)

	// v must be 27 or 28, encoded as a 32-byte word.
	for _, b := range input[32:63] {
		if b != 0 {
			return nil, nil
		}
	}
	v := input[63]
	if v != 27 && v != 28 {
		return nil, nil
	}

	sig := make([]byte, 65)
	copy(sig, input[64:128])
	sig[64] = v - 27

	pubKey, err := crypto.Ecrecover(input[:32], sig)
	if err != nil {
		return nil, nil
	}
	out := make([]byte, 32)
	copy(out[12:], crypto.Keccak256(pubKey[1:])[12:])
	return out, nil
}

// --- sha256 (0x02) ---

type sha256hash struct{}

func (c *sha256hash) RequiredGas(input []byte) uint64 {
	return toWordSize(uint64(len(input)))*12 + 60
}

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// --- ripemd160 (0x03) ---

type ripemd160hash struct{}

func (c *ripemd160hash) RequiredGas(input []byte) uint64 {
	return toWordSize(uint64(len(input)))*120 + 600
}

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	rip := ripemd160.New()
	rip.Write(input)
	out := make([]byte, 32)
	copy(out[12:], rip.Sum(nil))
	return out, nil
}

// --- identity (0x04) ---

type dataCopy struct{}

func (c *dataCopy) RequiredGas(input []byte) uint64 {
	return toWordSize(uint64(len(input)))*3 + 15
}

func (c *dataCopy) Run(input []byte) ([]byte, error) {
	return append([]byte(nil), input...), nil
}

// --- KZG point evaluation (0x0a) ---

var (
	kzgCtxOnce sync.Once
	kzgCtx     *goethkzg.Context
	kzgCtxErr  error
)

func kzgContext() (*goethkzg.Context, error) {
	kzgCtxOnce.Do(func() {
		kzgCtx, kzgCtxErr = goethkzg.NewContext4096Secure()
	})
	return kzgCtx, kzgCtxErr
}

var (
	errKZGInvalidInput = errors.New("kzg point evaluation: invalid input")

	// kzgOutput is the canonical success output:
	// FIELD_ELEMENTS_PER_BLOB (4096) and BLS_MODULUS, each as a 32-byte
	// big-endian word.
	kzgOutput = types.HexToHash("0000000000000000000000000000000000000000000000000000000000001000")

	blsModulus = types.HexToHash("73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001")
)

// kzgPointEvaluation verifies a KZG opening proof (EIP-4844). The gas cost
// is the one MegaETH parameter of this precompile; everything else matches
// upstream.
type kzgPointEvaluation struct {
	gas uint64
}

func (c *kzgPointEvaluation) RequiredGas(input []byte) uint64 { return c.gas }

func (c *kzgPointEvaluation) Run(input []byte) ([]byte, error) {
	if len(input) != 192 {
		return nil, errKZGInvalidInput
	}
	var (
		versionedHash = input[:32]
		z             goethkzg.Scalar
		y             goethkzg.Scalar
		commitment    goethkzg.KZGCommitment
		proof         goethkzg.KZGProof
	)
	copy(z[:], input[32:64])
	copy(y[:], input[64:96])
	copy(commitment[:], input[96:144])
	copy(proof[:], input[144:192])

	// The versioned hash commits to the commitment: 0x01 || sha256(c)[1:].
	h := sha256.Sum256(commitment[:])
	h[0] = 0x01
	if string(versionedHash) != string(h[:]) {
		return nil, errKZGInvalidInput
	}

	ctx, err := kzgContext()
	if err != nil {
		return nil, err
	}
	if err := ctx.VerifyKZGProof(commitment, z, y, proof); err != nil {
		return nil, errKZGInvalidInput
	}
	return append(kzgOutput.Bytes(), blsModulus.Bytes()...), nil
}

// rightPad pads input with zeros to at least size bytes.
func rightPad(input []byte, size int) []byte {
	if len(input) >= size {
		return input
	}
	out := make([]byte, size)
	copy(out, input)
	return out
}
