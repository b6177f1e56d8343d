package types

import (
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Transaction type identifiers. Blob transactions (type 3) are not supported
// by MegaETH and are rejected at receipt encoding time.
const (
	LegacyTxType     uint8 = 0x00
	AccessListTxType uint8 = 0x01
	DynamicFeeTxType uint8 = 0x02
	BlobTxType       uint8 = 0x03
	SetCodeTxType    uint8 = 0x04
	DepositTxType    uint8 = 0x7e
)

// ErrBlobTxNotSupported is returned when a blob transaction reaches any
// encoding path.
var ErrBlobTxNotSupported = errors.New("blob transactions are not supported")

// AccessTuple is one entry of an EIP-2930 access list.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// AccessList is an EIP-2930 access list.
type AccessList []AccessTuple

// SerializedSize returns the byte size the access list contributes to the
// transaction body: 20 bytes per address plus 32 per storage key.
func (al AccessList) SerializedSize() uint64 {
	var n uint64
	for _, tuple := range al {
		n += AddressLength
		n += uint64(len(tuple.StorageKeys)) * HashLength
	}
	return n
}

// SetCodeAuthorization is one recovered EIP-7702 authorization tuple. The
// Authority is the recovered signer; nil when recovery failed (the tuple is
// then skipped, per the EIP).
type SetCodeAuthorization struct {
	ChainID   uint64
	Address   Address
	Nonce     uint64
	Authority *Address
}

// Transaction is a recovered transaction as consumed by the execution core.
// Signature validation has already happened upstream; From is authoritative.
type Transaction struct {
	Type    uint8
	ChainID uint64
	From    Address
	Nonce   uint64

	GasLimit  uint64
	GasPrice  *uint256.Int // legacy/access-list gas price
	GasFeeCap *uint256.Int // EIP-1559 max fee per gas
	GasTipCap *uint256.Int // EIP-1559 max priority fee per gas

	To    *Address // nil means contract creation
	Value *uint256.Int
	Data  []byte

	AccessList AccessList
	AuthList   []SetCodeAuthorization

	BlobHashes       []Hash
	MaxFeePerBlobGas *uint256.Int

	// Deposit (type 0x7e) fields.
	SourceHash Hash
	Mint       *uint256.Int
	IsSystemTx bool

	hash *Hash // cached envelope hash
}

// IsDeposit reports whether this is an OP deposit transaction.
func (tx *Transaction) IsDeposit() bool { return tx.Type == DepositTxType }

// IsCreate reports whether this transaction creates a contract.
func (tx *Transaction) IsCreate() bool { return tx.To == nil }

// encodeBody renders the canonical list encoding of the transaction body.
// The exact field order follows the typed-envelope encodings; the core only
// relies on the encoding being deterministic.
func (tx *Transaction) encodeBody() []byte {
	to := []byte{}
	if tx.To != nil {
		to = tx.To.Bytes()
	}
	fields := []interface{}{
		tx.ChainID,
		tx.Nonce,
		u256Bytes(tx.GasTipCap),
		u256Bytes(tx.GasFeeCap),
		u256Bytes(tx.GasPrice),
		tx.GasLimit,
		to,
		u256Bytes(tx.Value),
		tx.Data,
		encodeAccessList(tx.AccessList),
		encodeAuthList(tx.AuthList),
	}
	if tx.IsDeposit() {
		fields = append(fields, tx.SourceHash.Bytes(), tx.From.Bytes(), u256Bytes(tx.Mint), tx.IsSystemTx)
	}
	enc, err := rlp.EncodeToBytes(fields)
	if err != nil {
		// All field types above are RLP-encodable; an error here means a
		// programming bug, not bad input.
		panic(err)
	}
	return enc
}

func u256Bytes(v *uint256.Int) []byte {
	if v == nil {
		return []byte{}
	}
	return v.Bytes()
}

func encodeAccessList(al AccessList) []interface{} {
	out := make([]interface{}, 0, len(al))
	for _, tuple := range al {
		keys := make([]interface{}, 0, len(tuple.StorageKeys))
		for _, k := range tuple.StorageKeys {
			keys = append(keys, k.Bytes())
		}
		out = append(out, []interface{}{tuple.Address.Bytes(), keys})
	}
	return out
}

func encodeAuthList(auths []SetCodeAuthorization) []interface{} {
	out := make([]interface{}, 0, len(auths))
	for _, a := range auths {
		out = append(out, []interface{}{a.ChainID, a.Address.Bytes(), a.Nonce})
	}
	return out
}

// Hash returns the transaction envelope hash: keccak256 of the type byte
// followed by the body encoding (legacy transactions omit the type byte).
func (tx *Transaction) Hash() Hash {
	if tx.hash != nil {
		return *tx.hash
	}
	body := tx.encodeBody()
	var h Hash
	if tx.Type == LegacyTxType {
		h = BytesToHash(crypto.Keccak256(body))
	} else {
		h = BytesToHash(crypto.Keccak256(append([]byte{tx.Type}, body...)))
	}
	tx.hash = &h
	return h
}

// Size returns the canonical encoded length of the transaction in bytes,
// including the type byte for typed transactions.
func (tx *Transaction) Size() uint64 {
	n := uint64(len(tx.encodeBody()))
	if tx.Type != LegacyTxType {
		n++
	}
	return n
}

// EstimatedDASize estimates the data-availability byte cost of posting this
// transaction to L1 after compression. The estimate counts non-zero bytes of
// the canonical encoding plus a fixed batch overhead, following the OP-stack
// L1-cost approximation. Deposits are minted on L2 and post nothing.
func (tx *Transaction) EstimatedDASize() uint64 {
	if tx.IsDeposit() {
		return 0
	}
	var nonzero uint64
	for _, b := range tx.encodeBody() {
		if b != 0 {
			nonzero++
		}
	}
	return nonzero + 16
}

// EffectiveGasPrice returns the gas price actually paid under EIP-1559:
// min(feeCap, baseFee+tipCap) for dynamic-fee transactions, the declared gas
// price otherwise. Deposits pay no fees.
func (tx *Transaction) EffectiveGasPrice(baseFee *uint256.Int) *uint256.Int {
	if tx.IsDeposit() {
		return new(uint256.Int)
	}
	if tx.GasFeeCap != nil && baseFee != nil {
		tip := tx.GasTipCap
		if tip == nil {
			tip = new(uint256.Int)
		}
		price := new(uint256.Int).Add(baseFee, tip)
		if price.Cmp(tx.GasFeeCap) > 0 {
			price.Set(tx.GasFeeCap)
		}
		return price
	}
	if tx.GasPrice != nil {
		return new(uint256.Int).Set(tx.GasPrice)
	}
	return new(uint256.Int)
}

// EffectiveTip returns the priority fee per gas actually paid to the
// beneficiary: effectiveGasPrice - baseFee, floored at zero.
func (tx *Transaction) EffectiveTip(baseFee *uint256.Int) *uint256.Int {
	price := tx.EffectiveGasPrice(baseFee)
	if baseFee == nil {
		return price
	}
	if price.Cmp(baseFee) <= 0 {
		return new(uint256.Int)
	}
	return price.Sub(price, baseFee)
}
