package types

import (
	"github.com/ethereum/go-ethereum/rlp"
)

// Receipt status values.
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt represents the result of a transaction.
type Receipt struct {
	// Consensus fields.
	Type              uint8
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log

	// Deposit (type 0x7e) envelope fields, set only post-Canyon for deposit
	// transactions. DepositNonce is the depositor's nonce before execution.
	DepositNonce          *uint64
	DepositReceiptVersion *uint64

	// Derived fields.
	TxHash           Hash
	ContractAddress  Address
	GasUsed          uint64
	TransactionIndex uint
	BlockNumber      uint64
	BlockHash        Hash
}

// NewReceipt creates a receipt with the given status and cumulative gas.
func NewReceipt(txType uint8, status uint64, cumulativeGasUsed uint64) *Receipt {
	return &Receipt{
		Type:              txType,
		Status:            status,
		CumulativeGasUsed: cumulativeGasUsed,
	}
}

// Succeeded reports whether the receipt's status field equals 1.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}

// receiptRLP is the consensus encoding of a non-deposit receipt.
type receiptRLP struct {
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             []byte
	Logs              []logRLP
}

// depositReceiptRLP appends the Canyon deposit fields.
type depositReceiptRLP struct {
	Status                uint64
	CumulativeGasUsed     uint64
	Bloom                 []byte
	Logs                  []logRLP
	DepositNonce          uint64
	DepositReceiptVersion uint64
}

type logRLP struct {
	Address []byte
	Topics  [][]byte
	Data    []byte
}

func encodeLogs(logs []*Log) []logRLP {
	out := make([]logRLP, 0, len(logs))
	for _, l := range logs {
		topics := make([][]byte, 0, len(l.Topics))
		for _, t := range l.Topics {
			topics = append(topics, t.Bytes())
		}
		out = append(out, logRLP{Address: l.Address.Bytes(), Topics: topics, Data: l.Data})
	}
	return out
}

// MarshalBinary returns the typed receipt envelope. Blob receipts are
// rejected: MegaETH does not support type-3 transactions.
func (r *Receipt) MarshalBinary() ([]byte, error) {
	if r.Type == BlobTxType {
		return nil, ErrBlobTxNotSupported
	}
	var (
		body []byte
		err  error
	)
	if r.Type == DepositTxType && r.DepositNonce != nil {
		body, err = rlp.EncodeToBytes(&depositReceiptRLP{
			Status:                r.Status,
			CumulativeGasUsed:     r.CumulativeGasUsed,
			Bloom:                 r.Bloom[:],
			Logs:                  encodeLogs(r.Logs),
			DepositNonce:          *r.DepositNonce,
			DepositReceiptVersion: derefOrZero(r.DepositReceiptVersion),
		})
	} else {
		body, err = rlp.EncodeToBytes(&receiptRLP{
			Status:            r.Status,
			CumulativeGasUsed: r.CumulativeGasUsed,
			Bloom:             r.Bloom[:],
			Logs:              encodeLogs(r.Logs),
		})
	}
	if err != nil {
		return nil, err
	}
	if r.Type == LegacyTxType {
		return body, nil
	}
	return append([]byte{r.Type}, body...), nil
}

func derefOrZero(v *uint64) uint64 {
	if v == nil {
		return 0
	}
	return *v
}

// DeriveReceiptFields populates the derived fields on a block's receipts:
// block context, per-receipt tx hashes, and global log indices.
func DeriveReceiptFields(receipts []*Receipt, blockHash Hash, blockNumber uint64, txs []*Transaction) {
	var logIndex uint
	for i, receipt := range receipts {
		receipt.BlockHash = blockHash
		receipt.BlockNumber = blockNumber
		receipt.TransactionIndex = uint(i)
		if i < len(txs) {
			receipt.TxHash = txs[i].Hash()
		}
		for _, l := range receipt.Logs {
			l.BlockNumber = blockNumber
			l.TxIndex = uint(i)
			l.Index = logIndex
			if i < len(txs) {
				l.TxHash = txs[i].Hash()
			}
			logIndex++
		}
	}
}
