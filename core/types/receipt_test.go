package types

import (
	"errors"
	"testing"
)

// TestReceiptEnvelopeTyping verifies typed receipts carry the type byte
// and legacy receipts do not.
func TestReceiptEnvelopeTyping(t *testing.T) {
	legacy := NewReceipt(LegacyTxType, ReceiptStatusSuccessful, 21000)
	enc, err := legacy.MarshalBinary()
	if err != nil {
		t.Fatalf("legacy encode: %v", err)
	}
	if enc[0] < 0xc0 {
		t.Fatalf("legacy receipt must be a bare RLP list, got leading byte %#x", enc[0])
	}

	typed := NewReceipt(DynamicFeeTxType, ReceiptStatusSuccessful, 21000)
	enc, err = typed.MarshalBinary()
	if err != nil {
		t.Fatalf("typed encode: %v", err)
	}
	if enc[0] != DynamicFeeTxType {
		t.Fatalf("typed receipt leading byte = %#x, want %#x", enc[0], DynamicFeeTxType)
	}
}

// TestBlobReceiptRejected verifies blob receipts fail at encoding.
func TestBlobReceiptRejected(t *testing.T) {
	r := NewReceipt(BlobTxType, ReceiptStatusSuccessful, 21000)
	if _, err := r.MarshalBinary(); !errors.Is(err, ErrBlobTxNotSupported) {
		t.Fatalf("err = %v, want blob rejection", err)
	}
}

// TestDepositReceiptFields verifies the deposit envelope carries the nonce
// and version.
func TestDepositReceiptFields(t *testing.T) {
	nonce, version := uint64(7), uint64(1)
	r := NewReceipt(DepositTxType, ReceiptStatusSuccessful, 21000)
	r.DepositNonce = &nonce
	r.DepositReceiptVersion = &version

	enc, err := r.MarshalBinary()
	if err != nil {
		t.Fatalf("deposit encode: %v", err)
	}
	if enc[0] != DepositTxType {
		t.Fatalf("leading byte = %#x, want %#x", enc[0], DepositTxType)
	}
}

// TestLogsBloomContainsAddress verifies the bloom filter sets bits for the
// log address and topics.
func TestLogsBloomContainsAddress(t *testing.T) {
	l := &Log{
		Address: BytesToAddress([]byte{1}),
		Topics:  []Hash{Uint64ToHash(9)},
	}
	bloom := LogsBloom([]*Log{l})
	var empty Bloom
	if bloom == empty {
		t.Fatal("bloom must not be empty for a non-empty log")
	}
}

// TestDeriveReceiptFields verifies log indices are global across the
// block.
func TestDeriveReceiptFields(t *testing.T) {
	r1 := NewReceipt(LegacyTxType, ReceiptStatusSuccessful, 21000)
	r1.Logs = []*Log{{}, {}}
	r2 := NewReceipt(LegacyTxType, ReceiptStatusSuccessful, 42000)
	r2.Logs = []*Log{{}}

	DeriveReceiptFields([]*Receipt{r1, r2}, Uint64ToHash(1), 5, nil)

	if r1.Logs[1].Index != 1 || r2.Logs[0].Index != 2 {
		t.Fatalf("log indices = %d, %d; want 1, 2", r1.Logs[1].Index, r2.Logs[0].Index)
	}
	if r2.BlockNumber != 5 || r2.TransactionIndex != 1 {
		t.Fatalf("receipt context = (%d, %d), want (5, 1)", r2.BlockNumber, r2.TransactionIndex)
	}
}
