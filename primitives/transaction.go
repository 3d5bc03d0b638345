package primitives

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	// PubKeySize is the length of a BIP340 x-only schnorr public key.
	PubKeySize = 32
	// SignatureSize is the length of a BIP340 schnorr signature.
	SignatureSize = 64

	// TxUnsignedSize is the length of the portion of a transaction that
	// is covered by the signature: pubkey || recipient || value || fee || nonce.
	TxUnsignedSize = PubKeySize + AddressSize + 8 + 8 + 4
	// TxSize is the full wire size of a transaction.
	TxSize = TxUnsignedSize + SignatureSize
)

// Transaction is a single value transfer from the account derived from
// SenderPubKey to Recipient.
type Transaction struct {
	SenderPubKey [PubKeySize]byte
	Recipient    Address
	Value        uint64
	Fee          uint64
	Nonce        uint32
	Signature    [SignatureSize]byte
}

// SigningPayload returns the canonical bytes the signature is computed
// over: everything but the signature itself.
func (tx *Transaction) SigningPayload() []byte {
	buf := make([]byte, 0, TxUnsignedSize)
	buf = append(buf, tx.SenderPubKey[:]...)
	buf = append(buf, tx.Recipient[:]...)
	var valBuf, feeBuf [8]byte
	binary.BigEndian.PutUint64(valBuf[:], tx.Value)
	binary.BigEndian.PutUint64(feeBuf[:], tx.Fee)
	buf = append(buf, valBuf[:]...)
	buf = append(buf, feeBuf[:]...)
	var nonceBuf [4]byte
	binary.BigEndian.PutUint32(nonceBuf[:], tx.Nonce)
	buf = append(buf, nonceBuf[:]...)
	return buf
}

// Serialize writes the full wire-exact transaction encoding to w.
func (tx *Transaction) Serialize(w io.Writer) error {
	if _, err := w.Write(tx.SigningPayload()); err != nil {
		return err
	}
	_, err := w.Write(tx.Signature[:])
	return err
}

// Bytes returns the full wire-exact transaction encoding.
func (tx *Transaction) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(TxSize)
	_ = tx.Serialize(&buf)
	return buf.Bytes()
}

// DeserializeTransaction reads a wire-exact transaction from r.
func DeserializeTransaction(r io.Reader) (*Transaction, error) {
	buf := make([]byte, TxSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return TransactionFromBytes(buf)
}

// TransactionFromBytes parses a wire-exact transaction.
func TransactionFromBytes(b []byte) (*Transaction, error) {
	if len(b) != TxSize {
		return nil, errors.New("primitives: invalid transaction length")
	}
	tx := &Transaction{}
	off := 0
	copy(tx.SenderPubKey[:], b[off:off+PubKeySize])
	off += PubKeySize
	recipient, err := AddressFromBytes(b[off : off+AddressSize])
	if err != nil {
		return nil, err
	}
	tx.Recipient = recipient
	off += AddressSize
	tx.Value = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	tx.Fee = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	tx.Nonce = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	copy(tx.Signature[:], b[off:off+SignatureSize])
	return tx, nil
}

// Total is the amount debited from the sender: value plus fee.
func (tx *Transaction) Total() uint64 {
	return tx.Value + tx.Fee
}
