package primitives

import (
	"bytes"
	"errors"
	"io"
	"math"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/merkle"
)

// MaxBodyTransactions is the largest transaction count a single byte
// can express in the body's count prefix.
const MaxBodyTransactions = math.MaxUint8

// BlockBody carries the miner address and the ordered transaction set
// of a block.
type BlockBody struct {
	MinerAddress Address
	Transactions []*Transaction
}

// Serialize writes the wire-exact body encoding: 1-byte tx count,
// then each transaction, then the miner address.
func (b *BlockBody) Serialize(w io.Writer) error {
	if len(b.Transactions) > MaxBodyTransactions {
		return errors.New("primitives: too many transactions for body encoding")
	}
	if _, err := w.Write([]byte{byte(len(b.Transactions))}); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := tx.Serialize(w); err != nil {
			return err
		}
	}
	_, err := w.Write(b.MinerAddress[:])
	return err
}

// Bytes returns the wire-exact body encoding.
func (b *BlockBody) Bytes() []byte {
	var buf bytes.Buffer
	_ = b.Serialize(&buf)
	return buf.Bytes()
}

// DeserializeBody reads a wire-exact body from r.
func DeserializeBody(r io.Reader) (*BlockBody, error) {
	var countBuf [1]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, err
	}
	count := int(countBuf[0])
	body := &BlockBody{Transactions: make([]*Transaction, count)}
	for i := 0; i < count; i++ {
		tx, err := DeserializeTransaction(r)
		if err != nil {
			return nil, err
		}
		body.Transactions[i] = tx
	}
	var addrBuf [AddressSize]byte
	if _, err := io.ReadFull(r, addrBuf[:]); err != nil {
		return nil, err
	}
	addr, err := AddressFromBytes(addrBuf[:])
	if err != nil {
		return nil, err
	}
	body.MinerAddress = addr
	return body, nil
}

// BodyFromBytes parses a wire-exact body.
func BodyFromBytes(b []byte) (*BlockBody, error) {
	return DeserializeBody(bytes.NewReader(b))
}

// Hash computes bodyHash: a binary merkle root over
// [minerAddress, tx1, tx2, ...].
func (b *BlockBody) Hash(hashFn merkle.HashFunc) chainhash.Hash {
	leaves := make([]chainhash.Hash, 0, len(b.Transactions)+1)
	leaves = append(leaves, hashFn(b.MinerAddress[:]))
	for _, tx := range b.Transactions {
		leaves = append(leaves, hashFn(tx.Bytes()))
	}
	return merkle.Root(hashFn, leaves)
}
