package primitives

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/floxnode/floxnode/chainhash"
)

// HeaderSize is the fixed wire size of a BlockHeader.
const HeaderSize = 32 + 32 + 32 + 32 + 4 + 4 + 4 + 4

// BlockHeader is the fixed 116-byte committed header of a block.
type BlockHeader struct {
	PrevHash      chainhash.Hash
	InterlinkHash chainhash.Hash
	BodyHash      chainhash.Hash
	AccountsHash  chainhash.Hash
	NBits         uint32
	Height        uint32
	Timestamp     uint32
	Nonce         uint32
}

// Serialize writes the wire-exact, big-endian header encoding to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if _, err := w.Write(h.PrevHash[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.InterlinkHash[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.BodyHash[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.AccountsHash[:]); err != nil {
		return err
	}
	var tail [16]byte
	binary.BigEndian.PutUint32(tail[0:4], h.NBits)
	binary.BigEndian.PutUint32(tail[4:8], h.Height)
	binary.BigEndian.PutUint32(tail[8:12], h.Timestamp)
	binary.BigEndian.PutUint32(tail[12:16], h.Nonce)
	_, err := w.Write(tail[:])
	return err
}

// Bytes returns the wire-exact 116-byte header encoding.
func (h *BlockHeader) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(HeaderSize)
	_ = h.Serialize(&buf)
	return buf.Bytes()
}

// DeserializeHeader reads a 116-byte header from r.
func DeserializeHeader(r io.Reader) (*BlockHeader, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return HeaderFromBytes(buf)
}

// HeaderFromBytes parses a wire-exact header. It rejects any input
// that is not exactly HeaderSize bytes, the first stateless check a
// received header must pass before anything else is evaluated.
func HeaderFromBytes(b []byte) (*BlockHeader, error) {
	if len(b) != HeaderSize {
		return nil, errors.New("primitives: invalid header length")
	}
	h := &BlockHeader{}
	off := 0
	copy(h.PrevHash[:], b[off:off+32])
	off += 32
	copy(h.InterlinkHash[:], b[off:off+32])
	off += 32
	copy(h.BodyHash[:], b[off:off+32])
	off += 32
	copy(h.AccountsHash[:], b[off:off+32])
	off += 32
	h.NBits = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	h.Height = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	h.Timestamp = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	h.Nonce = binary.BigEndian.Uint32(b[off : off+4])
	return h, nil
}
