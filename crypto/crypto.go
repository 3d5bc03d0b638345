// Package crypto provides floxnode's hash, verify and pubkeyToAddress
// primitives: schnorr signatures over secp256k1 (via
// github.com/decred/dcrd/dcrec/secp256k1/v4) for transaction
// authentication, blake2b-256 for the tree/merkle hash function.
package crypto

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
	"golang.org/x/crypto/blake2b"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/primitives"
)

// Hash implements the external crypto contract's hash(bytes) -> 32 bytes.
func Hash(data []byte) chainhash.Hash {
	return blake2b.Sum256(data)
}

// Verify implements the external crypto contract's
// verify(pubkey, msg, sig) -> bool. pubkey is a 32-byte BIP340 x-only
// public key and sig a 64-byte schnorr signature.
func Verify(pubKey [primitives.PubKeySize]byte, msg []byte, sig [primitives.SignatureSize]byte) bool {
	pk, err := schnorr.ParsePubKey(pubKey[:])
	if err != nil {
		return false
	}
	s, err := schnorr.ParseSignature(sig[:])
	if err != nil {
		return false
	}
	digest := Hash(msg)
	return s.Verify(digest[:], pk)
}

// PubkeyToAddress implements the external crypto contract's
// pubkeyToAddress(pk) -> 20 bytes: an address is the low 20 bytes of
// the hash of the serialized public key.
func PubkeyToAddress(pubKey [primitives.PubKeySize]byte) primitives.Address {
	digest := Hash(pubKey[:])
	var addr primitives.Address
	copy(addr[:], digest[chainhash.HashSize-primitives.AddressSize:])
	return addr
}

// Signer signs transaction payloads on behalf of a local key; the
// test fixtures use it. Headers are never signed, only the miner
// address is attached.
type Signer struct {
	priv *secp256k1.PrivateKey
}

// NewSigner wraps a secp256k1 private key.
func NewSigner(priv *secp256k1.PrivateKey) *Signer {
	return &Signer{priv: priv}
}

// PubKey returns the signer's BIP340 x-only public key.
func (s *Signer) PubKey() [primitives.PubKeySize]byte {
	var pk [primitives.PubKeySize]byte
	copy(pk[:], schnorr.SerializePubKey(s.priv.PubKey()))
	return pk
}

// Sign produces a 64-byte schnorr signature over msg.
func (s *Signer) Sign(msg []byte) ([primitives.SignatureSize]byte, error) {
	var out [primitives.SignatureSize]byte
	digest := Hash(msg)
	sig, err := schnorr.Sign(s.priv, digest[:])
	if err != nil {
		return out, err
	}
	copy(out[:], sig.Serialize())
	return out, nil
}

// Address returns the address derived from the signer's public key.
func (s *Signer) Address() primitives.Address {
	return PubkeyToAddress(s.PubKey())
}
