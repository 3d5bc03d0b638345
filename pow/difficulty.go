// Package pow implements the compact-difficulty-bits encoding and the
// proof-of-work target checks shared by the chain and miner packages.
package pow

import (
	"math/big"

	"github.com/floxnode/floxnode/chainhash"
)

// compactExponentShift, compactSignBit and compactMantissaMask isolate
// the exponent, sign and mantissa fields of a compact-encoded target.
const (
	compactExponentShift = 24
	compactSignBit       = 0x00800000
	compactMantissaMask  = 0x007fffff
)

// CompactToBig converts the compact 32-bit target encoding nBits uses
// (exponent in the top byte, sign bit, 23-bit mantissa) into a whole
// number: N = mantissa * 256^(exponent-3).
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & compactMantissaMask
	exponent := uint(compact >> compactExponentShift)

	var n *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		n = big.NewInt(int64(mantissa))
	} else {
		n = big.NewInt(int64(mantissa))
		n.Lsh(n, 8*(exponent-3))
	}

	if compact&compactSignBit != 0 {
		n = n.Neg(n)
	}
	return n
}

// BigToCompact is the inverse of CompactToBig: it encodes n into the
// same compact representation, losing precision beyond 23 mantissa
// bits for large values. Difficulty targets are always non-negative.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	negative := n.Sign() < 0
	mag := new(big.Int).Abs(n)

	exponent := uint(len(mag.Bytes()))
	var mantissa uint32
	if exponent <= 3 {
		mantissa = uint32(mag.Uint64())
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Rsh(mag, 8*(exponent-3))
		mantissa = uint32(tn.Uint64())
	}

	if mantissa&compactSignBit != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent)<<compactExponentShift | mantissa
	if negative {
		compact |= compactSignBit
	}
	return compact
}

// HashToBig interprets a hash's bytes as a big-endian unsigned integer.
func HashToBig(hash chainhash.Hash) *big.Int {
	return new(big.Int).SetBytes(hash[:])
}

// oneLsh256 is 2^256, used as CalcWork's numerator so the accumulated
// work of a low-difficulty block is still a meaningfully large integer.
var oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)

// CalcWork converts nBits into the work value accumulated by a block
// at that difficulty: inverse of the target, scaled by 2^256 and with
// 1 added to the denominator to avoid division by zero.
func CalcWork(nBits uint32) *big.Int {
	target := CompactToBig(nBits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	denominator := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(oneLsh256, denominator)
}

// CheckProofOfWork reports whether hash, interpreted as a big-endian
// unsigned integer, is at or below the target nBits decodes to, and
// that the target itself is a positive number not exceeding powLimit.
func CheckProofOfWork(hash chainhash.Hash, nBits uint32, powLimit *big.Int) bool {
	target := CompactToBig(nBits)
	if target.Sign() <= 0 {
		return false
	}
	if powLimit != nil && target.Cmp(powLimit) > 0 {
		return false
	}
	return HashToBig(hash).Cmp(target) <= 0
}
