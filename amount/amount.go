// Package amount formats the raw uint64 balances carried by
// primitives.Account and primitives.Transaction as human-readable
// quantities of this network's coin, the way a wallet or block
// explorer would display them.
package amount

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit describes the decadic multiple of the base unit ("flx") an
// Amount is converted to or from: the exponent of ten relative to one
// whole coin.
type Unit int

const (
	UnitMega  Unit = 6
	UnitKilo  Unit = 3
	UnitCoin  Unit = 0
	UnitMilli Unit = -3
	UnitMicro Unit = -6
	UnitBase  Unit = -8
)

// UnitsPerCoin is the number of base units ("flx") in one whole coin.
const UnitsPerCoin = 1e8

// String returns u's SI-style label, or "1eN FLOX" for an
// unrecognized exponent.
func (u Unit) String() string {
	switch u {
	case UnitMega:
		return "MFLOX"
	case UnitKilo:
		return "kFLOX"
	case UnitCoin:
		return "FLOX"
	case UnitMilli:
		return "mFLOX"
	case UnitMicro:
		return "uFLOX"
	case UnitBase:
		return "flx"
	default:
		return "1e" + strconv.FormatInt(int64(u), 10) + " FLOX"
	}
}

// Amount is a quantity of the base unit, matching the width of
// primitives.Account.Balance and primitives.Transaction.Value/Fee.
type Amount int64

func round(f float64) Amount {
	if f < 0 {
		return Amount(f - 0.5)
	}
	return Amount(f + 0.5)
}

// New converts a floating-point quantity of whole coins into an
// Amount of base units, rejecting values that cannot be represented
// as a finite float (NaN, +-Inf).
func New(coins float64) (Amount, error) {
	if math.IsNaN(coins) || math.IsInf(coins, 0) {
		return 0, errors.New("amount: invalid coin value")
	}
	return round(coins * UnitsPerCoin), nil
}

// ToUnit converts a to a floating-point quantity of u.
func (a Amount) ToUnit(u Unit) float64 {
	return float64(a) / math.Pow10(int(u+8))
}

// Format renders a in u, appending u's label.
func (a Amount) Format(u Unit) string {
	label := " " + u.String()
	formatted := strconv.FormatFloat(a.ToUnit(u), 'f', -int(u+8), 64)
	if u == UnitCoin && strings.Contains(formatted, ".") {
		return fmt.Sprintf("%.8f%s", a.ToUnit(u), label)
	}
	return formatted + label
}

// String is equivalent to Format(UnitCoin).
func (a Amount) String() string {
	return a.Format(UnitCoin)
}
