package amount_test

import (
	"fmt"
	"math"

	"github.com/floxnode/floxnode/amount"
)

func ExampleAmount() {
	a := amount.Amount(0)
	fmt.Println("zero:", a)

	a = amount.Amount(1e8)
	fmt.Println("100,000,000 base units:", a)

	a = amount.Amount(1e5)
	fmt.Println("100,000 base units:", a)
	// Output:
	// zero: 0 FLOX
	// 100,000,000 base units: 1 FLOX
	// 100,000 base units: 0.00100000 FLOX
}

func ExampleNew() {
	one, err := amount.New(1)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(one)

	fraction, err := amount.New(0.01234567)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(fraction)

	zero, err := amount.New(0)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(zero)

	_, err = amount.New(math.NaN())
	fmt.Println(err)

	// Output: 1 FLOX
	// 0.01234567 FLOX
	// 0 FLOX
	// amount: invalid coin value
}

func ExampleAmount_Format() {
	a := amount.Amount(44)
	fmt.Println(a.Format(amount.UnitBase))
	// Output:
	// 44 flx
}
