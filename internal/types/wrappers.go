package types

import "math"

// BondYtm pairs a shared bond reference with a yield to maturity. NaN ytm
// is accepted as "unknown" and propagates through arithmetic.
type BondYtm struct {
	Bond *Bond
	Ytm  float64
}

func NewBondYtm(bond *Bond, ytm float64) BondYtm {
	return BondYtm{Bond: bond, Ytm: ytm}
}

func (b BondYtm) IsUnknown() bool {
	return math.IsNaN(b.Ytm)
}

// FuturePrice pairs a shared future reference with a quoted price.
type FuturePrice struct {
	Future *Future
	Price  float64
}

func NewFuturePrice(future *Future, price float64) FuturePrice {
	return FuturePrice{Future: future, Price: price}
}

func (f FuturePrice) IsUnknown() bool {
	return math.IsNaN(f.Price)
}
