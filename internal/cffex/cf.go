// Package cffex implements the China Financial Futures Exchange conversion
// factor formula that maps a deliverable T-bond to the notional 3% coupon
// contract it settles against.
package cffex

import "math"

// DefaultNotionalRate is the CFFEX-published coupon rate of the notional
// bond underlying TS/TF/T/TL contracts.
const DefaultNotionalRate = 0.03

// ConversionFactor computes the CFFEX conversion factor for a deliverable
// bond.
//
//	n: remaining coupon payments after delivery
//	c: the deliverable bond's coupon rate
//	f: the deliverable bond's coupons-per-year
//	x: months from delivery to the bond's next coupon after delivery
//	r: notional contract coupon rate (defaults to DefaultNotionalRate when <= 0)
//
// The result is rounded to 4 decimal places, matching CFFEX's published
// tables.
func ConversionFactor(n int, c, f float64, x int, r float64) float64 {
	if r <= 0 {
		r = DefaultNotionalRate
	}

	nf := float64(n)
	xf := float64(x)

	cf := (c/f + c/r + (1-c/r)/math.Pow(1+r/f, nf-1)) / math.Pow(1+r/f, xf*f/12) -
		(1-xf*f/12)*c/f

	return math.Round(cf*10000) / 10000
}
