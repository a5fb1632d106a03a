package cffex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"benritz/cgbfutures/internal/cffex"
)

func TestConversionFactor_AtParWhenCouponMatchesNotionalRate(t *testing.T) {
	// When the deliverable's coupon rate equals the notional rate and
	// delivery lands exactly on a coupon date (x=0), the conversion factor
	// collapses to 1.0 regardless of the remaining coupon count or frequency.
	cases := []struct {
		n int
		f float64
	}{
		{3, 1},
		{4, 2},
		{8, 2},
		{12, 4},
	}

	for _, c := range cases {
		got := cffex.ConversionFactor(c.n, cffex.DefaultNotionalRate, c.f, 0, cffex.DefaultNotionalRate)
		assert.InDelta(t, 1.0, got, 1e-4)
	}
}

func TestConversionFactor_DefaultsNotionalRateWhenNonPositive(t *testing.T) {
	withDefault := cffex.ConversionFactor(4, cffex.DefaultNotionalRate, 2, 0, 0)
	withExplicit := cffex.ConversionFactor(4, cffex.DefaultNotionalRate, 2, 0, cffex.DefaultNotionalRate)
	assert.Equal(t, withExplicit, withDefault)
}

func TestConversionFactor_BelowParWhenCouponUnderNotionalRate(t *testing.T) {
	got := cffex.ConversionFactor(4, 0.025, 2, 0, cffex.DefaultNotionalRate)
	assert.Less(t, got, 1.0)
}

func TestConversionFactor_AboveParWhenCouponOverNotionalRate(t *testing.T) {
	got := cffex.ConversionFactor(4, 0.035, 2, 0, cffex.DefaultNotionalRate)
	assert.Greater(t, got, 1.0)
}

func TestConversionFactor_RoundedToFourDecimalPlaces(t *testing.T) {
	got := cffex.ConversionFactor(5, 0.027, 2, 3, cffex.DefaultNotionalRate)
	rounded := float64(int(got*10000+0.5)) / 10000
	assert.Equal(t, rounded, got)
}
