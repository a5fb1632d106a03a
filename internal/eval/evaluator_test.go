package eval_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benritz/cgbfutures/internal/eval"
	"benritz/cgbfutures/internal/types"
)

func bond240006() *types.Bond {
	return &types.Bond{
		BondCode:     "240006.IB",
		Mkt:          types.IB,
		ParValue:     100,
		CpType:       types.CouponBear,
		InterestType: types.Fixed,
		CpRate1st:    0.0228,
		InstFreq:     1,
		CarryDate:    types.NewDate(2024, 3, 25),
		MaturityDate: types.NewDate(2031, 3, 25),
		DayCount:     types.ActAct,
	}
}

func bond230026() *types.Bond {
	return &types.Bond{
		BondCode:     "230026.IB",
		Mkt:          types.IB,
		ParValue:     100,
		CpType:       types.CouponBear,
		InterestType: types.Fixed,
		CpRate1st:    0.0267,
		InstFreq:     2,
		CarryDate:    types.NewDate(2023, 11, 25),
		MaturityDate: types.NewDate(2033, 11, 25),
		DayCount:     types.ActAct,
	}
}

// TestTfEvaluator_Scenario1 is spec.md S1.
func TestTfEvaluator_Scenario1(t *testing.T) {
	future := types.NewFuture("T2409")
	e := eval.New(
		types.NewDate(2024, 8, 12),
		types.NewFuturePrice(&future, 105.5),
		types.NewBondYtm(bond240006(), 0.02115),
		0.019,
		0,
	)

	result, err := e.CalcAll()
	require.NoError(t, err)

	const delta = 1e-5

	clean, _ := result.CleanPrice()
	assert.InDelta(t, 101.00322640, clean, delta)

	dirty, _ := result.DirtyPrice()
	assert.InDelta(t, 101.87774695, dirty, delta)

	accrued, _ := result.AccruedInterest()
	assert.InDelta(t, 0.87452055, accrued, delta)

	duration, _ := result.Duration()
	assert.InDelta(t, 6.04042084, duration, delta)

	cf, _ := result.CF()
	assert.InDelta(t, 0.9580, cf, 1e-4)

	deliverAI, _ := result.DeliverAccruedInterest()
	assert.InDelta(t, 1.0993973, deliverAI, delta)

	futureDirty, _ := result.FutureDirtyPrice()
	assert.InDelta(t, 102.1683973, futureDirty, delta)

	// no coupon intervenes between the valuation date and delivery, so
	// remain_cp_to_deliver_wm is zero and deliver_cost collapses to dirty_price.
	deliverCost, _ := result.DeliverCost()
	assert.InDelta(t, dirty, deliverCost, delta)

	fbSpread, _ := result.FBSpread()
	assert.InDelta(t, 0.29065034724402494, fbSpread, delta)

	basisSpread, _ := result.BasisSpread()
	assert.InDelta(t, -0.0657736, basisSpread, delta)

	netBasisSpread, _ := result.NetBasisSpread()
	assert.InDelta(t, -0.0997342, netBasisSpread, delta)

	carry, _ := result.Carry()
	assert.InDelta(t, 0.0339606, carry, delta)

	irr, _ := result.IRR()
	assert.InDelta(t, 0.02892557, irr, delta)

	// future_ytm is inverted via bisection (12 iterations over [1e-4, 0.3]),
	// so its error floor is the bisection's final half-interval width
	// (~3.7e-5), wider than the other metrics' closed-form precision.
	futureYtm, _ := result.FutureYtm()
	assert.InDelta(t, 0.02101801, futureYtm, 1e-4)

	deliveryDate, err := future.Paydate()
	require.NoError(t, err)
	bond := bond240006()
	assert.True(t, eval.IsDeliverable(types.T, bond.CarryDate, bond.MaturityDate, deliveryDate))
}

// TestTfEvaluator_Scenario2 is spec.md S2.
func TestTfEvaluator_Scenario2(t *testing.T) {
	future := types.NewFuture("T2403")
	e := eval.New(
		types.NewDate(2024, 2, 20),
		types.NewFuturePrice(&future, 105.5),
		types.NewBondYtm(bond230026(), 0.0267),
		0.019,
		math.NaN(), // defaults to 0
	)

	result, err := e.CalcAll()
	require.NoError(t, err)

	const delta = 1e-5

	accrued, _ := result.AccruedInterest()
	assert.InDelta(t, 0.63815934, accrued, delta)

	dirty, _ := result.DirtyPrice()
	assert.InDelta(t, 100.63595080, dirty, delta)

	clean, _ := result.CleanPrice()
	assert.InDelta(t, 99.99779146, clean, delta)

	duration, _ := result.Duration()
	assert.InDelta(t, 8.48901852, duration, delta)

	cf, _ := result.CF()
	assert.InDelta(t, 0.9725, cf, 1e-4)

	basisSpread, _ := result.BasisSpread()
	assert.InDelta(t, -2.60095854, basisSpread, delta)

	carry, _ := result.Carry()
	assert.InDelta(t, 0.04402820, carry, delta)

	netBasisSpread, _ := result.NetBasisSpread()
	assert.InDelta(t, -2.64498674, netBasisSpread, delta)

	fbSpread, _ := result.FBSpread()
	assert.InDelta(t, 2.75499700, fbSpread, delta)

	deliverAI, _ := result.DeliverAccruedInterest()
	assert.InDelta(t, 0.7921978, deliverAI, delta)

	futureDirty, _ := result.FutureDirtyPrice()
	assert.InDelta(t, 103.3909478, futureDirty, delta)

	// no coupon intervenes between the valuation date and delivery, so
	// remain_cp_to_deliver_wm is zero and deliver_cost collapses to dirty_price.
	deliverCost, _ := result.DeliverCost()
	assert.InDelta(t, dirty, deliverCost, delta)

	irr, _ := result.IRR()
	assert.InDelta(t, 0.47581874, irr, delta)

	futureYtm, _ := result.FutureYtm()
	assert.InDelta(t, 0.02368430, futureYtm, 1e-4)
}

func TestTfEvaluator_DirtyEqualsCleanPlusAccrued(t *testing.T) {
	// spec.md invariant 2, checked against a bond not covered by S1/S2.
	future := types.NewFuture("T2409")
	e := eval.New(
		types.NewDate(2024, 8, 12),
		types.NewFuturePrice(&future, 105.5),
		types.NewBondYtm(bond230026(), 0.025),
		0.019,
		0.02,
	)

	result, err := e.CalcAll()
	require.NoError(t, err)

	dirty, _ := result.DirtyPrice()
	clean, _ := result.CleanPrice()
	accrued, _ := result.AccruedInterest()
	assert.InDelta(t, dirty, clean+accrued, 1e-9)
}

func TestTfEvaluator_FutureDirtyPriceIdentity(t *testing.T) {
	// spec.md invariant 6.
	future := types.NewFuture("T2403")
	e := eval.New(
		types.NewDate(2024, 2, 20),
		types.NewFuturePrice(&future, 105.5),
		types.NewBondYtm(bond230026(), 0.0267),
		0.019,
		0,
	)

	result, err := e.CalcAll()
	require.NoError(t, err)

	cf, _ := result.CF()
	deliverAI, _ := result.DeliverAccruedInterest()
	futureDirty, _ := result.FutureDirtyPrice()
	assert.InDelta(t, futureDirty, 105.5*cf+deliverAI, 1e-9)
}

func TestTfEvaluator_UpdateWithNewInfoPreservesCfWhenUnchanged(t *testing.T) {
	// GIVEN: an evaluator with cf resolved
	// WHEN: UpdateWithNewInfo is called with the same bond, future and date
	// but a new price and ytm
	// THEN: cf survives the fast path instead of being recomputed, and the
	// price-derived fields still reflect the new price
	date := types.NewDate(2024, 8, 12)
	future := types.NewFuture("T2409")
	bond := bond240006()
	e, err := eval.New(date, types.NewFuturePrice(&future, 105.5), types.NewBondYtm(bond, 0.02115), 0.019, 0).WithCf()
	require.NoError(t, err)
	cf, ok := e.CF()
	require.True(t, ok)

	updated := e.UpdateWithNewInfo(date, types.NewFuturePrice(&future, 106.0), types.NewBondYtm(bond, 0.022), 0.019, 0)

	newCf, ok := updated.CF()
	require.True(t, ok, "cf should have survived UpdateWithNewInfo")
	assert.Equal(t, cf, newCf)

	result, err := updated.CalcAll()
	require.NoError(t, err)
	dirty, _ := result.DirtyPrice()

	before, err := eval.New(date, types.NewFuturePrice(&future, 105.5), types.NewBondYtm(bond240006(), 0.02115), 0.019, 0).CalcAll()
	require.NoError(t, err)
	beforeDirty, _ := before.DirtyPrice()
	assert.NotEqual(t, beforeDirty, dirty)
}

func TestTfEvaluator_UpdateWithNewInfoInvalidatesCfWhenDateChanges(t *testing.T) {
	// GIVEN: an evaluator with cf resolved
	// WHEN: UpdateWithNewInfo moves to a new valuation date
	// THEN: cf is no longer considered resolved until CalcAll recomputes it
	future := types.NewFuture("T2409")
	e, err := eval.New(types.NewDate(2024, 8, 12), types.NewFuturePrice(&future, 105.5), types.NewBondYtm(bond240006(), 0.02115), 0.019, 0).WithCf()
	require.NoError(t, err)

	updated := e.UpdateWithNewInfo(types.NewDate(2024, 8, 13), types.NewFuturePrice(&future, 105.5), types.NewBondYtm(bond240006(), 0.02115), 0.019, 0)

	_, ok := updated.CF()
	assert.False(t, ok)
}

func TestTfEvaluator_UpdateWithNewInfoInvalidatesCfWhenBondChanges(t *testing.T) {
	// GIVEN: an evaluator with cf resolved
	// WHEN: UpdateWithNewInfo swaps in a different bond descriptor pointer
	// THEN: cp_dates/remain_cp_num and cf are both invalidated, even if the
	// new bond happens to share the same valuation date
	date := types.NewDate(2024, 8, 12)
	future := types.NewFuture("T2409")
	e, err := eval.New(date, types.NewFuturePrice(&future, 105.5), types.NewBondYtm(bond240006(), 0.02115), 0.019, 0).WithCf()
	require.NoError(t, err)

	otherBond := bond240006()
	otherBond.CarryDate = types.NewDate(2023, 3, 25)
	otherBond.MaturityDate = types.NewDate(2030, 3, 25)

	updated := e.UpdateWithNewInfo(date, types.NewFuturePrice(&future, 105.5), types.NewBondYtm(otherBond, 0.02115), 0.019, 0)

	_, ok := updated.CF()
	assert.False(t, ok)
	_, ok = updated.RemainCpNum()
	assert.False(t, ok)
}

func TestIsDeliverable(t *testing.T) {
	deliveryDate := types.NewDate(2024, 6, 1)

	cases := []struct {
		name         string
		futureType   types.FutureType
		carryDate    types.Date
		maturityDate types.Date
		expected     bool
	}{
		{
			// remaining = (2031-2024) + 0/12 + 0/365 = 7.0, issue tenor 10y
			name:         "10y bond with 7 years remaining deliverable into T contract",
			futureType:   types.T,
			carryDate:    types.NewDate(2021, 6, 1),
			maturityDate: types.NewDate(2031, 6, 1),
			expected:     true,
		},
		{
			// remaining = (2025-2024) + 0/12 + 0/365 = 1.0, under T's 6.5y floor
			name:         "bond with 1 year remaining not deliverable into T contract",
			futureType:   types.T,
			carryDate:    types.NewDate(2022, 6, 1),
			maturityDate: types.NewDate(2025, 6, 1),
			expected:     false,
		},
		{
			// remaining = (2026-2024) + (8-6)/12 + 0/365 = 2.1667, issue tenor 3y
			name:         "bond with 2.17 years remaining deliverable into TS contract",
			futureType:   types.TS,
			carryDate:    types.NewDate(2023, 8, 1),
			maturityDate: types.NewDate(2026, 8, 1),
			expected:     true,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := eval.IsDeliverable(c.futureType, c.carryDate, c.maturityDate, deliveryDate)
			assert.Equal(t, c.expected, got)
		})
	}
}
