// Package eval implements the lazy-memoizing composite computation
// described in spec.md section 4.G: given a valuation date, a priced
// future, and a bond at a yield, TfEvaluator resolves ~15 derived metrics in
// dependency order and caches the intermediates they share.
package eval

import (
	"math"

	"benritz/cgbfutures/internal/cffex"
	"benritz/cgbfutures/internal/types"
)

// cpDatesWindow is the (previous, next) coupon-date pair a bond resolves to
// for a given valuation date; cached so later metrics don't re-walk the
// coupon schedule.
type cpDatesWindow struct {
	Pre, Next types.Date
}

// TfEvaluator is a value-semantics record: every With* method returns a new
// TfEvaluator rather than mutating the receiver, matching spec.md's "the
// evaluator is a value... any mutation produces a new logical state."
type TfEvaluator struct {
	Date         types.Date
	Future       types.FuturePrice
	Bond         types.BondYtm
	CapitalRate  float64
	ReinvestRate float64

	cpDates                *cpDatesWindow
	remainCpNum             *int
	accruedInterest         *float64
	dirtyPrice              *float64
	cleanPrice              *float64
	cf                      *float64
	duration                *float64
	deliverAccruedInterest  *float64
	remainCpToDeliver       *float64
	remainCpToDeliverWM     *float64
	deliverCost             *float64
	futureDirtyPrice        *float64
	basisSpread             *float64
	fBSpread                *float64
	netBasisSpread          *float64
	carry                   *float64
	irr                     *float64
	futureYtm               *float64
}

// New constructs an evaluator with no cached outputs. reinvestRate defaults
// to 0 when NaN is passed (the "optional, defaulting to 0" input in
// spec.md section 3).
func New(date types.Date, future types.FuturePrice, bond types.BondYtm, capitalRate, reinvestRate float64) TfEvaluator {
	if math.IsNaN(reinvestRate) {
		reinvestRate = 0
	}
	return TfEvaluator{
		Date:         date,
		Future:       future,
		Bond:         bond,
		CapitalRate:  capitalRate,
		ReinvestRate: reinvestRate,
	}
}

func f64p(v float64) *float64 { return &v }
func intp(v int) *int         { return &v }

// WithNearestCpDate ⇐ bond.GetNearestCpDate(date).
func (e TfEvaluator) WithNearestCpDate() (TfEvaluator, error) {
	if e.cpDates != nil {
		return e, nil
	}
	pre, next, err := e.Bond.Bond.GetNearestCpDate(e.Date)
	if err != nil {
		return e, err
	}
	e.cpDates = &cpDatesWindow{Pre: pre, Next: next}
	return e, nil
}

func (e TfEvaluator) cpDatesPair() [2]types.Date {
	return [2]types.Date{e.cpDates.Pre, e.cpDates.Next}
}

// WithRemainCpNum ⇐ cpDates.
func (e TfEvaluator) WithRemainCpNum() (TfEvaluator, error) {
	if e.remainCpNum != nil {
		return e, nil
	}
	out, err := e.WithNearestCpDate()
	if err != nil {
		return e, err
	}
	n, err := out.Bond.Bond.RemainCpNum(out.Date, &out.cpDates.Next)
	if err != nil {
		return e, err
	}
	out.remainCpNum = intp(n)
	return out, nil
}

// WithAccruedInterest ⇐ cpDates.
func (e TfEvaluator) WithAccruedInterest() (TfEvaluator, error) {
	if e.accruedInterest != nil {
		return e, nil
	}
	out, err := e.WithNearestCpDate()
	if err != nil {
		return e, err
	}
	pair := out.cpDatesPair()
	ai, err := out.Bond.Bond.CalcAccruedInterest(out.Date, &pair)
	if err != nil {
		return e, err
	}
	out.accruedInterest = f64p(ai)
	return out, nil
}

// WithDirtyPrice ⇐ remainCpNum, cpDates.
func (e TfEvaluator) WithDirtyPrice() (TfEvaluator, error) {
	if e.dirtyPrice != nil {
		return e, nil
	}
	out, err := e.WithRemainCpNum()
	if err != nil {
		return e, err
	}
	price, err := out.Bond.Bond.CalcDirtyPriceWithYtm(out.Bond.Ytm, out.Date, nil, out.remainCpNum)
	if err != nil {
		return e, err
	}
	out.dirtyPrice = f64p(price)
	return out, nil
}

// WithCleanPrice ⇐ dirtyPrice, accruedInterest.
func (e TfEvaluator) WithCleanPrice() (TfEvaluator, error) {
	if e.cleanPrice != nil {
		return e, nil
	}
	out, err := e.WithDirtyPrice()
	if err != nil {
		return e, err
	}
	out, err = out.WithAccruedInterest()
	if err != nil {
		return e, err
	}
	out.cleanPrice = f64p(*out.dirtyPrice - *out.accruedInterest)
	return out, nil
}

// WithDuration ⇐ cpDates, remainCpNum.
func (e TfEvaluator) WithDuration() (TfEvaluator, error) {
	if e.duration != nil {
		return e, nil
	}
	out, err := e.WithDirtyPrice()
	if err != nil {
		return e, err
	}
	out, err = out.WithAccruedInterest()
	if err != nil {
		return e, err
	}
	dur, err := out.Bond.Bond.CalcDuration(out.Bond.Ytm, out.Date, &[2]types.Date{out.cpDates.Pre, out.cpDates.Next})
	if err != nil {
		return e, err
	}
	out.duration = f64p(dur)
	return out, nil
}

// monthsBetween is the calendar month delta from `from` to `to`, matching
// original_source's utils::month_delta.
func monthsBetween(from, to types.Date) int {
	return (to.Year()-from.Year())*12 + (int(to.Month()) - int(from.Month()))
}

// WithCf ⇐ remaining coupons after delivery and months to next coupon after
// delivery.
func (e TfEvaluator) WithCf() (TfEvaluator, error) {
	if e.cf != nil {
		return e, nil
	}
	out, err := e.WithRemainCpNum()
	if err != nil {
		return e, err
	}

	deliverDate, err := out.Future.Future.Paydate()
	if err != nil {
		return e, err
	}

	_, nextDeliverCp, err := out.Bond.Bond.GetNearestCpDate(deliverDate)
	if err != nil {
		return e, err
	}

	remainAfterDelivery, err := out.Bond.Bond.RemainCpNum(deliverDate, &nextDeliverCp)
	if err != nil {
		return e, err
	}
	if remainAfterDelivery == 0 {
		remainAfterDelivery = 1
	}

	monthsToNextCp := monthsBetween(deliverDate, nextDeliverCp)

	cf := cffex.ConversionFactor(
		remainAfterDelivery,
		out.Bond.Bond.CpRate1st,
		float64(out.Bond.Bond.InstFreq),
		monthsToNextCp,
		0,
	)
	out.cf = f64p(cf)
	return out, nil
}

// WithDeliverAccruedInterest ⇐ bond.accrued_interest at future.paydate.
func (e TfEvaluator) WithDeliverAccruedInterest() (TfEvaluator, error) {
	if e.deliverAccruedInterest != nil {
		return e, nil
	}
	out := e
	deliverDate, err := out.Future.Future.Paydate()
	if err != nil {
		return e, err
	}
	ai, err := out.Bond.Bond.CalcAccruedInterest(deliverDate, nil)
	if err != nil {
		return e, err
	}
	out.deliverAccruedInterest = f64p(ai)
	return out, nil
}

// WithRemainCpToDeliver is the plain sum of coupons received strictly after
// date, up to and including the delivery paydate.
func (e TfEvaluator) WithRemainCpToDeliver() (TfEvaluator, error) {
	if e.remainCpToDeliver != nil {
		return e, nil
	}
	out, err := e.WithNearestCpDate()
	if err != nil {
		return e, err
	}
	deliverDate, err := out.Future.Future.Paydate()
	if err != nil {
		return e, err
	}
	dates, err := out.intermediateCpDates(deliverDate)
	if err != nil {
		return e, err
	}

	coupon := out.Bond.Bond.GetCoupon()
	total := coupon * float64(len(dates))
	out.remainCpToDeliver = f64p(total)
	return out, nil
}

// intermediateCpDates returns the coupon dates strictly after e.Date and at
// or before deliverDate.
func (e TfEvaluator) intermediateCpDates(deliverDate types.Date) ([]types.Date, error) {
	next := e.cpDates.Next
	until := deliverDate.AddDate(0, 0, 1) // until is exclusive; include deliverDate itself
	all, err := e.Bond.Bond.RemainCpDatesUntil(e.Date, until, &next)
	if err != nil {
		return nil, err
	}
	var out []types.Date
	for _, d := range all {
		if d.After(e.Date) {
			out = append(out, d)
		}
	}
	return out, nil
}

// WithRemainCpToDeliverWM is remain_cp_to_deliver, wealth-multiplied: each
// coupon compounds at reinvest_rate from its receipt date to the delivery
// paydate.
func (e TfEvaluator) WithRemainCpToDeliverWM() (TfEvaluator, error) {
	if e.remainCpToDeliverWM != nil {
		return e, nil
	}
	out, err := e.WithNearestCpDate()
	if err != nil {
		return e, err
	}
	deliverDate, err := out.Future.Future.Paydate()
	if err != nil {
		return e, err
	}
	dates, err := out.intermediateCpDates(deliverDate)
	if err != nil {
		return e, err
	}

	coupon := out.Bond.Bond.GetCoupon()
	var total float64
	for _, d := range dates {
		dt := float64(deliverDate.Sub(d)) / 365.0
		total += coupon * math.Pow(1+out.ReinvestRate, dt)
	}
	out.remainCpToDeliverWM = f64p(total)
	return out, nil
}

// WithDeliverCost = dirty_price - remain_cp_to_deliver_wm: the price paid for
// the bond, net of coupons received and reinvested before delivery. Unlike
// carry and IRR it carries no financing term of its own.
func (e TfEvaluator) WithDeliverCost() (TfEvaluator, error) {
	if e.deliverCost != nil {
		return e, nil
	}
	out, err := e.WithDirtyPrice()
	if err != nil {
		return e, err
	}
	out, err = out.WithRemainCpToDeliverWM()
	if err != nil {
		return e, err
	}

	out.deliverCost = f64p(*out.dirtyPrice - *out.remainCpToDeliverWM)
	return out, nil
}

// WithFutureDirtyPrice = future.price * cf + deliver_accrued_interest.
func (e TfEvaluator) WithFutureDirtyPrice() (TfEvaluator, error) {
	if e.futureDirtyPrice != nil {
		return e, nil
	}
	out, err := e.WithCf()
	if err != nil {
		return e, err
	}
	out, err = out.WithDeliverAccruedInterest()
	if err != nil {
		return e, err
	}
	out.futureDirtyPrice = f64p(out.Future.Price**out.cf + *out.deliverAccruedInterest)
	return out, nil
}

// WithBasisSpread = clean_price - future.price * cf.
func (e TfEvaluator) WithBasisSpread() (TfEvaluator, error) {
	if e.basisSpread != nil {
		return e, nil
	}
	out, err := e.WithCleanPrice()
	if err != nil {
		return e, err
	}
	out, err = out.WithCf()
	if err != nil {
		return e, err
	}
	out.basisSpread = f64p(*out.cleanPrice - out.Future.Price**out.cf)
	return out, nil
}

// WithFBSpread = future_dirty_price - dirty_price.
func (e TfEvaluator) WithFBSpread() (TfEvaluator, error) {
	if e.fBSpread != nil {
		return e, nil
	}
	out, err := e.WithFutureDirtyPrice()
	if err != nil {
		return e, err
	}
	out, err = out.WithDirtyPrice()
	if err != nil {
		return e, err
	}
	out.fBSpread = f64p(*out.futureDirtyPrice - *out.dirtyPrice)
	return out, nil
}

// WithCarry = remain_cp_to_deliver + accrued_at_paydate - accrued_at_date - funding_cost.
func (e TfEvaluator) WithCarry() (TfEvaluator, error) {
	if e.carry != nil {
		return e, nil
	}
	out, err := e.WithRemainCpToDeliver()
	if err != nil {
		return e, err
	}
	out, err = out.WithAccruedInterest()
	if err != nil {
		return e, err
	}
	out, err = out.WithDeliverAccruedInterest()
	if err != nil {
		return e, err
	}
	out, err = out.WithDirtyPrice()
	if err != nil {
		return e, err
	}

	deliverDate, err := out.Future.Future.Paydate()
	if err != nil {
		return e, err
	}
	daysToDeliver := float64(deliverDate.Sub(out.Date))
	funding := *out.dirtyPrice * out.CapitalRate * daysToDeliver / 365.0

	out.carry = f64p(*out.remainCpToDeliver + *out.deliverAccruedInterest - *out.accruedInterest - funding)
	return out, nil
}

// WithNetBasisSpread = basis_spread - carry: the basis spread after netting
// out the cost of carrying the bond to delivery.
func (e TfEvaluator) WithNetBasisSpread() (TfEvaluator, error) {
	if e.netBasisSpread != nil {
		return e, nil
	}
	out, err := e.WithBasisSpread()
	if err != nil {
		return e, err
	}
	out, err = out.WithCarry()
	if err != nil {
		return e, err
	}
	out.netBasisSpread = f64p(*out.basisSpread - *out.carry)
	return out, nil
}

// WithIRR is the annualized implied return of the basis trade.
func (e TfEvaluator) WithIRR() (TfEvaluator, error) {
	if e.irr != nil {
		return e, nil
	}
	out, err := e.WithFutureDirtyPrice()
	if err != nil {
		return e, err
	}
	out, err = out.WithRemainCpToDeliverWM()
	if err != nil {
		return e, err
	}
	out, err = out.WithDirtyPrice()
	if err != nil {
		return e, err
	}

	deliverDate, err := out.Future.Future.Paydate()
	if err != nil {
		return e, err
	}
	daysToDeliver := float64(deliverDate.Sub(out.Date))

	numerator := *out.futureDirtyPrice + *out.remainCpToDeliverWM - *out.dirtyPrice
	out.irr = f64p(numerator / *out.dirtyPrice * (365.0 / daysToDeliver))
	return out, nil
}

// WithFutureYtm inverts calc_dirty_price_with_ytm on future_dirty_price, at
// the delivery date, using the bond's post-delivery coupon schedule.
func (e TfEvaluator) WithFutureYtm() (TfEvaluator, error) {
	if e.futureYtm != nil {
		return e, nil
	}
	out, err := e.WithFutureDirtyPrice()
	if err != nil {
		return e, err
	}

	deliverDate, err := out.Future.Future.Paydate()
	if err != nil {
		return e, err
	}

	ytm, err := out.Bond.Bond.CalcYtmWithPrice(*out.futureDirtyPrice, deliverDate, nil, nil)
	if err != nil {
		return e, err
	}
	out.futureYtm = f64p(ytm)
	return out, nil
}

// CalcAll forces every metric to resolve in dependency order.
func (e TfEvaluator) CalcAll() (TfEvaluator, error) {
	out, err := e.WithRemainCpNum()
	if err != nil {
		return e, err
	}
	out, err = out.WithDirtyPrice()
	if err != nil {
		return e, err
	}
	out, err = out.WithCleanPrice()
	if err != nil {
		return e, err
	}
	out, err = out.WithDuration()
	if err != nil {
		return e, err
	}
	out, err = out.WithCf()
	if err != nil {
		return e, err
	}
	out, err = out.WithDeliverAccruedInterest()
	if err != nil {
		return e, err
	}
	out, err = out.WithRemainCpToDeliver()
	if err != nil {
		return e, err
	}
	out, err = out.WithRemainCpToDeliverWM()
	if err != nil {
		return e, err
	}
	out, err = out.WithDeliverCost()
	if err != nil {
		return e, err
	}
	out, err = out.WithFutureDirtyPrice()
	if err != nil {
		return e, err
	}
	out, err = out.WithBasisSpread()
	if err != nil {
		return e, err
	}
	out, err = out.WithFBSpread()
	if err != nil {
		return e, err
	}
	out, err = out.WithCarry()
	if err != nil {
		return e, err
	}
	out, err = out.WithNetBasisSpread()
	if err != nil {
		return e, err
	}
	out, err = out.WithIRR()
	if err != nil {
		return e, err
	}
	out, err = out.WithFutureYtm()
	if err != nil {
		return e, err
	}
	return out, nil
}

// Accessors. Each returns (value, ok); ok is false when the field has not
// yet been resolved by a With* call.

func (e TfEvaluator) AccruedInterest() (float64, bool)        { return deref(e.accruedInterest) }
func (e TfEvaluator) DirtyPrice() (float64, bool)              { return deref(e.dirtyPrice) }
func (e TfEvaluator) CleanPrice() (float64, bool)               { return deref(e.cleanPrice) }
func (e TfEvaluator) CF() (float64, bool)                       { return deref(e.cf) }
func (e TfEvaluator) Duration() (float64, bool)                 { return deref(e.duration) }
func (e TfEvaluator) DeliverAccruedInterest() (float64, bool)   { return deref(e.deliverAccruedInterest) }
func (e TfEvaluator) RemainCpToDeliver() (float64, bool)        { return deref(e.remainCpToDeliver) }
func (e TfEvaluator) RemainCpToDeliverWM() (float64, bool)      { return deref(e.remainCpToDeliverWM) }
func (e TfEvaluator) DeliverCost() (float64, bool)              { return deref(e.deliverCost) }
func (e TfEvaluator) FutureDirtyPrice() (float64, bool)         { return deref(e.futureDirtyPrice) }
func (e TfEvaluator) BasisSpread() (float64, bool)              { return deref(e.basisSpread) }
func (e TfEvaluator) FBSpread() (float64, bool)                 { return deref(e.fBSpread) }
func (e TfEvaluator) NetBasisSpread() (float64, bool)           { return deref(e.netBasisSpread) }
func (e TfEvaluator) Carry() (float64, bool)                    { return deref(e.carry) }
func (e TfEvaluator) IRR() (float64, bool)                      { return deref(e.irr) }
func (e TfEvaluator) FutureYtm() (float64, bool)                { return deref(e.futureYtm) }
func (e TfEvaluator) RemainCpNum() (int, bool) {
	if e.remainCpNum == nil {
		return 0, false
	}
	return *e.remainCpNum, true
}
func (e TfEvaluator) CpDates() (pre, next types.Date, ok bool) {
	if e.cpDates == nil {
		return types.Date{}, types.Date{}, false
	}
	return e.cpDates.Pre, e.cpDates.Next, true
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// IsDeliverable applies CFFEX's per-contract-type deliverability test from
// spec.md section 4.G.
func IsDeliverable(futureType types.FutureType, carryDate, maturityDate, deliveryDate types.Date) bool {
	issueTenor := maturityDate.Year() - carryDate.Year()
	remaining := float64(maturityDate.Year()-deliveryDate.Year()) +
		float64(int(maturityDate.Month())-int(deliveryDate.Month()))/12.0 +
		float64(maturityDate.Day()-1)/365.0

	switch futureType {
	case types.TS:
		return issueTenor <= 5 && remaining >= 1.5 && remaining <= 2.25
	case types.TF:
		return issueTenor <= 7 && remaining >= 4.0 && remaining <= 5.25
	case types.T:
		return issueTenor <= 10 && remaining >= 6.5
	case types.TL:
		return issueTenor <= 30 && remaining >= 25.0
	default:
		return false
	}
}

// UpdateWithNewInfo rebuilds an evaluator for new inputs, preserving cached
// fields that provably remain valid (spec.md section 4.G batch fast-path):
//   - cp_dates/remain_cp_num survive if the bond identity is unchanged and
//     date still falls within the previously-resolved (pre, next) window.
//   - cf survives only if bond, future, and date (to the day) are all
//     unchanged.
// Everything derived from price, ytm, or capital_rate is always invalidated.
func (e TfEvaluator) UpdateWithNewInfo(date types.Date, future types.FuturePrice, bond types.BondYtm, capitalRate, reinvestRate float64) TfEvaluator {
	next := New(date, future, bond, capitalRate, reinvestRate)

	sameBond := e.Bond.Bond == bond.Bond
	sameFuture := e.Future.Future != nil && future.Future != nil && *e.Future.Future == *future.Future
	sameDate := e.Date.Equal(date)

	if sameBond && e.cpDates != nil && !date.Before(e.cpDates.Pre) && date.Before(e.cpDates.Next) {
		next.cpDates = e.cpDates
		next.remainCpNum = e.remainCpNum
	}

	if sameBond && sameFuture && sameDate && e.cf != nil {
		next.cf = e.cf
	}

	return next
}
