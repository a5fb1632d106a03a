package types

import (
	"fmt"
	"math"
)

// Bond is an immutable cash-bond descriptor. Once constructed it is never
// mutated; all its methods are pure functions of its fields and the date
// passed in.
type Bond struct {
	BondCode      string       `json:"bond_code"`
	Mkt           Market       `json:"mkt"`
	Abbr          string       `json:"abbr"`
	ParValue      float64      `json:"par_value"`
	CpType        CouponType   `json:"cp_type"`
	InterestType  InterestType `json:"interest_type"`
	CpRate1st     float64      `json:"cp_rate_1st"`
	BaseRate      *float64     `json:"base_rate,omitempty"`
	RateSpread    *float64     `json:"rate_spread,omitempty"`
	InstFreq      int          `json:"inst_freq"`
	CarryDate     Date         `json:"carry_date"`
	MaturityDate  Date         `json:"maturity_date"`
	DayCount      BondDayCount `json:"day_count"`
}

// maxCouponDateIterations bounds the walk in GetNearestCpDate: annual
// coupons over a 50-year ultra-long bond never need more than ~50 steps, so
// 220 guards against a malformed descriptor without ever firing on real data.
const maxCouponDateIterations = 220

// Code returns the part of BondCode before the first '.', e.g. "240006" for
// "240006.IB". If there is no '.', BondCode is returned unchanged.
func (b *Bond) Code() string {
	for i := 0; i < len(b.BondCode); i++ {
		if b.BondCode[i] == '.' {
			return b.BondCode[:i]
		}
	}
	return b.BondCode
}

func (b *Bond) IsZeroCoupon() bool {
	return b.CpType == ZeroCoupon
}

func (b *Bond) ensureDateValid(date Date) error {
	if date.Before(b.CarryDate) {
		return fmt.Errorf("%w: %s is before carry date %s", ErrDateOutOfRange, date, b.CarryDate)
	}
	if !date.Before(b.MaturityDate) {
		return fmt.Errorf("%w: %s is at or after maturity date %s", ErrDateOutOfRange, date, b.MaturityDate)
	}
	return nil
}

func (b *Bond) ensureNotZeroCoupon() error {
	if b.IsZeroCoupon() {
		return ErrZeroCouponOperation
	}
	return nil
}

// GetCouponOffset returns the number of months between coupon payments.
func (b *Bond) GetCouponOffset() (int, error) {
	switch b.InstFreq {
	case 0:
		return 0, nil
	case 1:
		return 12, nil
	case 2:
		return 6, nil
	case 3:
		return 4, nil
	case 4:
		return 3, nil
	case 6:
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: inst_freq=%d", ErrInvalidInstFreq, b.InstFreq)
	}
}

// GetCoupon returns the cash amount of a single coupon payment.
func (b *Bond) GetCoupon() float64 {
	return b.CpRate1st * b.ParValue / float64(b.InstFreq)
}

// GetLastCpYearDays walks back from maturity by one coupon offset at a
// time until it finds the boundary of the terminal coupon year, then keeps
// walking back while the Actual day count to maturity is under 360 (this
// happens whenever the coupon interval is shorter than a year, i.e.
// InstFreq > 1). The result
// captures leap-year handling for the terminal-year discount factor.
func (b *Bond) GetLastCpYearDays() (int64, error) {
	offsetMonths, err := b.GetCouponOffset()
	if err != nil {
		return 0, err
	}

	cpDate := b.MaturityDate.AddDate(0, -offsetMonths, 0)
	for cpDate.Year() == b.MaturityDate.Year() {
		cpDate = cpDate.AddDate(0, -offsetMonths, 0)
	}

	dayCounts := Actual.CountDays(cpDate, b.MaturityDate)
	for dayCounts < 360 {
		cpDate = cpDate.AddDate(0, -offsetMonths, 0)
		dayCounts = Actual.CountDays(cpDate, b.MaturityDate)
	}

	if dayCounts >= 380 {
		return 0, fmt.Errorf("%w: %d", ErrLastCouponYearDaysTooLong, dayCounts)
	}

	return dayCounts, nil
}

// GetNearestCpDate returns the (previous, next) coupon dates bracketing
// date: pre <= date < next.
func (b *Bond) GetNearestCpDate(date Date) (pre, next Date, err error) {
	if err := b.ensureNotZeroCoupon(); err != nil {
		return Date{}, Date{}, err
	}
	if err := b.ensureDateValid(date); err != nil {
		return Date{}, Date{}, err
	}

	offsetMonths, err := b.GetCouponOffset()
	if err != nil {
		return Date{}, Date{}, err
	}

	cur := b.CarryDate
	cand := cur.AddDate(0, offsetMonths, 0)

	for i := 0; i < maxCouponDateIterations; i++ {
		if !date.Before(cur) && date.Before(cand) {
			return cur, cand, nil
		}
		cur = cand
		cand = cur.AddDate(0, offsetMonths, 0)
	}

	return Date{}, Date{}, ErrCoupondateNotFound
}

// RemainCpNum returns the number of remaining coupon payments including the
// one at nextCp, counting forward until within 3 days of maturity (the
// margin tolerates holiday-shifted maturity dates).
func (b *Bond) RemainCpNum(date Date, nextCp *Date) (int, error) {
	var next Date
	if nextCp != nil {
		next = *nextCp
	} else {
		_, n, err := b.GetNearestCpDate(date)
		if err != nil {
			return 0, err
		}
		next = n
	}

	offsetMonths, err := b.GetCouponOffset()
	if err != nil {
		return 0, err
	}

	cpNum := 1
	maturityMargin := b.MaturityDate.AddDate(0, 0, -3)
	for next.Before(maturityMargin) {
		cpNum++
		next = next.AddDate(0, offsetMonths, 0)
	}
	return cpNum, nil
}

// RemainCpNumUntil counts coupon dates d with nextCp <= d < until.
func (b *Bond) RemainCpNumUntil(date Date, until Date, nextCp *Date) (int, error) {
	dates, err := b.RemainCpDatesUntil(date, until, nextCp)
	if err != nil {
		return 0, err
	}
	return len(dates), nil
}

// RemainCpDatesUntil returns the ordered list of coupon dates d with
// nextCp <= d < until.
func (b *Bond) RemainCpDatesUntil(date Date, until Date, nextCp *Date) ([]Date, error) {
	var next Date
	if nextCp != nil {
		next = *nextCp
	} else {
		_, n, err := b.GetNearestCpDate(date)
		if err != nil {
			return nil, err
		}
		next = n
	}

	offsetMonths, err := b.GetCouponOffset()
	if err != nil {
		return nil, err
	}

	if !next.Before(until) {
		return nil, nil
	}

	var dates []Date
	for i := 0; i < maxCouponDateIterations && next.Before(until); i++ {
		dates = append(dates, next)
		next = next.AddDate(0, offsetMonths, 0)
	}
	return dates, nil
}

// CalcAccruedInterest computes the portion of the next coupon that has
// accrued between the previous coupon date and date. Interbank bonds count
// the start day but not the end day; exchange-listed bonds count both.
func (b *Bond) CalcAccruedInterest(date Date, cpDates *[2]Date) (float64, error) {
	if b.IsZeroCoupon() {
		return 0, nil
	}

	var pre, next Date
	if cpDates != nil {
		pre, next = cpDates[0], cpDates[1]
	} else {
		p, n, err := b.GetNearestCpDate(date)
		if err != nil {
			return 0, err
		}
		pre, next = p, n
	}

	if b.Mkt.IsExchange() {
		accruedDays := 1 + Actual.CountDays(pre, date)
		return b.CpRate1st * b.ParValue * float64(accruedDays) / 365.0, nil
	}

	accruedDays := Actual.CountDays(pre, date)
	periodDays := Actual.CountDays(pre, next)
	return b.GetCoupon() * float64(accruedDays) / float64(periodDays), nil
}

// CalcDirtyPriceWithYtm prices the bond's remaining cash flows at ytm as of
// date. n, when provided, overrides the remaining-coupon count (used by the
// evaluator to avoid recomputing it); cpDates overrides the lookup of the
// (pre, next) coupon-date pair.
func (b *Bond) CalcDirtyPriceWithYtm(ytm float64, date Date, cpDates *[2]Date, n *int) (float64, error) {
	instFreq := float64(b.InstFreq)
	coupon := b.GetCoupon()

	pre, next, err := b.resolveCpDates(date, cpDates)
	if err != nil {
		return 0, err
	}
	remainDays := float64(Actual.CountDays(date, next))

	remainCpNum, err := b.resolveRemainCpNum(date, next, n)
	if err != nil {
		return 0, err
	}

	if remainCpNum <= 1 {
		ty, err := b.GetLastCpYearDays()
		if err != nil {
			return 0, err
		}
		forwardValue := b.ParValue + coupon
		discountFactor := 1.0 + ytm*remainDays/float64(ty)
		return forwardValue / discountFactor, nil
	}

	ty := float64(Actual.CountDays(pre, next))
	var couponPV float64
	for i := 0; i < remainCpNum; i++ {
		discountFactor := math.Pow(1.0+ytm/instFreq, remainDays/ty+float64(i))
		couponPV += coupon / discountFactor
	}
	discountFactor := math.Pow(1.0+ytm/instFreq, remainDays/ty+float64(remainCpNum-1))
	return b.ParValue/discountFactor + couponPV, nil
}

func (b *Bond) resolveCpDates(date Date, cpDates *[2]Date) (pre, next Date, err error) {
	if cpDates != nil {
		return cpDates[0], cpDates[1], nil
	}
	return b.GetNearestCpDate(date)
}

func (b *Bond) resolveRemainCpNum(date Date, next Date, n *int) (int, error) {
	if n != nil {
		return *n, nil
	}
	return b.RemainCpNum(date, &next)
}

// CalcCleanPriceWithYtm returns the dirty price at ytm minus accrued interest.
func (b *Bond) CalcCleanPriceWithYtm(ytm float64, date Date, cpDates *[2]Date, n *int) (float64, error) {
	dirty, err := b.CalcDirtyPriceWithYtm(ytm, date, cpDates, n)
	if err != nil {
		return 0, err
	}
	accrued, err := b.CalcAccruedInterest(date, cpDates)
	if err != nil {
		return 0, err
	}
	return dirty - accrued, nil
}

const (
	ytmBisectLow   = 1e-4
	ytmBisectHigh  = 0.3
	ytmBisectIters = 12
)

// CalcYtmWithPrice inverts CalcDirtyPriceWithYtm. Fixed-rate bonds only; the
// terminal coupon period has a closed form, otherwise bisection is used
// since the dirty-price function is monotone decreasing in ytm.
func (b *Bond) CalcYtmWithPrice(dirty float64, date Date, cpDates *[2]Date, n *int) (float64, error) {
	if b.InterestType != Fixed {
		return 0, ErrUnsupportedInterestType
	}

	pre, next, err := b.resolveCpDates(date, cpDates)
	if err != nil {
		return 0, err
	}
	remainDays := float64(Actual.CountDays(date, next))

	remainCpNum, err := b.resolveRemainCpNum(date, next, n)
	if err != nil {
		return 0, err
	}

	if remainCpNum <= 1 {
		coupon := b.GetCoupon()
		ty, err := b.GetLastCpYearDays()
		if err != nil {
			return 0, err
		}
		return ((b.ParValue+coupon)-dirty) / dirty / (remainDays / float64(ty)), nil
	}

	resolved := [2]Date{pre, next}
	lo, hi := ytmBisectLow, ytmBisectHigh
	for i := 0; i < ytmBisectIters; i++ {
		mid := (lo + hi) / 2
		price, err := b.CalcDirtyPriceWithYtm(mid, date, &resolved, &remainCpNum)
		if err != nil {
			return 0, err
		}
		// price is monotone decreasing in ytm
		if price > dirty {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, nil
}

// CalcMacaulayDuration returns the NPV-weighted time (in years from date) to
// each remaining cash flow.
func (b *Bond) CalcMacaulayDuration(ytm float64, date Date, cpDates *[2]Date) (float64, error) {
	instFreq := float64(b.InstFreq)
	coupon := b.GetCoupon()

	pre, next, err := b.resolveCpDates(date, cpDates)
	if err != nil {
		return 0, err
	}
	remainDays := float64(Actual.CountDays(date, next))
	ty := float64(Actual.CountDays(pre, next))

	n, err := b.resolveRemainCpNum(date, next, nil)
	if err != nil {
		return 0, err
	}

	var pv, weighted float64
	for i := 0; i < n; i++ {
		discountFactor := math.Pow(1.0+ytm/instFreq, remainDays/ty+float64(i))
		cf := coupon / discountFactor
		t := remainDays/365.0 + float64(i)/instFreq
		pv += cf
		weighted += cf * t
	}

	discountFactor := math.Pow(1.0+ytm/instFreq, remainDays/ty+float64(n-1))
	principalCf := b.ParValue / discountFactor
	principalT := remainDays/365.0 + float64(n-1)/instFreq
	pv += principalCf
	weighted += principalCf * principalT

	return weighted / pv, nil
}

// CalcDuration is the modified duration: Macaulay duration discounted by one
// coupon period at ytm.
func (b *Bond) CalcDuration(ytm float64, date Date, cpDates *[2]Date) (float64, error) {
	macaulay, err := b.CalcMacaulayDuration(ytm, date, cpDates)
	if err != nil {
		return 0, err
	}
	return macaulay / (1.0 + ytm/float64(b.InstFreq)), nil
}
