package types

import "fmt"

var (
	ErrDescriptorMissing      = fmt.Errorf("bond descriptor not found")
	ErrMalformedDescriptor    = fmt.Errorf("malformed bond descriptor")
	ErrDateOutOfRange         = fmt.Errorf("date is outside the bond's [carry_date, maturity_date) range")
	ErrZeroCouponOperation    = fmt.Errorf("coupon date operation requested on a zero coupon bond")
	ErrInvalidInstFreq        = fmt.Errorf("invalid inst_freq")
	ErrCoupondateNotFound     = fmt.Errorf("failed to find nearest coupon date within iteration bound")
	ErrInvalidFutureCode      = fmt.Errorf("invalid future code")
	ErrUnsupportedInterestType = fmt.Errorf("yield to maturity inversion requires a fixed rate bond")
	ErrLastCouponYearDaysTooLong = fmt.Errorf("last coupon year days is too long")

	ErrNilBond                    = fmt.Errorf("bond is nil")
	ErrNilFuture                  = fmt.Errorf("future is nil")
	ErrMaturityBeforeCarry        = fmt.Errorf("maturity date is before carry date")
	ErrYieldToMaturityNoConverge  = fmt.Errorf("yield to maturity bisection failed to converge")
)
