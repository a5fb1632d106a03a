package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Future is a CFFEX T-bond futures contract descriptor. Its attributes are
// pure functions of Code.
type Future struct {
	Code string
}

func NewFuture(code string) Future {
	return Future{Code: code}
}

// LastTradingDate is the second Friday of the delivery month encoded in the
// trailing "YYMM" digits of Code.
func (f Future) LastTradingDate() (Date, error) {
	yymm := strings.TrimFunc(f.Code, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if len(yymm) != 4 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidFutureCode, f.Code)
	}

	year, err := strconv.Atoi("20" + yymm[0:2])
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidFutureCode, f.Code)
	}
	month, err := strconv.Atoi(yymm[2:4])
	if err != nil || month < 1 || month > 12 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidFutureCode, f.Code)
	}

	begin := NewDate(year, time.Month(month), 1)
	for day := 7; day < 14; day++ {
		candidate := begin.AddDate(0, 0, day)
		if candidate.Weekday() == time.Friday {
			return candidate, nil
		}
	}
	return Date{}, fmt.Errorf("%w: no second Friday found for %q", ErrInvalidFutureCode, f.Code)
}

// Paydate is the delivery payment date: four calendar days after the last
// trading date, which always lands on the following Tuesday.
func (f Future) Paydate() (Date, error) {
	last, err := f.LastTradingDate()
	if err != nil {
		return Date{}, err
	}
	return last.AddDate(0, 0, 4), nil
}

// FutureType is the alphabetic prefix of Code.
func (f Future) FutureType() (FutureType, error) {
	prefix := strings.TrimFunc(f.Code, func(r rune) bool {
		return r >= '0' && r <= '9'
	})
	switch prefix {
	case string(TS):
		return TS, nil
	case string(TF):
		return TF, nil
	case string(T):
		return T, nil
	case string(TL):
		return TL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFutureCode, f.Code)
	}
}
