package types_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benritz/cgbfutures/internal/types"
)

func TestFuture_LastTradingDateAndPaydate(t *testing.T) {
	cases := []struct {
		code          string
		lastTrading   string
		paydate       string
	}{
		{"T2409", "2024-09-13", "2024-09-17"},
		{"T2503", "2025-03-14", "2025-03-18"},
	}

	for _, c := range cases {
		t.Run(c.code, func(t *testing.T) {
			f := types.NewFuture(c.code)

			last, err := f.LastTradingDate()
			require.NoError(t, err)
			assert.Equal(t, c.lastTrading, last.String())
			assert.Equal(t, time.Friday, last.Weekday())

			pay, err := f.Paydate()
			require.NoError(t, err)
			assert.Equal(t, c.paydate, pay.String())
			assert.Equal(t, time.Tuesday, pay.Weekday())
		})
	}
}

func TestFuture_FutureType(t *testing.T) {
	cases := []struct {
		code     string
		expected types.FutureType
	}{
		{"TS2409", types.TS},
		{"TF2409", types.TF},
		{"T2409", types.T},
		{"TL2409", types.TL},
	}

	for _, c := range cases {
		t.Run(c.code, func(t *testing.T) {
			ft, err := types.NewFuture(c.code).FutureType()
			require.NoError(t, err)
			assert.Equal(t, c.expected, ft)
		})
	}
}

func TestFuture_InvalidCode(t *testing.T) {
	_, err := types.NewFuture("X2409").FutureType()
	assert.ErrorIs(t, err, types.ErrInvalidFutureCode)

	_, err = types.NewFuture("T24").LastTradingDate()
	assert.ErrorIs(t, err, types.ErrInvalidFutureCode)
}
