package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benritz/cgbfutures/internal/types"
)

func annualBond() *types.Bond {
	return &types.Bond{
		CarryDate:    types.NewDate(2014, 6, 15),
		MaturityDate: types.NewDate(2024, 6, 15),
		InstFreq:     1,
	}
}

func semiAnnualBond() *types.Bond {
	return &types.Bond{
		CarryDate:    types.NewDate(2014, 6, 15),
		MaturityDate: types.NewDate(2024, 6, 15),
		InstFreq:     2,
	}
}

func TestBond_GetNearestCpDate(t *testing.T) {
	annual := annualBond()

	pre, next, err := annual.GetNearestCpDate(types.NewDate(2018, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, types.NewDate(2017, 6, 15), pre)
	assert.Equal(t, types.NewDate(2018, 6, 15), next)

	pre, next, err = annual.GetNearestCpDate(types.NewDate(2018, 6, 15))
	require.NoError(t, err)
	assert.Equal(t, types.NewDate(2018, 6, 15), pre)
	assert.Equal(t, types.NewDate(2019, 6, 15), next)

	semi := semiAnnualBond()

	pre, next, err = semi.GetNearestCpDate(types.NewDate(2018, 9, 15))
	require.NoError(t, err)
	assert.Equal(t, types.NewDate(2018, 6, 15), pre)
	assert.Equal(t, types.NewDate(2018, 12, 15), next)

	pre, next, err = semi.GetNearestCpDate(types.NewDate(2019, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, types.NewDate(2018, 12, 15), pre)
	assert.Equal(t, types.NewDate(2019, 6, 15), next)
}

func TestBond_RemainCpNum(t *testing.T) {
	annual := annualBond()
	n, err := annual.RemainCpNum(types.NewDate(2018, 3, 15), nil)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	semi := semiAnnualBond()
	n, err = semi.RemainCpNum(types.NewDate(2018, 9, 15), nil)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestBond_GetLastCpYearDays(t *testing.T) {
	annual := annualBond()
	days, err := annual.GetLastCpYearDays()
	require.NoError(t, err)
	assert.EqualValues(t, 366, days)

	semi := semiAnnualBond()
	days, err = semi.GetLastCpYearDays()
	require.NoError(t, err)
	assert.EqualValues(t, 366, days)

	nonLeap := &types.Bond{
		CarryDate:    types.NewDate(2014, 1, 18),
		MaturityDate: types.NewDate(2023, 1, 18),
		InstFreq:     1,
	}
	days, err = nonLeap.GetLastCpYearDays()
	require.NoError(t, err)
	assert.EqualValues(t, 365, days)
}
