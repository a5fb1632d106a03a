// Package batch streams the six aligned per-row input sequences described
// in spec.md section 4.H/6 through a single reused eval.TfEvaluator, the
// way the teacher's internal/collect scrapers stream table rows through one
// parser instance rather than allocating per row.
package batch

import (
	"context"
	"fmt"
	"math"

	"benritz/cgbfutures/internal/cache"
	"benritz/cgbfutures/internal/eval"
	"benritz/cgbfutures/internal/types"
)

// Input holds the batch's six aligned columns plus the reinvest-rate kwarg.
// Any column of length 1 is broadcast across Len.
type Input struct {
	FutureCodes  []string
	BondCodes    []string
	Dates        []types.Date
	FuturePrices []float64
	BondYtms     []float64
	FundingRates []float64
	ReinvestRate float64
}

// Len is the row count of the batch: the length of the longest column. All
// columns must be either that length or 1.
func (in *Input) Len() (int, error) {
	n := 1
	cols := []int{
		len(in.FutureCodes), len(in.BondCodes), len(in.Dates),
		len(in.FuturePrices), len(in.BondYtms), len(in.FundingRates),
	}
	for _, c := range cols {
		if c > n {
			n = c
		}
	}
	for _, c := range cols {
		if c != 1 && c != n {
			return 0, fmt.Errorf("batch columns must share one length or be length 1, got %v", cols)
		}
	}
	return n, nil
}

func stringAt(col []string, i int) string {
	if len(col) == 1 {
		return col[0]
	}
	return col[i]
}

func dateAt(col []types.Date, i int) types.Date {
	if len(col) == 1 {
		return col[0]
	}
	return col[i]
}

func floatAt(col []float64, i int) float64 {
	if len(col) == 1 {
		return col[0]
	}
	return col[i]
}

// Output is the columnar result: one slice per emitted metric, in input
// row order. Floating columns carry NaN for an unresolved value; a null
// conversion happens at the serialization boundary (Output.Rows for the
// parquet writers, and cmd/batch-tf's CSV writer),
// per spec.md's "NaN as null" rule — integer columns never have nulls.
type Output struct {
	RemainCpNum            []int
	AccruedInterest        []float64
	DirtyPrice             []float64
	CleanPrice             []float64
	Duration               []float64
	CF                     []float64
	DeliverAccruedInterest []float64
	RemainCpToDeliver      []float64
	RemainCpToDeliverWM    []float64
	DeliverCost            []float64
	FutureDirtyPrice       []float64
	BasisSpread            []float64
	FBSpread               []float64
	NetBasisSpread         []float64
	Carry                  []float64
	IRR                    []float64
	FutureYtm              []float64
}

func newOutput(n int) *Output {
	mk := func() []float64 { return make([]float64, n) }
	return &Output{
		RemainCpNum:            make([]int, n),
		AccruedInterest:        mk(),
		DirtyPrice:             mk(),
		CleanPrice:             mk(),
		Duration:               mk(),
		CF:                     mk(),
		DeliverAccruedInterest: mk(),
		RemainCpToDeliver:      mk(),
		RemainCpToDeliverWM:    mk(),
		DeliverCost:            mk(),
		FutureDirtyPrice:       mk(),
		BasisSpread:            mk(),
		FBSpread:               mk(),
		NetBasisSpread:         mk(),
		Carry:                  mk(),
		IRR:                    mk(),
		FutureYtm:              mk(),
	}
}

func (o *Output) setNaN(i int) {
	o.AccruedInterest[i] = math.NaN()
	o.DirtyPrice[i] = math.NaN()
	o.CleanPrice[i] = math.NaN()
	o.Duration[i] = math.NaN()
	o.CF[i] = math.NaN()
	o.DeliverAccruedInterest[i] = math.NaN()
	o.RemainCpToDeliver[i] = math.NaN()
	o.RemainCpToDeliverWM[i] = math.NaN()
	o.DeliverCost[i] = math.NaN()
	o.FutureDirtyPrice[i] = math.NaN()
	o.BasisSpread[i] = math.NaN()
	o.FBSpread[i] = math.NaN()
	o.NetBasisSpread[i] = math.NaN()
	o.Carry[i] = math.NaN()
	o.IRR[i] = math.NaN()
	o.FutureYtm[i] = math.NaN()
}

func (o *Output) set(i int, r eval.TfEvaluator) {
	if n, ok := r.RemainCpNum(); ok {
		o.RemainCpNum[i] = n
	}
	o.AccruedInterest[i], _ = r.AccruedInterest()
	o.DirtyPrice[i], _ = r.DirtyPrice()
	o.CleanPrice[i], _ = r.CleanPrice()
	o.Duration[i], _ = r.Duration()
	o.CF[i], _ = r.CF()
	o.DeliverAccruedInterest[i], _ = r.DeliverAccruedInterest()
	o.RemainCpToDeliver[i], _ = r.RemainCpToDeliver()
	o.RemainCpToDeliverWM[i], _ = r.RemainCpToDeliverWM()
	o.DeliverCost[i], _ = r.DeliverCost()
	o.FutureDirtyPrice[i], _ = r.FutureDirtyPrice()
	o.BasisSpread[i], _ = r.BasisSpread()
	o.FBSpread[i], _ = r.FBSpread()
	o.NetBasisSpread[i], _ = r.NetBasisSpread()
	o.Carry[i], _ = r.Carry()
	o.IRR[i], _ = r.IRR()
	o.FutureYtm[i], _ = r.FutureYtm()
}

// Driver runs a batch, resolving bond codes through a shared cache.BondCache
// so adjacent rows naming the same bond reuse its descriptor pointer — the
// identity eval.TfEvaluator.UpdateWithNewInfo needs to decide what survives
// the fast path.
type Driver struct {
	Cache  *cache.BondCache
	Loader cache.Loader
}

func New(c *cache.BondCache, loader cache.Loader) *Driver {
	return &Driver{Cache: c, Loader: loader}
}

// Run streams the batch through a single reused evaluator. A bad bond code
// or future code is a structural error (spec.md section 7) and aborts the
// whole batch; a row whose computation legitimately produces NaN (e.g. an
// unknown input price) does not.
func (d *Driver) Run(ctx context.Context, in *Input) (*Output, error) {
	n, err := in.Len()
	if err != nil {
		return nil, err
	}

	out := newOutput(n)

	var cur eval.TfEvaluator
	haveEvaluator := false

	for i := 0; i < n; i++ {
		bondCode := stringAt(in.BondCodes, i)
		futureCode := stringAt(in.FutureCodes, i)
		date := dateAt(in.Dates, i)
		price := floatAt(in.FuturePrices, i)
		ytm := floatAt(in.BondYtms, i)
		fundingRate := floatAt(in.FundingRates, i)

		bond, err := d.Cache.Get(ctx, bondCode, d.Loader)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		future := types.NewFuture(futureCode)
		if _, err := future.FutureType(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		bondYtm := types.NewBondYtm(bond, ytm)
		futurePrice := types.NewFuturePrice(&future, price)

		if !haveEvaluator {
			cur = eval.New(date, futurePrice, bondYtm, fundingRate, in.ReinvestRate)
			haveEvaluator = true
		} else {
			cur = cur.UpdateWithNewInfo(date, futurePrice, bondYtm, fundingRate, in.ReinvestRate)
		}

		result, err := cur.CalcAll()
		if err != nil {
			if bondYtm.IsUnknown() || futurePrice.IsUnknown() {
				out.setNaN(i)
				cur = result
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		cur = result
		out.set(i, result)
	}

	return out, nil
}
