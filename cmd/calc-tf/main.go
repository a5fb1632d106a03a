// calc-tf prices a single bond/future pair and prints every metric the
// evaluator resolves. Grounded on the teacher's cmd/calc-ytm: a flag-driven
// single-shot CLI that validates inputs up front and prints a labeled
// report, adapted from one gilt's clean-price-or-ytm inputs to a bond and
// quoted future priced together.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"benritz/cgbfutures/internal/cache"
	"benritz/cgbfutures/internal/eval"
	"benritz/cgbfutures/internal/storage"
	"benritz/cgbfutures/internal/types"
)

func parseDate(s string) (types.Date, error) {
	if s == "" {
		return types.DateOf(time.Now()), nil
	}
	return types.ParseDate(s)
}

func main() {
	bondsPath := flag.String("bonds", storage.BondsInfoPath(), "bond descriptor store (local path or s3://bucket/prefix)")
	bondCode := flag.String("bond", "", "bond code, e.g. 240006.IB")
	futureCode := flag.String("future", "", "future contract code, e.g. T2409")
	ytm := flag.Float64("ytm", math.NaN(), "bond yield to maturity (decimal, e.g. 0.025)")
	futurePrice := flag.Float64("price", math.NaN(), "quoted future price")
	date := flag.String("date", "", "valuation date (YYYY-MM-DD), defaults to today")
	capitalRate := flag.Float64("capitalrate", 0.0, "funding rate for carry/deliver-cost (decimal)")
	reinvestRate := flag.Float64("reinvestrate", 0.0, "reinvestment rate for intervening coupons (decimal)")
	helpFlag := flag.Bool("help", false, "print this help message")

	flag.Parse()

	if *helpFlag || *bondCode == "" || *futureCode == "" {
		fmt.Printf("Usage: %s <flags>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(1)
	}

	if math.IsNaN(*ytm) {
		fmt.Println("Error: -ytm flag is required")
		os.Exit(1)
	}
	if math.IsNaN(*futurePrice) {
		fmt.Println("Error: -price flag is required")
		os.Exit(1)
	}

	valuationDate, err := parseDate(*date)
	if err != nil {
		fmt.Printf("Error: invalid -date: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	loader, err := storage.NewLoader(ctx, *bondsPath)
	if err != nil {
		fmt.Printf("Error: failed to set up descriptor loader: %v\n", err)
		os.Exit(1)
	}

	bondCache := cache.New()
	bond, err := bondCache.Get(ctx, *bondCode, loader)
	if err != nil {
		fmt.Printf("Error: failed to load bond %s: %v\n", *bondCode, err)
		os.Exit(1)
	}

	future := types.NewFuture(*futureCode)
	futureType, err := future.FutureType()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	evaluator := eval.New(
		valuationDate,
		types.NewFuturePrice(&future, *futurePrice),
		types.NewBondYtm(bond, *ytm),
		*capitalRate,
		*reinvestRate,
	)

	result, err := evaluator.CalcAll()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	deliveryDate, _ := future.Paydate()
	deliverable := eval.IsDeliverable(futureType, bond.CarryDate, bond.MaturityDate, deliveryDate)

	fmt.Printf("Bond: %s (%s)\n", bond.Code(), bond.Abbr)
	fmt.Printf("Future: %s\n", future.Code)
	fmt.Printf("Valuation date: %s\n", valuationDate)
	fmt.Printf("Deliverable: %t\n", deliverable)
	fmt.Println()

	printMetric := func(name string, v float64, ok bool) {
		if !ok {
			fmt.Printf("\t%-28s n/a\n", name)
			return
		}
		fmt.Printf("\t%-28s %.6f\n", name, v)
	}

	if n, ok := result.RemainCpNum(); ok {
		fmt.Printf("\t%-28s %d\n", "remain_cp_num", n)
	}
	accruedInterest, accruedInterestOk := result.AccruedInterest()
	printMetric("accrued_interest", accruedInterest, accruedInterestOk)
	dirtyPrice, dirtyPriceOk := result.DirtyPrice()
	printMetric("dirty_price", dirtyPrice, dirtyPriceOk)
	cleanPrice, cleanPriceOk := result.CleanPrice()
	printMetric("clean_price", cleanPrice, cleanPriceOk)
	duration, durationOk := result.Duration()
	printMetric("duration", duration, durationOk)
	cf, cfOk := result.CF()
	printMetric("cf", cf, cfOk)
	deliverAccruedInterest, deliverAccruedInterestOk := result.DeliverAccruedInterest()
	printMetric("deliver_accrued_interest", deliverAccruedInterest, deliverAccruedInterestOk)
	remainCpToDeliver, remainCpToDeliverOk := result.RemainCpToDeliver()
	printMetric("remain_cp_to_deliver", remainCpToDeliver, remainCpToDeliverOk)
	remainCpToDeliverWM, remainCpToDeliverWMOk := result.RemainCpToDeliverWM()
	printMetric("remain_cp_to_deliver_wm", remainCpToDeliverWM, remainCpToDeliverWMOk)
	deliverCost, deliverCostOk := result.DeliverCost()
	printMetric("deliver_cost", deliverCost, deliverCostOk)
	futureDirtyPrice, futureDirtyPriceOk := result.FutureDirtyPrice()
	printMetric("future_dirty_price", futureDirtyPrice, futureDirtyPriceOk)
	basisSpread, basisSpreadOk := result.BasisSpread()
	printMetric("basis_spread", basisSpread, basisSpreadOk)
	fbSpread, fbSpreadOk := result.FBSpread()
	printMetric("f_b_spread", fbSpread, fbSpreadOk)
	netBasisSpread, netBasisSpreadOk := result.NetBasisSpread()
	printMetric("net_basis_spread", netBasisSpread, netBasisSpreadOk)
	carry, carryOk := result.Carry()
	printMetric("carry", carry, carryOk)
	irr, irrOk := result.IRR()
	printMetric("irr", irr, irrOk)
	futureYtm, futureYtmOk := result.FutureYtm()
	printMetric("future_ytm", futureYtm, futureYtmOk)
}
