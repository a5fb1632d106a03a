// batch-tf reads the six aligned batch columns from a CSV file and writes
// every resolved metric to a CSV or parquet file. Grounded on the teacher's
// cmd/collect-data: flag-driven, dispatches to a local path or an s3://
// destination using the same ParseS3 convention.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"benritz/cgbfutures/internal/batch"
	"benritz/cgbfutures/internal/cache"
	"benritz/cgbfutures/internal/storage"
	"benritz/cgbfutures/internal/types"
)

// readInput parses a CSV with header "future_code,bond_code,date,future_price,bond_ytm,funding_rate".
func readInput(path string) (*batch.Input, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("input file has no data rows")
	}

	in := &batch.Input{}
	for _, row := range rows[1:] {
		if len(row) < 6 {
			return nil, fmt.Errorf("expected 6 columns, got %d", len(row))
		}

		date, err := types.ParseDate(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, err
		}

		price, err := parseFloatOrNaN(row[3])
		if err != nil {
			return nil, err
		}
		ytm, err := parseFloatOrNaN(row[4])
		if err != nil {
			return nil, err
		}
		fundingRate, err := parseFloatOrNaN(row[5])
		if err != nil {
			return nil, err
		}

		in.FutureCodes = append(in.FutureCodes, strings.TrimSpace(row[0]))
		in.BondCodes = append(in.BondCodes, strings.TrimSpace(row[1]))
		in.Dates = append(in.Dates, date)
		in.FuturePrices = append(in.FuturePrices, price)
		in.BondYtms = append(in.BondYtms, ytm)
		in.FundingRates = append(in.FundingRates, fundingRate)
	}

	return in, nil
}

func parseFloatOrNaN(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

var csvColumns = []string{
	"remain_cp_num", "accrued_interest", "dirty_price", "clean_price", "duration", "cf",
	"deliver_accrued_interest", "remain_cp_to_deliver", "remain_cp_to_deliver_wm", "deliver_cost",
	"future_dirty_price", "basis_spread", "f_b_spread", "net_basis_spread", "carry", "irr", "future_ytm",
}

func writeCSV(out *batch.Output, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write(csvColumns); err != nil {
		return err
	}

	fmtFloat := func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	for i, rcn := range out.RemainCpNum {
		record := []string{
			strconv.Itoa(rcn),
			fmtFloat(out.AccruedInterest[i]),
			fmtFloat(out.DirtyPrice[i]),
			fmtFloat(out.CleanPrice[i]),
			fmtFloat(out.Duration[i]),
			fmtFloat(out.CF[i]),
			fmtFloat(out.DeliverAccruedInterest[i]),
			fmtFloat(out.RemainCpToDeliver[i]),
			fmtFloat(out.RemainCpToDeliverWM[i]),
			fmtFloat(out.DeliverCost[i]),
			fmtFloat(out.FutureDirtyPrice[i]),
			fmtFloat(out.BasisSpread[i]),
			fmtFloat(out.FBSpread[i]),
			fmtFloat(out.NetBasisSpread[i]),
			fmtFloat(out.Carry[i]),
			fmtFloat(out.IRR[i]),
			fmtFloat(out.FutureYtm[i]),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	bondsPath := flag.String("bonds", storage.BondsInfoPath(), "bond descriptor store (local path or s3://bucket/prefix)")
	reinvestRate := flag.Float64("reinvestrate", 0.0, "reinvestment rate for intervening coupons (decimal)")
	useParquet := flag.Bool("parquet", false, "write output as parquet instead of CSV")
	helpFlag := flag.Bool("help", false, "print this help message")

	flag.Parse()
	args := flag.Args()

	if *helpFlag || len(args) != 2 {
		fmt.Printf("Usage: %s <flags> <input.csv> <destination>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(1)
	}

	inputPath, dst := args[0], args[1]

	ctx := context.Background()

	in, err := readInput(inputPath)
	if err != nil {
		fmt.Printf("Error: failed to read input: %v\n", err)
		os.Exit(1)
	}
	in.ReinvestRate = *reinvestRate

	loader, err := storage.NewLoader(ctx, *bondsPath)
	if err != nil {
		fmt.Printf("Error: failed to set up descriptor loader: %v\n", err)
		os.Exit(1)
	}

	driver := batch.New(cache.New(), loader)

	out, err := driver.Run(ctx, in)
	if err != nil {
		fmt.Printf("Error: batch run failed: %v\n", err)
		os.Exit(1)
	}

	if s3Path, parseErr := storage.ParseS3(dst); parseErr == nil {
		if !*useParquet {
			fmt.Println("Error: -parquet is required when the destination is an s3:// path")
			os.Exit(1)
		}

		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			fmt.Printf("Error: failed to load AWS config: %v\n", err)
			os.Exit(1)
		}
		s3Client := s3.NewFromConfig(cfg)

		outPath, err := batch.WriteParquetToS3(ctx, s3Client, s3Path, "batch.parquet", out)
		if err != nil {
			fmt.Printf("Error: failed to write output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Stored to %s\n", outPath)
		return
	}

	var writeErr error
	if *useParquet {
		writeErr = batch.WriteParquetFile(out, dst)
	} else {
		writeErr = writeCSV(out, dst)
	}
	if writeErr != nil {
		fmt.Printf("Error: failed to write output: %v\n", writeErr)
		os.Exit(1)
	}

	fmt.Printf("Stored to %s\n", dst)
}
