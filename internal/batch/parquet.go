package batch

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/parquet-go/parquet-go"

	"benritz/cgbfutures/internal/storage"
)

// Row is one output record, the parquet-go schema the Output columns
// flatten into. Grounded on the teacher's CollectedBond/Gilt row types
// written with parquet.NewGenericWriter; floating metrics are pointers so a
// NaN value serializes as a parquet null per spec.md's "NaN as null" rule.
type Row struct {
	RemainCpNum            int      `parquet:"remain_cp_num"`
	AccruedInterest        *float64 `parquet:"accrued_interest,optional"`
	DirtyPrice             *float64 `parquet:"dirty_price,optional"`
	CleanPrice             *float64 `parquet:"clean_price,optional"`
	Duration               *float64 `parquet:"duration,optional"`
	CF                     *float64 `parquet:"cf,optional"`
	DeliverAccruedInterest *float64 `parquet:"deliver_accrued_interest,optional"`
	RemainCpToDeliver      *float64 `parquet:"remain_cp_to_deliver,optional"`
	RemainCpToDeliverWM    *float64 `parquet:"remain_cp_to_deliver_wm,optional"`
	DeliverCost            *float64 `parquet:"deliver_cost,optional"`
	FutureDirtyPrice       *float64 `parquet:"future_dirty_price,optional"`
	BasisSpread            *float64 `parquet:"basis_spread,optional"`
	FBSpread               *float64 `parquet:"f_b_spread,optional"`
	NetBasisSpread         *float64 `parquet:"net_basis_spread,optional"`
	Carry                  *float64 `parquet:"carry,optional"`
	IRR                    *float64 `parquet:"irr,optional"`
	FutureYtm              *float64 `parquet:"future_ytm,optional"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// Rows flattens Output into parquet rows, one per batch input row.
func (o *Output) Rows() []Row {
	n := len(o.RemainCpNum)
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		rows[i] = Row{
			RemainCpNum:            o.RemainCpNum[i],
			AccruedInterest:        nullable(o.AccruedInterest[i]),
			DirtyPrice:             nullable(o.DirtyPrice[i]),
			CleanPrice:             nullable(o.CleanPrice[i]),
			Duration:               nullable(o.Duration[i]),
			CF:                     nullable(o.CF[i]),
			DeliverAccruedInterest: nullable(o.DeliverAccruedInterest[i]),
			RemainCpToDeliver:      nullable(o.RemainCpToDeliver[i]),
			RemainCpToDeliverWM:    nullable(o.RemainCpToDeliverWM[i]),
			DeliverCost:            nullable(o.DeliverCost[i]),
			FutureDirtyPrice:       nullable(o.FutureDirtyPrice[i]),
			BasisSpread:            nullable(o.BasisSpread[i]),
			FBSpread:               nullable(o.FBSpread[i]),
			NetBasisSpread:         nullable(o.NetBasisSpread[i]),
			Carry:                  nullable(o.Carry[i]),
			IRR:                    nullable(o.IRR[i]),
			FutureYtm:              nullable(o.FutureYtm[i]),
		}
	}
	return rows
}

func writeRows(rows []Row, w io.Writer) error {
	writer := parquet.NewGenericWriter[Row](w)
	defer writer.Close()

	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

// WriteParquetFile writes out to path, grounded on teacher's StoreToPath.
func WriteParquetFile(out *Output, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return writeRows(out.Rows(), file)
}

// WriteParquetToS3 writes out to s3://dst.Bucket/dst.Prefix/key, grounded on
// teacher's StoreToS3 tmpfile-then-upload idiom.
func WriteParquetToS3(ctx context.Context, s3Client *s3.Client, dst *storage.S3Path, key string, out *Output) (string, error) {
	tmp, err := os.CreateTemp("", "cgbfutures-batch-*.parquet")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmp.Close()
	defer os.Remove(tmp.Name())

	if err := writeRows(out.Rows(), tmp); err != nil {
		return "", err
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return "", fmt.Errorf("failed to seek to start of file: %w", err)
	}

	fullKey := dst.Key(key)

	input := &s3.PutObjectInput{
		Bucket: aws.String(dst.Bucket),
		Key:    aws.String(fullKey),
		Body:   tmp,
	}
	if _, err := s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload file to s3://%s/%s: %w", dst.Bucket, fullKey, err)
	}

	return fmt.Sprintf("s3://%s/%s", dst.Bucket, fullKey), nil
}
