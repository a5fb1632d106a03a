package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/pbnjay/grate/xls"

	"benritz/cgbfutures/internal/collect"
	"benritz/cgbfutures/internal/storage"
)

var (
	EnvBucketName   = "CGBFUTURES_DATA_BUCKET_NAME"
	EnvBucketPrefix = "CGBFUTURES_DATA_BUCKET_PREFIX"
	EnvSource       = "CGBFUTURES_DATA_SOURCE"
)

func collectData(ctx context.Context) error {
	bucketName := os.Getenv(EnvBucketName)
	if bucketName == "" {
		return fmt.Errorf("%s is not set", EnvBucketName)
	}

	dst := &storage.S3Path{
		Bucket: bucketName,
		Prefix: os.Getenv(EnvBucketPrefix),
	}

	var collector collect.Collector
	switch os.Getenv(EnvSource) {
	case "chinamoney":
		collector = collect.NewChinaMoneyCollector()
	default:
		collector = collect.NewCFFEXCollector()
	}

	collected, err := collector.Collect(ctx, time.Now())
	if err != nil {
		return err
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	s3Client := s3.NewFromConfig(cfg)

	stored := 0
	for _, b := range collected.Bonds {
		if _, err := storage.StoreDescriptorToS3(ctx, s3Client, dst, b); err != nil {
			return err
		}
		stored++
	}

	fmt.Printf("Stored %d descriptors to s3://%s/%s\n", stored, dst.Bucket, dst.Prefix)

	return nil
}

func responseWithFailure(rec events.SQSMessage) events.SQSEventResponse {
	return events.SQSEventResponse{
		BatchItemFailures: []events.SQSBatchItemFailure{
			{
				ItemIdentifier: rec.MessageId,
			},
		},
	}
}

func handler(ctx context.Context, request events.SQSEvent) (events.SQSEventResponse, error) {
	err := collectData(ctx)

	if err != nil && len(request.Records) > 0 {
		rec := request.Records[0]
		return responseWithFailure(rec), fmt.Errorf("failed to collect data: %v", err)
	}

	return events.SQSEventResponse{}, nil
}

func main() {
	lambda.Start(handler)
}
