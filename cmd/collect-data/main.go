package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/pbnjay/grate/xls"

	"benritz/cgbfutures/internal/collect"
	"benritz/cgbfutures/internal/storage"
	"benritz/cgbfutures/internal/types"
)

func getAWSConfig(ctx context.Context, profile string) (aws.Config, error) {
	if profile == "default" {
		return config.LoadDefaultConfig(ctx)
	}
	return config.LoadDefaultConfig(ctx, config.WithSharedConfigProfile(profile))
}

func storeBonds(ctx context.Context, bonds []*types.Bond, profile, dst string) (int, error) {
	if s3Path, err := storage.ParseS3(dst); err == nil {
		cfg, err := getAWSConfig(ctx, profile)
		if err != nil {
			return 0, fmt.Errorf("failed to load AWS config: %v", err)
		}
		s3Client := s3.NewFromConfig(cfg)

		stored := 0
		for _, b := range bonds {
			if _, err := storage.StoreDescriptorToS3(ctx, s3Client, s3Path, b); err != nil {
				return stored, err
			}
			stored++
		}
		return stored, nil
	}

	stored := 0
	for _, b := range bonds {
		if _, err := storage.StoreDescriptor(dst, b); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

func main() {
	ctx := context.Background()

	profile := flag.String("profile", "default", "the AWS profile to use")
	source := flag.String("source", "cffex", "data source: cffex or chinamoney")
	helpFlag := flag.Bool("help", false, "print this help message")
	flag.Parse()
	args := flag.Args()

	if len(args) != 1 || *helpFlag {
		fmt.Printf("Usage: %s <flags> <destination>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(1)
	}

	dst := args[0]

	var collector collect.Collector
	switch *source {
	case "cffex":
		collector = collect.NewCFFEXCollector()
	case "chinamoney":
		collector = collect.NewChinaMoneyCollector()
	default:
		fmt.Printf("Error: unknown source %q\n", *source)
		os.Exit(1)
	}

	collected, err := collector.Collect(ctx, time.Now())
	if err != nil {
		switch err {
		case types.ErrDescriptorMissing:
			fmt.Printf("Data unavailable\n")
		default:
			fmt.Printf("Failed to collect data: %v\n", err)
		}
		os.Exit(1)
	}

	stored, err := storeBonds(ctx, collected.Bonds, *profile, dst)
	if err != nil {
		fmt.Printf("Failed to store data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Stored %d descriptors to %s (%d rows failed to parse)\n", stored, dst, len(collected.Failures))
}
