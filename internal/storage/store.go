package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"benritz/cgbfutures/internal/types"
)

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx)
}

// StoreDescriptor writes bond as "<basePath>/<code>.json", creating basePath
// if needed. Grounded on teacher's collect.StoreToPath.
func StoreDescriptor(basePath string, bond *types.Bond) (string, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return "", err
	}

	outPath := filepath.Join(basePath, bond.Code()+".json")

	data, err := json.MarshalIndent(bond, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", err
	}

	return outPath, nil
}

// StoreDescriptorToS3 writes bond to "s3://<dst.Bucket>/<dst.Prefix>/<code>.json".
// Grounded on teacher's collect.StoreToS3.
func StoreDescriptorToS3(ctx context.Context, s3Client *s3.Client, dst *S3Path, bond *types.Bond) (string, error) {
	data, err := json.MarshalIndent(bond, "", "  ")
	if err != nil {
		return "", err
	}

	key := dst.Key(bond.Code() + ".json")

	input := &s3.PutObjectInput{
		Bucket: aws.String(dst.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}

	if _, err := s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload descriptor to s3://%s/%s: %w", dst.Bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", dst.Bucket, key), nil
}
