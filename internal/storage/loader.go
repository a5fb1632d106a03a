// Package storage loads and persists bond descriptor records. Bond
// descriptor storage is an external collaborator per spec.md section 1 (out
// of core scope); this package is the concrete interface the core's
// internal/cache.Loader consumes, grounded on the teacher's
// collect.StoreToPath/StoreToS3/ParseS3 idiom.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"benritz/cgbfutures/internal/cache"
	"benritz/cgbfutures/internal/types"
)

// DefaultBondsInfoPath is the compiled-in fallback directory consulted when
// the BONDS_INFO_PATH environment variable is unset.
const DefaultBondsInfoPath = "/etc/cgbfutures/bonds"

// EnvBondsInfoPath is the environment variable naming the descriptor store
// (a local directory or an "s3://bucket/prefix" path).
const EnvBondsInfoPath = "BONDS_INFO_PATH"

// BondsInfoPath returns the configured descriptor store location, falling
// back to DefaultBondsInfoPath.
func BondsInfoPath() string {
	if p := os.Getenv(EnvBondsInfoPath); p != "" {
		return p
	}
	return DefaultBondsInfoPath
}

// S3Path is a parsed "s3://bucket/prefix" location.
type S3Path struct {
	Bucket string
	Prefix string
}

// ParseS3 parses path as an "s3://bucket[/prefix]" location. Grounded on
// teacher's collect.ParseS3.
func ParseS3(path string) (*S3Path, error) {
	if !strings.HasPrefix(path, "s3://") {
		return nil, fmt.Errorf("path must start with s3://")
	}

	rest := strings.TrimPrefix(path, "s3://")
	parts := strings.SplitN(rest, "/", 2)

	bucket := parts[0]
	var prefix string
	if len(parts) > 1 {
		prefix = strings.TrimSuffix(parts[1], "/")
	}

	return &S3Path{Bucket: bucket, Prefix: prefix}, nil
}

// Key joins name onto the path's prefix, exported so other packages
// writing their own S3 objects under the same path (e.g. internal/batch's
// parquet sink) use the same layout convention.
func (p *S3Path) Key(name string) string {
	if p.Prefix == "" {
		return name
	}
	return fmt.Sprintf("%s/%s", p.Prefix, name)
}

// FileLoader reads "<BasePath>/<code>.json" descriptor records from the
// local filesystem.
type FileLoader struct {
	BasePath string
}

func NewFileLoader(basePath string) *FileLoader {
	return &FileLoader{BasePath: basePath}
}

func (l *FileLoader) Load(ctx context.Context, code string) (*types.Bond, error) {
	path := filepath.Join(l.BasePath, code+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrDescriptorMissing, code)
		}
		return nil, err
	}

	return decodeDescriptor(data)
}

// S3Loader reads "<Prefix>/<code>.json" descriptor records from S3.
// Grounded on teacher's collect.StoreToS3 key-construction idiom, GET
// instead of PUT.
type S3Loader struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

func NewS3Loader(client *s3.Client, dst *S3Path) *S3Loader {
	return &S3Loader{Client: client, Bucket: dst.Bucket, Prefix: dst.Prefix}
}

func (l *S3Loader) Load(ctx context.Context, code string) (*types.Bond, error) {
	key := (&S3Path{Prefix: l.Prefix}).Key(code + ".json")

	out, err := l.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: s3://%s/%s: %v", types.ErrDescriptorMissing, l.Bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}

	return decodeDescriptor(data)
}

func decodeDescriptor(data []byte) (*types.Bond, error) {
	var bond types.Bond
	if err := json.Unmarshal(data, &bond); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedDescriptor, err)
	}
	return &bond, nil
}

// NewLoader dispatches on an "s3://" prefix, exactly like teacher's
// collect.ParseS3 is used in cmd/collect-data.
func NewLoader(ctx context.Context, path string) (cache.Loader, error) {
	if s3Path, err := ParseS3(path); err == nil {
		cfg, err := loadAWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return NewS3Loader(s3.NewFromConfig(cfg), s3Path), nil
	}
	return NewFileLoader(path), nil
}
