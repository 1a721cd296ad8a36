// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/bazaar/database/plugin/blob/internal/objstore"
	"github.com/blinklabs-io/bazaar/database/types"
)

// BlobStoreS3 stores data in an AWS S3 bucket
type BlobStoreS3 struct {
	*objstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	client       *s3.Client
	location     objstore.Location
	region       string
	endpoint     string
	timeout      time.Duration
}

// New creates a new S3-backed blob store. dataDir must be "s3://bucket" or
// "s3://bucket/prefix".
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreS3, error) {
	loc, err := objstore.ParseLocation("s3", dataDir)
	if err != nil {
		return nil, err
	}
	db, err := NewWithOptions(
		WithBucket(loc.Bucket),
		WithPrefix(loc.Prefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
	if err != nil {
		return nil, err
	}
	if err := db.Start(); err != nil {
		return nil, err
	}
	return db, nil
}

// NewWithOptions creates a new S3-backed blob store using options. The
// client is created by Start.
func NewWithOptions(opts ...BlobStoreS3OptionFunc) (*BlobStoreS3, error) {
	db := &BlobStoreS3{}
	for _, opt := range opts {
		opt(db)
	}
	if db.endpoint != "" {
		u, err := url.Parse(db.endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("s3 blob: endpoint %q is not an absolute URL", db.endpoint)
		}
	}
	return db, nil
}

// Configure implements plugin.Configurable
func (d *BlobStoreS3) Configure(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) {
	if logger != nil {
		d.logger = logger
	}
	if promRegistry != nil {
		d.promRegistry = promRegistry
	}
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreS3) Start() error {
	if d.Store != nil {
		return nil
	}
	if d.location.Bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	timeout := d.timeout
	if timeout == 0 {
		timeout = objstore.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("s3 blob: load default AWS config: %w", err)
	}
	// Override region if specified
	if d.region != "" {
		awsCfg.Region = d.region
	}
	d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.endpoint != "" {
			o.BaseEndpoint = aws.String(d.endpoint)
			// S3-compatible servers such as minio expect path-style addressing
			o.UsePathStyle = true
		}
	})
	d.Store = objstore.New(
		&s3Backend{
			client: d.client,
			bucket: d.location.Bucket,
			prefix: d.location.KeyPrefix(),
		},
		d.logger,
		d.promRegistry,
		timeout,
	)
	d.logger.Info(
		"using S3 blob store",
		"component", "database",
		"bucket", d.location.Bucket,
		"prefix", d.location.KeyPrefix(),
	)
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreS3) Stop() error {
	return d.Close()
}

// Close implements the BlobStore interface. The S3 client holds no
// resources that need releasing.
func (d *BlobStoreS3) Close() error {
	return nil
}

// Client returns the S3 client
func (d *BlobStoreS3) Client() *s3.Client {
	return d.client
}

// Bucket returns the bucket name
func (d *BlobStoreS3) Bucket() string {
	return d.location.Bucket
}

type s3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

// Object keys are binary, so they are hex encoded to stay valid S3 key names
// while preserving their sort order
func (b *s3Backend) objectKey(key string) string {
	return b.prefix + encodeKey(key)
}

func (b *s3Backend) GetObject(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *s3Backend) PutObject(ctx context.Context, key string, value []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
		Body:   bytes.NewReader(value),
	})
	return err
}

func (b *s3Backend) DeleteObject(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil && isS3NotFound(err) {
		return types.ErrBlobKeyNotFound
	}
	return err
}

func (b *s3Backend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.objectKey(prefix)),
	})
	keys := make([]string, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key, err := decodeKey(strings.TrimPrefix(aws.ToString(obj.Key), b.prefix))
			if err != nil {
				// Not one of ours
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}
