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

package gcs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/blinklabs-io/bazaar/database/plugin/blob/internal/objstore"
	"github.com/blinklabs-io/bazaar/database/types"
)

// BlobStoreGCS stores data in a Google Cloud Storage bucket
type BlobStoreGCS struct {
	*objstore.Store
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	client          *storage.Client
	bucket          *storage.BucketHandle
	location        objstore.Location
	credentialsFile string
	timeout         time.Duration
}

// New creates and starts a GCS-backed blob store. dataDir must be
// "gcs://bucket" or "gcs://bucket/prefix".
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreGCS, error) {
	loc, err := objstore.ParseLocation("gcs", dataDir)
	if err != nil {
		return nil, err
	}
	db := NewWithOptions(
		WithBucket(loc.Bucket),
		WithPrefix(loc.Prefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
	if err := db.Start(); err != nil {
		return nil, err
	}
	return db, nil
}

// NewWithOptions creates a GCS-backed blob store without connecting
func NewWithOptions(opts ...BlobStoreGCSOptionFunc) *BlobStoreGCS {
	db := &BlobStoreGCS{}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// ValidateCredentials checks that a configured credentials file exists
func ValidateCredentials(credentialsFile string) error {
	if credentialsFile == "" {
		return nil
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf(
				"GCS credentials file does not exist: %s",
				credentialsFile,
			)
		}
		return fmt.Errorf("GCS credentials file is not readable: %w", err)
	}
	return nil
}

// Configure implements plugin.Configurable
func (d *BlobStoreGCS) Configure(
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
func (d *BlobStoreGCS) Start() error {
	if d.client != nil {
		return nil
	}
	if d.location.Bucket == "" {
		return errors.New("gcs blob: bucket not set")
	}
	if err := ValidateCredentials(d.credentialsFile); err != nil {
		return err
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	clientOpts := []option.ClientOption{storage.WithDisabledClientMetrics()}
	if d.credentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(d.credentialsFile),
		)
	}
	client, err := storage.NewGRPCClient(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf(
			"gcs blob: failed in creating storage client: %w",
			err,
		)
	}
	d.client = client
	d.bucket = client.Bucket(d.location.Bucket)
	d.Store = objstore.New(
		&gcsBackend{bucket: d.bucket, prefix: d.location.KeyPrefix()},
		d.logger,
		d.promRegistry,
		d.timeout,
	)
	d.logger.Info(
		"using GCS blob store",
		"component", "database",
		"bucket", d.location.Bucket,
		"prefix", d.location.KeyPrefix(),
	)
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreGCS) Stop() error {
	return d.Close()
}

// Close closes the GCS client
func (d *BlobStoreGCS) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

// Client returns the GCS client
func (d *BlobStoreGCS) Client() *storage.Client {
	return d.client
}

// Bucket returns the bucket handle
func (d *BlobStoreGCS) Bucket() *storage.BucketHandle {
	return d.bucket
}

type gcsBackend struct {
	bucket *storage.BucketHandle
	prefix string
}

// Keys are hex encoded so binary keys are valid object names and keep their order
func (b *gcsBackend) objectName(key string) string {
	return b.prefix + hex.EncodeToString([]byte(key))
}

func (b *gcsBackend) GetObject(ctx context.Context, key string) ([]byte, error) {
	r, err := b.bucket.Object(b.objectName(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (b *gcsBackend) PutObject(ctx context.Context, key string, value []byte) error {
	w := b.bucket.Object(b.objectName(key)).NewWriter(ctx)
	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *gcsBackend) DeleteObject(ctx context.Context, key string) error {
	err := b.bucket.Object(b.objectName(key)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return types.ErrBlobKeyNotFound
	}
	return err
}

func (b *gcsBackend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: b.objectName(prefix)})
	keys := make([]string, 0)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(attrs.Name, b.prefix))
		if err != nil {
			// Not one of ours
			continue
		}
		keys = append(keys, string(raw))
	}
	return keys, nil
}
