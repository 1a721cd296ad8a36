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

// Package objstore adapts an object storage bucket to the blob store
// interface. Writes are staged in the transaction and flushed on commit, so
// a rolled back transaction leaves the bucket untouched. Flushes are not
// atomic across keys.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultTimeout = 60 * time.Second

	metricNamePrefix = "database_blob_"
)

// Backend is the minimal set of bucket operations. GetObject must return an
// error wrapping types.ErrBlobKeyNotFound for missing objects.
type Backend interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, value []byte) error
	DeleteObject(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// Store implements the blob store operations on top of a Backend
type Store struct {
	backend    Backend
	logger     *slog.Logger
	timeout    time.Duration
	opsTotal   prometheus.Counter
	bytesTotal prometheus.Counter
	// commitMutex serializes flushes so concurrent commits cannot interleave
	commitMutex sync.Mutex
}

// New returns a Store. A nil logger discards output and a nil registry
// disables metrics.
func New(
	backend Backend,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	timeout time.Duration,
) *Store {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	s := &Store{
		backend: backend,
		logger:  logger,
		timeout: timeout,
	}
	if promRegistry != nil {
		s.opsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricNamePrefix + "ops_total",
				Help: "Total number of object store blob operations",
			},
		)
		s.bytesTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricNamePrefix + "bytes_total",
				Help: "Total bytes read/written for object store blob operations",
			},
		)
		promRegistry.MustRegister(s.opsTotal, s.bytesTotal)
	}
	return s
}

func (s *Store) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) observe(n int) {
	if s.opsTotal == nil {
		return
	}
	s.opsTotal.Inc()
	s.bytesTotal.Add(float64(n))
}

type stagedWrite struct {
	value   []byte
	deleted bool
}

// objTxn buffers writes until Commit
type objTxn struct {
	store     *Store
	writes    map[string]stagedWrite
	finished  bool
	readWrite bool
}

func (s *Store) NewTransaction(readWrite bool) types.Txn {
	return &objTxn{
		store:     s,
		readWrite: readWrite,
		writes:    make(map[string]stagedWrite),
	}
}

func (t *objTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if !t.readWrite || len(t.writes) == 0 {
		return nil
	}
	s := t.store
	s.commitMutex.Lock()
	defer s.commitMutex.Unlock()
	keys := make([]string, 0, len(t.writes))
	for k := range t.writes {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	ctx, cancel := s.opContext()
	defer cancel()
	for _, k := range keys {
		w := t.writes[k]
		if w.deleted {
			if err := s.backend.DeleteObject(ctx, k); err != nil &&
				!errors.Is(err, types.ErrBlobKeyNotFound) {
				return fmt.Errorf("flush delete %q: %w", k, err)
			}
			s.observe(0)
			continue
		}
		if err := s.backend.PutObject(ctx, k, w.value); err != nil {
			return fmt.Errorf("flush put %q: %w", k, err)
		}
		s.observe(len(w.value))
	}
	s.logger.Debug(
		fmt.Sprintf("object store: flushed %d keys", len(keys)),
		"component", "database",
	)
	return nil
}

func (t *objTxn) Rollback() error {
	t.finished = true
	t.writes = nil
	return nil
}

func (s *Store) validateTxn(txn types.Txn) (*objTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	t, ok := txn.(*objTxn)
	if !ok || t.store != s {
		return nil, types.ErrTxnWrongType
	}
	if t.finished {
		return nil, types.ErrTxnFinished
	}
	return t, nil
}

// Get returns staged writes of txn before consulting the bucket
func (s *Store) Get(txn types.Txn, key []byte) ([]byte, error) {
	t, err := s.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	if w, ok := t.writes[string(key)]; ok {
		if w.deleted {
			return nil, types.ErrBlobKeyNotFound
		}
		return slices.Clone(w.value), nil
	}
	ctx, cancel := s.opContext()
	defer cancel()
	data, err := s.backend.GetObject(ctx, string(key))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, types.ErrBlobKeyNotFound
		}
		s.logger.Error(
			fmt.Sprintf("object store: get %q failed: %s", key, err),
			"component", "database",
		)
		return nil, err
	}
	s.observe(len(data))
	return data, nil
}

func (s *Store) Set(txn types.Txn, key, val []byte) error {
	t, err := s.validateTxn(txn)
	if err != nil {
		return err
	}
	if !t.readWrite {
		return types.ErrTxnReadOnly
	}
	t.writes[string(key)] = stagedWrite{value: slices.Clone(val)}
	return nil
}

func (s *Store) Delete(txn types.Txn, key []byte) error {
	t, err := s.validateTxn(txn)
	if err != nil {
		return err
	}
	if !t.readWrite {
		return types.ErrTxnReadOnly
	}
	t.writes[string(key)] = stagedWrite{deleted: true}
	return nil
}

// NewIterator lists the bucket once and merges the staged writes of txn.
// Items must only be accessed while the transaction is still active.
func (s *Store) NewIterator(
	txn types.Txn,
	opts types.BlobIteratorOptions,
) types.BlobIterator {
	t, err := s.validateTxn(txn)
	if err != nil {
		return &iterator{err: err}
	}
	ctx, cancel := s.opContext()
	defer cancel()
	listed, err := s.backend.ListKeys(ctx, string(opts.Prefix))
	if err != nil {
		s.logger.Error(
			fmt.Sprintf("object store: list failed: %s", err),
			"component", "database",
		)
		return &iterator{err: err}
	}
	keySet := make(map[string]struct{}, len(listed))
	for _, k := range listed {
		keySet[k] = struct{}{}
	}
	for k, w := range t.writes {
		if !strings.HasPrefix(k, string(opts.Prefix)) {
			continue
		}
		if w.deleted {
			delete(keySet, k)
		} else {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	if opts.Reverse {
		slices.Reverse(keys)
	}
	return &iterator{store: s, txn: txn, keys: keys, reverse: opts.Reverse}
}

type iterator struct {
	store   *Store
	txn     types.Txn
	err     error
	keys    []string
	idx     int
	reverse bool
}

func (it *iterator) Rewind() { it.idx = 0 }

// Seek moves to the first key at or after prefix in iteration order
func (it *iterator) Seek(prefix []byte) {
	p := string(prefix)
	for i, k := range it.keys {
		if (!it.reverse && k >= p) || (it.reverse && k <= p) {
			it.idx = i
			return
		}
	}
	it.idx = len(it.keys)
}

func (it *iterator) Valid() bool { return it.err == nil && it.idx < len(it.keys) }

func (it *iterator) ValidForPrefix(prefix []byte) bool {
	return it.Valid() && strings.HasPrefix(it.keys[it.idx], string(prefix))
}

func (it *iterator) Next() {
	if it.idx < len(it.keys) {
		it.idx++
	}
}

func (it *iterator) Item() types.BlobItem {
	if !it.Valid() {
		return nil
	}
	return &item{store: it.store, txn: it.txn, key: it.keys[it.idx]}
}

func (it *iterator) Close()     {}
func (it *iterator) Err() error { return it.err }

type item struct {
	store *Store
	txn   types.Txn
	key   string
}

func (i *item) Key() []byte { return []byte(i.key) }

func (i *item) ValueCopy(dst []byte) ([]byte, error) {
	data, err := i.store.Get(i.txn, []byte(i.key))
	if err != nil {
		return nil, err
	}
	return append(dst[:0], data...), nil
}
