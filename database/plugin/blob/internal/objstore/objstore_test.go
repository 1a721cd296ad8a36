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

package objstore_test

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/bazaar/database/plugin/blob/internal/objstore"
	"github.com/blinklabs-io/bazaar/database/sops"
	"github.com/blinklabs-io/bazaar/database/types"
)

type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newMemBackend() *memBackend {
	return &memBackend{objects: make(map[string][]byte)}
}

func (m *memBackend) GetObject(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.objects[key]
	if !ok {
		return nil, types.ErrBlobKeyNotFound
	}
	return slices.Clone(v), nil
}

func (m *memBackend) PutObject(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = slices.Clone(value)
	m.puts++
	return nil
}

func (m *memBackend) DeleteObject(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBackend) ListKeys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ret []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			ret = append(ret, k)
		}
	}
	return ret, nil
}

func TestWritesAreStagedUntilCommit(t *testing.T) {
	backend := newMemBackend()
	store := objstore.New(backend, nil, nil, 0)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("a"), []byte("1")))
	val, err := store.Get(txn, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)
	assert.Equal(t, 0, backend.puts)

	other := store.NewTransaction(false)
	_, err = store.Get(other, []byte("a"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, other.Rollback())

	require.NoError(t, txn.Commit())
	assert.Equal(t, 1, backend.puts)
	require.ErrorIs(t, store.Set(txn, []byte("b"), nil), types.ErrTxnFinished)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	backend := newMemBackend()
	store := objstore.New(backend, nil, nil, 0)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("a"), []byte("1")))
	require.NoError(t, txn.Rollback())
	assert.Empty(t, backend.objects)
}

func TestReadOnlyTxn(t *testing.T) {
	store := objstore.New(newMemBackend(), nil, nil, 0)
	txn := store.NewTransaction(false)
	require.ErrorIs(t, store.Set(txn, []byte("a"), nil), types.ErrTxnReadOnly)
	require.ErrorIs(t, store.Delete(txn, []byte("a")), types.ErrTxnReadOnly)
}

func TestIteratorMergesStagedWrites(t *testing.T) {
	backend := newMemBackend()
	backend.objects["p1"] = []byte("x")
	backend.objects["p3"] = []byte("x")
	backend.objects["q1"] = []byte("x")
	store := objstore.New(backend, nil, prometheus.NewRegistry(), 0)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("p2"), []byte("y")))
	require.NoError(t, store.Delete(txn, []byte("p3")))

	iter := store.NewIterator(txn, types.BlobIteratorOptions{Prefix: []byte("p")})
	var keys []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Item().Key()))
	}
	require.NoError(t, iter.Err())
	assert.Equal(t, []string{"p1", "p2"}, keys)

	rev := store.NewIterator(txn, types.BlobIteratorOptions{Prefix: []byte("p"), Reverse: true})
	rev.Rewind()
	require.True(t, rev.Valid())
	assert.Equal(t, "p2", string(rev.Item().Key()))
	val, err := rev.Item().ValueCopy(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), val)
}

func TestCommitTimestampPlaintext(t *testing.T) {
	t.Setenv(sops.EnvGCPResourceIDs, "")
	t.Setenv(sops.EnvAWSKeyARNs, "")
	store := objstore.New(newMemBackend(), nil, nil, 0)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(1700000000000, txn))
	require.NoError(t, txn.Commit())
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)
}
