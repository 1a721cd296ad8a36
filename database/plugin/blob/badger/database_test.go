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

package badger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/bazaar/database/plugin/blob/badger"
	"github.com/blinklabs-io/bazaar/database/types"
)

func TestOptionsApply(t *testing.T) {
	db := badger.NewWithOptions(
		badger.WithDataDir("/tmp/x"),
		badger.WithBlockCacheSize(1),
		badger.WithIndexCacheSize(2),
		badger.WithGc(false),
	)
	assert.Equal(t, "/tmp/x", db.DataDir)
	assert.Equal(t, uint64(1), db.BlockCacheSize)
	assert.Equal(t, uint64(2), db.IndexCacheSize)
	assert.False(t, db.GcEnabled)
}

func TestDefaults(t *testing.T) {
	db := badger.NewWithOptions()
	assert.Equal(t, uint64(64<<20), db.BlockCacheSize)
	assert.Equal(t, uint64(16<<20), db.IndexCacheSize)
	p, ok := badger.NewFromCmdlineOptions().(*badger.BlobStoreBadger)
	require.True(t, ok)
	assert.Equal(t, badger.DefaultDataDir, p.DataDir)
	assert.True(t, p.GcEnabled)
}

func TestInMemoryReadWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"))
	db, err := badger.New()
	require.NoError(t, err)
	defer db.Close()

	txn := db.NewTransaction(true)
	require.NoError(t, db.Set(txn, []byte("k1"), []byte("v1")))
	require.NoError(t, db.Set(txn, []byte("k2"), []byte("v2")))
	require.NoError(t, txn.Commit())

	rtxn := db.NewTransaction(false)
	defer rtxn.Rollback() //nolint:errcheck
	val, err := db.Get(rtxn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	_, err = db.Get(rtxn, []byte("missing"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.ErrorIs(t, db.Set(rtxn, []byte("k3"), nil), types.ErrTxnReadOnly)

	iter := db.NewIterator(rtxn, types.BlobIteratorOptions{Prefix: []byte("k")})
	var keys []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Item().Key()))
	}
	iter.Close()
	assert.Equal(t, []string{"k1", "k2"}, keys)
}

func TestFinishedTxn(t *testing.T) {
	db, err := badger.New()
	require.NoError(t, err)
	defer db.Close()
	txn := db.NewTransaction(true)
	require.NoError(t, txn.Commit())
	require.ErrorIs(t, db.Set(txn, []byte("a"), []byte("b")), types.ErrTxnFinished)
	require.ErrorIs(t, db.Set(nil, []byte("a"), []byte("b")), types.ErrNilTxn)
}

func TestConflictIsMapped(t *testing.T) {
	db, err := badger.New()
	require.NoError(t, err)
	defer db.Close()
	t1 := db.NewTransaction(true)
	t2 := db.NewTransaction(true)
	_, err = db.Get(t1, []byte("ctr"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	_, err = db.Get(t2, []byte("ctr"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, db.Set(t1, []byte("ctr"), []byte{1}))
	require.NoError(t, db.Set(t2, []byte("ctr"), []byte{1}))
	require.NoError(t, t1.Commit())
	require.ErrorIs(t, t2.Commit(), types.ErrTxnConflict)
}

func TestCommitTimestamp(t *testing.T) {
	db, err := badger.New()
	require.NoError(t, err)
	defer db.Close()
	ts, err := db.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)
	txn := db.NewTransaction(true)
	require.NoError(t, db.SetCommitTimestamp(12345, txn))
	require.NoError(t, txn.Commit())
	ts, err = db.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(12345), ts)
}
