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

package database_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/types"
)

func newTestDB(t testing.TB) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNextIDMonotonic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		db, err := database.New(&database.Config{})
		if err != nil {
			rt.Fatalf("open: %v", err)
		}
		defer db.Close()
		store := database.NewStore[models.Review](types.ClassReview)
		n := rapid.IntRange(1, 30).Draw(rt, "n")
		var last uint32
		for range n {
			var id uint32
			err := db.Transaction(true).Do(func(txn *database.Txn) error {
				var err error
				id, err = store.NextID(txn)
				return err
			})
			if err != nil {
				rt.Fatalf("NextID: %v", err)
			}
			if id != last+1 {
				rt.Fatalf("expected %d, got %d", last+1, id)
			}
			last = id
		}
		txn := db.Transaction(false)
		defer txn.Release()
		count, err := store.Count(txn)
		if err != nil || count != last {
			rt.Fatalf("count %d (err %v), expected %d", count, err, last)
		}
	})
}

func TestRollbackDoesNotBurnIDs(t *testing.T) {
	db := newTestDB(t)
	store := database.NewStore[models.ContractRecord](types.ClassContract)
	failure := errors.New("validation failed")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if _, err := store.NextID(txn); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)
	var id uint32
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		id, err = store.NextID(txn)
		return err
	}))
	assert.Equal(t, uint32(1), id)
}

func TestNextIDOverflow(t *testing.T) {
	db := newTestDB(t)
	store := database.NewStore[models.Review](types.ClassReview)
	key := types.CounterKey(types.ClassReview)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.Blob().Set(txn.Blob(), key, types.Uint32ToBytes(math.MaxUint32))
	}))
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		_, err := store.NextID(txn)
		return err
	})
	require.ErrorIs(t, err, types.ErrCounterOverflow)
	txn := db.Transaction(false)
	defer txn.Release()
	count, err := store.Count(txn)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), count)
}

func TestStorePutGet(t *testing.T) {
	db := newTestDB(t)
	store := database.NewStore[models.Review](types.ClassReview)
	rec := &models.Review{ID: 1, ContractID: 9, Reviewer: "GA", Rating: 4, Comment: "ok", CreatedAt: 10}
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return store.Put(txn, rec.ID, rec)
	}))
	txn := db.Transaction(false)
	defer txn.Release()
	got, err := store.Get(txn, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Comment, got.Comment)
	assert.Equal(t, rec.Rating, got.Rating)
	missing, err := store.Get(txn, 2)
	require.NoError(t, err)
	assert.Nil(t, missing)
	// Records of another class never collide
	other, err := database.NewStore[models.DeploymentRecord](types.ClassDeployment).Get(txn, 1)
	require.NoError(t, err)
	assert.Nil(t, other)
	many, err := store.GetMany(txn, []uint32{2, 1})
	require.NoError(t, err)
	require.Len(t, many, 1)
	assert.Equal(t, uint32(1), many[0].ID)
}

func TestIndexOrderAndIsolation(t *testing.T) {
	db := newTestDB(t)
	idx := database.NewIndex("author")
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		for _, id := range []uint32{5, 3, 300, 1} {
			if err := idx.Append(txn, []byte("GA"), id); err != nil {
				return err
			}
		}
		// Reads inside the transaction see earlier appends
		ids, err := idx.List(txn, []byte("GA"))
		if err != nil {
			return err
		}
		assert.Equal(t, []uint32{5, 3, 300, 1}, ids)
		return idx.Append(txn, []byte("GAB"), 7)
	}))
	txn := db.Transaction(false)
	defer txn.Release()
	ids, err := idx.List(txn, []byte("GA"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 3, 300, 1}, ids)
	n, err := idx.Len(txn, []byte("GA"))
	require.NoError(t, err)
	assert.Equal(t, uint32(4), n)
	ids, err = idx.List(txn, []byte("nobody"))
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
	ids, err = database.NewIndex("deployer").List(txn, []byte("GA"))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGuard(t *testing.T) {
	db := newTestDB(t)
	guard := database.NewGuard("upvoted")
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		marked, err := guard.Check(txn, types.Uint32ToBytes(1), []byte("GA"))
		require.NoError(t, err)
		assert.False(t, marked)
		return guard.Mark(txn, types.Uint32ToBytes(1), []byte("GA"))
	}))
	txn := db.Transaction(false)
	defer txn.Release()
	marked, err := guard.Check(txn, types.Uint32ToBytes(1), []byte("GA"))
	require.NoError(t, err)
	assert.True(t, marked)
	marked, err = guard.Check(txn, types.Uint32ToBytes(2), []byte("GA"))
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestOnCommitHooks(t *testing.T) {
	db := newTestDB(t)
	var fired []string
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		txn.OnCommit(func() { fired = append(fired, "a") })
		txn.OnCommit(func() { fired = append(fired, "b") })
		return nil
	}))
	assert.Equal(t, []string{"a", "b"}, fired)

	fired = nil
	_ = db.Transaction(true).Do(func(txn *database.Txn) error {
		txn.OnCommit(func() { fired = append(fired, "c") })
		return errors.New("abort")
	})
	assert.Empty(t, fired)
}

func TestJournal(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return txn.Journal(&models.Notification{
			EventID:   uuid.NewString(),
			Type:      "registry.published",
			EntityID:  1,
			Payload:   `{"contractId":1}`,
			Timestamp: time.Now(),
		})
	}))
	_ = db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := txn.Journal(&models.Notification{
			EventID:   uuid.NewString(),
			Type:      "registry.published",
			EntityID:  2,
			Timestamp: time.Now(),
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	got, err := db.Notifications(models.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(1), got[0].EntityID)

	ro := db.Transaction(false)
	defer ro.Release()
	require.Error(t, ro.Journal(&models.Notification{}))
}

func TestCommitTimestampRecovery(t *testing.T) {
	dataDir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		_, err := database.NewStore[models.Review](types.ClassReview).NextID(txn)
		return err
	}))
	// Advance the blob side only
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(time.Now().UnixMilli()+1000, blobTxn))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dataDir})
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	require.NotNil(t, db)
	require.NoError(t, db.RecoverCommitTimestamp())
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestUnknownPlugin(t *testing.T) {
	_, err := database.New(&database.Config{BlobPlugin: "nope"})
	require.Error(t, err)
}
