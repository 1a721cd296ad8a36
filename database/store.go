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

package database

import (
	"errors"
	"fmt"
	"math"

	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/blinklabs-io/gouroboros/cbor"
)

// getUint32 reads a big-endian counter, treating an absent key as zero
func getUint32(txn *Txn, key []byte) (uint32, error) {
	val, err := txn.DB().Blob().Get(txn.Blob(), key)
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return types.BytesToUint32(val)
}

func setUint32(txn *Txn, key []byte, val uint32) error {
	return txn.DB().Blob().Set(txn.Blob(), key, types.Uint32ToBytes(val))
}

// Store is the record store and identity allocator for one entity class.
// Records are stored as CBOR.
type Store[T any] struct {
	class string
}

func NewStore[T any](class string) Store[T] {
	return Store[T]{class: class}
}

// Class returns the key namespace of the store
func (s Store[T]) Class() string {
	return s.class
}

// NextID allocates the next identity. IDs start at 1 and are never reused.
// An exhausted counter fails with types.ErrCounterOverflow and is left as is.
func (s Store[T]) NextID(txn *Txn) (uint32, error) {
	key := types.CounterKey(s.class)
	current, err := getUint32(txn, key)
	if err != nil {
		return 0, fmt.Errorf("read %q counter: %w", s.class, err)
	}
	if current == math.MaxUint32 {
		return 0, types.ErrCounterOverflow
	}
	next := current + 1
	if err := setUint32(txn, key, next); err != nil {
		return 0, fmt.Errorf("write %q counter: %w", s.class, err)
	}
	return next, nil
}

// Count returns the number of identities allocated so far
func (s Store[T]) Count(txn *Txn) (uint32, error) {
	return getUint32(txn, types.CounterKey(s.class))
}

func (s Store[T]) Put(txn *Txn, id uint32, record *T) error {
	data, err := cbor.Encode(record)
	if err != nil {
		return fmt.Errorf("encode %q record %d: %w", s.class, id, err)
	}
	return txn.DB().Blob().Set(txn.Blob(), types.RecordKey(s.class, id), data)
}

// Get returns nil without error when no record has the given ID
func (s Store[T]) Get(txn *Txn, id uint32) (*T, error) {
	data, err := txn.DB().Blob().Get(txn.Blob(), types.RecordKey(s.class, id))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ret := new(T)
	if _, err := cbor.Decode(data, ret); err != nil {
		return nil, fmt.Errorf("decode %q record %d: %w", s.class, id, err)
	}
	return ret, nil
}

// GetMany dereferences ids in order. IDs without a record are skipped.
func (s Store[T]) GetMany(txn *Txn, ids []uint32) ([]T, error) {
	ret := make([]T, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(txn, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		ret = append(ret, *rec)
	}
	return ret, nil
}
