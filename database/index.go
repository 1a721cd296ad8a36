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
	"fmt"
	"math"

	"github.com/blinklabs-io/bazaar/database/types"
)

// Index is an append-only list of IDs per discriminator. Entries are keyed by
// position so that a prefix scan returns them in insertion order.
type Index struct {
	name string
}

func NewIndex(name string) Index {
	return Index{name: name}
}

// Len returns the number of entries under disc
func (i Index) Len(txn *Txn, disc []byte) (uint32, error) {
	return getUint32(txn, types.IndexLenKey(i.name, disc))
}

func (i Index) Append(txn *Txn, disc []byte, id uint32) error {
	pos, err := i.Len(txn, disc)
	if err != nil {
		return fmt.Errorf("read index %q length: %w", i.name, err)
	}
	if pos == math.MaxUint32 {
		return types.ErrCounterOverflow
	}
	blob := txn.DB().Blob()
	if err := blob.Set(txn.Blob(), types.IndexEntryKey(i.name, disc, pos), types.Uint32ToBytes(id)); err != nil {
		return fmt.Errorf("write index %q entry: %w", i.name, err)
	}
	return setUint32(txn, types.IndexLenKey(i.name, disc), pos+1)
}

// List returns the IDs under disc in insertion order. An unknown
// discriminator yields an empty list.
func (i Index) List(txn *Txn, disc []byte) ([]uint32, error) {
	prefix := types.IndexEntryPrefix(i.name, disc)
	iter := txn.DB().Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	ret := []uint32{}
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		id, err := types.BytesToUint32(val)
		if err != nil {
			return nil, fmt.Errorf("index %q: %w", i.name, err)
		}
		ret = append(ret, id)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
