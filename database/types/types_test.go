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

package types_test

import (
	"bytes"
	"encoding/binary"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/bazaar/database/types"
)

func TestUint32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 255, 65536, ^uint32(0)} {
		got, err := types.BytesToUint32(types.Uint32ToBytes(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := types.BytesToUint32([]byte{1, 2})
	require.Error(t, err)
}

func TestKeyNamespacesDisjoint(t *testing.T) {
	keys := [][]byte{
		types.CounterKey(types.ClassContract),
		types.CounterKey(types.ClassReview),
		types.RecordKey(types.ClassContract, 1),
		types.RecordKey(types.ClassDeployment, 1),
		types.RecordKey(types.ClassReview, 1),
		types.IndexLenKey("all", nil),
		types.IndexEntryKey("all", nil, 0),
		types.GuardKey("reviewed", []byte("a")),
	}
	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[string(k)], "duplicate key %x", k)
		seen[string(k)] = true
	}
}

func TestIndexScopesDoNotCollide(t *testing.T) {
	// Without length prefixes these two would share a prefix
	a := types.IndexEntryPrefix("cat", []byte("x"))
	b := types.IndexEntryPrefix("ca", []byte("tx"))
	assert.False(t, bytes.HasPrefix(a, b))
	assert.False(t, bytes.HasPrefix(b, a))
	// A discriminator that extends another must not share its entries
	short := types.IndexEntryPrefix("author", []byte("GA"))
	long := types.IndexEntryKey("author", []byte("GAB"), 0)
	assert.False(t, bytes.HasPrefix(long, short))
}

func TestIndexEntryKeysSortByPosition(t *testing.T) {
	positions := []uint32{300, 2, 70000, 0, 1}
	keys := make([]string, 0, len(positions))
	for _, pos := range positions {
		keys = append(keys, string(types.IndexEntryKey("all", nil, pos)))
	}
	sort.Strings(keys)
	expected := []uint32{0, 1, 2, 300, 70000}
	prefix := types.IndexEntryPrefix("all", nil)
	for i, k := range keys {
		pos, err := types.BytesToUint32([]byte(k)[len(prefix):])
		require.NoError(t, err)
		assert.Equal(t, expected[i], pos)
	}
}

func TestGuardKeyParts(t *testing.T) {
	assert.NotEqual(
		t,
		types.GuardKey("upvoted", []byte("ab"), []byte("c")),
		types.GuardKey("upvoted", []byte("a"), []byte("bc")),
	)
	assert.Equal(
		t,
		types.GuardKey("upvoted", []byte("ab")),
		types.GuardKey("upvoted", []byte("ab")),
	)
}

func TestGuardKeyLongParts(t *testing.T) {
	long := bytes.Repeat([]byte("G"), 70000)
	key := types.GuardKey("upvoted", long)
	prefix := types.GuardKey("upvoted")
	require.Len(t, key, len(prefix)+4+len(long))
	// The length prefix must carry the full length, not a truncated one
	assert.Equal(t, uint32(len(long)), binary.BigEndian.Uint32(key[len(prefix):]))
	assert.NotEqual(
		t,
		types.GuardKey("upvoted", long[:70000-65536]),
		types.GuardKey("upvoted", long)[:len(prefix)+4+70000-65536],
	)
}
