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

package types

import (
	"encoding/binary"
	"errors"
	"slices"
)

// Key prefixes. Every persisted key starts with exactly one of these, so the
// namespaces never overlap.
const (
	CounterKeyPrefix    = "n"
	RecordKeyPrefix     = "e"
	IndexLenKeyPrefix   = "l"
	IndexEntryKeyPrefix = "x"
	GuardKeyPrefix      = "g"
)

// Entity classes
const (
	ClassContract   = "c"
	ClassDeployment = "d"
	ClassReview     = "r"
)

// Index names. The global "all" index uses the entity class as its
// discriminator.
const (
	IndexAll                 = "all"
	IndexCategory            = "cat"
	IndexAuthor              = "author"
	IndexDeployer            = "deployer"
	IndexContractDeployments = "ctdep"
	IndexContractReviews     = "ctrev"
	IndexReviewer            = "reviewer"
)

// Guard actions
const (
	GuardReviewed = "reviewed"
	GuardUpvoted  = "upvoted"
	GuardDeployed = "deployed"
)

func Uint32ToBytes(input uint32) []byte {
	ret := make([]byte, 4)
	binary.BigEndian.PutUint32(ret, input)
	return ret
}

func BytesToUint32(input []byte) (uint32, error) {
	if len(input) != 4 {
		return 0, errors.New("invalid uint32 encoding")
	}
	return binary.BigEndian.Uint32(input), nil
}

// appendPart appends a length-prefixed component so that composite keys built
// from variable-length parts cannot collide
func appendPart(key []byte, part []byte) []byte {
	key = binary.BigEndian.AppendUint32(key, uint32(len(part))) //nolint:gosec // parts are far below 4GiB
	return append(key, part...)
}

// CounterKey returns the key holding the last allocated ID for a class
func CounterKey(class string) []byte {
	return []byte(CounterKeyPrefix + class)
}

// RecordKeyClassPrefix returns the prefix shared by every record of a class
func RecordKeyClassPrefix(class string) []byte {
	return []byte(RecordKeyPrefix + class)
}

func RecordKey(class string, id uint32) []byte {
	return slices.Concat(RecordKeyClassPrefix(class), Uint32ToBytes(id))
}

func indexScope(name string, disc []byte) []byte {
	scope := appendPart(nil, []byte(name))
	return appendPart(scope, disc)
}

// IndexLenKey returns the key holding the number of entries in an index list
func IndexLenKey(name string, disc []byte) []byte {
	return slices.Concat([]byte(IndexLenKeyPrefix), indexScope(name, disc))
}

// IndexEntryPrefix returns the prefix shared by every entry of one index list
func IndexEntryPrefix(name string, disc []byte) []byte {
	return slices.Concat([]byte(IndexEntryKeyPrefix), indexScope(name, disc))
}

// IndexEntryKey returns the key for the entry at the given position. Positions
// are big-endian so prefix iteration yields insertion order.
func IndexEntryKey(name string, disc []byte, pos uint32) []byte {
	return slices.Concat(IndexEntryPrefix(name, disc), Uint32ToBytes(pos))
}

func GuardKey(action string, parts ...[]byte) []byte {
	key := appendPart([]byte(GuardKeyPrefix), []byte(action))
	for _, part := range parts {
		key = appendPart(key, part)
	}
	return key
}
