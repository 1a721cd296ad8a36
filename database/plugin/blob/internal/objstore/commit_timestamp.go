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

package objstore

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/blinklabs-io/bazaar/database/sops"
	"github.com/blinklabs-io/bazaar/database/types"
)

const commitTimestampBlobKey = "metadata_commit_timestamp"

// GetCommitTimestamp returns 0 when no commit has happened yet. Values
// written before a KMS key was configured are read as plaintext.
func (s *Store) GetCommitTimestamp() (int64, error) {
	txn := s.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck

	stored, err := s.Get(txn, []byte(commitTimestampBlobKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	// Plaintext values are a big-endian integer of at most 8 bytes, which is
	// shorter than any SOPS document
	if len(stored) <= 8 {
		return new(big.Int).SetBytes(stored).Int64(), nil
	}
	plaintext, err := sops.Decrypt(stored)
	if err != nil {
		return 0, fmt.Errorf("decrypt commit timestamp: %w", err)
	}
	return new(big.Int).SetBytes(plaintext).Int64(), nil
}

// SetCommitTimestamp encrypts the value when a KMS key is configured
func (s *Store) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	raw := new(big.Int).SetInt64(timestamp).Bytes()
	keys := sops.KeysFromEnv()
	if !keys.Enabled() {
		return s.Set(txn, []byte(commitTimestampBlobKey), raw)
	}
	ciphertext, err := sops.Encrypt(raw, keys)
	if err != nil {
		return fmt.Errorf("encrypt commit timestamp: %w", err)
	}
	return s.Set(txn, []byte(commitTimestampBlobKey), ciphertext)
}
