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

	"github.com/blinklabs-io/bazaar/database/types"
)

var guardMarker = []byte{0x01}

// Guard records that an action was performed for a combination of parts.
// Marks are permanent.
type Guard struct {
	action string
}

func NewGuard(action string) Guard {
	return Guard{action: action}
}

func (g Guard) Check(txn *Txn, parts ...[]byte) (bool, error) {
	_, err := txn.DB().Blob().Get(txn.Blob(), types.GuardKey(g.action, parts...))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g Guard) Mark(txn *Txn, parts ...[]byte) error {
	return txn.DB().Blob().Set(txn.Blob(), types.GuardKey(g.action, parts...), guardMarker)
}
