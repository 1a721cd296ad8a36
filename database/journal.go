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

	"github.com/blinklabs-io/bazaar/database/models"
)

// Journal appends a notification to the metadata store as part of the
// transaction
func (t *Txn) Journal(n *models.Notification) error {
	if t.metadataTxn == nil {
		return errors.New("journal requires a read-write transaction")
	}
	return t.db.Metadata().AddNotification(n, t.metadataTxn)
}
