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

// Package notify journals subsystem events and hands them to the event bus
// once the owning transaction commits.
package notify

import (
	"fmt"

	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/event"
)

// Emit records an event of type evtType in txn's journal and schedules its
// publication on bus for after a successful commit. A nil bus only journals.
func Emit(
	txn *database.Txn,
	bus *event.EventBus,
	evtType event.EventType,
	data any,
) error {
	evt := event.NewEvent(evtType, data)
	n, err := event.ToNotification(evt)
	if err != nil {
		return err
	}
	if err := txn.Journal(n); err != nil {
		return fmt.Errorf("journal %s: %w", evtType, err)
	}
	if bus != nil {
		txn.OnCommit(func() {
			bus.Publish(evtType, evt)
		})
	}
	return nil
}
