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

package event

import (
	"encoding/json"
	"fmt"

	"github.com/blinklabs-io/bazaar/database/models"
)

// EntityEvent is implemented by event payloads that concern a single stored
// entity. The ID is copied onto the journaled notification for filtering.
type EntityEvent interface {
	EventEntityID() uint32
}

// PrincipalEvent is implemented by event payloads attributable to a caller
type PrincipalEvent interface {
	EventPrincipal() string
}

// ToNotification converts evt into its journal row
func ToNotification(evt Event) (*models.Notification, error) {
	payload, err := json.Marshal(evt.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s event payload: %w", evt.Type, err)
	}
	n := &models.Notification{
		EventID:   evt.ID,
		Type:      string(evt.Type),
		Payload:   string(payload),
		Timestamp: evt.Timestamp.UTC(),
	}
	if ee, ok := evt.Data.(EntityEvent); ok {
		n.EntityID = ee.EventEntityID()
	}
	if pe, ok := evt.Data.(PrincipalEvent); ok {
		n.Principal = pe.EventPrincipal()
	}
	return n, nil
}
