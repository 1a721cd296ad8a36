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

package models

import "time"

// Notification is a journaled copy of an event published on the bus
type Notification struct {
	ID        uint      `gorm:"primarykey"                json:"-"`
	EventID   string    `gorm:"size:36;uniqueIndex;not null" json:"eventId"`
	Type      string    `gorm:"size:64;index;not null"    json:"type"`
	EntityID  uint32    `gorm:"index"                     json:"entityId"`
	Principal string    `gorm:"size:128"                  json:"principal,omitempty"`
	Payload   string    `gorm:"type:text"                 json:"payload"`
	Timestamp time.Time `gorm:"not null"                  json:"timestamp"`
}

func (Notification) TableName() string {
	return "notification"
}

// NotificationFilter narrows a journal listing. Zero values match everything.
type NotificationFilter struct {
	Type     string
	EntityID uint32
	Limit    int
}
