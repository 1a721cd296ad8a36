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

package review

import "github.com/blinklabs-io/bazaar/event"

const (
	ReviewedEventType event.EventType = "review.reviewed"
	UpvotedEventType  event.EventType = "review.upvoted"
)

type ReviewedEvent struct {
	ReviewID   uint32 `json:"reviewId"`
	ContractID uint32 `json:"contractId"`
	Rating     uint32 `json:"rating"`
	Reviewer   string `json:"reviewer"`
}

func (e ReviewedEvent) EventEntityID() uint32  { return e.ReviewID }
func (e ReviewedEvent) EventPrincipal() string { return e.Reviewer }

type UpvotedEvent struct {
	ReviewID uint32 `json:"reviewId"`
	Voter    string `json:"voter"`
}

func (e UpvotedEvent) EventEntityID() uint32  { return e.ReviewID }
func (e UpvotedEvent) EventPrincipal() string { return e.Voter }
