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

import "github.com/blinklabs-io/gouroboros/cbor"

type Review struct {
	cbor.StructAsArray
	ID         uint32 `json:"id"`
	ContractID uint32 `json:"contractId"`
	Reviewer   string `json:"reviewer"`
	Rating     uint32 `json:"rating"`
	Comment    string `json:"comment"`
	CreatedAt  uint64 `json:"createdAt"`
	Upvotes    uint32 `json:"upvotes"`
}

// ReviewSummary holds aggregate statistics for one contract. AverageRating is
// the mean multiplied by 100 and truncated. Distribution is indexed by rating-1.
type ReviewSummary struct {
	ContractID    uint32    `json:"contractId"`
	TotalReviews  uint32    `json:"totalReviews"`
	AverageRating uint32    `json:"averageRating"`
	Distribution  [5]uint32 `json:"ratingDistribution"`
}
