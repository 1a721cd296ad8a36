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

import (
	"context"

	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
)

// Summarize aggregates reviews into rating statistics. TotalReviews is always
// len(reviews) and the average is the mean rating times 100, truncated. A
// rating outside 1 to 5 can only come from a corrupt record. It still counts
// toward the total and the average but has no histogram bucket.
func Summarize(contractID uint32, reviews []models.Review) models.ReviewSummary {
	ret := models.ReviewSummary{
		ContractID:   contractID,
		TotalReviews: uint32(len(reviews)), //nolint:gosec // review IDs are uint32
	}
	var sum uint64
	for _, r := range reviews {
		sum += uint64(r.Rating)
		if r.Rating >= MinRating && r.Rating <= MaxRating {
			ret.Distribution[r.Rating-1]++
		}
	}
	if ret.TotalReviews > 0 {
		ret.AverageRating = uint32((sum * 100) / uint64(ret.TotalReviews)) //nolint:gosec // bounded by 500 for valid ratings
	}
	return ret
}

// Summary computes the rating statistics of a contract from its stored
// reviews. Nothing is cached, so the result always matches the reviews.
func (s *ReviewSystem) Summary(
	ctx context.Context,
	contractID uint32,
) (models.ReviewSummary, error) {
	var reviews []models.Review
	err := s.read(ctx, "review.Summary", func(txn *database.Txn) error {
		ids, err := s.byContract.List(txn, contractDisc(contractID))
		if err != nil {
			return err
		}
		reviews, err = s.reviews.GetMany(txn, ids)
		return err
	})
	if err != nil {
		return models.ReviewSummary{}, err
	}
	return Summarize(contractID, reviews), nil
}
