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

package review_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/review"
)

func TestSummarizeProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ratings := rapid.SliceOf(
			rapid.Uint32Range(review.MinRating, review.MaxRating),
		).Draw(rt, "ratings")
		reviews := make([]models.Review, 0, len(ratings))
		var sum uint64
		for _, r := range ratings {
			reviews = append(reviews, models.Review{Rating: r})
			sum += uint64(r)
		}
		got := review.Summarize(9, reviews)
		if got.ContractID != 9 {
			rt.Fatalf("contract id %d", got.ContractID)
		}
		if int(got.TotalReviews) != len(ratings) {
			rt.Fatalf("total %d, expected %d", got.TotalReviews, len(ratings))
		}
		var histTotal uint32
		for _, n := range got.Distribution {
			histTotal += n
		}
		if histTotal != got.TotalReviews {
			rt.Fatalf("histogram sums to %d, expected %d", histTotal, got.TotalReviews)
		}
		if len(ratings) == 0 {
			if got.AverageRating != 0 {
				rt.Fatalf("average %d for no reviews", got.AverageRating)
			}
			return
		}
		// Truncated fixed point: avg <= 100*mean < avg+1
		n := uint64(len(ratings))
		avg := uint64(got.AverageRating)
		if avg*n > sum*100 || (avg+1)*n <= sum*100 {
			rt.Fatalf("average %d does not truncate %d/%d", avg, sum*100, n)
		}
		if avg < 100 || avg > 500 {
			rt.Fatalf("average %d out of range", avg)
		}
	})
}

func TestSummarizeExamples(t *testing.T) {
	testDefs := []struct {
		ratings []uint32
		average uint32
		dist    [5]uint32
	}{
		{nil, 0, [5]uint32{}},
		{[]uint32{5, 4, 5}, 466, [5]uint32{0, 0, 0, 1, 2}},
		{[]uint32{1, 2}, 150, [5]uint32{1, 1, 0, 0, 0}},
		{[]uint32{3}, 300, [5]uint32{0, 0, 1, 0, 0}},
		{[]uint32{1, 1, 2}, 133, [5]uint32{2, 1, 0, 0, 0}},
	}
	for _, testDef := range testDefs {
		reviews := make([]models.Review, 0, len(testDef.ratings))
		for _, r := range testDef.ratings {
			reviews = append(reviews, models.Review{Rating: r})
		}
		got := review.Summarize(1, reviews)
		assert.Equal(t, uint32(len(testDef.ratings)), got.TotalReviews)
		assert.Equal(t, testDef.average, got.AverageRating)
		assert.Equal(t, testDef.dist, got.Distribution)
	}
}

func TestSummarizeCountsCorruptRatings(t *testing.T) {
	reviews := []models.Review{{Rating: 0}, {Rating: 4}, {Rating: 6}}
	got := review.Summarize(1, reviews)
	// The total always matches the number of stored reviews
	assert.Equal(t, uint32(len(reviews)), got.TotalReviews)
	assert.Equal(t, uint32(333), got.AverageRating)
	assert.Equal(t, [5]uint32{0, 0, 0, 1, 0}, got.Distribution)
}
