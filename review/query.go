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
	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/blinklabs-io/bazaar/domain"
	"github.com/blinklabs-io/bazaar/internal/telemetry"
)

func (s *ReviewSystem) read(
	ctx context.Context,
	op string,
	fn func(*database.Txn) error,
) (err error) {
	_, span := s.tracer.Start(ctx, op)
	defer func() { telemetry.End(span, err) }()
	txn := s.db.Transaction(false)
	defer txn.Release()
	return domain.Storage(op, fn(txn))
}

func (s *ReviewSystem) Get(ctx context.Context, reviewID uint32) (*models.Review, error) {
	const op = "review.Get"
	var ret *models.Review
	err := s.read(ctx, op, func(txn *database.Txn) error {
		var err error
		ret, err = s.load(txn, op, reviewID)
		return err
	})
	return ret, err
}

func (s *ReviewSystem) list(
	ctx context.Context,
	op string,
	idx database.Index,
	disc []byte,
) ([]models.Review, error) {
	var ret []models.Review
	err := s.read(ctx, op, func(txn *database.Txn) error {
		ids, err := idx.List(txn, disc)
		if err != nil {
			return err
		}
		ret, err = s.reviews.GetMany(txn, ids)
		return err
	})
	return ret, err
}

// ByContract returns the reviews of a contract, oldest first
func (s *ReviewSystem) ByContract(
	ctx context.Context,
	contractID uint32,
) ([]models.Review, error) {
	return s.list(ctx, "review.ByContract", s.byContract, contractDisc(contractID))
}

// ByReviewer returns the reviews written by reviewer, oldest first
func (s *ReviewSystem) ByReviewer(
	ctx context.Context,
	reviewer string,
) ([]models.Review, error) {
	return s.list(ctx, "review.ByReviewer", s.byReviewer, []byte(reviewer))
}

func (s *ReviewSystem) All(ctx context.Context) ([]models.Review, error) {
	return s.list(ctx, "review.All", s.all, []byte(types.ClassReview))
}

// Count returns the number of reviews ever submitted
func (s *ReviewSystem) Count(ctx context.Context) (uint32, error) {
	var ret uint32
	err := s.read(ctx, "review.Count", func(txn *database.Txn) error {
		var err error
		ret, err = s.reviews.Count(txn)
		return err
	})
	return ret, err
}
