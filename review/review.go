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

// Package review records contract reviews and upvotes and summarizes
// ratings per contract
package review

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/bazaar/auth"
	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/blinklabs-io/bazaar/domain"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/internal/notify"
	"github.com/blinklabs-io/bazaar/internal/telemetry"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500
)

// Rejection reasons, as reported by the rejected counter
const (
	reasonRating   = "invalid_rating"
	reasonComment  = "invalid_comment"
	reasonReviewed = "already_reviewed"
	reasonVoted    = "already_voted"
)

type ReviewSystemConfig struct {
	DB           *database.Database
	EventBus     *event.EventBus
	Authorizer   auth.Authorizer
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Tracer       trace.Tracer
	Clock        func() time.Time
}

type ReviewSystem struct {
	config     ReviewSystemConfig
	db         *database.Database
	eventBus   *event.EventBus
	authorizer auth.Authorizer
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
	reviews    database.Store[models.Review]
	all        database.Index
	byContract database.Index
	byReviewer database.Index
	reviewed   database.Guard
	upvoted    database.Guard
	metrics    struct {
		reviews  prometheus.Counter
		upvotes  prometheus.Counter
		rejected *prometheus.CounterVec
	}
	// serializes review writes
	mu sync.Mutex
}

func NewReviewSystem(config ReviewSystemConfig) *ReviewSystem {
	s := &ReviewSystem{
		config:     config,
		db:         config.DB,
		eventBus:   config.EventBus,
		authorizer: config.Authorizer,
		logger:     config.Logger,
		tracer:     telemetry.Tracer(config.Tracer),
		now:        config.Clock,
		reviews:    database.NewStore[models.Review](types.ClassReview),
		all:        database.NewIndex(types.IndexAll),
		byContract: database.NewIndex(types.IndexContractReviews),
		byReviewer: database.NewIndex(types.IndexReviewer),
		reviewed:   database.NewGuard(types.GuardReviewed),
		upvoted:    database.NewGuard(types.GuardUpvoted),
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.logger = s.logger.With("component", "review")
	if s.authorizer == nil {
		s.authorizer = auth.AllowAll
	}
	if s.now == nil {
		s.now = time.Now
	}
	promautoFactory := promauto.With(config.PromRegistry)
	s.metrics.reviews = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_review_reviews_total",
		Help: "total reviews submitted",
	})
	s.metrics.upvotes = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_review_upvotes_total",
		Help: "total review upvotes",
	})
	s.metrics.rejected = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazaar_review_rejected_total",
			Help: "review operations rejected by reason",
		},
		[]string{"reason"},
	)
	return s
}

func (s *ReviewSystem) reject(reason string, err error) error {
	s.metrics.rejected.WithLabelValues(reason).Inc()
	return err
}

func (s *ReviewSystem) authorize(op string, principal string) error {
	if err := s.authorizer.Authorize(principal); err != nil {
		return &domain.Error{
			Kind: domain.ErrUnauthorized,
			Code: domain.CodeReviewUnauthorizedAction,
			Op:   op,
			Err:  err,
		}
	}
	return nil
}

func (s *ReviewSystem) write(op string, fn func(*database.Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Storage(op, s.db.Transaction(true).Do(fn))
}

func contractDisc(contractID uint32) []byte {
	return types.Uint32ToBytes(contractID)
}

// Submit records principal's review of a contract and returns the review
// ID. Each principal may review a contract once.
func (s *ReviewSystem) Submit(
	ctx context.Context,
	principal string,
	contractID uint32,
	rating uint32,
	comment string,
) (id uint32, err error) {
	const op = "review.Submit"
	_, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("bazaar.contract_id", int64(contractID)),
		attribute.String("bazaar.principal", principal),
		attribute.Int64("bazaar.rating", int64(rating)),
	))
	defer func() { telemetry.End(span, err) }()
	if err := s.authorize(op, principal); err != nil {
		return 0, err
	}
	switch {
	case rating < MinRating || rating > MaxRating:
		return 0, s.reject(reasonRating, domain.InvalidInput(domain.CodeReviewInvalidRating, op, "rating %d outside %d to %d", rating, MinRating, MaxRating))
	case comment == "":
		return 0, s.reject(reasonComment, domain.InvalidInput(domain.CodeReviewEmptyComment, op, "comment is empty"))
	case len(comment) > MaxCommentLength:
		return 0, s.reject(reasonComment, domain.InvalidInput(domain.CodeReviewCommentTooLong, op, "comment exceeds %d bytes", MaxCommentLength))
	}
	err = s.write(op, func(txn *database.Txn) error {
		reviewer := []byte(principal)
		done, err := s.reviewed.Check(txn, contractDisc(contractID), reviewer)
		if err != nil {
			return err
		}
		if done {
			return s.reject(reasonReviewed, domain.Conflict(domain.CodeReviewAlreadyReviewed, op, "contract %d already reviewed by %s", contractID, principal))
		}
		newID, err := s.reviews.NextID(txn)
		if err != nil {
			return err
		}
		record := &models.Review{
			ID:         newID,
			ContractID: contractID,
			Reviewer:   principal,
			Rating:     rating,
			Comment:    comment,
			CreatedAt:  uint64(s.now().Unix()), //nolint:gosec // clock is after the epoch
		}
		if err := s.reviews.Put(txn, newID, record); err != nil {
			return err
		}
		if err := s.all.Append(txn, []byte(types.ClassReview), newID); err != nil {
			return err
		}
		if err := s.byContract.Append(txn, contractDisc(contractID), newID); err != nil {
			return err
		}
		if err := s.byReviewer.Append(txn, reviewer, newID); err != nil {
			return err
		}
		if err := s.reviewed.Mark(txn, contractDisc(contractID), reviewer); err != nil {
			return err
		}
		id = newID
		return notify.Emit(txn, s.eventBus, ReviewedEventType, ReviewedEvent{
			ReviewID:   newID,
			ContractID: contractID,
			Rating:     rating,
			Reviewer:   principal,
		})
	})
	if err != nil {
		return 0, err
	}
	s.metrics.reviews.Inc()
	s.logger.Info(
		"review submitted",
		"review_id", id,
		"contract_id", contractID,
		"rating", rating,
	)
	return id, nil
}

// Upvote adds principal's vote to a review. Each principal may upvote a
// review once and the count saturates at the largest uint32.
func (s *ReviewSystem) Upvote(
	ctx context.Context,
	principal string,
	reviewID uint32,
) (err error) {
	const op = "review.Upvote"
	_, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("bazaar.review_id", int64(reviewID)),
		attribute.String("bazaar.principal", principal),
	))
	defer func() { telemetry.End(span, err) }()
	if err := s.authorize(op, principal); err != nil {
		return err
	}
	err = s.write(op, func(txn *database.Txn) error {
		voter := []byte(principal)
		done, err := s.upvoted.Check(txn, types.Uint32ToBytes(reviewID), voter)
		if err != nil {
			return err
		}
		if done {
			return s.reject(reasonVoted, domain.Conflict(domain.CodeReviewAlreadyVoted, op, "review %d already upvoted by %s", reviewID, principal))
		}
		record, err := s.load(txn, op, reviewID)
		if err != nil {
			return err
		}
		if record.Upvotes < math.MaxUint32 {
			record.Upvotes++
		}
		if err := s.reviews.Put(txn, reviewID, record); err != nil {
			return err
		}
		if err := s.upvoted.Mark(txn, types.Uint32ToBytes(reviewID), voter); err != nil {
			return err
		}
		return notify.Emit(txn, s.eventBus, UpvotedEventType, UpvotedEvent{
			ReviewID: reviewID,
			Voter:    principal,
		})
	})
	if err != nil {
		return err
	}
	s.metrics.upvotes.Inc()
	s.logger.Debug("review upvoted", "review_id", reviewID, "voter", principal)
	return nil
}

func (s *ReviewSystem) load(
	txn *database.Txn,
	op string,
	reviewID uint32,
) (*models.Review, error) {
	record, err := s.reviews.Get(txn, reviewID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.NotFound(domain.CodeReviewNotFound, op, "review %d", reviewID)
	}
	return record, nil
}
