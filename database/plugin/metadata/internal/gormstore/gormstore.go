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

// Package gormstore holds the parts of the metadata store that are identical
// across the gorm-backed plugins
package gormstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"
)

const commitTimestampRowId = 1

// ErrNotStarted is returned when the store is used before Start
var ErrNotStarted = errors.New("metadata store not started")

// CommitTimestamp tracks the timestamp of the last coordinated commit
type CommitTimestamp struct {
	ID        uint `gorm:"primarykey"`
	Timestamp int64
}

func (CommitTimestamp) TableName() string {
	return "commit_timestamp"
}

// Txn wraps a gorm transaction and implements types.Txn
type Txn struct {
	db       *gorm.DB
	beginErr error
	finished bool
}

func (t *Txn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	if t.db == nil {
		return nil
	}
	return t.db.Commit().Error
}

func (t *Txn) Rollback() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	if t.db == nil {
		return nil
	}
	return t.db.Rollback().Error
}

// Store implements the metadata operations on top of an opened gorm handle
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open configures tracing and migrates the schema on an opened handle
func (s *Store) Open(db *gorm.DB, logger *slog.Logger) error {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.db = db
	s.logger = logger
	// Configure tracing for GORM
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	// Create table schemas
	s.logger.Debug(fmt.Sprintf("creating table: %#v", &CommitTimestamp{}))
	if err := db.AutoMigrate(&CommitTimestamp{}); err != nil {
		return err
	}
	for _, model := range models.MigrateModels {
		s.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying connection pool. It is a no-op before Open.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	err = sqlDB.Close()
	s.db = nil
	return err
}

// DB returns the database handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction begins a gorm transaction. A begin failure is deferred to the
// returned handle's Commit and Rollback.
func (s *Store) Transaction() types.Txn {
	if s.db == nil {
		return &Txn{beginErr: ErrNotStarted}
	}
	tx := s.db.Begin()
	if tx.Error != nil {
		s.logger.Error(
			"failed to begin transaction",
			"component", "database",
			"error", tx.Error,
		)
		return &Txn{beginErr: tx.Error}
	}
	return &Txn{db: tx}
}

// resolveDB returns the gorm handle of txn, or the base handle for a nil txn
func (s *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if s.db == nil {
		return nil, ErrNotStarted
	}
	if txn == nil {
		return s.db, nil
	}
	gTxn, ok := txn.(*Txn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if gTxn.beginErr != nil {
		return nil, gTxn.beginErr
	}
	if gTxn.finished {
		return nil, types.ErrTxnFinished
	}
	return gTxn.db, nil
}

// GetCommitTimestamp returns 0 when nothing has been committed yet
func (s *Store) GetCommitTimestamp() (int64, error) {
	if s.db == nil {
		return 0, ErrNotStarted
	}
	var tmp CommitTimestamp
	result := s.db.First(&tmp)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return tmp.Timestamp, nil
}

func (s *Store) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	tmp := CommitTimestamp{
		ID:        commitTimestampRowId,
		Timestamp: timestamp,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(&tmp).Error
}

// AddNotification records a journal entry within txn
func (s *Store) AddNotification(n *models.Notification, txn types.Txn) error {
	if n == nil {
		return errors.New("nil notification")
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(n).Error
}

// GetNotifications returns journal entries in insertion order
func (s *Store) GetNotifications(
	filter models.NotificationFilter,
) ([]models.Notification, error) {
	db, err := s.resolveDB(nil)
	if err != nil {
		return nil, err
	}
	query := db.Model(&models.Notification{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.EntityID != 0 {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var ret []models.Notification
	if result := query.Order("id ASC").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
