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

package bazaar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/blinklabs-io/bazaar/auth"
	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/deployment"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/registry"
	"github.com/blinklabs-io/bazaar/review"
)

const defaultShutdownTimeout = 30 * time.Second

// loggedEventTypes are echoed to the debug log once committed
var loggedEventTypes = []event.EventType{
	registry.PublishedEventType,
	registry.UpdatedEventType,
	registry.VerifiedEventType,
	registry.DeployedEventType,
	deployment.DeployedEventType,
	review.ReviewedEventType,
	review.UpvotedEventType,
}

// Marketplace ties the contract registry, deployment manager and review
// system to a shared database and event bus
type Marketplace struct {
	config         Config
	db             *database.Database
	eventBus       *event.EventBus
	registry       *registry.Registry
	deployments    *deployment.Manager
	reviews        *review.ReviewSystem
	tracerProvider *sdktrace.TracerProvider
	shutdownFuncs  []func(context.Context) error
	shutdownOnce   sync.Once
}

func New(cfg Config) (*Marketplace, error) {
	m := &Marketplace{
		config: cfg,
	}
	if err := m.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if m.config.tracing {
		if err := m.setupTracing(); err != nil {
			return nil, err
		}
	}
	m.eventBus = event.NewEventBus(m.config.promRegistry, m.config.logger)
	if err := m.openDatabase(); err != nil {
		m.eventBus.Stop()
		_ = m.runShutdownFuncs(context.Background())
		return nil, err
	}
	authorizer := m.config.authorizer
	if authorizer == nil {
		authorizer = auth.AllowAll
	}
	m.registry = registry.NewRegistry(registry.RegistryConfig{
		DB:           m.db,
		EventBus:     m.eventBus,
		Authorizer:   authorizer,
		Logger:       m.config.logger,
		PromRegistry: m.config.promRegistry,
		Clock:        m.config.clock,
	})
	instantiator := m.config.instantiator
	if instantiator == nil {
		instantiator = deployment.NewSorobanInstantiator(
			m.config.networkPassphrase,
		)
	}
	managerConfig := deployment.ManagerConfig{
		DB:           m.db,
		EventBus:     m.eventBus,
		Authorizer:   authorizer,
		Instantiator: instantiator,
		Logger:       m.config.logger,
		PromRegistry: m.config.promRegistry,
		Clock:        m.config.clock,
	}
	if m.config.deploymentTracking {
		managerConfig.Tracker = m.registry
	}
	m.deployments = deployment.NewManager(managerConfig)
	m.reviews = review.NewReviewSystem(review.ReviewSystemConfig{
		DB:           m.db,
		EventBus:     m.eventBus,
		Authorizer:   authorizer,
		Logger:       m.config.logger,
		PromRegistry: m.config.promRegistry,
		Clock:        m.config.clock,
	})
	m.subscribeEventLog()
	m.config.logger.Debug(
		"marketplace started",
		"component", "marketplace",
		"blob", m.config.blobPlugin,
		"metadata", m.config.metadataPlugin,
		"deployment_tracking", m.config.deploymentTracking,
	)
	return m, nil
}

// subscribeEventLog logs every committed event. The handlers exit when the
// event bus is stopped.
func (m *Marketplace) subscribeEventLog() {
	logger := m.config.logger.With("component", "marketplace")
	for _, evtType := range loggedEventTypes {
		m.eventBus.SubscribeFunc(evtType, func(evt event.Event) {
			logger.Debug(
				"committed event",
				"type", evt.Type,
				"id", evt.ID,
				"data", evt.Data,
			)
		})
	}
}

func (m *Marketplace) configValidate() error {
	if m.config.logger == nil {
		return errors.New("logger must not be nil")
	}
	if m.config.tracingStdout && !m.config.tracing {
		return errors.New("stdout tracing requires tracing to be enabled")
	}
	return nil
}

func (m *Marketplace) openDatabase() error {
	db, err := database.New(&database.Config{
		PromRegistry:   m.config.promRegistry,
		Logger:         m.config.logger,
		DataDir:        m.config.dataDir,
		BlobPlugin:     m.config.blobPlugin,
		MetadataPlugin: m.config.metadataPlugin,
	})
	if db == nil {
		if err == nil {
			err = errors.New("empty database returned")
		}
		m.config.logger.Error(
			"failed to create database",
			"error", err,
		)
		return fmt.Errorf("failed to open database: %w", err)
	}
	m.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			_ = db.Close()
			return fmt.Errorf("failed to open database: %w", err)
		}
		m.config.logger.Warn(
			"database initialization error, recovering",
			"error", err,
		)
		if err := db.RecoverCommitTimestamp(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	m.shutdownFuncs = append(m.shutdownFuncs, func(context.Context) error {
		return m.db.Close()
	})
	return nil
}

func (m *Marketplace) Registry() *registry.Registry {
	return m.registry
}

func (m *Marketplace) Deployments() *deployment.Manager {
	return m.deployments
}

func (m *Marketplace) Reviews() *review.ReviewSystem {
	return m.reviews
}

func (m *Marketplace) EventBus() *event.EventBus {
	return m.eventBus
}

func (m *Marketplace) Database() *database.Database {
	return m.db
}

// Journal returns the most recent committed notifications matching filter
func (m *Marketplace) Journal(
	filter models.NotificationFilter,
) ([]models.Notification, error) {
	return m.db.Notifications(filter)
}

// Stop releases the event bus, flushes traces and closes the database. It is
// safe to call more than once.
func (m *Marketplace) Stop() error {
	var err error
	m.shutdownOnce.Do(func() {
		timeout := defaultShutdownTimeout
		if m.config.shutdownTimeout > 0 {
			timeout = m.config.shutdownTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		m.config.logger.Debug("starting shutdown", "component", "marketplace")
		// Stop delivery before the database goes away
		m.eventBus.Stop()
		err = m.runShutdownFuncs(ctx)
		m.config.logger.Debug("shutdown complete", "component", "marketplace")
	})
	return err
}

func (m *Marketplace) runShutdownFuncs(ctx context.Context) error {
	var err error
	// Reverse order, so spans from closing the database still get flushed
	for i := len(m.shutdownFuncs) - 1; i >= 0; i-- {
		if fnErr := m.shutdownFuncs[i](ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	m.shutdownFuncs = nil
	return err
}
