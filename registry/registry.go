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

// Package registry publishes contract metadata and keeps the contract
// indices by category and by author.
package registry

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/bazaar/auth"
	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/internal/telemetry"
)

// Metadata limits, in bytes
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MaxTags              = 10
	WasmHashLength       = 32
)

type RegistryConfig struct {
	DB           *database.Database
	EventBus     *event.EventBus
	Authorizer   auth.Authorizer
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Tracer       trace.Tracer
	Clock        func() time.Time
}

type Registry struct {
	config     RegistryConfig
	db         *database.Database
	eventBus   *event.EventBus
	authorizer auth.Authorizer
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
	contracts  database.Store[models.ContractRecord]
	all        database.Index
	byCategory database.Index
	byAuthor   database.Index
	metrics    struct {
		published           prometheus.Counter
		updated             prometheus.Counter
		verified            prometheus.Counter
		deploymentsRecorded prometheus.Counter
	}
	// serializes contract writes
	mu sync.Mutex
}

func NewRegistry(config RegistryConfig) *Registry {
	r := &Registry{
		config:     config,
		db:         config.DB,
		eventBus:   config.EventBus,
		authorizer: config.Authorizer,
		logger:     config.Logger,
		tracer:     telemetry.Tracer(config.Tracer),
		now:        config.Clock,
		contracts:  database.NewStore[models.ContractRecord](types.ClassContract),
		all:        database.NewIndex(types.IndexAll),
		byCategory: database.NewIndex(types.IndexCategory),
		byAuthor:   database.NewIndex(types.IndexAuthor),
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	r.logger = r.logger.With("component", "registry")
	if r.authorizer == nil {
		r.authorizer = auth.AllowAll
	}
	if r.now == nil {
		r.now = time.Now
	}
	promautoFactory := promauto.With(config.PromRegistry)
	r.metrics.published = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_registry_contracts_published_total",
		Help: "total contracts published",
	})
	r.metrics.updated = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_registry_contracts_updated_total",
		Help: "total contract metadata updates",
	})
	r.metrics.verified = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_registry_contracts_verified_total",
		Help: "total contract verifications",
	})
	r.metrics.deploymentsRecorded = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "bazaar_registry_deployments_recorded_total",
			Help: "total deployments counted against published contracts",
		},
	)
	return r
}

func (r *Registry) timestamp() uint64 {
	return uint64(r.now().Unix()) //nolint:gosec // clock is after the epoch
}

func classDisc() []byte {
	return []byte(types.ClassContract)
}

func categoryDisc(c models.Category) []byte {
	return types.Uint32ToBytes(uint32(c))
}
