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

// Package deployment records deployments of published contracts
package deployment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
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
	WasmHashLength = 32
	SaltLength     = 32
)

// ErrAddressInUse is returned when a deployer reuses a salt, since the
// derived contract address is already occupied
var ErrAddressInUse = errors.New("contract address already in use")

// Tracker counts deployments against their contract. TrackDeployment runs
// inside the deployment's transaction, with the Tracker's lock held from
// before that transaction was opened.
type Tracker interface {
	sync.Locker
	TrackDeployment(txn *database.Txn, caller string, contractID uint32) error
}

type ManagerConfig struct {
	DB           *database.Database
	EventBus     *event.EventBus
	Authorizer   auth.Authorizer
	Instantiator Instantiator
	// Tracker is optional. Without it the contract ID is not checked.
	Tracker      Tracker
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Tracer       trace.Tracer
	Clock        func() time.Time
}

// DeployParams describes a single deployment
type DeployParams struct {
	ContractID      uint32   `json:"contractId"`
	WasmHash        []byte   `json:"wasmHash"`
	Salt            []byte   `json:"salt"`
	ConstructorArgs [][]byte `json:"constructorArgs,omitempty"`
}

type Manager struct {
	config       ManagerConfig
	db           *database.Database
	eventBus     *event.EventBus
	authorizer   auth.Authorizer
	instantiator Instantiator
	tracker      Tracker
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
	deployments  database.Store[models.DeploymentRecord]
	all          database.Index
	byDeployer   database.Index
	byContract   database.Index
	addresses    database.Guard
	metrics      struct {
		deployments prometheus.Counter
		failures    prometheus.Counter
	}
	// serializes deployment writes
	mu sync.Mutex
}

func NewManager(config ManagerConfig) *Manager {
	m := &Manager{
		config:       config,
		db:           config.DB,
		eventBus:     config.EventBus,
		authorizer:   config.Authorizer,
		instantiator: config.Instantiator,
		tracker:      config.Tracker,
		logger:       config.Logger,
		tracer:       telemetry.Tracer(config.Tracer),
		now:          config.Clock,
		deployments:  database.NewStore[models.DeploymentRecord](types.ClassDeployment),
		all:          database.NewIndex(types.IndexAll),
		byDeployer:   database.NewIndex(types.IndexDeployer),
		byContract:   database.NewIndex(types.IndexContractDeployments),
		addresses:    database.NewGuard(types.GuardDeployed),
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	m.logger = m.logger.With("component", "deployment")
	if m.authorizer == nil {
		m.authorizer = auth.AllowAll
	}
	if m.instantiator == nil {
		m.instantiator = NewSorobanInstantiator("")
	}
	if m.now == nil {
		m.now = time.Now
	}
	promautoFactory := promauto.With(config.PromRegistry)
	m.metrics.deployments = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_deployment_deployments_total",
		Help: "total recorded deployments",
	})
	m.metrics.failures = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_deployment_failures_total",
		Help: "total deployments aborted before being recorded",
	})
	return m
}

// Deploy instantiates a contract and records the deployment, returning its
// ID. A failed instantiation aborts the call without recording anything, as
// does an address that an earlier deployment already occupies.
func (m *Manager) Deploy(
	ctx context.Context,
	principal string,
	params DeployParams,
) (id uint32, err error) {
	const op = "deployment.Deploy"
	ctx, span := m.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("bazaar.contract_id", int64(params.ContractID)),
		attribute.String("bazaar.principal", principal),
	))
	defer func() { telemetry.End(span, err) }()
	if err := m.authorizer.Authorize(principal); err != nil {
		return 0, &domain.Error{
			Kind: domain.ErrUnauthorized,
			Code: domain.CodeDeploymentUnauthorizedAccess,
			Op:   op,
			Err:  err,
		}
	}
	if len(params.WasmHash) != WasmHashLength {
		return 0, domain.InvalidInput(domain.CodeDeploymentInvalidParameters, op, "wasm hash must be %d bytes", WasmHashLength)
	}
	if len(params.Salt) != SaltLength {
		return 0, domain.InvalidInput(domain.CodeDeploymentInvalidParameters, op, "salt must be %d bytes", SaltLength)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tracker != nil {
		m.tracker.Lock()
		defer m.tracker.Unlock()
	}
	var record *models.DeploymentRecord
	err = m.db.Transaction(true).Do(func(txn *database.Txn) error {
		if m.tracker != nil {
			if err := m.tracker.TrackDeployment(txn, principal, params.ContractID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return &domain.Error{
						Kind: domain.ErrNotFound,
						Code: domain.CodeDeploymentContractNotFound,
						Op:   op,
						Err:  err,
					}
				}
				return err
			}
		}
		address, err := m.instantiator.Instantiate(ctx, InstantiateRequest{
			Deployer:        principal,
			WasmHash:        params.WasmHash,
			Salt:            params.Salt,
			ConstructorArgs: params.ConstructorArgs,
		})
		if err != nil {
			m.metrics.failures.Inc()
			return domain.Failed(domain.CodeDeploymentFailed, op, err)
		}
		taken, err := m.addresses.Check(txn, []byte(address))
		if err != nil {
			return err
		}
		if taken {
			m.metrics.failures.Inc()
			return domain.Failed(
				domain.CodeDeploymentFailed,
				op,
				fmt.Errorf("%w: %s", ErrAddressInUse, address),
			)
		}
		newID, err := m.deployments.NextID(txn)
		if err != nil {
			return err
		}
		record = &models.DeploymentRecord{
			ID:              newID,
			ContractID:      params.ContractID,
			Deployer:        principal,
			DeployedAddress: address,
			DeployedAt:      uint64(m.now().Unix()), //nolint:gosec // clock is after the epoch
			WasmHash:        params.WasmHash,
			Salt:            params.Salt,
			ConstructorArgs: params.ConstructorArgs,
		}
		if err := m.deployments.Put(txn, newID, record); err != nil {
			return err
		}
		if err := m.addresses.Mark(txn, []byte(address)); err != nil {
			return err
		}
		if err := m.all.Append(txn, []byte(types.ClassDeployment), newID); err != nil {
			return err
		}
		if err := m.byDeployer.Append(txn, []byte(principal), newID); err != nil {
			return err
		}
		if err := m.byContract.Append(txn, types.Uint32ToBytes(params.ContractID), newID); err != nil {
			return err
		}
		return notify.Emit(txn, m.eventBus, DeployedEventType, DeployedEvent{
			DeploymentID:    newID,
			ContractID:      params.ContractID,
			Deployer:        principal,
			DeployedAddress: address,
		})
	})
	if err != nil {
		return 0, domain.Storage(op, err)
	}
	m.metrics.deployments.Inc()
	m.logger.Info(
		"recorded deployment",
		"deployment_id", record.ID,
		"contract_id", record.ContractID,
		"deployer", principal,
		"address", record.DeployedAddress,
	)
	return record.ID, nil
}

// DeployWithAdmin deploys with admin as the single constructor argument
func (m *Manager) DeployWithAdmin(
	ctx context.Context,
	principal string,
	contractID uint32,
	wasmHash []byte,
	salt []byte,
	admin string,
) (uint32, error) {
	const op = "deployment.DeployWithAdmin"
	arg, err := AddressArg(admin)
	if err != nil {
		return 0, domain.InvalidInput(domain.CodeDeploymentInvalidParameters, op, "admin: %w", err)
	}
	args, err := EncodeArgs(arg)
	if err != nil {
		return 0, domain.InvalidInput(domain.CodeDeploymentInvalidParameters, op, "admin: %w", err)
	}
	return m.Deploy(ctx, principal, DeployParams{
		ContractID:      contractID,
		WasmHash:        wasmHash,
		Salt:            salt,
		ConstructorArgs: args,
	})
}
