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

package deployment

import (
	"context"

	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/blinklabs-io/bazaar/domain"
	"github.com/blinklabs-io/bazaar/internal/telemetry"
)

func (m *Manager) read(
	ctx context.Context,
	op string,
	fn func(*database.Txn) error,
) (err error) {
	_, span := m.tracer.Start(ctx, op)
	defer func() { telemetry.End(span, err) }()
	txn := m.db.Transaction(false)
	defer txn.Release()
	return domain.Storage(op, fn(txn))
}

// Get returns a deployment by ID
func (m *Manager) Get(
	ctx context.Context,
	deploymentID uint32,
) (*models.DeploymentRecord, error) {
	const op = "deployment.Get"
	var ret *models.DeploymentRecord
	err := m.read(ctx, op, func(txn *database.Txn) error {
		var err error
		ret, err = m.deployments.Get(txn, deploymentID)
		if err != nil {
			return err
		}
		if ret == nil {
			return domain.NotFound(domain.CodeDeploymentContractNotFound, op, "deployment %d", deploymentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (m *Manager) list(
	ctx context.Context,
	op string,
	idx database.Index,
	disc []byte,
) ([]models.DeploymentRecord, error) {
	var ret []models.DeploymentRecord
	err := m.read(ctx, op, func(txn *database.Txn) error {
		ids, err := idx.List(txn, disc)
		if err != nil {
			return err
		}
		ret, err = m.deployments.GetMany(txn, ids)
		return err
	})
	return ret, err
}

// ByDeployer returns the deployments made by deployer, oldest first
func (m *Manager) ByDeployer(
	ctx context.Context,
	deployer string,
) ([]models.DeploymentRecord, error) {
	return m.list(ctx, "deployment.ByDeployer", m.byDeployer, []byte(deployer))
}

// ByContract returns the deployments of a contract, oldest first
func (m *Manager) ByContract(
	ctx context.Context,
	contractID uint32,
) ([]models.DeploymentRecord, error) {
	return m.list(ctx, "deployment.ByContract", m.byContract, types.Uint32ToBytes(contractID))
}

func (m *Manager) All(ctx context.Context) ([]models.DeploymentRecord, error) {
	return m.list(ctx, "deployment.All", m.all, []byte(types.ClassDeployment))
}

// Count returns the number of deployments ever recorded
func (m *Manager) Count(ctx context.Context) (uint32, error) {
	var ret uint32
	err := m.read(ctx, "deployment.Count", func(txn *database.Txn) error {
		var err error
		ret, err = m.deployments.Count(txn)
		return err
	})
	return ret, err
}
