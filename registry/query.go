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

package registry

import (
	"context"

	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/domain"
	"github.com/blinklabs-io/bazaar/internal/telemetry"
)

func (r *Registry) read(
	ctx context.Context,
	op string,
	fn func(*database.Txn) error,
) (err error) {
	_, span := r.tracer.Start(ctx, op)
	defer func() { telemetry.End(span, err) }()
	txn := r.db.Transaction(false)
	defer txn.Release()
	return domain.Storage(op, fn(txn))
}

// Get returns a contract by ID
func (r *Registry) Get(
	ctx context.Context,
	contractID uint32,
) (*models.ContractRecord, error) {
	const op = "registry.Get"
	var ret *models.ContractRecord
	err := r.read(ctx, op, func(txn *database.Txn) error {
		var err error
		ret, err = r.load(txn, op, contractID)
		return err
	})
	return ret, err
}

func (r *Registry) list(
	ctx context.Context,
	op string,
	idx database.Index,
	disc []byte,
) ([]models.ContractRecord, error) {
	var ret []models.ContractRecord
	err := r.read(ctx, op, func(txn *database.Txn) error {
		ids, err := idx.List(txn, disc)
		if err != nil {
			return err
		}
		ret, err = r.contracts.GetMany(txn, ids)
		return err
	})
	return ret, err
}

// All returns every contract in publish order
func (r *Registry) All(ctx context.Context) ([]models.ContractRecord, error) {
	return r.list(ctx, "registry.All", r.all, classDisc())
}

// SearchByCategory returns the contracts in category, in publish order
func (r *Registry) SearchByCategory(
	ctx context.Context,
	category models.Category,
) ([]models.ContractRecord, error) {
	return r.list(ctx, "registry.SearchByCategory", r.byCategory, categoryDisc(category))
}

// SearchByTag returns the contracts carrying tag. There is no tag index, so
// this scans every contract.
func (r *Registry) SearchByTag(
	ctx context.Context,
	tag string,
) ([]models.ContractRecord, error) {
	all, err := r.list(ctx, "registry.SearchByTag", r.all, classDisc())
	if err != nil {
		return nil, err
	}
	ret := make([]models.ContractRecord, 0)
	for _, c := range all {
		if c.HasTag(tag) {
			ret = append(ret, c)
		}
	}
	return ret, nil
}

// ContractsByAuthor returns the contracts published by author
func (r *Registry) ContractsByAuthor(
	ctx context.Context,
	author string,
) ([]models.ContractRecord, error) {
	return r.list(ctx, "registry.ContractsByAuthor", r.byAuthor, []byte(author))
}

// Count returns the number of contracts ever published
func (r *Registry) Count(ctx context.Context) (uint32, error) {
	var ret uint32
	err := r.read(ctx, "registry.Count", func(txn *database.Txn) error {
		var err error
		ret, err = r.contracts.Count(txn)
		return err
	})
	return ret, err
}
