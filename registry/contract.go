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
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/domain"
	"github.com/blinklabs-io/bazaar/internal/notify"
	"github.com/blinklabs-io/bazaar/internal/telemetry"
)

// PublishParams describes a contract to publish. Author must match the
// publishing principal.
type PublishParams struct {
	WasmHash         []byte          `json:"wasmHash"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Version          string          `json:"version"`
	Author           string          `json:"author"`
	Category         models.Category `json:"category"`
	Tags             []string        `json:"tags"`
	SourceURL        string          `json:"sourceUrl"`
	DocumentationURL string          `json:"documentationUrl"`
	License          string          `json:"license"`
}

// UpdateParams selects the fields to overwrite. Nil fields are left as is;
// a non-nil empty Tags clears the tags.
type UpdateParams struct {
	Description      *string   `json:"description,omitempty"`
	DocumentationURL *string   `json:"documentationUrl,omitempty"`
	Tags             *[]string `json:"tags,omitempty"`
}

func validDescription(desc string) bool {
	return desc != "" && len(desc) <= MaxDescriptionLength
}

func (p *PublishParams) validate(op string) error {
	switch {
	case p.Name == "" || len(p.Name) > MaxNameLength:
		return domain.InvalidInput(domain.CodeRegistryInvalidMetadata, op, "name must be 1 to %d bytes", MaxNameLength)
	case !validDescription(p.Description):
		return domain.InvalidInput(domain.CodeRegistryInvalidMetadata, op, "description must be 1 to %d bytes", MaxDescriptionLength)
	case p.SourceURL == "":
		return domain.InvalidInput(domain.CodeRegistryInvalidMetadata, op, "source URL is required")
	case len(p.Tags) > MaxTags:
		return domain.InvalidInput(domain.CodeRegistryInvalidMetadata, op, "at most %d tags", MaxTags)
	case !p.Category.Valid():
		return domain.InvalidInput(domain.CodeRegistryInvalidMetadata, op, "unknown category %d", uint32(p.Category))
	case len(p.WasmHash) != WasmHashLength:
		return domain.InvalidInput(domain.CodeRegistryInvalidWasmHash, op, "wasm hash must be %d bytes", WasmHashLength)
	}
	return nil
}

func (p *UpdateParams) validate(op string) error {
	if p.Description != nil && !validDescription(*p.Description) {
		return domain.InvalidInput(domain.CodeRegistryInvalidMetadata, op, "description must be 1 to %d bytes", MaxDescriptionLength)
	}
	if p.Tags != nil && len(*p.Tags) > MaxTags {
		return domain.InvalidInput(domain.CodeRegistryInvalidMetadata, op, "at most %d tags", MaxTags)
	}
	return nil
}

// authorize checks principal with the configured Authorizer
func (r *Registry) authorize(op string, code domain.Code, principal string) error {
	if err := r.authorizer.Authorize(principal); err != nil {
		return &domain.Error{Kind: domain.ErrUnauthorized, Code: code, Op: op, Err: err}
	}
	return nil
}

// write runs fn in a read-write transaction while holding the contract lock
func (r *Registry) write(op string, fn func(*database.Txn) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.Storage(op, r.db.Transaction(true).Do(fn))
}

// Publish stores a new contract and returns its ID. Input is validated
// before an ID is allocated, so a rejected call leaves the counter untouched.
func (r *Registry) Publish(
	ctx context.Context,
	principal string,
	params PublishParams,
) (id uint32, err error) {
	const op = "registry.Publish"
	_, span := r.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("bazaar.principal", principal),
		attribute.String("bazaar.category", params.Category.String()),
	))
	defer func() { telemetry.End(span, err) }()
	if err := r.authorize(op, domain.CodeRegistryUnauthorizedUpdate, principal); err != nil {
		return 0, err
	}
	if principal != params.Author {
		return 0, domain.Unauthorized(domain.CodeRegistryUnauthorizedUpdate, op, "principal is not the declared author")
	}
	if err := params.validate(op); err != nil {
		return 0, err
	}
	err = r.write(op, func(txn *database.Txn) error {
		newID, err := r.contracts.NextID(txn)
		if err != nil {
			return err
		}
		ts := r.timestamp()
		record := &models.ContractRecord{
			ID:               newID,
			WasmHash:         params.WasmHash,
			Name:             params.Name,
			Description:      params.Description,
			Version:          params.Version,
			Author:           params.Author,
			Category:         params.Category,
			Tags:             params.Tags,
			SourceURL:        params.SourceURL,
			DocumentationURL: params.DocumentationURL,
			License:          params.License,
			PublishedAt:      ts,
			UpdatedAt:        ts,
		}
		if err := r.contracts.Put(txn, newID, record); err != nil {
			return err
		}
		if err := r.all.Append(txn, classDisc(), newID); err != nil {
			return err
		}
		if err := r.byCategory.Append(txn, categoryDisc(params.Category), newID); err != nil {
			return err
		}
		if err := r.byAuthor.Append(txn, []byte(params.Author), newID); err != nil {
			return err
		}
		id = newID
		return notify.Emit(txn, r.eventBus, PublishedEventType, PublishedEvent{
			ContractID: newID,
			Author:     params.Author,
		})
	})
	if err != nil {
		return 0, err
	}
	r.metrics.published.Inc()
	r.logger.Info(
		"published contract",
		"contract_id", id,
		"name", params.Name,
		"author", params.Author,
	)
	return id, nil
}

// Update overwrites the supplied fields of a contract. Only the author may
// update and the verified flag is never touched.
func (r *Registry) Update(
	ctx context.Context,
	principal string,
	contractID uint32,
	params UpdateParams,
) (err error) {
	const op = "registry.Update"
	_, span := r.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("bazaar.contract_id", int64(contractID)),
	))
	defer func() { telemetry.End(span, err) }()
	if err := r.authorize(op, domain.CodeRegistryUnauthorizedUpdate, principal); err != nil {
		return err
	}
	err = r.write(op, func(txn *database.Txn) error {
		record, err := r.load(txn, op, contractID)
		if err != nil {
			return err
		}
		if record.Author != principal {
			return domain.Unauthorized(domain.CodeRegistryUnauthorizedUpdate, op, "only the author may update contract %d", contractID)
		}
		if err := params.validate(op); err != nil {
			return err
		}
		if params.Description != nil {
			record.Description = *params.Description
		}
		if params.DocumentationURL != nil {
			record.DocumentationURL = *params.DocumentationURL
		}
		if params.Tags != nil {
			record.Tags = *params.Tags
		}
		record.UpdatedAt = r.timestamp()
		if err := r.contracts.Put(txn, contractID, record); err != nil {
			return err
		}
		return notify.Emit(txn, r.eventBus, UpdatedEventType, UpdatedEvent{ContractID: contractID})
	})
	if err != nil {
		return err
	}
	r.metrics.updated.Inc()
	r.logger.Debug("updated contract", "contract_id", contractID)
	return nil
}

// Verify marks a contract as verified. Any authorized principal may verify
// and verifying twice is harmless.
func (r *Registry) Verify(
	ctx context.Context,
	auditor string,
	contractID uint32,
) (err error) {
	const op = "registry.Verify"
	_, span := r.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("bazaar.contract_id", int64(contractID)),
		attribute.String("bazaar.principal", auditor),
	))
	defer func() { telemetry.End(span, err) }()
	if err := r.authorize(op, domain.CodeRegistryUnauthorizedVerification, auditor); err != nil {
		return err
	}
	err = r.write(op, func(txn *database.Txn) error {
		record, err := r.load(txn, op, contractID)
		if err != nil {
			return err
		}
		record.Verified = true
		if err := r.contracts.Put(txn, contractID, record); err != nil {
			return err
		}
		return notify.Emit(txn, r.eventBus, VerifiedEventType, VerifiedEvent{
			ContractID: contractID,
			Auditor:    auditor,
		})
	})
	if err != nil {
		return err
	}
	r.metrics.verified.Inc()
	r.logger.Info("verified contract", "contract_id", contractID, "auditor", auditor)
	return nil
}

// IncrementDeployments adds one to a contract's deployment count and
// returns the new total. The count saturates at the largest uint32.
func (r *Registry) IncrementDeployments(
	ctx context.Context,
	caller string,
	contractID uint32,
) (total uint32, err error) {
	const op = "registry.IncrementDeployments"
	_, span := r.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("bazaar.contract_id", int64(contractID)),
	))
	defer func() { telemetry.End(span, err) }()
	if err := r.authorize(op, domain.CodeRegistryUnauthorizedUpdate, caller); err != nil {
		return 0, err
	}
	err = r.write(op, func(txn *database.Txn) error {
		var err error
		total, err = r.incrementDeployments(txn, op, contractID)
		return err
	})
	if err != nil {
		return 0, err
	}
	r.metrics.deploymentsRecorded.Inc()
	return total, nil
}

// Lock acquires the contract write lock. It must be held around a
// transaction passed to TrackDeployment and taken before that transaction
// is opened.
func (r *Registry) Lock() {
	r.mu.Lock()
}

func (r *Registry) Unlock() {
	r.mu.Unlock()
}

// TrackDeployment counts a deployment against a contract as part of the
// caller's transaction. An unknown contract fails with domain.ErrNotFound.
func (r *Registry) TrackDeployment(
	txn *database.Txn,
	caller string,
	contractID uint32,
) error {
	const op = "registry.TrackDeployment"
	if err := r.authorize(op, domain.CodeRegistryUnauthorizedUpdate, caller); err != nil {
		return err
	}
	if _, err := r.incrementDeployments(txn, op, contractID); err != nil {
		return err
	}
	txn.OnCommit(r.metrics.deploymentsRecorded.Inc)
	return nil
}

func (r *Registry) incrementDeployments(
	txn *database.Txn,
	op string,
	contractID uint32,
) (uint32, error) {
	record, err := r.load(txn, op, contractID)
	if err != nil {
		return 0, err
	}
	if record.TotalDeployments < math.MaxUint32 {
		record.TotalDeployments++
	}
	if err := r.contracts.Put(txn, contractID, record); err != nil {
		return 0, err
	}
	err = notify.Emit(txn, r.eventBus, DeployedEventType, DeployedEvent{
		ContractID:       contractID,
		TotalDeployments: record.TotalDeployments,
	})
	if err != nil {
		return 0, err
	}
	return record.TotalDeployments, nil
}

func (r *Registry) load(
	txn *database.Txn,
	op string,
	contractID uint32,
) (*models.ContractRecord, error) {
	record, err := r.contracts.Get(txn, contractID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.NotFound(domain.CodeRegistryContractNotFound, op, "contract %d", contractID)
	}
	return record, nil
}
