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

package registry_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/bazaar/auth"
	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/blinklabs-io/bazaar/domain"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/internal/test/testutil"
	"github.com/blinklabs-io/bazaar/registry"
)

var testTime = testutil.FixedTime

type testEnv struct {
	db       *database.Database
	bus      *event.EventBus
	prom     *prometheus.Registry
	registry *registry.Registry
}

func newTestEnv(t *testing.T, authorizer auth.Authorizer) *testEnv {
	t.Helper()
	db := testutil.NewDatabase(t)
	bus := testutil.NewEventBus(t)
	prom := prometheus.NewRegistry()
	return &testEnv{
		db:   db,
		bus:  bus,
		prom: prom,
		registry: registry.NewRegistry(registry.RegistryConfig{
			DB:           db,
			EventBus:     bus,
			Authorizer:   authorizer,
			PromRegistry: prom,
			Clock:        func() time.Time { return testTime },
		}),
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func testParams(author string) registry.PublishParams {
	return registry.PublishParams{
		WasmHash:         bytes.Repeat([]byte{0xab}, registry.WasmHashLength),
		Name:             "Token",
		Description:      "A fungible token",
		Version:          "1.0.0",
		Author:           author,
		Category:         models.CategoryDeFi,
		Tags:             []string{"token", "sep41"},
		SourceURL:        "https://example.com/token",
		DocumentationURL: "https://example.com/token/docs",
		License:          "MIT",
	}
}

func TestPublishAndGet(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	params := testParams("GAUTHOR")
	id, err := env.registry.Publish(ctx, "GAUTHOR", params)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)

	got, err := env.registry.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, params.WasmHash, got.WasmHash)
	assert.Equal(t, params.Name, got.Name)
	assert.Equal(t, params.Tags, got.Tags)
	assert.Equal(t, params.License, got.License)
	assert.Equal(t, uint64(testTime.Unix()), got.PublishedAt)
	assert.Equal(t, got.PublishedAt, got.UpdatedAt)
	assert.False(t, got.Verified)
	assert.Zero(t, got.TotalDeployments)
	assert.InDelta(t, 1, counterValue(t, env.prom, "bazaar_registry_contracts_published_total"), 0)
}

func TestGetMissing(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.registry.Get(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrNotFound)
	code, _ := domain.CodeOf(err)
	assert.Equal(t, domain.CodeRegistryContractNotFound, code)
}

func TestPublishValidation(t *testing.T) {
	testDefs := []struct {
		name   string
		mutate func(*registry.PublishParams)
		code   domain.Code
	}{
		{"empty name", func(p *registry.PublishParams) { p.Name = "" }, domain.CodeRegistryInvalidMetadata},
		{"long name", func(p *registry.PublishParams) { p.Name = strings.Repeat("n", 101) }, domain.CodeRegistryInvalidMetadata},
		{"empty description", func(p *registry.PublishParams) { p.Description = "" }, domain.CodeRegistryInvalidMetadata},
		{"long description", func(p *registry.PublishParams) { p.Description = strings.Repeat("d", 501) }, domain.CodeRegistryInvalidMetadata},
		{"no source", func(p *registry.PublishParams) { p.SourceURL = "" }, domain.CodeRegistryInvalidMetadata},
		{"too many tags", func(p *registry.PublishParams) { p.Tags = make([]string, 11) }, domain.CodeRegistryInvalidMetadata},
		{"bad category", func(p *registry.PublishParams) { p.Category = 99 }, domain.CodeRegistryInvalidMetadata},
		{"short hash", func(p *registry.PublishParams) { p.WasmHash = []byte{1} }, domain.CodeRegistryInvalidWasmHash},
	}
	env := newTestEnv(t, nil)
	ctx := context.Background()
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			params := testParams("GAUTHOR")
			testDef.mutate(&params)
			_, err := env.registry.Publish(ctx, "GAUTHOR", params)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			code, _ := domain.CodeOf(err)
			assert.Equal(t, testDef.code, code)
		})
	}
	// Rejected calls never allocated an ID
	id, err := env.registry.Publish(ctx, "GAUTHOR", testParams("GAUTHOR"))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id)
	count, err := env.registry.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)
}

func TestPublishBoundaryLengths(t *testing.T) {
	env := newTestEnv(t, nil)
	params := testParams("GAUTHOR")
	params.Name = strings.Repeat("n", registry.MaxNameLength)
	params.Description = strings.Repeat("d", registry.MaxDescriptionLength)
	params.Tags = make([]string, registry.MaxTags)
	_, err := env.registry.Publish(context.Background(), "GAUTHOR", params)
	require.NoError(t, err)
}

func TestPublishRequiresAuthor(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.registry.Publish(context.Background(), "GOTHER", testParams("GAUTHOR"))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthorizerRejection(t *testing.T) {
	denied := errors.New("signature missing")
	env := newTestEnv(t, auth.AuthorizerFunc(func(string) error { return denied }))
	_, err := env.registry.Publish(context.Background(), "GAUTHOR", testParams("GAUTHOR"))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.ErrorIs(t, err, denied)
	err = env.registry.Verify(context.Background(), "GAUDITOR", 1)
	code, _ := domain.CodeOf(err)
	assert.Equal(t, domain.CodeRegistryUnauthorizedVerification, code)
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	id, err := env.registry.Publish(ctx, "GAUTHOR", testParams("GAUTHOR"))
	require.NoError(t, err)
	require.NoError(t, env.registry.Verify(ctx, "GAUDITOR", id))
	before, err := env.registry.Get(ctx, id)
	require.NoError(t, err)

	desc := "new description"
	err = env.registry.Update(ctx, "GOTHER", id, registry.UpdateParams{Description: &desc})
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	unchanged, err := env.registry.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, unchanged)

	empty := ""
	err = env.registry.Update(ctx, "GAUTHOR", id, registry.UpdateParams{Description: &empty})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	tags := []string{"token"}
	err = env.registry.Update(ctx, "GAUTHOR", id, registry.UpdateParams{
		Description: &desc,
		Tags:        &tags,
	})
	require.NoError(t, err)
	after, err := env.registry.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, desc, after.Description)
	assert.Equal(t, tags, after.Tags)
	assert.Equal(t, before.DocumentationURL, after.DocumentationURL)
	assert.True(t, after.Verified)

	err = env.registry.Update(ctx, "GAUTHOR", 99, registry.UpdateParams{})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerify(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	id, err := env.registry.Publish(ctx, "GAUTHOR", testParams("GAUTHOR"))
	require.NoError(t, err)
	require.NoError(t, env.registry.Verify(ctx, "GAUDITOR", id))
	require.NoError(t, env.registry.Verify(ctx, "GAUDITOR", id))
	got, err := env.registry.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Verified)
	require.ErrorIs(t, env.registry.Verify(ctx, "GAUDITOR", 7), domain.ErrNotFound)
}

func TestIncrementDeployments(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	id, err := env.registry.Publish(ctx, "GAUTHOR", testParams("GAUTHOR"))
	require.NoError(t, err)
	const n = 5
	for i := range n {
		total, err := env.registry.IncrementDeployments(ctx, "GDEPLOYER", id)
		require.NoError(t, err)
		assert.Equal(t, uint32(i+1), total)
	}
	got, err := env.registry.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(n), got.TotalDeployments)
	_, err = env.registry.IncrementDeployments(ctx, "GDEPLOYER", 9)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIncrementDeploymentsSaturates(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	id, err := env.registry.Publish(ctx, "GAUTHOR", testParams("GAUTHOR"))
	require.NoError(t, err)
	store := database.NewStore[models.ContractRecord](types.ClassContract)
	require.NoError(t, env.db.Transaction(true).Do(func(txn *database.Txn) error {
		rec, err := store.Get(txn, id)
		if err != nil {
			return err
		}
		rec.TotalDeployments = math.MaxUint32
		return store.Put(txn, id, rec)
	}))
	total, err := env.registry.IncrementDeployments(ctx, "GDEPLOYER", id)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), total)
}

func TestLookups(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	publish := func(author string, cat models.Category, tags ...string) uint32 {
		params := testParams(author)
		params.Category = cat
		params.Tags = tags
		id, err := env.registry.Publish(ctx, author, params)
		require.NoError(t, err)
		return id
	}
	a := publish("GALICE", models.CategoryDeFi, "amm")
	b := publish("GBOB", models.CategoryNFT, "art", "amm")
	c := publish("GALICE", models.CategoryDeFi)
	d := publish("GBOB", models.CategoryOracle, "price")

	ids := func(records []models.ContractRecord, err error) []uint32 {
		require.NoError(t, err)
		ret := []uint32{}
		for _, r := range records {
			ret = append(ret, r.ID)
		}
		return ret
	}
	assert.Equal(t, []uint32{a, b, c, d}, ids(env.registry.All(ctx)))
	assert.Equal(t, []uint32{a, c}, ids(env.registry.SearchByCategory(ctx, models.CategoryDeFi)))
	assert.Equal(t, []uint32{}, ids(env.registry.SearchByCategory(ctx, models.CategoryGaming)))
	assert.Equal(t, []uint32{a, b}, ids(env.registry.SearchByTag(ctx, "amm")))
	assert.Equal(t, []uint32{}, ids(env.registry.SearchByTag(ctx, "AMM")))
	assert.Equal(t, []uint32{b, d}, ids(env.registry.ContractsByAuthor(ctx, "GBOB")))
	count, err := env.registry.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), count)
}

func TestEventsAndJournal(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	_, published := env.bus.Subscribe(registry.PublishedEventType)
	_, verified := env.bus.Subscribe(registry.VerifiedEventType)
	id, err := env.registry.Publish(ctx, "GAUTHOR", testParams("GAUTHOR"))
	require.NoError(t, err)
	require.NoError(t, env.registry.Verify(ctx, "GAUDITOR", id))

	evt := <-published
	assert.Equal(t, registry.PublishedEvent{ContractID: id, Author: "GAUTHOR"}, evt.Data)
	evt = <-verified
	assert.Equal(t, registry.VerifiedEvent{ContractID: id, Auditor: "GAUDITOR"}, evt.Data)

	rows, err := env.db.Notifications(models.NotificationFilter{EntityID: id})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, string(registry.PublishedEventType), rows[0].Type)
	assert.Equal(t, string(registry.VerifiedEventType), rows[1].Type)
	assert.Equal(t, "GAUDITOR", rows[1].Principal)

	// Rejected operations emit nothing
	_, err = env.registry.Publish(ctx, "GAUTHOR", registry.PublishParams{Author: "GAUTHOR"})
	require.Error(t, err)
	select {
	case evt := <-published:
		t.Fatalf("unexpected event %v", evt)
	default:
	}
}

func TestConcurrentPublish(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	const workers = 8
	const perWorker = 5
	var wg sync.WaitGroup
	idCh := make(chan uint32, workers*perWorker)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				id, err := env.registry.Publish(ctx, "GAUTHOR", testParams("GAUTHOR"))
				assert.NoError(t, err)
				idCh <- id
			}
		}()
	}
	wg.Wait()
	close(idCh)
	seen := make(map[uint32]bool)
	for id := range idCh {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	for id := uint32(1); id <= workers*perWorker; id++ {
		assert.True(t, seen[id], "missing id %d", id)
	}
	all, err := env.registry.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, workers*perWorker)
}
