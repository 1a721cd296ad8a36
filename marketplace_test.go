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

package bazaar_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/bazaar"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/deployment"
	"github.com/blinklabs-io/bazaar/domain"
	"github.com/blinklabs-io/bazaar/registry"
)

const (
	author   = "GAUTHOR"
	deployer = "GDEPLOYER"
	reviewer = "GREVIEWER"
)

func fakeInstantiator() deployment.Instantiator {
	return deployment.InstantiatorFunc(
		func(_ context.Context, req deployment.InstantiateRequest) (string, error) {
			return "C" + req.Deployer, nil
		},
	)
}

func newMarketplace(t *testing.T, opts ...bazaar.ConfigOptionFunc) *bazaar.Marketplace {
	t.Helper()
	opts = append(
		[]bazaar.ConfigOptionFunc{
			bazaar.WithInstantiator(fakeInstantiator()),
			bazaar.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }),
		},
		opts...,
	)
	m, err := bazaar.New(bazaar.NewConfig(opts...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func publish(t *testing.T, m *bazaar.Marketplace) uint32 {
	t.Helper()
	id, err := m.Registry().Publish(context.Background(), author, registry.PublishParams{
		WasmHash: bytes.Repeat([]byte{0xab}, 32),
		Name:     "token",
		Version:  "1.0.0",
		Author:   author,
		Category: models.CategoryDeFi,
		Tags:     []string{"erc20"},
		License:  "MIT",
	})
	require.NoError(t, err)
	return id
}

func TestMarketplaceEndToEnd(t *testing.T) {
	ctx := context.Background()
	m := newMarketplace(
		t,
		bazaar.WithDeploymentTracking(true),
		bazaar.WithPrometheusRegistry(prometheus.NewRegistry()),
	)
	contractID := publish(t, m)

	depID, err := m.Deployments().Deploy(ctx, deployer, deployment.DeployParams{
		ContractID: contractID,
		WasmHash:   bytes.Repeat([]byte{0xab}, 32),
		Salt:       bytes.Repeat([]byte{0x01}, 32),
	})
	require.NoError(t, err)
	dep, err := m.Deployments().Get(ctx, depID)
	require.NoError(t, err)
	assert.Equal(t, "C"+deployer, dep.DeployedAddress)

	contract, err := m.Registry().Get(ctx, contractID)
	require.NoError(t, err)
	require.NotNil(t, contract)
	assert.Equal(t, uint32(1), contract.TotalDeployments)

	_, err = m.Reviews().Submit(ctx, reviewer, contractID, 4, "solid")
	require.NoError(t, err)
	summary, err := m.Reviews().Summary(ctx, contractID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), summary.TotalReviews)
	assert.Equal(t, uint32(400), summary.AverageRating)

	journal, err := m.Journal(models.NotificationFilter{})
	require.NoError(t, err)
	var types []string
	for _, n := range journal {
		types = append(types, n.Type)
	}
	assert.Equal(
		t,
		[]string{
			"registry.published",
			"registry.deployed",
			"deployment.deployed",
			"review.reviewed",
		},
		types,
	)
}

func TestMarketplaceTrackingRejectsUnknownContract(t *testing.T) {
	m := newMarketplace(t, bazaar.WithDeploymentTracking(true))
	_, err := m.Deployments().Deploy(context.Background(), deployer, deployment.DeployParams{
		ContractID: 99,
		WasmHash:   bytes.Repeat([]byte{0xab}, 32),
		Salt:       bytes.Repeat([]byte{0x01}, 32),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	code, ok := domain.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeDeploymentContractNotFound, code)
}

func TestMarketplaceWithoutTracking(t *testing.T) {
	ctx := context.Background()
	m := newMarketplace(t)
	contractID := publish(t, m)
	_, err := m.Deployments().Deploy(ctx, deployer, deployment.DeployParams{
		ContractID: contractID,
		WasmHash:   bytes.Repeat([]byte{0xab}, 32),
		Salt:       bytes.Repeat([]byte{0x01}, 32),
	})
	require.NoError(t, err)
	contract, err := m.Registry().Get(ctx, contractID)
	require.NoError(t, err)
	assert.Zero(t, contract.TotalDeployments)
}

func TestMarketplaceStopIsIdempotent(t *testing.T) {
	m, err := bazaar.New(bazaar.NewConfig())
	require.NoError(t, err)
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
}

func TestMarketplaceRejectsBadConfig(t *testing.T) {
	_, err := bazaar.New(bazaar.NewConfig(bazaar.WithTracingStdout(true)))
	require.Error(t, err)
}

// lockedBuffer is written by event handler goroutines while the test reads
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMarketplaceLogsCommittedEvents(t *testing.T) {
	var out lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := newMarketplace(t, bazaar.WithLogger(logger))
	contractID := publish(t, m)
	require.Eventually(t, func() bool {
		logged := out.String()
		return strings.Contains(logged, `"msg":"committed event"`) &&
			strings.Contains(logged, `"type":"registry.published"`)
	}, 2*time.Second, 5*time.Millisecond)

	// Rejected writes never reach the log
	_, err := m.Reviews().Submit(context.Background(), reviewer, contractID, 9, "too high")
	require.Error(t, err)
	require.NoError(t, m.Stop())
	assert.NotContains(t, out.String(), "review.reviewed")
}
