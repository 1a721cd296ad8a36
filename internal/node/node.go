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

package node

import (
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/bazaar"
	"github.com/blinklabs-io/bazaar/auth"
	"github.com/blinklabs-io/bazaar/internal/config"
)

// Open builds a Marketplace from the loaded CLI config
func Open(cfg *config.Config, logger *slog.Logger) (*bazaar.Marketplace, error) {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	var authorizer auth.Authorizer = auth.AllowAll
	if cfg.Authorizer == config.AuthorizerStrkey {
		authorizer = auth.StrkeyAuthorizer{}
	}
	m, err := bazaar.New(
		bazaar.NewConfig(
			bazaar.WithLogger(logger),
			bazaar.WithDatabasePath(cfg.DatabasePath),
			bazaar.WithBlobPlugin(cfg.BlobPlugin),
			bazaar.WithMetadataPlugin(cfg.MetadataPlugin),
			bazaar.WithAuthorizer(authorizer),
			bazaar.WithNetworkPassphrase(cfg.NetworkPassphrase),
			bazaar.WithDeploymentTracking(cfg.DeploymentTracking),
			bazaar.WithTracing(cfg.Tracing),
			bazaar.WithTracingStdout(cfg.TracingStdout),
			bazaar.WithTracingEndpoint(cfg.TracingEndpoint),
			bazaar.WithShutdownTimeout(shutdownTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open marketplace: %w", err)
	}
	return m, nil
}
