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
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/bazaar/auth"
	"github.com/blinklabs-io/bazaar/deployment"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry       prometheus.Registerer
	logger             *slog.Logger
	authorizer         auth.Authorizer
	instantiator       deployment.Instantiator
	clock              func() time.Time
	dataDir            string
	blobPlugin         string
	metadataPlugin     string
	networkPassphrase  string
	tracingEndpoint    string
	shutdownTimeout    time.Duration
	deploymentTracking bool
	tracing            bool
	tracingStdout      bool
}

// ConfigOptionFunc is a type that represents functions that modify the marketplace config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new marketplace config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. No metrics are collected without one
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithAuthorizer specifies how principals are authenticated. The default accepts any non-empty principal
func WithAuthorizer(authorizer auth.Authorizer) ConfigOptionFunc {
	return func(c *Config) {
		c.authorizer = authorizer
	}
}

// WithInstantiator overrides the instantiator used for deployments
func WithInstantiator(instantiator deployment.Instantiator) ConfigOptionFunc {
	return func(c *Config) {
		c.instantiator = instantiator
	}
}

// WithClock overrides the time source used for record timestamps
func WithClock(clock func() time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithNetworkPassphrase specifies the Stellar network passphrase used to derive contract addresses.
// This is ignored when a custom instantiator is supplied
func WithNetworkPassphrase(passphrase string) ConfigOptionFunc {
	return func(c *Config) {
		c.networkPassphrase = passphrase
	}
}

// WithDeploymentTracking makes each deployment check the registry contract and bump its deployment counter
func WithDeploymentTracking(tracking bool) ConfigOptionFunc {
	return func(c *Config) {
		c.deploymentTracking = tracking
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithTracingEndpoint overrides the OTLP endpoint (host:port) used when tracing to a collector
func WithTracingEndpoint(endpoint string) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingEndpoint = endpoint
	}
}

// WithShutdownTimeout sets how long Stop waits for shutdown functions. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
