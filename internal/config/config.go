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

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/bazaar/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "bazaar.config"

const (
	DefaultBlobPlugin      = "badger"
	DefaultMetadataPlugin  = "sqlite"
	DefaultDatabasePath    = ".bazaar"
	DefaultShutdownTimeout = "30s"

	AuthorizerAllowAll = "allow-all"
	AuthorizerStrkey   = "strkey"

	envPrefix = "bazaar"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	DatabasePath       string `yaml:"databasePath"       split_words:"true"`
	BlobPlugin         string `yaml:"blobPlugin"         envconfig:"BAZAAR_DATABASE_BLOB_PLUGIN"`
	MetadataPlugin     string `yaml:"metadataPlugin"     envconfig:"BAZAAR_DATABASE_METADATA_PLUGIN"`
	NetworkPassphrase  string `yaml:"networkPassphrase"  split_words:"true"`
	Authorizer         string `yaml:"authorizer"`
	Principal          string `yaml:"principal"`
	ShutdownTimeout    string `yaml:"shutdownTimeout"    split_words:"true"`
	TracingEndpoint    string `yaml:"tracingEndpoint"    split_words:"true"`
	DeploymentTracking bool   `yaml:"deploymentTracking" split_words:"true"`
	Tracing            bool   `yaml:"tracing"`
	TracingStdout      bool   `yaml:"tracingStdout"      split_words:"true"`
}

// DefaultConfig returns a config populated with built-in defaults
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:    DefaultDatabasePath,
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		Authorizer:      AuthorizerAllowAll,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Validate checks values that cannot be caught by parsing alone
func (c *Config) Validate() error {
	switch c.Authorizer {
	case AuthorizerAllowAll, AuthorizerStrkey:
	default:
		return fmt.Errorf(
			"invalid authorizer: %q (must be %q or %q)",
			c.Authorizer,
			AuthorizerAllowAll,
			AuthorizerStrkey,
		)
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if c.TracingStdout && !c.Tracing {
		return errors.New("tracingStdout requires tracing to be enabled")
	}
	return nil
}

// ShutdownTimeoutDuration parses ShutdownTimeout. An empty value gives zero
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid shutdownTimeout: %s is negative", d)
	}
	return d, nil
}

// findConfigFile checks ~/.bazaar/bazaar.yaml and then /etc/bazaar/bazaar.yaml
func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".bazaar", "bazaar.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/bazaar/bazaar.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// LoadConfig builds the config from defaults, the YAML file, BAZAAR_*
// environment variables and plugin environment variables, in that order
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		if err := cfg.loadFile(configFile); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	// Process plugin environment variables
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(configFile string) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if tempCfg.Config != nil {
		// Overlay config section values onto existing defaults
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, c); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else if err := yaml.Unmarshal(buf, c); err != nil {
		// A file without a config section is the main config
		return fmt.Errorf("error parsing config file: %w", err)
	}
	pluginConfig := make(map[string]map[string]map[string]any)
	if tempCfg.Blob != nil {
		pluginConfig["blob"] = tempCfg.Blob
	}
	if tempCfg.Metadata != nil {
		pluginConfig["metadata"] = tempCfg.Metadata
	}
	if tempCfg.Database != nil {
		mergeSection(pluginConfig, "blob", tempCfg.Database.Blob, &c.BlobPlugin)
		mergeSection(pluginConfig, "metadata", tempCfg.Database.Metadata, &c.MetadataPlugin)
	}
	if len(pluginConfig) > 0 {
		if err := plugin.ProcessConfig(pluginConfig); err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

// mergeSection folds a database.<type> section into pluginConfig. A "plugin"
// key selects the plugin and every map value is taken as that plugin's options.
func mergeSection(
	pluginConfig map[string]map[string]map[string]any,
	pluginType string,
	section map[string]any,
	pluginName *string,
) {
	if section == nil {
		return
	}
	if name, ok := section["plugin"].(string); ok {
		*pluginName = name
		delete(section, "plugin")
	}
	options := make(map[string]map[string]any)
	for k, v := range section {
		switch val := v.(type) {
		case map[string]any:
			options[k] = val
		case map[any]any:
			converted := make(map[string]any, len(val))
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					converted[keyStr] = vv
				}
			}
			options[k] = converted
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				pluginType, k, v,
			)
		}
	}
	if pluginConfig[pluginType] == nil {
		pluginConfig[pluginType] = options
		return
	}
	maps.Copy(pluginConfig[pluginType], options)
}
