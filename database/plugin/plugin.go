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

package plugin

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type Plugin interface {
	Start() error
	Stop() error
}

// Configurable is implemented by plugins that accept the shared logger and
// metrics registry. It is called after construction and before Start.
type Configurable interface {
	Configure(logger *slog.Logger, promRegistry prometheus.Registerer)
}

// ErrorPlugin is a plugin that always returns an error on Start()
type ErrorPlugin struct {
	Err error
}

func (e *ErrorPlugin) Start() error {
	return e.Err
}

func (e *ErrorPlugin) Stop() error {
	return nil
}

// NewErrorPlugin creates a plugin that defers a construction error to Start()
func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

// StartPlugin gets a plugin from the registry, configures it when supported
// and starts it
func StartPlugin(
	pluginType PluginType,
	pluginName string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (Plugin, error) {
	p := GetPlugin(pluginType, pluginName)
	if p == nil {
		return nil, fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}
	if c, ok := p.(Configurable); ok {
		c.Configure(logger, promRegistry)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}
	return p, nil
}

func assignOption[T any](optionName string, dest any, value T) error {
	if dest == nil {
		return fmt.Errorf("nil destination for option %s", optionName)
	}
	ptr, ok := dest.(*T)
	if !ok || ptr == nil {
		return fmt.Errorf(
			"invalid destination type for option %s: expected *%T",
			optionName,
			value,
		)
	}
	*ptr = value
	return nil
}

// SetPluginOption sets the value of a named option for a plugin entry. It is
// used to override plugin defaults before a plugin is instantiated, and must
// not be called concurrently with plugin construction.
// Unknown options are ignored so that callers can set options such as
// data-dir that only some implementations support.
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	for i := range pluginEntries {
		p := &pluginEntries[i]
		if p.Type != pluginType || p.Name != pluginName {
			continue
		}
		for _, opt := range p.Options {
			if opt.Name != optionName {
				continue
			}
			switch opt.Type {
			case PluginOptionTypeString:
				v, ok := value.(string)
				if !ok {
					return fmt.Errorf("invalid type for option %s: expected string", optionName)
				}
				return assignOption(optionName, opt.Dest, v)
			case PluginOptionTypeBool:
				v, ok := value.(bool)
				if !ok {
					return fmt.Errorf("invalid type for option %s: expected bool", optionName)
				}
				return assignOption(optionName, opt.Dest, v)
			case PluginOptionTypeInt:
				v, ok := value.(int)
				if !ok {
					return fmt.Errorf("invalid type for option %s: expected int", optionName)
				}
				return assignOption(optionName, opt.Dest, v)
			case PluginOptionTypeUint:
				switch tv := value.(type) {
				case uint64:
					return assignOption(optionName, opt.Dest, tv)
				case int:
					if tv < 0 {
						return fmt.Errorf("invalid value for option %s: negative int", optionName)
					}
					return assignOption(optionName, opt.Dest, uint64(tv))
				default:
					return fmt.Errorf("invalid type for option %s: expected uint64 or int", optionName)
				}
			default:
				return fmt.Errorf(
					"unknown plugin option type %d for option %s",
					opt.Type,
					optionName,
				)
			}
		}
		return nil
	}
	return fmt.Errorf(
		"plugin %s of type %s not found",
		pluginName,
		PluginTypeName(pluginType),
	)
}
