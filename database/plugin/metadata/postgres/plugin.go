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

package postgres

import (
	"github.com/blinklabs-io/bazaar/database/plugin"
	"github.com/blinklabs-io/bazaar/database/plugin/metadata/internal/sqlconn"
)

const DefaultPort = 5432

func defaults() sqlconn.Settings {
	ret := sqlconn.Defaults(DefaultPort)
	ret.SSLMode = "disable"
	return ret
}

// cmdlineOptions is filled in by flags, env vars and the config file. The
// password has no default.
var cmdlineOptions = defaults()

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "postgres",
			Description:        "Postgres relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options:            cmdlineOptions.PluginOptions("Postgres", defaults()),
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	return NewWithOptions(WithConnection(cmdlineOptions))
}
