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

// Package sqlconn holds the connection settings shared by the metadata
// stores that talk to a networked SQL server
package sqlconn

import (
	"net"
	"strconv"
	"strings"

	"github.com/blinklabs-io/bazaar/database/plugin"
)

const (
	DefaultHost     = "localhost"
	DefaultUser     = "bazaar"
	DefaultDatabase = "bazaar"
	DefaultTimeZone = "UTC"
)

// Settings describe how to reach the server. A non-empty DSN is used as is
// and the discrete fields are only kept for logging.
type Settings struct {
	Host     string
	Port     uint64
	User     string
	Password string
	Database string
	SSLMode  string
	TimeZone string
	DSN      string
}

// Defaults returns the settings of a local server provisioned for bazaar
func Defaults(port uint64) Settings {
	return Settings{
		Host:     DefaultHost,
		Port:     port,
		User:     DefaultUser,
		Database: DefaultDatabase,
		TimeZone: DefaultTimeZone,
	}
}

// Merge returns s with every unset field taken from def. Password and DSN
// never have defaults.
func (s Settings) Merge(def Settings) Settings {
	if s.Host == "" {
		s.Host = def.Host
	}
	if s.Port == 0 {
		s.Port = def.Port
	}
	if s.User == "" {
		s.User = def.User
	}
	if s.Database == "" {
		s.Database = def.Database
	}
	if s.SSLMode == "" {
		s.SSLMode = def.SSLMode
	}
	if s.TimeZone == "" {
		s.TimeZone = def.TimeZone
	}
	s.DSN = strings.TrimSpace(s.DSN)
	return s
}

// Address returns host:port
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.FormatUint(s.Port, 10))
}

// PluginOptions exposes every field of s as a plugin option. Values parsed
// from flags, env vars or config files are written straight into s.
func (s *Settings) PluginOptions(engine string, def Settings) []plugin.PluginOption {
	text := func(name string, desc string, dest *string, value string) plugin.PluginOption {
		return plugin.PluginOption{
			Name:         name,
			Type:         plugin.PluginOptionTypeString,
			Description:  desc,
			DefaultValue: value,
			Dest:         dest,
		}
	}
	return []plugin.PluginOption{
		text("host", engine+" host", &s.Host, def.Host),
		{
			Name:         "port",
			Type:         plugin.PluginOptionTypeUint,
			Description:  engine + " port",
			DefaultValue: def.Port,
			Dest:         &s.Port,
		},
		text("user", engine+" user", &s.User, def.User),
		text("password", engine+" password", &s.Password, ""),
		text("database", engine+" database name", &s.Database, def.Database),
		text("ssl-mode", engine+" TLS mode", &s.SSLMode, def.SSLMode),
		text("timezone", "time zone of "+engine+" timestamps", &s.TimeZone, def.TimeZone),
		text("dsn", "full "+engine+" DSN, overrides the other connection options", &s.DSN, ""),
	}
}
