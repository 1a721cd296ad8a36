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

package objstore

import (
	"fmt"
	"strings"

	"github.com/blinklabs-io/bazaar/database/plugin"
)

// DefaultPrefix keeps bazaar objects apart from anything else in a shared
// bucket when no prefix is configured
const DefaultPrefix = "bazaar"

// Location is a bucket and the key prefix bazaar owns inside it
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation parses a data dir of the form "<scheme>://bucket[/prefix]"
func ParseLocation(scheme string, dataDir string) (Location, error) {
	path, ok := strings.CutPrefix(dataDir, scheme+"://")
	if !ok {
		return Location{}, fmt.Errorf(
			"%s blob: expected dataDir='%s://<bucket>[/prefix]'",
			scheme,
			scheme,
		)
	}
	bucket, prefix, _ := strings.Cut(path, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("%s blob: bucket not set", scheme)
	}
	return Location{Bucket: bucket, Prefix: prefix}, nil
}

// KeyPrefix returns the prefix ending in a single slash, or "" for the
// bucket root
func (l Location) KeyPrefix() string {
	prefix := strings.Trim(l.Prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// PluginOptions exposes l as the bucket and prefix plugin options
func (l *Location) PluginOptions(provider string) []plugin.PluginOption {
	return []plugin.PluginOption{
		{
			Name:         "bucket",
			Type:         plugin.PluginOptionTypeString,
			Description:  provider + " bucket name",
			DefaultValue: "",
			Dest:         &l.Bucket,
		},
		{
			Name:         "prefix",
			Type:         plugin.PluginOptionTypeString,
			Description:  "object key prefix inside the bucket",
			DefaultValue: DefaultPrefix,
			Dest:         &l.Prefix,
		},
	}
}
