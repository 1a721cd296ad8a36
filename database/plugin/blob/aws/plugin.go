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

package aws

import (
	"github.com/blinklabs-io/bazaar/database/plugin"
	"github.com/blinklabs-io/bazaar/database/plugin/blob/internal/objstore"
)

// cmdlineOptions is filled in by flags, env vars and the config file
var cmdlineOptions = struct {
	location objstore.Location
	region   string
	endpoint string
}{
	location: objstore.Location{Prefix: objstore.DefaultPrefix},
}

func init() {
	options := cmdlineOptions.location.PluginOptions("S3")
	options = append(options,
		plugin.PluginOption{
			Name:         "region",
			Type:         plugin.PluginOptionTypeString,
			Description:  "AWS region, taken from the AWS config when empty",
			DefaultValue: "",
			Dest:         &cmdlineOptions.region,
		},
		plugin.PluginOption{
			Name:         "endpoint",
			Type:         plugin.PluginOptionTypeString,
			Description:  "URL of an S3-compatible server",
			DefaultValue: "",
			Dest:         &cmdlineOptions.endpoint,
		},
	)
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "s3",
			Description:        "AWS S3 blob store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options:            options,
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	p, err := NewWithOptions(
		WithBucket(cmdlineOptions.location.Bucket),
		WithPrefix(cmdlineOptions.location.Prefix),
		WithRegion(cmdlineOptions.region),
		WithEndpoint(cmdlineOptions.endpoint),
	)
	if err != nil {
		// Surfaces when the plugin is started
		return plugin.NewErrorPlugin(err)
	}
	return p
}
