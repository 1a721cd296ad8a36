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

package gcs

import (
	"github.com/blinklabs-io/bazaar/database/plugin"
	"github.com/blinklabs-io/bazaar/database/plugin/blob/internal/objstore"
)

// cmdlineOptions is filled in by flags, env vars and the config file
var cmdlineOptions = struct {
	location        objstore.Location
	credentialsFile string
}{
	location: objstore.Location{Prefix: objstore.DefaultPrefix},
}

func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "gcs",
			Description:        "Google Cloud Storage blob store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: append(
				cmdlineOptions.location.PluginOptions("GCS"),
				plugin.PluginOption{
					Name:         "credentials-file",
					Type:         plugin.PluginOptionTypeString,
					Description:  "service account key file, application default credentials when empty",
					DefaultValue: "",
					Dest:         &cmdlineOptions.credentialsFile,
				},
			),
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	return NewWithOptions(
		WithBucket(cmdlineOptions.location.Bucket),
		WithPrefix(cmdlineOptions.location.Prefix),
		WithCredentialsFile(cmdlineOptions.credentialsFile),
	)
}
