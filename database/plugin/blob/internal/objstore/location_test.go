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

package objstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/bazaar/database/plugin/blob/internal/objstore"
)

func TestParseLocation(t *testing.T) {
	loc, err := objstore.ParseLocation("s3", "s3://market/contracts/v1")
	require.NoError(t, err)
	assert.Equal(t, objstore.Location{Bucket: "market", Prefix: "contracts/v1"}, loc)
	assert.Equal(t, "contracts/v1/", loc.KeyPrefix())

	loc, err = objstore.ParseLocation("gcs", "gcs://market")
	require.NoError(t, err)
	assert.Empty(t, loc.KeyPrefix())

	_, err = objstore.ParseLocation("gcs", "s3://market")
	require.ErrorContains(t, err, "gcs://<bucket>")
	_, err = objstore.ParseLocation("s3", "s3:///prefix")
	require.ErrorContains(t, err, "bucket not set")
}

func TestKeyPrefixTrimsSlashes(t *testing.T) {
	assert.Equal(t, "bazaar/", objstore.Location{Prefix: "/bazaar//"}.KeyPrefix())
	assert.Empty(t, objstore.Location{Prefix: "/"}.KeyPrefix())
}

func TestLocationPluginOptions(t *testing.T) {
	var loc objstore.Location
	opts := loc.PluginOptions("S3")
	require.Len(t, opts, 2)
	assert.Equal(t, "S3 bucket name", opts[0].Description)
	assert.Equal(t, objstore.DefaultPrefix, opts[1].DefaultValue)
	*(opts[0].Dest.(*string)) = "market"
	assert.Equal(t, "market", loc.Bucket)
}
