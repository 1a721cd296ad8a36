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

package sops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testResourceID = "projects/bazaar/locations/global/keyRings/market/cryptoKeys/commit"
	testKeyARN     = "arn:aws:kms:us-east-1:111122223333:key/bazaar-commit"
)

func TestKeysFromEnv(t *testing.T) {
	t.Setenv(EnvGCPResourceIDs, "")
	t.Setenv(EnvAWSKeyARNs, "")
	assert.False(t, KeysFromEnv().Enabled())

	t.Setenv(EnvAWSKeyARNs, testKeyARN)
	t.Setenv(EnvAWSProfile, "bazaar")
	keys := KeysFromEnv()
	assert.True(t, keys.Enabled())
	assert.Equal(t, Keys{AWSKeyARNs: testKeyARN, AWSProfile: "bazaar"}, keys)
}

func TestKeyGroups(t *testing.T) {
	groups, err := Keys{
		GCPResourceIDs: testResourceID + "," + testResourceID + "-backup",
		AWSKeyARNs:     testKeyARN,
	}.keyGroups()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)
	assert.Equal(t, "gcp_kms", groups[0][0].TypeToIdentifier())
	assert.Equal(t, "kms", groups[1][0].TypeToIdentifier())
}

func TestEncryptWithoutKeys(t *testing.T) {
	_, err := Encrypt([]byte{0x01}, Keys{})
	require.ErrorIs(t, err, ErrNoMasterKeys)
}

func TestDecryptRejectsPlaintext(t *testing.T) {
	_, err := Decrypt([]byte("not a sops document"))
	require.Error(t, err)
}
