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

// Package sops wraps small values in SOPS binary documents encrypted with
// KMS master keys
package sops

import (
	"errors"
	"fmt"
	"os"

	sopsapi "github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/aes"
	scommon "github.com/getsops/sops/v3/cmd/sops/common"
	"github.com/getsops/sops/v3/config"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/getsops/sops/v3/gcpkms"
	awskms "github.com/getsops/sops/v3/kms"
	jsonstore "github.com/getsops/sops/v3/stores/json"
	"github.com/getsops/sops/v3/version"
)

// Environment variables read by KeysFromEnv
const (
	EnvGCPResourceIDs = "BAZAAR_GCP_KMS_RESOURCE_ID"
	EnvAWSKeyARNs     = "BAZAAR_AWS_KMS_KEY_ARNS"
	EnvAWSProfile     = "BAZAAR_AWS_KMS_PROFILE"
)

var ErrNoMasterKeys = errors.New(
	"sops: no master keys, set " + EnvGCPResourceIDs + " and/or " + EnvAWSKeyARNs,
)

// Keys name the KMS master keys to encrypt with. Each provider that is set
// contributes one key group, and every group is needed to decrypt.
type Keys struct {
	// comma separated GCP KMS resource IDs
	GCPResourceIDs string
	// comma separated AWS KMS key ARNs
	AWSKeyARNs string
	AWSProfile string
}

func KeysFromEnv() Keys {
	return Keys{
		GCPResourceIDs: os.Getenv(EnvGCPResourceIDs),
		AWSKeyARNs:     os.Getenv(EnvAWSKeyARNs),
		AWSProfile:     os.Getenv(EnvAWSProfile),
	}
}

// Enabled reports whether any master key is configured
func (k Keys) Enabled() bool {
	return k.GCPResourceIDs != "" || k.AWSKeyARNs != ""
}

func (k Keys) keyGroups() ([]sopsapi.KeyGroup, error) {
	var groups []sopsapi.KeyGroup
	var gcp sopsapi.KeyGroup
	for _, key := range gcpkms.MasterKeysFromResourceIDString(k.GCPResourceIDs) {
		gcp = append(gcp, key)
	}
	if len(gcp) > 0 {
		groups = append(groups, gcp)
	}
	var aws sopsapi.KeyGroup
	for _, key := range awskms.MasterKeysFromArnString(k.AWSKeyARNs, nil, k.AWSProfile) {
		aws = append(aws, key)
	}
	if len(aws) > 0 {
		groups = append(groups, aws)
	}
	if len(groups) == 0 {
		return nil, ErrNoMasterKeys
	}
	return groups, nil
}

// Decrypt returns the plaintext of a SOPS binary document. The master keys
// are named inside the document.
func Decrypt(data []byte) ([]byte, error) {
	return decrypt.Data(data, "binary")
}

// Encrypt wraps data in a SOPS binary document
func Encrypt(data []byte, keys Keys) ([]byte, error) {
	keyGroups, err := keys.keyGroups()
	if err != nil {
		return nil, err
	}
	store := jsonstore.NewBinaryStore(&config.JSONBinaryStoreConfig{})
	branches, err := store.LoadPlainFile(data)
	if err != nil {
		return nil, fmt.Errorf("sops: load plaintext: %w", err)
	}
	tree := sopsapi.Tree{
		Branches: branches,
		Metadata: sopsapi.Metadata{
			KeyGroups: keyGroups,
			Version:   version.Version,
		},
	}
	dataKey, errs := tree.GenerateDataKey()
	if len(errs) > 0 {
		return nil, fmt.Errorf("sops: generate data key: %v", errs)
	}
	err = scommon.EncryptTree(scommon.EncryptTreeOpts{
		DataKey: dataKey,
		Tree:    &tree,
		Cipher:  aes.NewCipher(),
	})
	if err != nil {
		return nil, fmt.Errorf("sops: encrypt: %w", err)
	}
	ret, err := store.EmitEncryptedFile(tree)
	if err != nil {
		return nil, fmt.Errorf("sops: emit document: %w", err)
	}
	return ret, nil
}
