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

package models

import "github.com/blinklabs-io/gouroboros/cbor"

// ContractRecord is a published contract. Timestamps are unix seconds.
type ContractRecord struct {
	cbor.StructAsArray
	ID               uint32   `json:"id"`
	WasmHash         []byte   `json:"wasmHash"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Version          string   `json:"version"`
	Author           string   `json:"author"`
	Category         Category `json:"category"`
	Tags             []string `json:"tags"`
	SourceURL        string   `json:"sourceUrl"`
	DocumentationURL string   `json:"documentationUrl"`
	License          string   `json:"license"`
	PublishedAt      uint64   `json:"publishedAt"`
	UpdatedAt        uint64   `json:"updatedAt"`
	TotalDeployments uint32   `json:"totalDeployments"`
	Verified         bool     `json:"verified"`
}

// HasTag reports whether the contract carries the exact tag
func (c *ContractRecord) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
