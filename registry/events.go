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

package registry

import "github.com/blinklabs-io/bazaar/event"

const (
	PublishedEventType event.EventType = "registry.published"
	UpdatedEventType   event.EventType = "registry.updated"
	VerifiedEventType  event.EventType = "registry.verified"
	DeployedEventType  event.EventType = "registry.deployed"
)

type PublishedEvent struct {
	ContractID uint32 `json:"contractId"`
	Author     string `json:"author"`
}

func (e PublishedEvent) EventEntityID() uint32  { return e.ContractID }
func (e PublishedEvent) EventPrincipal() string { return e.Author }

type UpdatedEvent struct {
	ContractID uint32 `json:"contractId"`
}

func (e UpdatedEvent) EventEntityID() uint32 { return e.ContractID }

type VerifiedEvent struct {
	ContractID uint32 `json:"contractId"`
	Auditor    string `json:"auditor"`
}

func (e VerifiedEvent) EventEntityID() uint32  { return e.ContractID }
func (e VerifiedEvent) EventPrincipal() string { return e.Auditor }

type DeployedEvent struct {
	ContractID       uint32 `json:"contractId"`
	TotalDeployments uint32 `json:"totalDeployments"`
}

func (e DeployedEvent) EventEntityID() uint32 { return e.ContractID }
