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

package event_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/bazaar/event"
)

type listedPayload struct {
	ContractID uint32 `json:"contractId"`
	Author     string `json:"author"`
}

func (p listedPayload) EventEntityID() uint32  { return p.ContractID }
func (p listedPayload) EventPrincipal() string { return p.Author }

func TestNewEventAssignsUniqueIDs(t *testing.T) {
	a := event.NewEvent("t", nil)
	b := event.NewEvent("t", nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.WithinDuration(t, time.Now(), a.Timestamp, time.Second)
}

func TestToNotification(t *testing.T) {
	evt := event.NewEvent(
		"contract.published",
		listedPayload{ContractID: 7, Author: "GABC"},
	)
	n, err := event.ToNotification(evt)
	require.NoError(t, err)
	assert.Equal(t, evt.ID, n.EventID)
	assert.Equal(t, "contract.published", n.Type)
	assert.Equal(t, uint32(7), n.EntityID)
	assert.Equal(t, "GABC", n.Principal)
	assert.JSONEq(t, `{"contractId":7,"author":"GABC"}`, n.Payload)
}

func TestToNotificationPlainPayload(t *testing.T) {
	n, err := event.ToNotification(event.NewEvent("x", map[string]int{"a": 1}))
	require.NoError(t, err)
	assert.Zero(t, n.EntityID)
	assert.Empty(t, n.Principal)
}

func TestToNotificationUnencodable(t *testing.T) {
	_, err := event.ToNotification(event.NewEvent("x", make(chan int)))
	require.Error(t, err)
}

func TestMetricsCountDrops(t *testing.T) {
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	var typ event.EventType = "drop.test"
	_, _ = eb.Subscribe(typ)
	for range event.EventQueueSize + 3 {
		eb.Publish(typ, event.NewEvent(typ, nil))
	}
	count, err := testutil.GatherAndCount(reg, "bazaar_event_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	published, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range published {
		if mf.GetName() != "bazaar_event_published_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	assert.InDelta(t, float64(event.EventQueueSize+3), total, 0)
}
