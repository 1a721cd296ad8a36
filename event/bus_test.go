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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/deployment"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/internal/notify"
	"github.com/blinklabs-io/bazaar/internal/test/testutil"
	"github.com/blinklabs-io/bazaar/registry"
	"github.com/blinklabs-io/bazaar/review"
)

func TestPublishFansOutByType(t *testing.T) {
	bus := testutil.NewEventBus(t)
	_, indexer := bus.Subscribe(registry.PublishedEventType)
	_, audit := bus.Subscribe(registry.PublishedEventType)
	_, reviews := bus.Subscribe(review.ReviewedEventType)

	published := registry.PublishedEvent{ContractID: 4, Author: "GAUTHOR"}
	bus.Publish(registry.PublishedEventType, event.NewEvent(registry.PublishedEventType, published))

	for _, ch := range []<-chan event.Event{indexer, audit} {
		evt := testutil.RequireReceive(t, ch, time.Second, "published event not delivered")
		assert.Equal(t, registry.PublishedEventType, evt.Type)
		assert.Equal(t, published, evt.Data)
	}
	testutil.RequireNoReceive(t, reviews, 10*time.Millisecond, "review subscriber got a registry event")
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := testutil.NewEventBus(t)
	subId, ch := bus.Subscribe(review.UpvotedEventType)
	bus.Unsubscribe(review.UpvotedEventType, subId)
	// Unknown IDs are ignored
	bus.Unsubscribe(review.UpvotedEventType, subId)
	bus.Publish(review.UpvotedEventType, event.NewEvent(review.UpvotedEventType, review.UpvotedEvent{ReviewID: 1}))
	_, ok := <-ch
	assert.False(t, ok)
}

func TestStopReleasesHandlers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	bus := event.NewEventBus(nil, nil)
	seen := make(chan event.Event, 1)
	require.NotZero(t, bus.SubscribeFunc(registry.VerifiedEventType, func(evt event.Event) {
		seen <- evt
	}))
	_, ch := bus.Subscribe(registry.VerifiedEventType)
	bus.Publish(registry.VerifiedEventType, event.NewEvent(registry.VerifiedEventType, registry.VerifiedEvent{ContractID: 2}))
	testutil.RequireReceive(t, seen, time.Second, "handler not invoked before Stop")

	bus.Stop()
	for range ch {
	}
	bus.Publish(registry.VerifiedEventType, event.NewEvent(registry.VerifiedEventType, registry.VerifiedEvent{ContractID: 3}))
	testutil.RequireNoReceive(t, seen, 10*time.Millisecond, "handler invoked after Stop")

	// The bus accepts new subscribers once stopped
	_, again := bus.Subscribe(registry.VerifiedEventType)
	bus.Publish(registry.VerifiedEventType, event.NewEvent(registry.VerifiedEventType, registry.VerifiedEvent{ContractID: 4}))
	evt := testutil.RequireReceive(t, again, time.Second, "no delivery after restart")
	assert.Equal(t, registry.VerifiedEvent{ContractID: 4}, evt.Data)
	bus.Stop()
}

func TestSubscribeFuncSurvivesPanic(t *testing.T) {
	bus := testutil.NewEventBus(t)
	var calls atomic.Int32
	bus.SubscribeFunc(registry.UpdatedEventType, func(event.Event) {
		if calls.Add(1) == 1 {
			panic("handler failure")
		}
	})
	for id := range uint32(2) {
		bus.Publish(registry.UpdatedEventType, event.NewEvent(registry.UpdatedEventType, registry.UpdatedEvent{ContractID: id}))
	}
	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandlersSeeOnlyCommittedEvents(t *testing.T) {
	db := testutil.NewDatabase(t)
	bus := testutil.NewEventBus(t)
	seen := make(chan event.Event, 2)
	bus.SubscribeFunc(deployment.DeployedEventType, func(evt event.Event) {
		seen <- evt
	})

	failure := errors.New("instantiation failed")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := notify.Emit(txn, bus, deployment.DeployedEventType, deployment.DeployedEvent{DeploymentID: 1}); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		return notify.Emit(txn, bus, deployment.DeployedEventType, deployment.DeployedEvent{
			DeploymentID:    2,
			DeployedAddress: "CADDR",
		})
	})
	require.NoError(t, err)

	evt := testutil.RequireReceive(t, seen, time.Second, "committed deployment not delivered")
	assert.Equal(t, uint32(2), evt.Data.(deployment.DeployedEvent).DeploymentID)
	testutil.RequireNoReceive(t, seen, 10*time.Millisecond, "rolled back deployment delivered")
	rows, err := db.Notifications(models.NotificationFilter{Type: string(deployment.DeployedEventType)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, evt.ID, rows[0].EventID)
}
