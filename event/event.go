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

package event

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const EventQueueSize = 20

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

// Event is a single occurrence published on the bus. ID is unique per event
// and is also the EventID of the journaled notification.
type Event struct {
	ID        string
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// EventBus fans committed events out to subscribers by type
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]*subscriber
	metrics     *eventMetrics
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
	Logger      *slog.Logger
	handlerWg   sync.WaitGroup
	stopping    bool
	stopMu      sync.RWMutex
	// serializes Stop
	stopOpMu sync.Mutex
}

func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]*subscriber),
		Logger:      logger,
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	return e
}

// subscriber delivers into a buffered channel. A full buffer drops the event
// rather than blocking the publisher, since publishing happens in the commit
// path of every write.
type subscriber struct {
	ch     chan Event
	onDrop func(Event)
	mu     sync.Mutex
	closed bool
}

func newSubscriber(buffer int, onDrop func(Event)) *subscriber {
	return &subscriber{
		ch:     make(chan Event, buffer),
		onDrop: onDrop,
	}
}

// deliver reports whether evt was queued
func (s *subscriber) deliver(evt Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	select {
	case s.ch <- evt:
		s.mu.Unlock()
		return true
	default:
	}
	s.mu.Unlock()
	if s.onDrop != nil {
		s.onDrop(evt)
	}
	return false
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (e *EventBus) dropHandler(evt Event) {
	e.Logger.Warn(
		"subscriber buffer full, dropping event",
		"type", evt.Type,
		"id", evt.ID,
	)
	if e.metrics != nil {
		e.metrics.dropped.WithLabelValues(string(evt.Type)).Inc()
	}
}

// Subscribe allows a consumer to receive events of a particular type via a channel
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	sub := newSubscriber(EventQueueSize, e.dropHandler)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	subId := e.lastSubId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]*subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return subId, sub.ch
}

// SubscribeFunc runs handlerFunc on its own goroutine for every event of a
// particular type. A panicking handler is logged and keeps receiving events.
// It returns 0 while the bus is stopping.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	// Hold the read lock through Add so Stop cannot reach Wait first
	e.stopMu.RLock()
	if e.stopping {
		e.stopMu.RUnlock()
		return 0
	}
	subId, evtCh := e.Subscribe(eventType)
	e.handlerWg.Add(1)
	e.stopMu.RUnlock()
	go func() {
		defer e.handlerWg.Done()
		for evt := range evtCh {
			e.invokeHandler(handlerFunc, evt)
		}
	}()
	return subId
}

func (e *EventBus) invokeHandler(handlerFunc EventHandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error(
				"event handler panic",
				"type", evt.Type,
				"id", evt.ID,
				"panic", r,
			)
		}
	}()
	handlerFunc(evt)
}

// Unsubscribe stops delivery of events for a particular type for an existing subscriber
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var sub *subscriber
	if evtTypeSubs, ok := e.subscribers[eventType]; ok {
		sub = evtTypeSubs[subId]
		delete(evtTypeSubs, subId)
		if len(evtTypeSubs) == 0 {
			delete(e.subscribers, eventType)
		}
		if sub != nil && e.metrics != nil {
			e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
		}
	}
	e.mu.Unlock()
	if sub != nil {
		sub.close()
	}
}

// Publish delivers evt to every current subscriber of eventType without
// blocking
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.RLock()
	targets := make([]*subscriber, 0, len(e.subscribers[eventType]))
	for _, sub := range e.subscribers[eventType] {
		targets = append(targets, sub)
	}
	e.mu.RUnlock()
	for _, sub := range targets {
		sub.deliver(evt)
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

// Stop closes every subscriber and waits for SubscribeFunc handlers to
// return. The bus remains usable afterwards.
func (e *EventBus) Stop() {
	e.stopOpMu.Lock()
	defer e.stopOpMu.Unlock()

	e.stopMu.Lock()
	e.stopping = true
	e.stopMu.Unlock()

	e.mu.Lock()
	subsCopy := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]*subscriber)
	e.mu.Unlock()
	for _, evtTypeSubs := range subsCopy {
		for _, sub := range evtTypeSubs {
			sub.close()
		}
	}
	e.handlerWg.Wait()
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}

	e.stopMu.Lock()
	e.stopping = false
	e.stopMu.Unlock()
}
