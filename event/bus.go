// Copyright 2026 fanjia1024
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
	"context"
	"sync"

	"agentcore/pkg/log"
	"agentcore/pkg/metrics"
)

// Handler observes every successfully appended event, in registration
// order. A Handler must never panic upward; Bus recovers and logs instead
// so one bad observer can't corrupt the log or block its siblings.
type Handler func(ctx context.Context, e Event)

// Bus wraps a Store with synchronous subscriber fan-out: publish is
// validate → append → notify subscribers in registration order → return.
// It is the only path through which the event log may be written.
type Bus struct {
	store    Store
	logger   *log.Logger
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus wraps store with subscriber fan-out. logger may be nil, in which
// case a default logger is used for swallowed subscriber errors.
func NewBus(store Store, logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{store: store, logger: logger}
}

// Subscribe registers handler to be invoked, in registration order, after
// every successful Publish. It is the only registration point; there is
// no Unsubscribe because subscribers live for the process lifetime.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish validates and appends e, then notifies every subscriber before
// returning. Publish returns only after all subscribers have run.
func (b *Bus) Publish(ctx context.Context, e Event) (Event, error) {
	stored, err := b.store.Append(ctx, e)
	if err != nil {
		metrics.EventAppendRejectedTotal.Inc()
		return Event{}, err
	}
	metrics.EventAppendTotal.WithLabelValues(string(stored.Type)).Inc()

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.runHandler(ctx, h, stored)
	}
	return stored, nil
}

// runHandler invokes h, recovering and logging any panic so a single bad
// observer cannot corrupt the log or stop its siblings from running.
func (b *Bus) runHandler(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked", "event_id", e.EventID, "event_type", string(e.Type), "recover", r)
		}
	}()
	h(ctx, e)
}

// Store returns the underlying Store, for read-path consumers (reducer,
// proof export) that need direct GetByTask/GetAll access.
func (b *Bus) Store() Store {
	return b.store
}
