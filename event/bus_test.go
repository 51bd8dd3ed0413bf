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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBus_NotifiesSubscribersInRegistrationOrder(t *testing.T) {
	bus := NewBus(NewMemoryStore(), nil)
	var order []int
	bus.Subscribe(func(ctx context.Context, e Event) { order = append(order, 1) })
	bus.Subscribe(func(ctx context.Context, e Event) { order = append(order, 2) })

	_, err := bus.Publish(context.Background(), Event{TaskID: "t1", Type: IntentReceived, Mode: ModeAnswer})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, order)
}

func TestBus_SwallowsSubscriberPanics(t *testing.T) {
	bus := NewBus(NewMemoryStore(), nil)
	ran := false
	bus.Subscribe(func(ctx context.Context, e Event) { panic("boom") })
	bus.Subscribe(func(ctx context.Context, e Event) { ran = true })

	_, err := bus.Publish(context.Background(), Event{TaskID: "t1", Type: IntentReceived, Mode: ModeAnswer})
	require.NoError(t, err)
	require.True(t, ran, "second subscriber must still run after the first panics")
}

func TestBus_RejectedAppendNeverReachesSubscribers(t *testing.T) {
	bus := NewBus(NewMemoryStore(), nil)
	called := false
	bus.Subscribe(func(ctx context.Context, e Event) { called = true })

	_, err := bus.Publish(context.Background(), Event{TaskID: "t1", Type: Type("bogus")})
	require.Error(t, err)
	require.False(t, called)
}
