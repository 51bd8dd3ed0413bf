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
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_AppendAssignsIDAndHash(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	e1, err := s.Append(ctx, Event{TaskID: "t1", Type: IntentReceived, Mode: ModeAnswer})
	require.NoError(t, err)
	require.NotEmpty(t, e1.EventID)
	require.NotEmpty(t, e1.Hash)
	require.Empty(t, e1.PrevHash)

	e2, err := s.Append(ctx, Event{TaskID: "t1", Type: ModeSet, Mode: ModeAnswer})
	require.NoError(t, err)
	require.Equal(t, e1.Hash, e2.PrevHash)
	require.NotEqual(t, e1.EventID, e2.EventID)
}

func TestMemoryStore_RejectsUnknownType(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Append(context.Background(), Event{TaskID: "t1", Type: Type("not_a_real_type")})
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestMemoryStore_RejectsEmptyTaskID(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Append(context.Background(), Event{Type: IntentReceived})
	require.ErrorIs(t, err, ErrEmptyTaskID)
}

func TestMemoryStore_RejectsStageOutsideMission(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Append(context.Background(), Event{TaskID: "t1", Type: StageChanged, Mode: ModeAnswer, Stage: StageEdit})
	require.ErrorIs(t, err, ErrStageRequiresMission)
}

func TestMemoryStore_RejectsNonMonotoneTimestamp(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	_, err := s.Append(ctx, Event{TaskID: "t1", Type: IntentReceived, Mode: ModeAnswer, Timestamp: now})
	require.NoError(t, err)

	_, err = s.Append(ctx, Event{TaskID: "t1", Type: ModeSet, Mode: ModeAnswer, Timestamp: now.Add(-time.Second)})
	require.ErrorIs(t, err, ErrNonMonotoneTimestamp)
}

func TestMemoryStore_RejectsDanglingParent(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Append(context.Background(), Event{TaskID: "t1", Type: ToolEnd, ParentEventID: "ev_does_not_exist"})
	require.ErrorIs(t, err, ErrDanglingReference)
}

func TestMemoryStore_GetByTaskAndType(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.Append(ctx, Event{TaskID: "t1", Type: IntentReceived, Mode: ModeAnswer})
	require.NoError(t, err)
	_, err = s.Append(ctx, Event{TaskID: "t2", Type: IntentReceived, Mode: ModeAnswer})
	require.NoError(t, err)

	byTask, err := s.GetByTask(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, byTask, 1)

	byType, err := s.GetByType(ctx, IntentReceived)
	require.NoError(t, err)
	require.Len(t, byType, 2)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestMemoryStore_GetAllPreservesGlobalAppendOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.Append(ctx, Event{TaskID: "t1", Type: IntentReceived, Mode: ModeAnswer})
	require.NoError(t, err)
	_, err = s.Append(ctx, Event{TaskID: "t2", Type: IntentReceived, Mode: ModeAnswer})
	require.NoError(t, err)
	_, err = s.Append(ctx, Event{TaskID: "t1", Type: Final, Mode: ModeAnswer})
	require.NoError(t, err)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"t1", "t2", "t1"}, []string{all[0].TaskID, all[1].TaskID, all[2].TaskID})
	require.Equal(t, Final, all[2].Type)
}

func TestMemoryStore_CloneIsolatesCallerFromInternalState(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	e, err := s.Append(ctx, Event{TaskID: "t1", Type: IntentReceived, Mode: ModeAnswer, Payload: map[string]interface{}{"prompt": "hi"}})
	require.NoError(t, err)

	e.Payload["prompt"] = "mutated"

	byTask, err := s.GetByTask(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "hi", byTask[0].Payload["prompt"])
}
