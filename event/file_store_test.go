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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStore_AppendPersistsOneEventPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = s.Append(ctx, Event{TaskID: "t1", Type: IntentReceived, Mode: ModeAnswer, Payload: map[string]interface{}{"prompt": "hi"}})
	require.NoError(t, err)
	_, err = s.Append(ctx, Event{TaskID: "t1", Type: Final, Mode: ModeAnswer})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	require.Equal(t, 2, lines, "each event is one newline-terminated line")
}

func TestFileStore_ReopenReplaysIdenticalState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := s.Append(ctx, Event{TaskID: "t1", Type: IntentReceived, Mode: ModeAnswer})
	require.NoError(t, err)
	_, err = s.Append(ctx, Event{TaskID: "t1", Type: ToolStart, Mode: ModeMission, Payload: map[string]interface{}{"name": "read_file"}})
	require.NoError(t, err)
	before, err := s.GetByTask(ctx, "t1")
	require.NoError(t, err)
	require.NoError(t, s.(*fileStore).Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	after, err := reopened.GetByTask(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, before, after, "replayed state must equal the state held before the process exited")

	// the hash chain keeps extending from the replayed tail
	next, err := reopened.Append(ctx, Event{TaskID: "t1", Type: ToolEnd, Mode: ModeMission, ParentEventID: after[1].EventID})
	require.NoError(t, err)
	require.Equal(t, after[1].Hash, next.PrevHash)
	require.NotEqual(t, first.Hash, next.PrevHash)
}

func TestFileStore_RejectsSameInvariantsAsMemory(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "events.jsonl"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Append(ctx, Event{TaskID: "t1", Type: Type("made_up_type"), Mode: ModeAnswer})
	require.ErrorIs(t, err, ErrInvalidType)

	_, err = s.Append(ctx, Event{Type: IntentReceived, Mode: ModeAnswer})
	require.ErrorIs(t, err, ErrEmptyTaskID)

	_, err = s.Append(ctx, Event{TaskID: "t1", Type: StageChanged, Mode: ModePlan, Stage: StageEdit})
	require.ErrorIs(t, err, ErrStageRequiresMission)

	_, err = s.Append(ctx, Event{TaskID: "t1", Type: ToolEnd, Mode: ModeAnswer, ParentEventID: "ev_missing"})
	require.ErrorIs(t, err, ErrDanglingReference)
}
