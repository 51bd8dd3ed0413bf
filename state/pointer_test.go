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

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"agentcore/event"
)

func TestPointer_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ptr := ActiveTaskPointer{TaskID: "t1", Mode: event.ModeMission, Stage: event.StageEdit, Status: StatusRunning}
	require.NoError(t, SavePointer(dir, ptr))

	loaded, err := LoadPointer(dir)
	require.NoError(t, err)
	require.Equal(t, ptr.TaskID, loaded.TaskID)
	require.Equal(t, ptr.Mode, loaded.Mode)
	require.Equal(t, ptr.Status, loaded.Status)
	require.False(t, loaded.CleanlyExited)
}

func TestPointer_MissingFileIsZeroNotError(t *testing.T) {
	loaded, err := LoadPointer(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, loaded.TaskID)
}

func TestMarkCleanExit_FlipsFlagAndSuppressesRecoveryOffer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SavePointer(dir, ActiveTaskPointer{TaskID: "t1", Status: StatusRunning}))

	before, err := LoadPointer(dir)
	require.NoError(t, err)
	require.True(t, ComputeRecoveryOffer(before).Offered, "a running pointer without clean exit offers recovery")

	require.NoError(t, MarkCleanExit(dir))
	after, err := LoadPointer(dir)
	require.NoError(t, err)
	require.True(t, after.CleanlyExited)
	require.False(t, ComputeRecoveryOffer(after).Offered)
}

func TestMarkCleanExit_NoPointerIsNoOp(t *testing.T) {
	require.NoError(t, MarkCleanExit(t.TempDir()))
}
