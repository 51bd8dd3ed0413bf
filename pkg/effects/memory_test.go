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

package effects

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySystem_Execute(t *testing.T) {
	sys := NewMemorySystem()
	ctx := context.Background()

	effect := NewEffect(KindTool, map[string]any{
		"tool": "test_tool",
		"args": map[string]any{"x": 1},
	}).WithIdempotencyKey("test-key-1")

	result, err := sys.Execute(ctx, effect)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, KindTool, result.Kind)
	assert.False(t, result.Cached)
	assert.NotZero(t, result.Timestamp)
}

func TestMemorySystem_Idempotency(t *testing.T) {
	sys := NewMemorySystem()
	ctx := context.Background()

	key := uuid.New().String()
	effect1 := NewEffect(KindTool, "test").WithIdempotencyKey(key)
	result1, err := sys.Execute(ctx, effect1)
	require.NoError(t, err)

	effect2 := NewEffect(KindTool, "test").WithIdempotencyKey(key)
	result2, err := sys.Execute(ctx, effect2)
	require.NoError(t, err)

	assert.Equal(t, result1.ID, result2.ID)
	assert.True(t, result2.Cached)
}

func TestMemorySystem_Replay(t *testing.T) {
	sys := NewMemorySystem()
	ctx := context.Background()

	effect := NewEffect(KindTool, "test prompt").WithDescription("test tool")
	result1, err := sys.Execute(ctx, effect)
	require.NoError(t, err)

	result2, ok := sys.Replay(ctx, result1.ID)
	assert.True(t, ok)
	assert.Equal(t, result1.ID, result2.ID)
	assert.Equal(t, result1.Kind, result2.Kind)
}

func TestMemorySystem_ReplayMode_Forbidden(t *testing.T) {
	sys := NewMemorySystem()
	ctx := context.Background()

	effect := NewEffect(KindTool, "test").WithDescription("test")
	_, err := sys.Execute(ctx, effect)
	require.NoError(t, err)

	ctxReplay := WithReplay(ctx, true)
	newEffect := NewEffect(KindTool, "new test").WithIdempotencyKey("new-key")

	_, err = sys.Execute(ctxReplay, newEffect)
	assert.ErrorIs(t, err, ErrReplayingForbidden)
}

func TestMemorySystem_ReplayMode_Cached(t *testing.T) {
	sys := NewMemorySystem()
	ctx := context.Background()

	effect := NewEffect(KindTool, map[string]any{
		"method": "GET",
		"url":    "http://example.com",
	}).WithIdempotencyKey("http-key")

	_, err := sys.Execute(ctx, effect)
	require.NoError(t, err)

	ctxReplay := WithReplay(ctx, true)
	result, err := sys.Execute(ctxReplay, effect)
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, effect.ID, result.ReplayFromID)
}

func TestMemorySystem_History(t *testing.T) {
	sys := NewMemorySystem()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		effect := NewEffect(KindTool, "prompt").WithIdempotencyKey(uuid.New().String())
		_, err := sys.Execute(ctx, effect)
		require.NoError(t, err)
	}

	history := sys.History()
	assert.Len(t, history, 3)
}

func TestMemorySystem_Clear(t *testing.T) {
	sys := NewMemorySystem()
	ctx := context.Background()

	effect := NewEffect(KindTool, "test").WithIdempotencyKey("key")
	_, err := sys.Execute(ctx, effect)
	require.NoError(t, err)

	assert.Len(t, sys.History(), 1)

	sys.Clear()
	assert.Len(t, sys.History(), 0)
}

func TestEffect_Builder(t *testing.T) {
	effect := NewEffect(KindTool, map[string]any{
		"tool": "edit_file",
		"args": "hello",
	}).WithIdempotencyKey("key-123").
		WithDescription("test tool call").
		WithTaskID("task-1")

	assert.Equal(t, KindTool, effect.Kind)
	assert.Equal(t, "key-123", effect.IdempotencyKey)
	assert.Equal(t, "test tool call", effect.Description)
	assert.Equal(t, "task-1", effect.TaskID)
}

func TestSuccessResult(t *testing.T) {
	result := SuccessResult("id-1", KindTool, map[string]any{"stdout": "hello"}, 100*time.Millisecond)

	assert.Equal(t, "id-1", result.ID)
	assert.Equal(t, KindTool, result.Kind)
	assert.NotNil(t, result.Data)
	assert.Nil(t, result.Error)
	assert.Equal(t, int64(100), result.DurationMs)
	assert.False(t, result.Cached)
}

func TestFailedResult(t *testing.T) {
	err := Error{
		Type:    "tool",
		Message: "rate limited",
		Code:    429,
	}
	result := FailedResult("id-1", KindTool, err, 50*time.Millisecond)

	assert.Equal(t, "id-1", result.ID)
	assert.Equal(t, KindTool, result.Kind)
	assert.Nil(t, result.Data)
	assert.NotNil(t, result.Error)
	assert.Equal(t, "rate limited", result.Error.Message)
	assert.Equal(t, 429, result.Error.Code)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	assert.False(t, IsReplaying(ctx))
	ctx = WithReplay(ctx, true)
	assert.True(t, IsReplaying(ctx))
}

func TestExecuteTool(t *testing.T) {
	sys := NewMemorySystem()
	ctx := context.Background()

	calls := 0
	caller := func(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error) {
		calls++
		return map[string]interface{}{"ok": true}, nil
	}

	out, err := ExecuteTool(ctx, sys, "write_file", map[string]interface{}{"path": "a.txt"}, caller)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, 1, calls)

	// Same (name, args) is idempotent: caller must not run again.
	out, err = ExecuteTool(ctx, sys, "write_file", map[string]interface{}{"path": "a.txt"}, caller)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, 1, calls)
}
