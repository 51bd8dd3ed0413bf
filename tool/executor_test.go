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

package tool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"agentcore/approval"
	"agentcore/checkpoint"
	"agentcore/event"
	"agentcore/mode"
	"agentcore/pkg/errs"
	"agentcore/pkg/evidence"
	"agentcore/scope"
	"agentcore/state"
)

func newTestExecutor(t *testing.T) (*Executor, *event.Bus, *mode.Manager, *approval.Manager) {
	t.Helper()
	bus := event.NewBus(event.NewMemoryStore(), nil)
	modeMgr := mode.NewManager(bus)
	scopeMgr := scope.NewManager(bus, 0, 0)
	approvalMgr := approval.NewManager(bus, nil)
	checkpoints := checkpoint.NewMemoryStore()
	evBuilder := evidence.NewBuilder(evidence.NewStore())
	x := NewExecutor(bus, modeMgr, scopeMgr, approvalMgr, checkpoints, evBuilder, nil, nil, t.TempDir())
	return x, bus, modeMgr, approvalMgr
}

func inScopeSummary(files ...string) state.ScopeSummary {
	return state.ScopeSummary{
		Contract:     state.Contract{MaxFiles: 10, MaxLines: 10000, AllowedTools: []string{"read", "write", "exec"}},
		InScopeFiles: files,
		ToolsUsed:    map[string]bool{},
	}
}

func TestExecute_ModeViolationBlocksBeforeAnyEffect(t *testing.T) {
	x, _, _, _ := newTestExecutor(t)
	ctx := context.Background()

	ran := false
	res, err := x.Execute(ctx, Invocation{
		TaskID:   "t1",
		Mode:     event.ModeAnswer,
		Category: CategoryWrite,
		Path:     "a.go",
	}, inScopeSummary("a.go"), func(ctx context.Context) (map[string]interface{}, error) {
		ran = true
		return nil, nil
	})

	require.NoError(t, err)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, errs.ErrModeViolation)
	require.False(t, ran, "the operation must not run once mode enforcement rejects the action")
}

func TestExecute_ReadToolSucceedsWithoutApproval(t *testing.T) {
	x, bus, modeMgr, _ := newTestExecutor(t)
	ctx := context.Background()
	_, _, err := modeMgr.SetMode(ctx, "t1", event.ModeMission)
	require.NoError(t, err)
	require.NoError(t, modeMgr.SetStage(ctx, "t1", event.StageRetrieve))

	var seen []event.Type
	bus.Subscribe(func(ctx context.Context, e event.Event) { seen = append(seen, e.Type) })

	res, err := x.Execute(ctx, Invocation{
		TaskID:   "t1",
		Mode:     event.ModeMission,
		Stage:    event.StageRetrieve,
		Name:     "read_file",
		Category: CategoryRead,
		Path:     "a.go",
	}, inScopeSummary("a.go"), func(ctx context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"content": "package a"}, nil
	})

	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.EvidenceID)
	require.Contains(t, seen, event.ToolStart)
	require.Contains(t, seen, event.ToolEnd)
}

func TestExecute_WriteRequiresApprovalAndChecksCheckpointFirst(t *testing.T) {
	x, bus, modeMgr, approvalMgr := newTestExecutor(t)
	ctx := context.Background()
	_, _, err := modeMgr.SetMode(ctx, "t1", event.ModeMission)
	require.NoError(t, err)
	require.NoError(t, modeMgr.SetStage(ctx, "t1", event.StageEdit))

	var order []event.Type
	approvalIDs := make(chan string, 1)
	bus.Subscribe(func(ctx context.Context, e event.Event) {
		order = append(order, e.Type)
		if e.Type == event.ApprovalRequested {
			approvalIDs <- e.Payload["approval_id"].(string)
		}
	})

	type execResult struct {
		res Result
		err error
	}
	done := make(chan execResult, 1)
	go func() {
		res, err := x.Execute(ctx, Invocation{
			TaskID: "t1", Mode: event.ModeMission, Stage: event.StageEdit,
			Name: "apply_diff", Category: CategoryWrite, Path: "a.go",
			RequiresApproval: true, ApprovalType: approval.TypeApplyDiff,
		}, inScopeSummary("a.go"), func(ctx context.Context) (map[string]interface{}, error) {
			return map[string]interface{}{"written": true}, nil
		})
		done <- execResult{res, err}
	}()

	approvalID := <-approvalIDs
	require.Contains(t, order, event.CheckpointCreated, "checkpoint must be created before the approval gate releases")
	require.NoError(t, approvalMgr.ResolveApproval(ctx, approvalID, approval.DecisionApproved, "once", nil))

	out := <-done
	require.NoError(t, out.err)
	require.True(t, out.res.Success)
	require.Contains(t, order, event.ToolEnd)
}

func TestExecute_ApprovalDeniedFailsWithoutRunningOp(t *testing.T) {
	x, bus, modeMgr, approvalMgr := newTestExecutor(t)
	ctx := context.Background()
	_, _, err := modeMgr.SetMode(ctx, "t1", event.ModeMission)
	require.NoError(t, err)
	require.NoError(t, modeMgr.SetStage(ctx, "t1", event.StageEdit))

	approvalIDs := make(chan string, 1)
	bus.Subscribe(func(ctx context.Context, e event.Event) {
		if e.Type == event.ApprovalRequested {
			approvalIDs <- e.Payload["approval_id"].(string)
		}
	})

	ran := false
	type execResult struct {
		res Result
		err error
	}
	done := make(chan execResult, 1)
	go func() {
		res, err := x.Execute(ctx, Invocation{
			TaskID: "t1", Mode: event.ModeMission, Stage: event.StageEdit,
			Name: "apply_diff", Category: CategoryWrite, Path: "a.go",
			RequiresApproval: true, ApprovalType: approval.TypeApplyDiff,
		}, inScopeSummary("a.go"), func(ctx context.Context) (map[string]interface{}, error) {
			ran = true
			return nil, nil
		})
		done <- execResult{res, err}
	}()

	approvalID := <-approvalIDs
	require.NoError(t, approvalMgr.ResolveApproval(ctx, approvalID, approval.DecisionDenied, "", nil))

	out := <-done
	require.NoError(t, out.err)
	require.False(t, out.res.Success)
	require.ErrorIs(t, out.res.Err, errs.ErrApprovalDenied)
	require.False(t, ran, "a denied approval must not let the underlying operation run")
}

func TestExecute_PathTraversalRejected(t *testing.T) {
	x, _, modeMgr, _ := newTestExecutor(t)
	ctx := context.Background()
	_, _, err := modeMgr.SetMode(ctx, "t1", event.ModeMission)
	require.NoError(t, err)
	require.NoError(t, modeMgr.SetStage(ctx, "t1", event.StageRetrieve))

	res, err := x.Execute(ctx, Invocation{
		TaskID: "t1", Mode: event.ModeMission, Stage: event.StageRetrieve,
		Name: "read_file", Category: CategoryRead, Path: "../../etc/passwd",
	}, inScopeSummary("../../etc/passwd"), func(ctx context.Context) (map[string]interface{}, error) {
		t.Fatal("op must not run when path resolution fails")
		return nil, nil
	})

	require.NoError(t, err)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, errs.ErrInvalidArgument)
	require.Contains(t, res.Error, "path traversal")
}

func TestExecute_ScopeBlockedProposesExpansion(t *testing.T) {
	x, bus, modeMgr, _ := newTestExecutor(t)
	ctx := context.Background()
	_, _, err := modeMgr.SetMode(ctx, "t1", event.ModeMission)
	require.NoError(t, err)
	require.NoError(t, modeMgr.SetStage(ctx, "t1", event.StageRetrieve))

	var sawExpansion bool
	bus.Subscribe(func(ctx context.Context, e event.Event) {
		if e.Type == event.ScopeExpansionRequested {
			sawExpansion = true
		}
	})

	res, err := x.Execute(ctx, Invocation{
		TaskID: "t1", Mode: event.ModeMission, Stage: event.StageRetrieve,
		Name: "read_file", Category: CategoryRead, Path: "b.go",
	}, inScopeSummary("a.go"), func(ctx context.Context) (map[string]interface{}, error) {
		t.Fatal("op must not run when the file is out of scope")
		return nil, nil
	})

	require.NoError(t, err)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, errs.ErrScopeBlocked)
	require.True(t, sawExpansion)
}

func TestExecute_ExecRequiresApprovalAndChecksCheckpointFirst(t *testing.T) {
	x, bus, modeMgr, approvalMgr := newTestExecutor(t)
	ctx := context.Background()
	_, _, err := modeMgr.SetMode(ctx, "t1", event.ModeMission)
	require.NoError(t, err)
	require.NoError(t, modeMgr.SetStage(ctx, "t1", event.StageCommand))

	var order []event.Type
	approvalIDs := make(chan string, 1)
	bus.Subscribe(func(ctx context.Context, e event.Event) {
		order = append(order, e.Type)
		if e.Type == event.ApprovalRequested {
			approvalIDs <- e.Payload["approval_id"].(string)
		}
	})

	type execResult struct {
		res Result
		err error
	}
	done := make(chan execResult, 1)
	go func() {
		res, err := x.Execute(ctx, Invocation{
			TaskID: "t1", Mode: event.ModeMission, Stage: event.StageCommand,
			Name: "run_command", Category: CategoryExec, Path: "a.go",
			RequiresApproval: true, ApprovalType: approval.TypeTerminal,
		}, inScopeSummary("a.go"), func(ctx context.Context) (map[string]interface{}, error) {
			return map[string]interface{}{"exit_code": 0}, nil
		})
		done <- execResult{res, err}
	}()

	approvalID := <-approvalIDs
	require.Contains(t, order, event.CheckpointCreated, "an exec invocation must checkpoint before its approval gate releases")
	require.NoError(t, approvalMgr.ResolveApproval(ctx, approvalID, approval.DecisionApproved, "once", nil))

	out := <-done
	require.NoError(t, out.err)
	require.True(t, out.res.Success)
	require.Contains(t, order, event.ToolEnd)
}

func TestExecute_ToolEndTagsReadAsPure(t *testing.T) {
	x, bus, modeMgr, _ := newTestExecutor(t)
	ctx := context.Background()
	_, _, err := modeMgr.SetMode(ctx, "t1", event.ModeMission)
	require.NoError(t, err)
	require.NoError(t, modeMgr.SetStage(ctx, "t1", event.StageRetrieve))

	var effect string
	bus.Subscribe(func(ctx context.Context, e event.Event) {
		if e.Type == event.ToolEnd {
			effect, _ = e.Payload["effect"].(string)
		}
	})

	_, err = x.Execute(ctx, Invocation{
		TaskID: "t1", Mode: event.ModeMission, Stage: event.StageRetrieve,
		Name: "read_file", Category: CategoryRead, Path: "a.go",
	}, inScopeSummary("a.go"), func(ctx context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"content": "x"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, EffectPure, effect)
}

func TestExecute_ToolEndTagsCommittedWrite(t *testing.T) {
	x, bus, modeMgr, _ := newTestExecutor(t)
	ctx := context.Background()
	_, _, err := modeMgr.SetMode(ctx, "t1", event.ModeMission)
	require.NoError(t, err)
	require.NoError(t, modeMgr.SetStage(ctx, "t1", event.StageEdit))

	var effect string
	bus.Subscribe(func(ctx context.Context, e event.Event) {
		if e.Type == event.ToolEnd {
			effect, _ = e.Payload["effect"].(string)
		}
	})

	res, err := x.Execute(ctx, Invocation{
		TaskID: "t1", Mode: event.ModeMission, Stage: event.StageEdit,
		Name: "apply_diff", Category: CategoryWrite, Path: "a.go",
	}, inScopeSummary("a.go"), func(ctx context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"written": true}, nil
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, EffectSideEffectCommitted, effect)
}

func TestExecute_OpFailureRestoresCheckpoint(t *testing.T) {
	bus := event.NewBus(event.NewMemoryStore(), nil)
	modeMgr := mode.NewManager(bus)
	scopeMgr := scope.NewManager(bus, 0, 0)
	approvalMgr := approval.NewManager(bus, nil)
	checkpoints := checkpoint.NewMemoryStore()
	root := t.TempDir()
	x := NewExecutor(bus, modeMgr, scopeMgr, approvalMgr, checkpoints, evidence.NewBuilder(evidence.NewStore()), nil, nil, root)

	ctx := context.Background()
	_, _, err := modeMgr.SetMode(ctx, "t1", event.ModeMission)
	require.NoError(t, err)
	require.NoError(t, modeMgr.SetStage(ctx, "t1", event.StageEdit))

	target := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(target, []byte("package a\n"), 0o644))

	var restored bool
	var effect string
	bus.Subscribe(func(ctx context.Context, e event.Event) {
		switch e.Type {
		case event.CheckpointRestored:
			restored = true
		case event.ToolEnd:
			effect, _ = e.Payload["effect"].(string)
		}
	})

	res, err := x.Execute(ctx, Invocation{
		TaskID: "t1", Mode: event.ModeMission, Stage: event.StageEdit,
		Name: "apply_diff", Category: CategoryWrite, Path: "a.go",
	}, inScopeSummary("a.go"), func(ctx context.Context) (map[string]interface{}, error) {
		require.NoError(t, os.WriteFile(target, []byte("garbage"), 0o644))
		return nil, errors.New("diff did not apply")
	})

	require.NoError(t, err)
	require.False(t, res.Success)
	require.True(t, restored, "a failed write-class op must restore its checkpoint")
	require.Equal(t, EffectSideEffectRolledBack, effect)
	content, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "package a\n", string(content))
}

func TestSnapshotFiles_RecordsMissingFilesForDeletion(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	snaps := snapshotFiles([]string{existing, filepath.Join(root, "new.go")})
	require.Len(t, snaps, 2)
	require.True(t, snaps[0].Existed)
	require.Equal(t, []byte("x"), snaps[0].Content)
	require.False(t, snaps[1].Existed, "a not-yet-existing file is snapshotted for deletion on restore")
}

func TestRedactSensitive_MasksSecretShapedKeys(t *testing.T) {
	in := map[string]interface{}{
		"password": "hunter2",
		"nested":   map[string]interface{}{"api_key": "xyz", "safe": "ok"},
		"safe":     "value",
	}
	out := redactSensitive(in)
	require.Equal(t, "[REDACTED]", out["password"])
	require.Equal(t, "value", out["safe"])
	nested := out["nested"].(map[string]interface{})
	require.Equal(t, "[REDACTED]", nested["api_key"])
	require.Equal(t, "ok", nested["safe"])
}
