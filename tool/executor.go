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

// Package tool is the enforcement choke point every tool invocation
// passes through: mode check, scope check, path resolution, redaction,
// approval, checkpointing, execution, and evidence capture.
package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agentcore/approval"
	"agentcore/checkpoint"
	"agentcore/event"
	"agentcore/mode"
	"agentcore/pkg/effects"
	"agentcore/pkg/errs"
	"agentcore/pkg/evidence"
	"agentcore/pkg/metrics"
	"agentcore/pkg/redaction"
	"agentcore/pkg/tracing"
	"agentcore/scope"
	"agentcore/state"
)

// ErrPathTraversal is returned when a tool's resolved path escapes the
// workspace root. It wraps errs.ErrInvalidArgument.
var ErrPathTraversal = errs.Wrap(errs.ErrInvalidArgument, "tool: path traversal detected")

// Category classifies a tool invocation for the mode/scope gates.
type Category string

const (
	CategoryRead  Category = "read"
	CategoryWrite Category = "write"
	CategoryExec  Category = "exec"
)

var categoryToModeAction = map[Category]mode.Action{
	CategoryRead:  mode.ActionReadFile,
	CategoryWrite: mode.ActionWriteFile,
	CategoryExec:  mode.ActionExecuteCommand,
}

var sensitiveKeyTokens = []string{"token", "password", "secret", "authorization", "apikey", "api_key", "credential"}

// Replay-safety tags carried on every tool_end. A pure effect is safe to
// recompute on replay; a committed side effect must be served from the
// effect system's record instead of re-run; a rolled-back side effect was
// undone by a checkpoint restore and leaves nothing behind to replay.
const (
	EffectPure                 = "pure"
	EffectSideEffectCommitted  = "side_effect_committed"
	EffectSideEffectRolledBack = "side_effect_rolled_back"
)

// classifyEffect tags a finished invocation for the tool_end payload.
// A failed write/exec whose checkpoint was not restored still counts as
// committed: the side effect may have partially happened, so replay must
// not re-run it.
func classifyEffect(category Category, restored bool) string {
	if category == CategoryRead {
		return EffectPure
	}
	if restored {
		return EffectSideEffectRolledBack
	}
	return EffectSideEffectCommitted
}

// Invocation describes one tool call awaiting enforcement.
type Invocation struct {
	TaskID           string
	Mode             event.Mode
	Stage            event.Stage
	Name             string
	Category         Category
	Path             string // single-file tools; empty for multi-file
	Files            []string
	Lines            int
	RequiresApproval bool
	ApprovalType     approval.Type
	Inputs           map[string]interface{}
}

// Op is the host-provided function that actually performs the tool's
// side effect once every gate has passed.
type Op func(ctx context.Context) (map[string]interface{}, error)

// Result is what Execute returns to the caller.
type Result struct {
	Success      bool
	Output       map[string]interface{}
	Error        string
	EvidenceID   string
	StartEventID string
	EndEventID   string

	// Err carries the typed gate error (an errs sentinel chain) when a
	// mode, scope, path, or approval gate rejected the invocation. Not
	// serialized; Error holds the user-facing string.
	Err error `json:"-"`
}

// Executor wires the mode, scope, approval, and checkpoint gates around
// tool execution, capped by a workspace root for path resolution.
type Executor struct {
	bus         *event.Bus
	modeMgr     *mode.Manager
	scopeMgr    *scope.Manager
	approvalMgr *approval.Manager
	checkpoints checkpoint.Store
	evidence    *evidence.Builder
	redactor    *redaction.Engine
	effects     effects.System
	root        string
}

// NewExecutor creates an Executor rooted at workspaceRoot. policy may be nil,
// in which case only the built-in sensitive-key pass runs. effectSys may be
// nil, in which case an in-memory effect system is used (step 8 idempotency
// is then scoped to this Executor's lifetime only).
func NewExecutor(bus *event.Bus, modeMgr *mode.Manager, scopeMgr *scope.Manager, approvalMgr *approval.Manager, checkpoints checkpoint.Store, evidenceBuilder *evidence.Builder, policy *redaction.RedactionPolicy, effectSys effects.System, workspaceRoot string) *Executor {
	if effectSys == nil {
		effectSys = effects.NewMemorySystem()
	}
	return &Executor{
		bus:         bus,
		modeMgr:     modeMgr,
		scopeMgr:    scopeMgr,
		approvalMgr: approvalMgr,
		checkpoints: checkpoints,
		evidence:    evidenceBuilder,
		redactor:    redaction.NewEngine(policy, nil),
		effects:     effectSys,
		root:        workspaceRoot,
	}
}

// Execute runs the full ten-step pipeline for inv against the task's
// current ScopeSummary, given a resolver for the actual side effect.
func (x *Executor) Execute(ctx context.Context, inv Invocation, summary state.ScopeSummary, op Op) (Result, error) {
	ctx, span := tracing.StartToolSpan(ctx, inv.Name, string(inv.Category))
	defer span.End()

	start := time.Now()
	outcome := "success"
	defer func() {
		metrics.ToolExecutionTotal.WithLabelValues(inv.Name, outcome).Inc()
		metrics.ToolExecutionDurationSeconds.WithLabelValues(inv.Name).Observe(time.Since(start).Seconds())
	}()

	// Step 1: classify (category is already on Invocation; host assigns it).
	// Step 2: mode enforcement.
	action, ok := categoryToModeAction[inv.Category]
	if !ok {
		action = mode.ActionReadFile
	}
	if !x.modeMgr.EnforceAction(ctx, inv.TaskID, action) {
		outcome = "mode_violation"
		return Result{
			Success: false,
			Error:   "mode violation",
			Err:     errs.Wrapf(errs.ErrModeViolation, "tool %s action %s", inv.Name, action),
		}, nil
	}

	// Step 3: scope validation.
	files := inv.Files
	if len(files) == 0 && inv.Path != "" {
		files = []string{inv.Path}
	}
	decision := x.scopeMgr.ValidateAction(inv.TaskID, summary, scope.ActionRequest{
		Category: string(inv.Category), Files: files, Lines: inv.Lines,
	})
	if !decision.Allowed {
		outcome = "scope_blocked"
		if decision.RequiresExpansion && decision.Expansion != nil {
			if _, err := x.scopeMgr.RequestScopeExpansion(ctx, *decision.Expansion); err != nil {
				return Result{}, err
			}
		}
		return Result{
			Success: false,
			Error:   decision.Reason,
			Err:     errs.Wrap(errs.ErrScopeBlocked, decision.Reason),
		}, nil
	}

	// Step 4: path resolution.
	resolvedPaths := make([]string, 0, len(files))
	for _, f := range files {
		resolved, err := x.resolvePath(f)
		if err != nil {
			outcome = "path_traversal"
			return Result{Success: false, Error: err.Error(), Err: err}, nil
		}
		resolvedPaths = append(resolvedPaths, resolved)
	}

	// Step 5: tool_start with redacted inputs. The built-in key-pattern
	// pass catches free-form secret-shaped keys; the configured policy
	// engine then applies any additional per-tool and global field masks.
	redactedInputs := redactSensitive(inv.Inputs)
	if payload, err := json.Marshal(redactedInputs); err == nil {
		if masked, err := x.redactor.RedactData(string(inv.Name), payload); err == nil {
			var out map[string]interface{}
			if json.Unmarshal(masked, &out) == nil {
				redactedInputs = out
			}
		}
	}
	startEvent, err := x.bus.Publish(ctx, event.Event{
		TaskID: inv.TaskID,
		Type:   event.ToolStart,
		Mode:   inv.Mode,
		Stage:  inv.Stage,
		Payload: map[string]interface{}{
			"name":     inv.Name,
			"category": string(inv.Category),
			"inputs":   redactedInputs,
			"files":    resolvedPaths,
		},
	})
	if err != nil {
		return Result{}, err
	}

	// Step 6: checkpoint before any write- or exec-class effect. Taken
	// ahead of the approval request so a denial restores the exact
	// pre-request state of every file the tool was about to touch. Exec
	// invocations get one too: a command can rewrite any file it was
	// pointed at, so its snapshot envelope is the same.
	var checkpointID string
	if inv.Category == CategoryWrite || inv.Category == CategoryExec {
		cp := &checkpoint.Checkpoint{
			TaskID: inv.TaskID,
			Mode:   inv.Mode,
			Stage:  inv.Stage,
			Files:  snapshotFiles(resolvedPaths),
		}
		id, err := x.checkpoints.Save(ctx, cp)
		if err != nil {
			return Result{}, err
		}
		checkpointID = id
		if _, err := x.bus.Publish(ctx, event.Event{
			TaskID: inv.TaskID, Type: event.CheckpointCreated, Mode: inv.Mode, Stage: inv.Stage,
			Payload: map[string]interface{}{"checkpoint_id": checkpointID, "files": resolvedPaths},
		}); err != nil {
			return Result{}, err
		}
		metrics.CheckpointTotal.Inc()
	}

	// Step 7: approval, if required.
	if inv.RequiresApproval {
		res, err := x.approvalMgr.RequestApproval(ctx, approval.Request{
			TaskID: inv.TaskID, Mode: inv.Mode, Stage: inv.Stage,
			Type: inv.ApprovalType, Description: inv.Name, Details: inv.Inputs,
		})
		if err != nil {
			return Result{}, err
		}
		switch res.Decision {
		case approval.DecisionApproved:
		case approval.DecisionEditRequested:
			if res.ModifiedDetails != nil {
				inv.Inputs = res.ModifiedDetails
			}
		default:
			outcome = "approval_denied"
			if checkpointID != "" {
				x.restoreCheckpoint(ctx, inv, checkpointID, "approval_denied")
			}
			return x.finishToolEnd(ctx, inv, startEvent, Result{
				Success: false,
				Error:   "approval denied",
				Err:     errs.Wrapf(errs.ErrApprovalDenied, "tool %s", inv.Name),
			}, checkpointID != "")
		}
	}

	// Step 8: execute through the effect system so a retried step replays
	// its recorded result instead of re-running a write. Any failure past
	// the checkpoint restores it.
	output, opErr := effects.ExecuteTool(ctx, x.effects, inv.Name, inv.Inputs, func(ctx context.Context, _ string, _ map[string]interface{}) (map[string]interface{}, error) {
		return op(ctx)
	})
	restored := false
	if opErr != nil && checkpointID != "" {
		x.restoreCheckpoint(ctx, inv, checkpointID, "tool_error")
		restored = true
	}

	result := Result{Success: opErr == nil, Output: output}
	if opErr != nil {
		result.Error = opErr.Error()
		outcome = "error"
	}

	// Step 9: persist evidence and emit tool_end.
	return x.finishToolEnd(ctx, inv, startEvent, result, restored)
}

func (x *Executor) finishToolEnd(ctx context.Context, inv Invocation, startEvent event.Event, result Result, restored bool) (Result, error) {
	var evidenceIDs []string
	if x.evidence != nil {
		payload := []byte(toJSONBestEffort(result.Output))
		if len(payload) > 0 {
			ev, err := x.evidence.Build(startEvent.EventID, evidence.TypeLog, payload, "application/json", truncateSummary(result))
			if err == nil {
				evidenceIDs = []string{ev.EvidenceID}
				result.EvidenceID = ev.EvidenceID
			}
		}
	}

	payload := map[string]interface{}{
		"success": result.Success,
		"effect":  classifyEffect(inv.Category, restored),
	}
	if result.Error != "" {
		payload["error"] = result.Error
	}

	endEvent, err := x.bus.Publish(ctx, event.Event{
		TaskID:        inv.TaskID,
		Type:          event.ToolEnd,
		Mode:          inv.Mode,
		Stage:         inv.Stage,
		Payload:       payload,
		EvidenceIDs:   evidenceIDs,
		ParentEventID: startEvent.EventID,
	})
	if err != nil {
		return Result{}, err
	}
	result.StartEventID = startEvent.EventID
	result.EndEventID = endEvent.EventID
	return result, nil
}

// resolvePath joins path against the workspace root and rejects any
// result that escapes it.
func (x *Executor) resolvePath(path string) (string, error) {
	resolved := filepath.Clean(filepath.Join(x.root, path))
	rel, err := filepath.Rel(x.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return resolved, nil
}

// snapshotFiles captures each path's current content. A file that does
// not exist yet is recorded with Existed=false so restoration deletes it
// instead of writing an empty file.
func snapshotFiles(paths []string) []checkpoint.FileSnapshot {
	snaps := make([]checkpoint.FileSnapshot, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			snaps = append(snaps, checkpoint.FileSnapshot{Path: p})
			continue
		}
		snaps = append(snaps, checkpoint.FileSnapshot{Path: p, Content: content, Existed: true})
	}
	return snaps
}

// restoreCheckpoint writes every snapshot in checkpointID back to disk,
// deleting files that did not exist when the checkpoint was taken, and
// emits checkpoint_restored. Restore failures on individual files are
// deliberately not propagated: the restore runs on an already-failing
// path and the checkpoint itself remains available for the host to retry.
func (x *Executor) restoreCheckpoint(ctx context.Context, inv Invocation, checkpointID, cause string) {
	cp, err := x.checkpoints.Load(ctx, checkpointID)
	if err != nil || cp == nil {
		return
	}
	for _, f := range cp.Files {
		if f.Existed {
			_ = os.WriteFile(f.Path, f.Content, 0o644)
		} else {
			_ = os.Remove(f.Path)
		}
	}
	metrics.CheckpointRestoreTotal.WithLabelValues(cause).Inc()
	_, _ = x.bus.Publish(ctx, event.Event{
		TaskID: inv.TaskID, Type: event.CheckpointRestored, Mode: inv.Mode, Stage: inv.Stage,
		Payload: map[string]interface{}{"checkpoint_id": checkpointID, "cause": cause},
	})
}

func redactSensitive(inputs map[string]interface{}) map[string]interface{} {
	if inputs == nil {
		return nil
	}
	out := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		if isSensitiveKey(k) {
			out[k] = "[REDACTED]"
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = redactSensitive(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveKey(key string) bool {
	lk := strings.ToLower(key)
	for _, t := range sensitiveKeyTokens {
		if strings.Contains(lk, t) {
			return true
		}
	}
	return false
}

// toJSONBestEffort marshals output for evidence storage; a nil or
// unmarshalable output yields an empty string rather than an error, since
// a missing evidence record is not a reason to fail the tool call.
func toJSONBestEffort(output map[string]interface{}) string {
	if output == nil {
		return ""
	}
	b, err := json.Marshal(output)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncateSummary builds a short human-readable evidence summary from a
// tool result, capped so large outputs don't bloat the summary field.
func truncateSummary(result Result) string {
	s := "success"
	if !result.Success {
		s = "error: " + result.Error
	}
	const maxLen = 200
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

