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
	"agentcore/event"
)

// Reduce folds events into a TaskState. It is pure: same input always
// yields the same output, and Reduce(E1⊕E2) == applyAll(Reduce(E1), E2).
// The returned state's TaskID comes from the first event; callers mixing
// tasks should use ReduceForTask instead.
func Reduce(events []event.Event) TaskState {
	if len(events) == 0 {
		return newTaskState("")
	}
	s := newTaskState(events[0].TaskID)
	return applyAll(s, events)
}

// ReduceForTask filters events to taskID and folds them into a TaskState.
func ReduceForTask(taskID string, events []event.Event) TaskState {
	s := newTaskState(taskID)
	var filtered []event.Event
	for _, e := range events {
		if e.TaskID == taskID {
			filtered = append(filtered, e)
		}
	}
	return applyAll(s, filtered)
}

// applyAll folds each event in order onto s, satisfying
// Reduce(E1⊕E2) == applyAll(Reduce(E1), E2).
func applyAll(s TaskState, events []event.Event) TaskState {
	for _, e := range events {
		s = apply(s, e)
	}
	return s
}

func apply(s TaskState, e event.Event) TaskState {
	switch e.Type {
	case event.IntentReceived:
		s.Status = StatusRunning

	case event.ModeSet, event.ModeChanged:
		leavingMission := s.Mode == event.ModeMission && e.Mode != event.ModeMission
		s.Mode = e.Mode
		if leavingMission {
			s.Stage = event.StageNone
		}
		// staying in MISSION (or entering it fresh): stage is left as-is
		// until an explicit stage_changed arrives.

	case event.StageChanged:
		if s.Mode == event.ModeMission {
			s.Stage = e.Stage
		}

	case event.ExecutionPaused:
		s.Status = StatusPaused
	case event.ExecutionResumed:
		s.Status = StatusRunning
	case event.ExecutionStopped:
		s.Status = StatusIdle

	case event.TaskInterrupted:
		s.Status = StatusPaused
		s.CleanlyExited = false

	case event.TaskRecoveryStarted:
		s.Status = StatusRunning

	case event.TaskFailed:
		s.Status = StatusError

	case event.TaskDiscarded:
		s.Status = StatusIdle
		s.PendingApprovals = nil
		s.ActiveCheckpointID = ""

	case event.PlanCreated:
		if contract, ok := extractContract(e.Payload); ok {
			s.ScopeSummary.Contract = contract
			s.Budgets = contract
		}
		for _, f := range stringSlice(e.Payload, "in_scope_files") {
			s.ScopeSummary.addInScopeFile(f)
		}

	case event.RetrievalCompleted:
		for _, f := range stringSlice(e.Payload, "files") {
			s.ScopeSummary.recordOp(f, "read", e, [2]int{})
		}
		s.ScopeSummary.LinesRetrieved += intField(e.Payload, "lines")
		s.ScopeSummary.ToolsUsed["read"] = true

	case event.DiffApplied:
		for _, f := range stringSlice(e.Payload, "files") {
			s.ScopeSummary.recordOp(f, "write", e, [2]int{})
		}
		s.ScopeSummary.ToolsUsed["write"] = true

	case event.ScopeExpansionResolved:
		if boolField(e.Payload, "approved") {
			files := stringSlice(e.Payload, "files")
			for _, f := range files {
				s.ScopeSummary.addInScopeFile(f)
			}
			s.ScopeSummary.Contract.MaxFiles += len(files)
			lines := intField(e.Payload, "lines")
			s.ScopeSummary.Contract.MaxLines += lines
			for _, t := range stringSlice(e.Payload, "tools") {
				s.ScopeSummary.Contract.AllowedTools = appendUnique(s.ScopeSummary.Contract.AllowedTools, t)
			}
			s.Budgets = s.ScopeSummary.Contract
		}

	case event.ApprovalRequested:
		s.PendingApprovals = appendUnique(s.PendingApprovals, stringField(e.Payload, "approval_id"))
	case event.ApprovalResolved:
		s.PendingApprovals = removeString(s.PendingApprovals, stringField(e.Payload, "approval_id"))

	case event.CheckpointCreated:
		s.ActiveCheckpointID = stringField(e.Payload, "checkpoint_id")

	case event.Final:
		s.Status = StatusComplete

	default:
		// Unknown or not-state-relevant types are ignored by the
		// reducer but remain in the log untouched.
	}
	return s
}

func extractContract(payload map[string]interface{}) (Contract, bool) {
	raw, ok := payload["scope_contract"].(map[string]interface{})
	if !ok {
		return Contract{}, false
	}
	c := Contract{
		MaxFiles:     intField(raw, "max_files"),
		MaxLines:     intField(raw, "max_lines"),
		AllowedTools: stringSlice(raw, "allowed_tools"),
	}
	if budgets, ok := raw["budgets"].(map[string]interface{}); ok {
		c.MaxIterations = intField(budgets, "max_iterations")
		c.MaxToolCalls = intField(budgets, "max_tool_calls")
		c.MaxTimeMs = int64(intField(budgets, "max_time_ms"))
	}
	return c, true
}

func stringSlice(payload map[string]interface{}, key string) []string {
	if typed, ok := payload[key].([]string); ok {
		return append([]string(nil), typed...)
	}
	raw, ok := payload[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringField(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}

func intField(payload map[string]interface{}, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func boolField(payload map[string]interface{}, key string) bool {
	b, _ := payload[key].(bool)
	return b
}

func appendUnique(slice []string, v string) []string {
	if v == "" {
		return slice
	}
	for _, s := range slice {
		if s == v {
			return slice
		}
	}
	return append(slice, v)
}

func removeString(slice []string, v string) []string {
	out := slice[:0:0]
	for _, s := range slice {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
