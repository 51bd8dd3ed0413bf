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

package normalize

import (
	"strings"

	"agentcore/event"
)

// extractor fills in the parts of Normalized that depend on a specific
// raw event's payload (from/to, code, details). Kept as a tagged variant
// over payload extractors per type, rather than reflection, so adding a
// raw type is a one-line table entry plus (optionally) one small
// function.
type extractor func(e event.Event) (code, from, to string, details map[string]interface{})

type mapEntry struct {
	primitive PrimitiveEventType
	scope     Scope
	kind      string
	extract   extractor
}

func passthroughDetails(e event.Event) (string, string, string, map[string]interface{}) {
	return "", "", "", e.Payload
}

func stringField(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func boolField(payload map[string]interface{}, key string) bool {
	if payload == nil {
		return false
	}
	v, _ := payload[key].(bool)
	return v
}

func extractModeTransition(e event.Event) (string, string, string, map[string]interface{}) {
	return "", stringField(e.Payload, "from_mode"), stringField(e.Payload, "to_mode"), e.Payload
}

func extractStageChanged(e event.Event) (string, string, string, map[string]interface{}) {
	return "", "", string(e.Stage), e.Payload
}

// extractToolEnd surfaces the executor's replay-safety tag (pure /
// side_effect_committed / side_effect_rolled_back) as the normalized
// event's code, uppercased to match the code convention.
func extractToolEnd(e event.Event) (string, string, string, map[string]interface{}) {
	return strings.ToUpper(stringField(e.Payload, "effect")), "", "", e.Payload
}

func extractPaused(e event.Event) (string, string, string, map[string]interface{}) {
	return "", "running", "paused", e.Payload
}

func extractResumed(e event.Event) (string, string, string, map[string]interface{}) {
	return "", "paused", "running", e.Payload
}

func extractStopped(e event.Event) (string, string, string, map[string]interface{}) {
	return "", "running", "idle", e.Payload
}

func extractRecoveryStarted(e event.Event) (string, string, string, map[string]interface{}) {
	return "", "paused", "running", e.Payload
}

func extractDiscarded(e event.Event) (string, string, string, map[string]interface{}) {
	return "", "", "idle", e.Payload
}

// extractTruncation splits OutputTruncated by its recovered flag:
// recovered=true becomes a warning the run survived, recovered=false
// becomes a fatal error. This is the one raw type that maps to two
// different primitives depending on payload, so it's handled specially
// in Normalize rather than through the static table.
func extractTruncation(e event.Event) (code string, recovered bool) {
	if boolField(e.Payload, "recovered") {
		return "TRUNCATED_OUTPUT_RECOVERED", true
	}
	return "TRUNCATED_OUTPUT_FATAL", false
}

// mapping is the total-by-construction table for every raw type this
// module actually emits. event.Type values outside this table (including
// future raw types added without a corresponding entry here) fall through
// Normalize's default case to UnknownEvent — no raw event is dropped.
var mapping = map[event.Type]mapEntry{
	event.IntentReceived: {RunStarted, ScopeRun, "intent_received", passthroughDetails},
	event.Final:          {RunCompleted, ScopeRun, "final", passthroughDetails},

	event.MissionStarted:   {RunStarted, ScopeMission, "mission_started", passthroughDetails},
	event.MissionCompleted: {RunCompleted, ScopeMission, "mission_completed", passthroughDetails},
	event.MissionCancelled: {RunCompleted, ScopeMission, "mission_cancelled", passthroughDetails},
	event.CommandCompleted: {StepCompleted, ScopeStep, "command_completed", passthroughDetails},
	event.CommandSkipped:   {StepCompleted, ScopeStep, "command_skipped", passthroughDetails},

	event.PlanCreated:       {StepCompleted, ScopeStep, "plan_created", passthroughDetails},
	event.PlanRevised:       {StepCompleted, ScopeStep, "plan_revised", passthroughDetails},
	event.PlanLargeDetected: {WarningRaised, ScopeMission, "plan_large_detected", passthroughDetails},
	event.PlanApprovalAsked: {DecisionPointNeeded, ScopeMission, "plan_approval_requested", passthroughDetails},

	event.RetrievalCompleted: {StepCompleted, ScopeStep, "retrieval_completed", passthroughDetails},
	event.DiffApplied:        {ArtifactApplied, ScopeStep, "diff_applied", passthroughDetails},
	event.ArtifactProposed:   {ArtifactProposed, ScopeStep, "artifact_proposed", passthroughDetails},

	event.ApprovalRequested:       {DecisionPointNeeded, ScopeUI, "approval_requested", passthroughDetails},
	event.ApprovalResolved:        {UserActionTaken, ScopeUI, "approval_resolved", passthroughDetails},
	event.CheckpointCreated:       {ProgressUpdated, ScopeStep, "checkpoint_created", passthroughDetails},
	event.CheckpointRestored:      {WarningRaised, ScopeStep, "checkpoint_restored", passthroughDetails},
	event.ScopeExpansionRequested: {DecisionPointNeeded, ScopeUI, "scope_expansion_requested", passthroughDetails},
	event.ScopeExpansionResolved:  {UserActionTaken, ScopeUI, "scope_expansion_resolved", passthroughDetails},

	event.ToolStart: {ToolStarted, ScopeTool, "tool_start", passthroughDetails},
	event.ToolEnd:   {ToolCompleted, ScopeTool, "tool_end", extractToolEnd},

	event.DecisionPointNeeded: {DecisionPointNeeded, ScopeRun, "decision_point_needed", passthroughDetails},

	event.MemoryFactsUpdated: {ProgressUpdated, ScopeRun, "memory_facts_updated", passthroughDetails},
	event.SolutionCaptured:   {ProgressUpdated, ScopeRun, "solution_captured", passthroughDetails},

	event.ModeSet:     {StateChanged, ScopeRun, "mode_set", extractModeTransition},
	event.ModeChanged: {StateChanged, ScopeRun, "mode_changed", extractModeTransition},
	event.ModeViolation: {ErrorRaised, ScopeRun, "mode_violation", passthroughDetails},
	event.StageChanged: {StateChanged, ScopeMission, "stage_changed", extractStageChanged},

	event.ExecutionPaused:  {StateChanged, ScopeRun, "execution_paused", extractPaused},
	event.ExecutionResumed: {StateChanged, ScopeRun, "execution_resumed", extractResumed},
	event.ExecutionStopped: {StateChanged, ScopeRun, "execution_stopped", extractStopped},

	event.TaskInterrupted:     {WarningRaised, ScopeRun, "task_interrupted", passthroughDetails},
	event.TaskRecoveryStarted: {StateChanged, ScopeRun, "task_recovery_started", extractRecoveryStarted},
	event.TaskDiscarded:       {StateChanged, ScopeRun, "task_discarded", extractDiscarded},
	event.TaskFailed:          {ErrorRaised, ScopeRun, "task_failed", passthroughDetails},

	event.ClarificationAsked:  {DecisionPointNeeded, ScopeRun, "clarification_requested", passthroughDetails},
	event.ClarificationAnswer: {UserActionTaken, ScopeRun, "clarification_answered", passthroughDetails},
}
