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

// Package normalize projects the raw, organically-growing event
// vocabulary onto a small closed set of primitive types for UI
// consumption. The projection is never persisted: every consumer
// re-derives it from the raw event at read time, the same way package
// state re-derives TaskState from an event slice rather than storing it.
package normalize

import "agentcore/event"

// PrimitiveEventType is the closed set the normalizer projects every raw
// event onto. UnknownEvent is the total-mapping sink: any raw type the
// mapping table doesn't recognize still produces a valid NormalizedEvent
// rather than being dropped.
type PrimitiveEventType string

const (
	RunStarted          PrimitiveEventType = "run_started"
	RunCompleted        PrimitiveEventType = "run_completed"
	StepStarted         PrimitiveEventType = "step_started"
	StepCompleted       PrimitiveEventType = "step_completed"
	ToolStarted         PrimitiveEventType = "tool_started"
	ToolCompleted       PrimitiveEventType = "tool_completed"
	ArtifactProposed    PrimitiveEventType = "artifact_proposed"
	ArtifactApplied     PrimitiveEventType = "artifact_applied"
	DecisionPointNeeded PrimitiveEventType = "decision_point_needed"
	UserActionTaken     PrimitiveEventType = "user_action_taken"
	ProgressUpdated     PrimitiveEventType = "progress_updated"
	StateChanged        PrimitiveEventType = "state_changed"
	WarningRaised       PrimitiveEventType = "warning_raised"
	ErrorRaised         PrimitiveEventType = "error_raised"
	UnknownEvent        PrimitiveEventType = "unknown_event"
)

// Scope classifies how broad a normalized event's effect is, from a
// single tool call up to the whole run.
type Scope string

const (
	ScopeRun     Scope = "run"
	ScopeMission Scope = "mission"
	ScopeStep    Scope = "step"
	ScopeTool    Scope = "tool"
	ScopeUI      Scope = "ui"
)

// Normalized is the stable primitive view of a raw event.
type Normalized struct {
	Type    PrimitiveEventType     `json:"type"`
	Kind    string                 `json:"kind"`
	Code    string                 `json:"code,omitempty"`
	Scope   Scope                  `json:"scope"`
	From    string                 `json:"from,omitempty"`
	To      string                 `json:"to,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	UIHint  string                 `json:"ui_hint,omitempty"`
}

// Version is bumped whenever the mapping table's output shape changes in
// a way a UI consumer would need to know about.
const Version = 1

// NormalizedEvent pairs a raw event with its projection. Raw is never
// mutated; consumers that need the canonical record still have it.
type NormalizedEvent struct {
	Raw             event.Event `json:"raw"`
	Normalized      Normalized  `json:"normalized"`
	NormalizerVersion int       `json:"normalizer_version"`
}
