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

// Package intent classifies a free-form prompt into a Behavior and a
// derived permission Mode, resolving ambiguous references and running a
// bounded clarification loop when the signal is too weak to decide.
package intent

import "agentcore/event"

// Behavior is the router's primary decision.
type Behavior string

const (
	BehaviorAnswer      Behavior = "ANSWER"
	BehaviorClarify     Behavior = "CLARIFY"
	BehaviorQuickAction Behavior = "QUICK_ACTION"
	BehaviorPlan        Behavior = "PLAN"
	BehaviorContinueRun Behavior = "CONTINUE_RUN"
)

// DerivedMode maps a Behavior to its permission mode.
func DerivedMode(b Behavior) event.Mode {
	switch b {
	case BehaviorAnswer, BehaviorClarify:
		return event.ModeAnswer
	case BehaviorQuickAction, BehaviorContinueRun:
		return event.ModeMission
	case BehaviorPlan:
		return event.ModePlan
	default:
		return event.ModeAnswer
	}
}

// Scope is the detected complexity bucket for a PLAN/QUICK_ACTION prompt.
type Scope string

const (
	ScopeTrivial Scope = "trivial"
	ScopeSmall   Scope = "small"
	ScopeMedium  Scope = "medium"
	ScopeLarge   Scope = "large"
)

// ClarificationActionKind is one of the ≤4 action options offered with a
// clarification question.
type ClarificationActionKind string

const (
	ActionProvideFile    ClarificationActionKind = "provide_file"
	ActionProvideScope   ClarificationActionKind = "provide_scope"
	ActionConfirmIntent  ClarificationActionKind = "confirm_intent"
	ActionCancel         ClarificationActionKind = "cancel"
)

// ClarificationOption is one action a user may take in response to a
// clarification question.
type ClarificationOption struct {
	Action ClarificationActionKind `json:"action"`
	Label  string                  `json:"label"`
}

// Clarification is the payload of a clarification_requested event.
type Clarification struct {
	Question string                `json:"question"`
	Options  []ClarificationOption `json:"options"`
}

// Context carries the caller-supplied signals the router needs beyond the
// prompt text itself.
type Context struct {
	ActiveRun              bool
	ClarificationAttempts  int
	LastAppliedDiff        string
	LastOpenEditor         string
	LastArtifactProposed   string
	RecentEvents           []event.Event
}

// IntentAnalysis is the router's decision.
type IntentAnalysis struct {
	Behavior        Behavior       `json:"behavior"`
	ContextSource   string         `json:"context_source"`
	Confidence      float64        `json:"confidence"`
	Reasoning       string         `json:"reasoning"`
	DerivedMode     event.Mode     `json:"derived_mode"`
	DetectedScope   Scope          `json:"detected_scope,omitempty"`
	ReferencedFiles []string       `json:"referenced_files,omitempty"`
	UserOverride    bool           `json:"user_override,omitempty"`
	Clarification   *Clarification `json:"clarification,omitempty"`
	IsCommandIntent bool           `json:"is_command_intent"`
}
