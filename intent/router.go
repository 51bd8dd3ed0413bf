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

package intent

import (
	"strings"

	"agentcore/event"
)

// MaxClarificationAttempts bounds the clarification loop: past this many
// attempts the router proceeds with its best guess instead of asking
// again.
const MaxClarificationAttempts = 2

var vagueReferenceWords = []string{"this", "that", "it"}
var questionOpeners = []string{"what", "why", "how", "is ", "does ", "can ", "should ", "who", "where", "when"}

// Router implements the deterministic intent -> behavior -> mode
// decision.
type Router struct{}

// NewRouter creates a Router. It carries no state: every decision is a
// pure function of (prompt, Context).
func NewRouter() *Router {
	return &Router{}
}

// ActiveRunFromEvents implements step 3's active-run detector: an
// unresolved approval_requested or blocking decision_point_needed newer
// than the most recent terminal event (final/mission_completed/
// mission_cancelled/command_completed/command_skipped).
func ActiveRunFromEvents(events []event.Event) bool {
	lastTerminal := -1
	for i, e := range events {
		if _, ok := event.TerminalTypes[e.Type]; ok {
			lastTerminal = i
		}
	}
	resolvedApprovals := make(map[string]bool)
	for _, e := range events[lastTerminal+1:] {
		if e.Type == event.ApprovalResolved {
			if id, ok := e.Payload["approval_id"].(string); ok {
				resolvedApprovals[id] = true
			}
		}
	}
	for _, e := range events[lastTerminal+1:] {
		switch e.Type {
		case event.ApprovalRequested:
			id, _ := e.Payload["approval_id"].(string)
			if !resolvedApprovals[id] {
				return true
			}
		case event.DecisionPointNeeded:
			if blocking, _ := e.Payload["blocking"].(bool); blocking {
				return true
			}
		}
	}
	return false
}

// Classify runs the full 8-step algorithm over prompt given ctx.
func (r *Router) Classify(prompt string, ctx Context) IntentAnalysis {
	// Step 1: slash override.
	if b, ok := matchSlashOverride(prompt); ok {
		return IntentAnalysis{
			Behavior:      b,
			ContextSource: "slash_override",
			Confidence:    1.0,
			Reasoning:     "prompt led with an explicit slash command",
			DerivedMode:   DerivedMode(b),
			UserOverride:  true,
		}
	}

	l := lower(prompt)

	// Step 2: command-intent early detection.
	isQuestionLike := containsAny(l, explainKeywords) || containsAny(l, diagnosticPatterns) || strings.HasSuffix(strings.TrimSpace(prompt), "?")
	greenfield := containsAny(l, greenfieldPatterns)
	isCommandIntent := false
	if !isQuestionLike && !greenfield {
		if containsAny(l, packageRunnerTokens) {
			isCommandIntent = true
			return IntentAnalysis{
				Behavior:        BehaviorQuickAction,
				ContextSource:   "command_intent",
				Confidence:      0.9,
				Reasoning:       "prompt directly invoked a package-runner command",
				DerivedMode:     DerivedMode(BehaviorQuickAction),
				IsCommandIntent: true,
			}
		}
		if verb, target, ok := matchVerbTargetCommand(l); ok {
			isCommandIntent = true
			return IntentAnalysis{
				Behavior:        BehaviorQuickAction,
				ContextSource:   "command_intent",
				Confidence:      0.75,
				Reasoning:       "prompt named a " + verb + " action against " + target,
				DerivedMode:     DerivedMode(BehaviorQuickAction),
				IsCommandIntent: true,
			}
		}
	}

	// Step 3: active run, either asserted by the caller or derived from
	// the recent event tail it handed over.
	if ctx.ActiveRun || (len(ctx.RecentEvents) > 0 && ActiveRunFromEvents(ctx.RecentEvents)) {
		return IntentAnalysis{
			Behavior:        BehaviorContinueRun,
			ContextSource:   "active_run",
			Confidence:      0.95,
			Reasoning:       "an unresolved approval or blocking decision point exists past the last terminal event",
			DerivedMode:     DerivedMode(BehaviorContinueRun),
			IsCommandIntent: isCommandIntent,
		}
	}

	hasActionVerb := containsAny(l, actionVerbs)

	// Step 4: pure question.
	startsWithQuestion := false
	for _, opener := range questionOpeners {
		if strings.HasPrefix(l, opener) {
			startsWithQuestion = true
			break
		}
	}
	endsWithQuestionMark := strings.HasSuffix(strings.TrimSpace(prompt), "?")
	if (startsWithQuestion || endsWithQuestionMark) && !hasActionVerb {
		return IntentAnalysis{
			Behavior:        BehaviorAnswer,
			ContextSource:   "pure_question",
			Confidence:      0.9,
			Reasoning:       "prompt reads as a question with no action verb",
			DerivedMode:     DerivedMode(BehaviorAnswer),
			IsCommandIntent: isCommandIntent,
		}
	}

	// Step 5: reference resolution.
	referencedFiles := extractFilePaths(prompt)
	if len(referencedFiles) == 0 {
		switch {
		case ctx.LastAppliedDiff != "":
			referencedFiles = []string{ctx.LastAppliedDiff}
		case ctx.LastOpenEditor != "":
			referencedFiles = []string{ctx.LastOpenEditor}
		case ctx.LastArtifactProposed != "":
			referencedFiles = []string{ctx.LastArtifactProposed}
		}
	}
	if len(referencedFiles) == 0 && containsAny(l, vagueReferenceWords) {
		if ctx.ClarificationAttempts >= MaxClarificationAttempts {
			// Attempts exhausted: fall through to the best guess rather
			// than re-asking.
		} else {
			return IntentAnalysis{
				Behavior:        BehaviorClarify,
				ContextSource:   "ambiguous_reference",
				Confidence:      0.4,
				Reasoning:       "prompt references an unresolved target with no active diff, editor, or artifact",
				DerivedMode:     DerivedMode(BehaviorClarify),
				IsCommandIntent: isCommandIntent,
				Clarification:   referenceClarification(),
			}
		}
	}

	// Step 6: intent signal scoring.
	explainScore := countMatches(l, explainKeywords)
	planScore := countMatches(l, planKeywords)
	actionScore := countMatches(l, actionVerbs)

	if explainScore >= actionScore+2 && explainScore >= planScore+1 {
		return IntentAnalysis{
			Behavior:        BehaviorAnswer,
			ContextSource:   "signal_scoring",
			Confidence:      0.8,
			Reasoning:       "explain signal dominates action and plan signals",
			DerivedMode:     DerivedMode(BehaviorAnswer),
			ReferencedFiles: referencedFiles,
			IsCommandIntent: isCommandIntent,
		}
	}
	if planScore >= actionScore+1 && planScore >= explainScore+1 {
		return r.finishAsPlanOrQuickAction(BehaviorPlan, prompt, l, referencedFiles, isCommandIntent, "plan signal dominates")
	}

	// Mutual top-signal parity only makes sense once at least two
	// categories actually fired; a lone nonzero signal always wins
	// outright, it never "ties" against two zeros.
	nonzero := 0
	for _, v := range []int{explainScore, planScore, actionScore} {
		if v > 0 {
			nonzero++
		}
	}
	top := maxOf(explainScore, planScore, actionScore)
	tieCount := 0
	if nonzero >= 2 {
		if explainScore >= top-1 {
			tieCount++
		}
		if planScore >= top-1 {
			tieCount++
		}
		if actionScore >= top-1 {
			tieCount++
		}
	}
	if tieCount >= 2 && ctx.ClarificationAttempts < MaxClarificationAttempts {
		return IntentAnalysis{
			Behavior:        BehaviorClarify,
			ContextSource:   "signal_tie",
			Confidence:      0.5,
			Reasoning:       "explain/plan/action signals are within 1 of each other",
			DerivedMode:     DerivedMode(BehaviorClarify),
			ReferencedFiles: referencedFiles,
			IsCommandIntent: isCommandIntent,
			Clarification:   signalTieClarification(),
		}
	}

	// Step 7/8: scope detection and behavior choice.
	return r.finishAsPlanOrQuickAction(BehaviorQuickAction, prompt, l, referencedFiles, isCommandIntent, "action signal dominates or no stronger signal")
}

// finishAsPlanOrQuickAction runs steps 7-8 and returns the final decision.
// hint seeds a preferred behavior class (PLAN vs QUICK_ACTION) but the
// actual bucket from the complexity score always wins per step 8's table.
func (r *Router) finishAsPlanOrQuickAction(hint Behavior, prompt, l string, referencedFiles []string, isCommandIntent bool, reason string) IntentAnalysis {
	greenfield := containsAny(l, greenfieldPatterns)
	scope := ScopeTrivial
	if containsAny(l, trivialVerbs) && !greenfield {
		scope = ScopeTrivial
	} else {
		scope = bucketScope(complexityScore(prompt, len(referencedFiles)), greenfield)
	}

	var behavior Behavior
	switch scope {
	case ScopeTrivial, ScopeSmall:
		behavior = BehaviorQuickAction
	default:
		behavior = BehaviorPlan
	}
	_ = hint // the score-derived bucket is authoritative

	return IntentAnalysis{
		Behavior:        behavior,
		ContextSource:   "scope_detection",
		Confidence:      0.7,
		Reasoning:       reason,
		DerivedMode:     DerivedMode(behavior),
		DetectedScope:   scope,
		ReferencedFiles: referencedFiles,
		IsCommandIntent: isCommandIntent,
	}
}

func maxOf(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func matchSlashOverride(prompt string) (Behavior, bool) {
	trimmed := strings.TrimSpace(prompt)
	for prefix, b := range slashOverrides {
		if strings.HasPrefix(strings.ToLower(trimmed), prefix) {
			return b, true
		}
	}
	return "", false
}

func matchVerbTargetCommand(l string) (verb, target string, ok bool) {
	for v, targets := range commandTargetVerbs {
		if !strings.Contains(l, v) {
			continue
		}
		for _, t := range targets {
			if strings.Contains(l, t) {
				return v, t, true
			}
		}
	}
	return "", "", false
}

func referenceClarification() *Clarification {
	return &Clarification{
		Question: "Which file or artifact should this apply to?",
		Options: []ClarificationOption{
			{Action: ActionProvideFile, Label: "Specify a file"},
			{Action: ActionConfirmIntent, Label: "Use the most recently discussed file"},
			{Action: ActionCancel, Label: "Cancel"},
		},
	}
}

func signalTieClarification() *Clarification {
	return &Clarification{
		Question: "Do you want an explanation, a plan, or for me to make the change directly?",
		Options: []ClarificationOption{
			{Action: ActionConfirmIntent, Label: "Just make the change"},
			{Action: ActionProvideScope, Label: "Draft a plan first"},
			{Action: ActionCancel, Label: "Cancel"},
		},
	}
}
