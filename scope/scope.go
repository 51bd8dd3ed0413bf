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

// Package scope validates tool actions against a task's scope contract
// and mediates scope-expansion requests, merging an expansion into the
// contract only once it has been approved.
package scope

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"agentcore/event"
	"agentcore/state"
)

// ImpactLevel classifies how disruptive a scope-expansion request is.
type ImpactLevel string

const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// ActionRequest describes one tool invocation to validate against scope.
type ActionRequest struct {
	Category string   // read | write | exec
	Files    []string
	Lines    int
}

// Decision is the result of validating an action against scope.
type Decision struct {
	Allowed           bool
	Reason            string
	RequiresExpansion bool
	Expansion         *ExpansionRequest
}

// ExpansionRequest is what gets emitted as scope_expansion_requested when
// an action needs more than the current contract grants.
type ExpansionRequest struct {
	TaskID      string      `json:"task_id"`
	Files       []string    `json:"files"`
	Tools       []string    `json:"tools"`
	Lines       int         `json:"lines"`
	ImpactLevel ImpactLevel `json:"impact_level"`
	Reason      string      `json:"reason"`
}

// Manager validates actions against a task's ScopeSummary/Contract and
// mediates scope-expansion approval. It also enforces a per-task
// tool-call rate limit, independent of the file/line/tool-class budget,
// so a runaway loop cannot exhaust the host even while nominally
// in-scope.
type Manager struct {
	bus  *event.Bus
	mu   sync.Mutex
	lims map[string]*rate.Limiter
	rps  rate.Limit
	burst int
}

// NewManager creates a Manager. rps/burst bound the steady-state and
// burst tool-call rate per task; 0 disables the limiter (unbounded).
func NewManager(bus *event.Bus, rps float64, burst int) *Manager {
	return &Manager{
		bus:   bus,
		lims:  make(map[string]*rate.Limiter),
		rps:   rate.Limit(rps),
		burst: burst,
	}
}

func (m *Manager) limiterFor(taskID string) *rate.Limiter {
	if m.rps <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lims[taskID]
	if !ok {
		l = rate.NewLimiter(m.rps, m.burst)
		m.lims[taskID] = l
	}
	return l
}

// ValidateAction checks req against summary's contract and in-scope
// files. A request is allowed if every file is already in scope, the
// projected lines_retrieved would not exceed max_lines, and the category
// is an allowed tool class; otherwise it returns a proposed expansion.
func (m *Manager) ValidateAction(taskID string, summary state.ScopeSummary, req ActionRequest) Decision {
	if l := m.limiterFor(taskID); l != nil && !l.Allow() {
		return Decision{Allowed: false, Reason: "tool call rate limit exceeded"}
	}

	var missing []string
	for _, f := range req.Files {
		if !inScope(summary.InScopeFiles, f) {
			missing = append(missing, f)
		}
	}
	projectedLines := summary.LinesRetrieved + req.Lines
	overLines := summary.Contract.MaxLines > 0 && projectedLines > summary.Contract.MaxLines
	newToolClass := req.Category != "" && !summary.Contract.AllowsTool(req.Category)

	if len(missing) == 0 && !overLines && !newToolClass {
		return Decision{Allowed: true}
	}

	impact := classifyImpact(req, missing, newToolClass)
	reason := expansionReason(missing, overLines, newToolClass)
	return Decision{
		Allowed:           false,
		Reason:            reason,
		RequiresExpansion: true,
		Expansion: &ExpansionRequest{
			TaskID:      taskID,
			Files:       missing,
			Tools:       toolsFor(req, newToolClass),
			Lines:       req.Lines,
			ImpactLevel: impact,
			Reason:      reason,
		},
	}
}

func inScope(files []string, f string) bool {
	for _, existing := range files {
		if existing == f {
			return true
		}
	}
	return false
}

func expansionReason(missing []string, overLines, newToolClass bool) string {
	switch {
	case len(missing) > 0 && newToolClass:
		return "requests files and a tool class outside the current contract"
	case len(missing) > 0:
		return "requests files outside the current contract"
	case newToolClass:
		return "requests a tool class outside the current contract"
	case overLines:
		return "projected lines_retrieved exceeds the contract's max_lines"
	default:
		return "outside current contract"
	}
}

func toolsFor(req ActionRequest, newToolClass bool) []string {
	if newToolClass && req.Category != "" {
		return []string{req.Category}
	}
	return nil
}

// classifyImpact: low for a read-only single-file addition, medium for
// new tool classes or write escalations, high for cross-cutting write
// expansions (more than one file touched by a write/exec category).
func classifyImpact(req ActionRequest, missing []string, newToolClass bool) ImpactLevel {
	isWrite := req.Category == "write" || req.Category == "exec"
	switch {
	case isWrite && len(missing) > 1:
		return ImpactHigh
	case newToolClass || isWrite:
		return ImpactMedium
	case len(missing) <= 1:
		return ImpactLow
	default:
		return ImpactMedium
	}
}

// RequestScopeExpansion emits scope_expansion_requested for UI/approval
// consumption; the contract is not modified until ResolveScopeExpansion
// is called with an approval.
func (m *Manager) RequestScopeExpansion(ctx context.Context, req ExpansionRequest) (event.Event, error) {
	return m.bus.Publish(ctx, event.Event{
		TaskID: req.TaskID,
		Type:   event.ScopeExpansionRequested,
		Payload: map[string]interface{}{
			"files":        req.Files,
			"tools":        req.Tools,
			"lines":        req.Lines,
			"impact_level": string(req.ImpactLevel),
			"reason":       req.Reason,
		},
	})
}

// ResolveScopeExpansion emits scope_expansion_resolved. The reducer
// (package state) merges the requested files/tools/lines into the
// contract only when approved=true; a denial leaves the contract
// untouched.
func (m *Manager) ResolveScopeExpansion(ctx context.Context, taskID string, req ExpansionRequest, approved bool) (event.Event, error) {
	return m.bus.Publish(ctx, event.Event{
		TaskID: taskID,
		Type:   event.ScopeExpansionResolved,
		Payload: map[string]interface{}{
			"approved": approved,
			"files":    req.Files,
			"tools":    req.Tools,
			"lines":    req.Lines,
		},
	})
}
