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

// Package approval implements the checkpoint-first approval gate: callers
// block on requestApproval until the UI layer resolves it, with
// idempotency for repeated plan_approval requests and bulk-deny paths for
// plan revision and task cancellation.
package approval

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"agentcore/event"
	"agentcore/pkg/errs"
	"agentcore/pkg/log"
	"agentcore/pkg/tracing"
)

// Type is the kind of approval being requested.
type Type string

const (
	TypeTerminal         Type = "terminal"
	TypeApplyDiff        Type = "apply_diff"
	TypeScopeExpansion   Type = "scope_expansion"
	TypePlanApproval     Type = "plan_approval"
	TypeGeneratedTool    Type = "generated_tool"
	TypeGeneratedToolRun Type = "generated_tool_run"
)

// Decision is the UI layer's resolution of a pending approval.
type Decision string

const (
	DecisionApproved      Decision = "approved"
	DecisionDenied        Decision = "denied"
	DecisionEditRequested Decision = "edit_requested"
)

// Request is a pending approval awaiting resolution.
type Request struct {
	ApprovalID string                 `json:"approval_id"`
	TaskID     string                 `json:"task_id"`
	Mode       event.Mode             `json:"mode"`
	Stage      event.Stage            `json:"stage"`
	Type       Type                   `json:"type"`
	PlanID     string                 `json:"plan_id,omitempty"`
	Description string                `json:"description"`
	Details    map[string]interface{} `json:"details"`
}

// Resolution is what a requestApproval call eventually receives.
type Resolution struct {
	ApprovalID      string                 `json:"approval_id"`
	Decision        Decision               `json:"decision"`
	Scope           string                 `json:"scope,omitempty"`
	ModifiedDetails map[string]interface{} `json:"modified_details,omitempty"`
}

// ErrUnknownApproval marks a resolve against an unknown or
// already-resolved id. It wraps errs.ErrNotFound. Manager.ResolveApproval
// does not return it: it logs a warning for such an id and returns nil.
var ErrUnknownApproval = errs.Wrap(errs.ErrNotFound, "approval: unknown or already-resolved id")

type pending struct {
	req    Request
	ch     chan Resolution
	res    Resolution
	closed bool
}

// Manager is the approval gate. One Manager serves every task; pending
// approvals are keyed by ApprovalID and, for plan_approval requests, also
// indexed by (task, plan_id) for idempotent re-requests.
type Manager struct {
	mu         sync.Mutex
	pendingByID map[string]*pending
	byPlan      map[string]string // task|plan_id -> approval_id, for plan_approval idempotency
	byTask      map[string]map[string]struct{} // task -> set of approval_id
	bus         *event.Bus
	logger      *log.Logger
	seq         int
}

// NewManager creates a Manager that publishes approval_requested and
// approval_resolved events through bus.
func NewManager(bus *event.Bus, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		pendingByID: make(map[string]*pending),
		byPlan:      make(map[string]string),
		byTask:      make(map[string]map[string]struct{}),
		bus:         bus,
		logger:      logger,
	}
}

func planKey(taskID, planID string) string { return taskID + "|" + planID }

// RequestApproval blocks until the approval is resolved or ctx is
// cancelled. For type=plan_approval, a second request with the same
// (task, plan_id) returns the same in-flight wait instead of creating a
// new pending entry.
func (m *Manager) RequestApproval(ctx context.Context, req Request) (Resolution, error) {
	m.mu.Lock()
	if req.Type == TypePlanApproval && req.PlanID != "" {
		if existingID, ok := m.byPlan[planKey(req.TaskID, req.PlanID)]; ok {
			if p, ok := m.pendingByID[existingID]; ok {
				m.mu.Unlock()
				return m.wait(ctx, p)
			}
		}
	}

	m.seq++
	approvalID := fmt.Sprintf("appr-%s-%d", req.TaskID, m.seq)
	req.ApprovalID = approvalID
	p := &pending{req: req, ch: make(chan Resolution, 1)}
	m.pendingByID[approvalID] = p
	if req.Type == TypePlanApproval && req.PlanID != "" {
		m.byPlan[planKey(req.TaskID, req.PlanID)] = approvalID
	}
	if m.byTask[req.TaskID] == nil {
		m.byTask[req.TaskID] = make(map[string]struct{})
	}
	m.byTask[req.TaskID][approvalID] = struct{}{}
	m.mu.Unlock()

	if _, err := m.bus.Publish(ctx, event.Event{
		TaskID: req.TaskID,
		Type:   event.ApprovalRequested,
		Mode:   req.Mode,
		Stage:  req.Stage,
		Payload: map[string]interface{}{
			"approval_id": approvalID,
			"type":        string(req.Type),
			"plan_id":     req.PlanID,
			"description": req.Description,
			"details":     req.Details,
		},
	}); err != nil {
		return Resolution{}, err
	}

	return m.wait(ctx, p)
}

// wait blocks on p's resolution under an approval-wait span, so the time
// a task spends parked on a human decision is visible in traces.
func (m *Manager) wait(ctx context.Context, p *pending) (Resolution, error) {
	ctx, span := tracing.StartApprovalSpan(ctx, string(p.req.Type), p.req.ApprovalID)
	defer span.End()
	select {
	case <-p.ch:
		return p.res, nil
	case <-ctx.Done():
		return Resolution{}, ctx.Err()
	}
}

// ResolveApproval resolves a pending approval. Resolving an unknown or
// already-resolved id is a no-op warning, not an error.
func (m *Manager) ResolveApproval(ctx context.Context, approvalID string, decision Decision, scope string, modifiedDetails map[string]interface{}) error {
	m.mu.Lock()
	p, ok := m.pendingByID[approvalID]
	if !ok || p.closed {
		m.mu.Unlock()
		m.logger.Warn("resolveApproval: unknown or already-resolved id", "approval_id", approvalID)
		return nil
	}
	p.closed = true
	delete(m.pendingByID, approvalID)
	if p.req.Type == TypePlanApproval && p.req.PlanID != "" {
		delete(m.byPlan, planKey(p.req.TaskID, p.req.PlanID))
	}
	delete(m.byTask[p.req.TaskID], approvalID)
	m.mu.Unlock()

	res := Resolution{ApprovalID: approvalID, Decision: decision, Scope: scope, ModifiedDetails: modifiedDetails}

	if _, err := m.bus.Publish(ctx, event.Event{
		TaskID: p.req.TaskID,
		Type:   event.ApprovalResolved,
		Mode:   p.req.Mode,
		Stage:  p.req.Stage,
		Payload: map[string]interface{}{
			"approval_id":      approvalID,
			"decision":         string(decision),
			"scope":            scope,
			"modified_details": modifiedDetails,
		},
	}); err != nil {
		return err
	}

	// Closing the channel releases every waiter, including idempotent
	// plan_approval re-requests joined onto the same pending entry.
	p.res = res
	close(p.ch)
	return nil
}

// SupersedePlanApprovals denies every pending plan_approval request for
// oldPlanID, used when a plan is revised before approval.
func (m *Manager) SupersedePlanApprovals(ctx context.Context, taskID, oldPlanID string) error {
	m.mu.Lock()
	id, ok := m.byPlan[planKey(taskID, oldPlanID)]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.ResolveApproval(ctx, id, DecisionDenied, "", nil)
}

// CancelAllPending denies every outstanding approval for a task, used on
// task abort.
func (m *Manager) CancelAllPending(ctx context.Context, taskID string) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.byTask[taskID]))
	for id := range m.byTask[taskID] {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)

	for _, id := range ids {
		if err := m.ResolveApproval(ctx, id, DecisionDenied, "", nil); err != nil {
			return err
		}
	}
	return nil
}

// PendingCount returns the number of unresolved approvals for a task,
// primarily for tests and diagnostics.
func (m *Manager) PendingCount(taskID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byTask[taskID])
}
