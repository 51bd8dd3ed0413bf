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

// Package http is agentcore's HTTP ingress/egress surface: intent
// submission, approval/scope-expansion resolution, lifecycle control, and
// the event/state/memory read paths.
package http

import (
	"bytes"
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/prometheus/common/expfmt"

	"agentcore/approval"
	"agentcore/event"
	"agentcore/intent"
	"agentcore/lifecycle"
	"agentcore/memory"
	"agentcore/mode"
	"agentcore/normalize"
	"agentcore/plandetect"
	"agentcore/pkg/metrics"
	"agentcore/pkg/proof"
	"agentcore/scope"
	"agentcore/state"
	"agentcore/tool"
)

// Handler holds every domain collaborator the HTTP surface dispatches
// into. It never embeds business logic of its own beyond request
// decoding and response shaping.
type Handler struct {
	bus           *event.Bus
	intentRouter  *intent.Router
	lifecycleCtl  *lifecycle.Controller
	modeMgr       *mode.Manager
	scopeMgr      *scope.Manager
	approvalMgr   *approval.Manager
	memoryMgr     *memory.Manager
	toolExecutor  *tool.Executor
	workspaceRoot string
}

// NewHandler wires a Handler over the given collaborators.
func NewHandler(bus *event.Bus, intentRouter *intent.Router, lifecycleCtl *lifecycle.Controller, modeMgr *mode.Manager, scopeMgr *scope.Manager, approvalMgr *approval.Manager, memoryMgr *memory.Manager, toolExecutor *tool.Executor, workspaceRoot string) *Handler {
	return &Handler{
		bus:           bus,
		intentRouter:  intentRouter,
		lifecycleCtl:  lifecycleCtl,
		modeMgr:       modeMgr,
		scopeMgr:      scopeMgr,
		approvalMgr:   approvalMgr,
		memoryMgr:     memoryMgr,
		toolExecutor:  toolExecutor,
		workspaceRoot: workspaceRoot,
	}
}

// HealthCheck reports process liveness.
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{"status": "ok"})
}

type submitIntentRequest struct {
	Prompt                string   `json:"prompt"`
	ActiveRun             bool     `json:"active_run"`
	ClarificationAttempts int      `json:"clarification_attempts"`
	ReferencedFiles       []string `json:"referenced_files"`
	LastAppliedDiff       string   `json:"last_applied_diff"`
	LastOpenEditor        string   `json:"last_open_editor"`
	LastArtifactProposed  string   `json:"last_artifact_proposed"`
}

// SubmitIntent classifies a prompt and, on first contact with a task,
// begins its intent-intake phase before emitting intent_received.
func (h *Handler) SubmitIntent(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	var req submitIntentRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if h.lifecycleCtl.CurrentPhase(taskID) == lifecycle.PhaseNew {
		if err := h.lifecycleCtl.BeginIntentIntake(ctx, taskID); err != nil {
			c.JSON(consts.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
	}

	recent, err := h.bus.Store().GetByTask(ctx, taskID)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	analysis := h.intentRouter.Classify(req.Prompt, intent.Context{
		ActiveRun:             req.ActiveRun,
		ClarificationAttempts: req.ClarificationAttempts,
		LastAppliedDiff:       req.LastAppliedDiff,
		LastOpenEditor:        req.LastOpenEditor,
		LastArtifactProposed:  req.LastArtifactProposed,
		RecentEvents:          recent,
	})
	metrics.IntentClassificationTotal.WithLabelValues(string(analysis.Behavior)).Inc()

	if _, _, err := h.modeMgr.SetMode(ctx, taskID, analysis.DerivedMode); err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if analysis.Behavior == intent.BehaviorClarify && analysis.Clarification != nil {
		if _, err := h.bus.Publish(ctx, event.Event{
			TaskID: taskID,
			Type:   event.ClarificationAsked,
			Mode:   analysis.DerivedMode,
			Payload: map[string]interface{}{
				"question": analysis.Clarification.Question,
				"options":  analysis.Clarification.Options,
				"attempt":  req.ClarificationAttempts + 1,
			},
		}); err != nil {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	c.JSON(consts.StatusOK, analysis)
}

type answerClarificationRequest struct {
	Action string `json:"action"`
	Detail string `json:"detail"`
}

// AnswerClarification records the user's response to an outstanding
// clarification_requested event.
func (h *Handler) AnswerClarification(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	var req answerClarificationRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	e, err := h.bus.Publish(ctx, event.Event{
		TaskID: taskID,
		Type:   event.ClarificationAnswer,
		Payload: map[string]interface{}{
			"action": req.Action,
			"detail": req.Detail,
		},
	})
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, e)
}

type resolveApprovalRequest struct {
	Decision        string                 `json:"decision"`
	Scope           string                 `json:"scope"`
	ModifiedDetails map[string]interface{} `json:"modified_details"`
}

// ResolveApproval resolves a pending approval gate by ID.
func (h *Handler) ResolveApproval(ctx context.Context, c *app.RequestContext) {
	approvalID := c.Param("approval_id")
	var req resolveApprovalRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	decision := approval.DecisionDenied
	switch req.Decision {
	case string(approval.DecisionApproved):
		decision = approval.DecisionApproved
	case string(approval.DecisionEditRequested):
		decision = approval.DecisionEditRequested
	}
	if err := h.approvalMgr.ResolveApproval(ctx, approvalID, decision, req.Scope, req.ModifiedDetails); err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, map[string]string{"approval_id": approvalID, "decision": string(decision)})
}

type resolveScopeExpansionRequest struct {
	Approved bool     `json:"approved"`
	Files    []string `json:"files"`
	Tools    []string `json:"tools"`
	Lines    int      `json:"lines"`
}

// ResolveScopeExpansion approves or denies a previously requested scope
// expansion, letting the reducer merge it into the contract if approved.
func (h *Handler) ResolveScopeExpansion(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	var req resolveScopeExpansionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	e, err := h.scopeMgr.ResolveScopeExpansion(ctx, taskID, scope.ExpansionRequest{
		TaskID: taskID, Files: req.Files, Tools: req.Tools, Lines: req.Lines,
	}, req.Approved)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, e)
}

// PauseTask, ResumeTask, and StopTask drive the orthogonal lifecycle
// controls available in any phase but completion.
func (h *Handler) PauseTask(ctx context.Context, c *app.RequestContext) {
	h.lifecycleAction(ctx, c, h.lifecycleCtl.Pause)
}

func (h *Handler) ResumeTask(ctx context.Context, c *app.RequestContext) {
	h.lifecycleAction(ctx, c, h.lifecycleCtl.Resume)
}

func (h *Handler) StopTask(ctx context.Context, c *app.RequestContext) {
	h.lifecycleAction(ctx, c, h.lifecycleCtl.Stop)
}

// CancelTask aborts a running mission: every pending approval is denied
// (unblocking its waiter), then mission_cancelled and execution_stopped
// are recorded.
func (h *Handler) CancelTask(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	if err := h.approvalMgr.CancelAllPending(ctx, taskID); err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := h.lifecycleCtl.CancelMission(ctx, taskID); err != nil {
		c.JSON(consts.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, map[string]string{"task_id": taskID, "status": "cancelled"})
}

type supersedePlanRequest struct {
	PlanID string `json:"plan_id"`
}

// SupersedePlan denies the pending plan approval for a revised plan, so
// its waiter unblocks and the revised plan can request approval afresh.
func (h *Handler) SupersedePlan(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	var req supersedePlanRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.approvalMgr.SupersedePlanApprovals(ctx, taskID, req.PlanID); err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, map[string]string{"task_id": taskID, "plan_id": req.PlanID})
}

func (h *Handler) lifecycleAction(ctx context.Context, c *app.RequestContext, op func(context.Context, string) error) {
	taskID := c.Param("task_id")
	if err := op(ctx, taskID); err != nil {
		c.JSON(consts.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, map[string]string{"task_id": taskID})
}

// GetTaskState projects taskID's event slice into its current TaskState.
func (h *Handler) GetTaskState(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	events, err := h.bus.Store().GetByTask(ctx, taskID)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, state.ReduceForTask(taskID, events))
}

// GetTaskEvents returns taskID's raw event log.
func (h *Handler) GetTaskEvents(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	events, err := h.bus.Store().GetByTask(ctx, taskID)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"events": events})
}

// GetNormalizedEvents returns taskID's event log mapped onto the closed
// primitive vocabulary, for UI consumption.
func (h *Handler) GetNormalizedEvents(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	events, err := h.bus.Store().GetByTask(ctx, taskID)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"events": normalize.NormalizeBatch(events)})
}

type detectPlanRequest struct {
	Steps    []string           `json:"steps"`
	Metadata *plandetect.Metadata `json:"metadata"`
}

// DetectPlan scores a candidate plan's steps for the large-plan gate.
func (h *Handler) DetectPlan(ctx context.Context, c *app.RequestContext) {
	var req detectPlanRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	result := plandetect.Detect(req.Steps, req.Metadata)
	if result.LargePlan {
		metrics.LargePlanDetectedTotal.WithLabelValues(result.Reasons[len(result.Reasons)-1]).Inc()
	}
	c.JSON(consts.StatusOK, result)
}

type updateFactsRequest struct {
	Lines []string `json:"lines"`
}

// UpdateFacts appends lines to taskID's facts doc.
func (h *Handler) UpdateFacts(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	var req updateFactsRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	e, err := h.memoryMgr.UpdateFacts(ctx, taskID, req.Lines)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, e)
}

// GetFacts returns taskID's full facts doc.
func (h *Handler) GetFacts(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	lines, err := h.memoryMgr.Facts(ctx, taskID)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"lines": lines})
}

type captureSolutionRequest struct {
	TaskID       string   `json:"task_id"`
	Problem      string   `json:"problem"`
	Fix          string   `json:"fix"`
	FilesChanged []string `json:"files_changed"`
	Tags         []string `json:"tags"`
	Verification string   `json:"verification"`
}

// CaptureSolution persists a solved problem for later retrieval.
func (h *Handler) CaptureSolution(ctx context.Context, c *app.RequestContext) {
	var req captureSolutionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	e, err := h.memoryMgr.CaptureSolution(ctx, req.TaskID, memory.Solution{
		Problem:      req.Problem,
		Fix:          req.Fix,
		FilesChanged: req.FilesChanged,
		Tags:         req.Tags,
		Verification: req.Verification,
	})
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, e)
}

// QuerySolutions returns the topK solutions most relevant to ?query=.
func (h *Handler) QuerySolutions(ctx context.Context, c *app.RequestContext) {
	query := c.Query("query")
	topK, _ := strconv.Atoi(c.DefaultQuery("top_k", "0"))
	results, err := h.memoryMgr.QueryRelevantSolutions(ctx, query, topK)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"results": results})
}

// Metrics serves the process's Prometheus metrics in text exposition format.
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		hlog.CtxErrorf(ctx, "WritePrometheus: %v", err)
		c.AbortWithStatus(consts.StatusInternalServerError)
		return
	}
	c.Header("Content-Type", string(expfmt.FmtText))
	c.Write(buf.Bytes())
}

// ExportEvidence packages taskID's hash-chained event log into a
// tamper-evident ZIP bundle (manifest, events, ledger, proof summary).
func (h *Handler) ExportEvidence(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	zipBytes, err := proof.ExportEvidenceZip(ctx, taskID, busEventSource{bus: h.bus}, nil, proof.ExportOptions{
		RuntimeVersion: "agentcore-1.0",
	})
	if err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="`+taskID+`-evidence.zip"`)
	c.Write(zipBytes)
}

// VerifyEvidence checks a previously exported bundle's internal
// consistency: file hashes, hash chain, and (if present) ledger
// cross-check against the recorded tool_start/tool_end events.
func (h *Handler) VerifyEvidence(ctx context.Context, c *app.RequestContext) {
	body := c.Request.Body()
	result := proof.VerifyEvidenceZip(body)
	c.JSON(consts.StatusOK, result)
}
