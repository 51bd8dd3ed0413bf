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

package http

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"agentcore/approval"
	"agentcore/event"
	"agentcore/state"
	"agentcore/tool"
)

type executeToolRequest struct {
	Mode             event.Mode             `json:"mode"`
	Stage            event.Stage            `json:"stage"`
	Name             string                 `json:"name"`
	Category         tool.Category          `json:"category"`
	Path             string                 `json:"path"`
	Files            []string               `json:"files"`
	Lines            int                    `json:"lines"`
	RequiresApproval bool                   `json:"requires_approval"`
	ApprovalType     approval.Type          `json:"approval_type"`
	Inputs           map[string]interface{} `json:"inputs"`
}

// ExecuteTool drives an Invocation through the Executor's full mode,
// scope, approval, checkpoint, and evidence pipeline. The side effect
// itself is limited to what a request to this HTTP surface can safely
// perform without a sandboxed tool host on the other end: CategoryRead
// tools read a file under the workspace root; CategoryWrite and
// CategoryExec tools stop short of the pipeline's last mile and report
// that an external tool host is required, since applying a diff or
// spawning a process are collaborators this package doesn't own.
func (h *Handler) ExecuteTool(ctx context.Context, c *app.RequestContext) {
	taskID := c.Param("task_id")
	var req executeToolRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	events, err := h.bus.Store().GetByTask(ctx, taskID)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	summary := state.ReduceForTask(taskID, events).ScopeSummary

	inv := tool.Invocation{
		TaskID:           taskID,
		Mode:             req.Mode,
		Stage:            req.Stage,
		Name:             req.Name,
		Category:         req.Category,
		Path:             req.Path,
		Files:            req.Files,
		Lines:            req.Lines,
		RequiresApproval: req.RequiresApproval,
		ApprovalType:     req.ApprovalType,
		Inputs:           req.Inputs,
	}

	result, err := h.toolExecutor.Execute(ctx, inv, summary, h.toolOp(inv))
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, result)
}

// toolOp builds the Op the Executor runs once every gate has passed.
// Only CategoryRead is performed locally; applying diffs and spawning
// processes belong to an external tool host, so write/exec invocations
// run the full gate pipeline and then report that no host is attached.
func (h *Handler) toolOp(inv tool.Invocation) tool.Op {
	return func(ctx context.Context) (map[string]interface{}, error) {
		switch inv.Category {
		case tool.CategoryRead:
			path := inv.Path
			if path == "" && len(inv.Files) > 0 {
				path = inv.Files[0]
			}
			if path == "" {
				return nil, fmt.Errorf("tool %q: no path given to read", inv.Name)
			}
			data, err := os.ReadFile(filepath.Join(h.workspaceRoot, path))
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"content": string(data)}, nil
		default:
			return nil, fmt.Errorf("tool %q: category %q requires an external tool host; agentcore does not apply diffs or spawn processes itself", inv.Name, inv.Category)
		}
	}
}
