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

// Package state projects an event slice into TaskState. The Reducer has
// no identity of its own: callers always pass the full relevant event
// slice, and the result is a pure function of that slice.
package state

import (
	"time"

	"agentcore/event"
)

// Status is the task's run status.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusError    Status = "error"
	StatusComplete Status = "complete"
)

// Iteration tracks the task's current step against its budgeted maximum.
type Iteration struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Contract is the per-task scope bound: files/lines/tool-classes and
// budgets. It is initialized from plan_created's embedded scope_contract
// and only grows via an approved scope-expansion.
type Contract struct {
	MaxFiles      int      `json:"max_files"`
	MaxLines      int      `json:"max_lines"`
	AllowedTools  []string `json:"allowed_tools"` // subset of {read, exec, write}
	MaxIterations int      `json:"max_iterations"`
	MaxToolCalls  int      `json:"max_tool_calls"`
	MaxTimeMs     int64    `json:"max_time_ms"`
}

// AllowsTool reports whether category is in the contract's allowed set.
func (c Contract) AllowsTool(category string) bool {
	for _, t := range c.AllowedTools {
		if t == category {
			return true
		}
	}
	return false
}

// FileOp is one recorded operation against a touched file.
type FileOp struct {
	Op        string    `json:"op"` // read | write | execute
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id"`
	LineRange [2]int    `json:"line_range,omitempty"`
}

// TouchedFile is the append-only history of operations against one path.
type TouchedFile struct {
	Path string   `json:"path"`
	Ops  []FileOp `json:"ops"`
}

// ScopeSummary is the scope sub-projection folded from plan/retrieval/
// diff/scope-expansion events.
type ScopeSummary struct {
	Contract       Contract          `json:"contract"`
	InScopeFiles   []string          `json:"in_scope_files"`
	TouchedFiles   []TouchedFile     `json:"touched_files"`
	LinesRetrieved int               `json:"lines_retrieved"`
	ToolsUsed      map[string]bool   `json:"tools_used"`
}

func newScopeSummary() ScopeSummary {
	return ScopeSummary{ToolsUsed: make(map[string]bool)}
}

func (s *ScopeSummary) addInScopeFile(path string) {
	for _, f := range s.InScopeFiles {
		if f == path {
			return
		}
	}
	s.InScopeFiles = append(s.InScopeFiles, path)
}

func (s *ScopeSummary) recordOp(path, op string, e event.Event, lineRange [2]int) {
	for i := range s.TouchedFiles {
		if s.TouchedFiles[i].Path == path {
			s.TouchedFiles[i].Ops = append(s.TouchedFiles[i].Ops, FileOp{Op: op, Timestamp: e.Timestamp, EventID: e.EventID, LineRange: lineRange})
			return
		}
	}
	s.TouchedFiles = append(s.TouchedFiles, TouchedFile{
		Path: path,
		Ops:  []FileOp{{Op: op, Timestamp: e.Timestamp, EventID: e.EventID, LineRange: lineRange}},
	})
}

// TaskState is the pure projection of one task's event slice. It is never
// persisted — every consumer rebuilds it from the log via Reduce/ReduceForTask.
type TaskState struct {
	TaskID             string       `json:"task_id"`
	Mode               event.Mode   `json:"mode"`
	Stage              event.Stage  `json:"stage"`
	Status             Status       `json:"status"`
	Iteration          Iteration    `json:"iteration"`
	Budgets            Contract     `json:"budgets"`
	PendingApprovals   []string     `json:"pending_approvals"`
	ActiveCheckpointID string       `json:"active_checkpoint_id"`
	ScopeSummary       ScopeSummary `json:"scope_summary"`

	// CleanlyExited backs the crash-recovery pointer (RecoveryOffer);
	// it mirrors state/active-task.json's cleanly_exited flag.
	CleanlyExited bool `json:"-"`
}

func newTaskState(taskID string) TaskState {
	return TaskState{
		TaskID:       taskID,
		Stage:        event.StageNone,
		Status:       StatusIdle,
		ScopeSummary: newScopeSummary(),
	}
}
