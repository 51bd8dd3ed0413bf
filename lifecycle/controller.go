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

// Package lifecycle coordinates a task's phases: intent intake → planning
// → (optional) mission breakdown/staged execution → completion, plus the
// orthogonal pause/resume/stop/reportFailure operations. Each phase
// transition emits exactly one dedicated event; a transition attempted
// outside its permitted phase fails with a descriptive error and no state
// change.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"agentcore/event"
)

// Phase is the task's current lifecycle phase.
type Phase string

const (
	PhaseNew              Phase = "new"
	PhaseIntentIntake     Phase = "intent_intake"
	PhasePlanning         Phase = "planning"
	PhaseMissionExecution Phase = "mission_execution"
	PhaseCompletion       Phase = "completion"
)

type taskLifecycle struct {
	phase  Phase
	mode   event.Mode
	paused bool
}

// Controller drives phase transitions for every task and emits the
// matching lifecycle event through bus.
type Controller struct {
	mu    sync.Mutex
	tasks map[string]*taskLifecycle
	bus   *event.Bus
}

// NewController creates a Controller that publishes lifecycle events onto bus.
func NewController(bus *event.Bus) *Controller {
	return &Controller{tasks: make(map[string]*taskLifecycle), bus: bus}
}

func (c *Controller) stateFor(taskID string) *taskLifecycle {
	st, ok := c.tasks[taskID]
	if !ok {
		st = &taskLifecycle{phase: PhaseNew, mode: event.ModeAnswer}
		c.tasks[taskID] = st
	}
	return st
}

func phaseError(from Phase, op string) error {
	return fmt.Errorf("lifecycle: %s is not permitted from phase %q", op, from)
}

// BeginIntentIntake starts a task, emitting intent_received. Only valid
// from PhaseNew.
func (c *Controller) BeginIntentIntake(ctx context.Context, taskID string) error {
	c.mu.Lock()
	st := c.stateFor(taskID)
	if st.phase != PhaseNew {
		c.mu.Unlock()
		return phaseError(st.phase, "BeginIntentIntake")
	}
	st.phase = PhaseIntentIntake
	c.mu.Unlock()

	_, err := c.bus.Publish(ctx, event.Event{TaskID: taskID, Type: event.IntentReceived, Mode: event.ModeAnswer, Stage: event.StageNone})
	return err
}

// CompletePlanning emits plan_created with the given scope contract and
// in-scope files. In PLAN mode, completing planning also completes the
// task; in MISSION, the task proceeds to staged execution via
// BeginMissionExecution. Only valid from PhaseIntentIntake.
func (c *Controller) CompletePlanning(ctx context.Context, taskID string, mode event.Mode, scopeContract, inScopeFiles interface{}) error {
	c.mu.Lock()
	st := c.stateFor(taskID)
	if st.phase != PhaseIntentIntake {
		c.mu.Unlock()
		return phaseError(st.phase, "CompletePlanning")
	}
	st.phase = PhasePlanning
	st.mode = mode
	c.mu.Unlock()

	if _, err := c.bus.Publish(ctx, event.Event{
		TaskID: taskID,
		Type:   event.PlanCreated,
		Mode:   mode,
		Stage:  event.StageNone,
		Payload: map[string]interface{}{
			"scope_contract": scopeContract,
			"in_scope_files": inScopeFiles,
		},
	}); err != nil {
		return err
	}

	if mode != event.ModeMission {
		return c.completeInternal(ctx, taskID, event.Final)
	}
	return nil
}

// BeginMissionExecution transitions a MISSION task from planning into
// staged execution, emitting mission_started. Only valid from PhasePlanning.
func (c *Controller) BeginMissionExecution(ctx context.Context, taskID string) error {
	c.mu.Lock()
	st := c.stateFor(taskID)
	if st.phase != PhasePlanning {
		c.mu.Unlock()
		return phaseError(st.phase, "BeginMissionExecution")
	}
	st.phase = PhaseMissionExecution
	c.mu.Unlock()

	_, err := c.bus.Publish(ctx, event.Event{TaskID: taskID, Type: event.MissionStarted, Mode: event.ModeMission})
	return err
}

// CompleteMission finishes a MISSION task's staged execution, emitting
// mission_completed. Only valid from PhaseMissionExecution.
func (c *Controller) CompleteMission(ctx context.Context, taskID string) error {
	c.mu.Lock()
	st := c.stateFor(taskID)
	if st.phase != PhaseMissionExecution {
		c.mu.Unlock()
		return phaseError(st.phase, "CompleteMission")
	}
	c.mu.Unlock()
	return c.completeInternal(ctx, taskID, event.MissionCompleted)
}

func (c *Controller) completeInternal(ctx context.Context, taskID string, typ event.Type) error {
	c.mu.Lock()
	st := c.stateFor(taskID)
	st.phase = PhaseCompletion
	mode := st.mode
	c.mu.Unlock()

	_, err := c.bus.Publish(ctx, event.Event{TaskID: taskID, Type: typ, Mode: mode})
	return err
}

// Pause emits execution_paused. Valid from any phase except completion.
func (c *Controller) Pause(ctx context.Context, taskID string) error {
	c.mu.Lock()
	st := c.stateFor(taskID)
	if st.phase == PhaseCompletion {
		c.mu.Unlock()
		return phaseError(st.phase, "Pause")
	}
	st.paused = true
	mode := st.mode
	c.mu.Unlock()
	_, err := c.bus.Publish(ctx, event.Event{TaskID: taskID, Type: event.ExecutionPaused, Mode: mode})
	return err
}

// Resume emits execution_resumed. Valid only while paused.
func (c *Controller) Resume(ctx context.Context, taskID string) error {
	c.mu.Lock()
	st := c.stateFor(taskID)
	if !st.paused {
		c.mu.Unlock()
		return phaseError(st.phase, "Resume")
	}
	st.paused = false
	mode := st.mode
	c.mu.Unlock()
	_, err := c.bus.Publish(ctx, event.Event{TaskID: taskID, Type: event.ExecutionResumed, Mode: mode})
	return err
}

// Stop transitions the task to idle and emits execution_stopped. In-flight
// tool operations are expected to complete and emit their own tool_end;
// the caller is responsible for not starting any further tool after Stop.
func (c *Controller) Stop(ctx context.Context, taskID string) error {
	c.mu.Lock()
	st := c.stateFor(taskID)
	st.paused = false
	mode := st.mode
	c.mu.Unlock()
	_, err := c.bus.Publish(ctx, event.Event{TaskID: taskID, Type: event.ExecutionStopped, Mode: mode})
	return err
}

// CancelMission records a user-cancelled MISSION task: mission_cancelled
// followed by execution_stopped. The caller is responsible for denying
// any still-pending approvals (approval.Manager.CancelAllPending) so
// their waiters unblock.
func (c *Controller) CancelMission(ctx context.Context, taskID string) error {
	c.mu.Lock()
	st := c.stateFor(taskID)
	if st.phase != PhaseMissionExecution && st.phase != PhasePlanning {
		c.mu.Unlock()
		return phaseError(st.phase, "CancelMission")
	}
	st.phase = PhaseCompletion
	st.paused = false
	mode := st.mode
	c.mu.Unlock()

	if _, err := c.bus.Publish(ctx, event.Event{TaskID: taskID, Type: event.MissionCancelled, Mode: mode}); err != nil {
		return err
	}
	_, err := c.bus.Publish(ctx, event.Event{TaskID: taskID, Type: event.ExecutionStopped, Mode: mode})
	return err
}

// RepairOptions are the choices offered when the automatic repair loop
// has exhausted its bound.
var RepairOptions = []string{"retry", "open_logs", "manual", "create_plan"}

// ReportRepairExhausted emits a blocking decision_point_needed after the
// repair loop has used up its attempts, offering retry / open logs /
// manual / create plan.
func (c *Controller) ReportRepairExhausted(ctx context.Context, taskID string, attempts int) error {
	c.mu.Lock()
	mode := c.stateFor(taskID).mode
	c.mu.Unlock()
	stage := event.StageNone
	if mode == event.ModeMission {
		stage = event.StageRepair
	}
	_, err := c.bus.Publish(ctx, event.Event{
		TaskID: taskID,
		Type:   event.DecisionPointNeeded,
		Mode:   mode,
		Stage:  stage,
		Payload: map[string]interface{}{
			"kind":     "repair_exhausted",
			"blocking": true,
			"attempts": attempts,
			"options":  RepairOptions,
		},
	})
	return err
}

// ReportFailure marks the task as failed, emitting task_failed with reason.
func (c *Controller) ReportFailure(ctx context.Context, taskID, reason string) error {
	c.mu.Lock()
	mode := c.stateFor(taskID).mode
	c.mu.Unlock()
	_, err := c.bus.Publish(ctx, event.Event{
		TaskID:  taskID,
		Type:    event.TaskFailed,
		Mode:    mode,
		Payload: map[string]interface{}{"reason": reason},
	})
	return err
}

// CurrentPhase returns taskID's current phase.
func (c *Controller) CurrentPhase(taskID string) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateFor(taskID).phase
}
