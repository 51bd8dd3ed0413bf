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

package mode

import (
	"context"
	"sync"

	"agentcore/event"
	"agentcore/pkg/errs"
	"agentcore/pkg/metrics"
)

// ErrStageOutsideMission is returned by SetStage when called with a
// non-none stage while the task's mode isn't MISSION. It wraps
// errs.ErrModeViolation so callers can match the whole class at once.
var ErrStageOutsideMission = errs.Wrap(errs.ErrModeViolation, "mode: setStage(stage != none) requires mode MISSION")

// Transition classifies a mode change as an escalation, a downgrade, or
// neither (same-to-same).
type Transition string

const (
	TransitionEscalation Transition = "escalation"
	TransitionDowngrade  Transition = "downgrade"
	TransitionNone       Transition = "none"
)

var rank = map[event.Mode]int{event.ModeAnswer: 0, event.ModePlan: 1, event.ModeMission: 2}

// Classify reports how a mode change from -> to should be labeled.
func Classify(from, to event.Mode) Transition {
	switch {
	case from == to:
		return TransitionNone
	case rank[to] > rank[from]:
		return TransitionEscalation
	default:
		return TransitionDowngrade
	}
}

// Violation describes why EnforceAction rejected a call.
type Violation struct {
	Action Action
	Mode   event.Mode
	Stage  event.Stage
}

type taskModeState struct {
	mode  event.Mode
	stage event.Stage
	set   bool
}

// Manager owns (mode, stage) per task and enforces the permission matrix.
// It is the sole authority for what mode/stage a task is in; TaskState's
// mode/stage (derived by the reducer) must always agree with it, since
// both are driven by the same mode_set/mode_changed/stage_changed events.
type Manager struct {
	mu     sync.Mutex
	states map[string]*taskModeState
	bus    *event.Bus
}

// NewManager creates a Manager that emits its transition/violation events
// onto bus.
func NewManager(bus *event.Bus) *Manager {
	return &Manager{states: make(map[string]*taskModeState), bus: bus}
}

func (m *Manager) stateFor(taskID string) *taskModeState {
	st, ok := m.states[taskID]
	if !ok {
		st = &taskModeState{mode: event.ModeAnswer, stage: event.StageNone}
		m.states[taskID] = st
	}
	return st
}

// SetMode transitions taskID to mode to, emitting mode_set (first time a
// mode is established) or mode_changed (every subsequent change).
// Leaving MISSION resets stage to none; staying in MISSION preserves it.
func (m *Manager) SetMode(ctx context.Context, taskID string, to event.Mode) (changed bool, from event.Mode, err error) {
	m.mu.Lock()
	st := m.stateFor(taskID)
	from = st.mode
	changed = from != to || !st.set
	leavingMission := st.mode == event.ModeMission && to != event.ModeMission
	st.mode = to
	if leavingMission {
		st.stage = event.StageNone
	}
	firstSet := !st.set
	st.set = true
	m.mu.Unlock()

	if !changed && !firstSet {
		return changed, from, nil
	}

	typ := event.ModeChanged
	if firstSet {
		typ = event.ModeSet
	}
	_, err = m.bus.Publish(ctx, event.Event{
		TaskID: taskID,
		Type:   typ,
		Mode:   to,
		Stage:  event.StageNone,
		Payload: map[string]interface{}{
			"from_mode":  string(from),
			"to_mode":    string(to),
			"transition": string(Classify(from, to)),
		},
	})
	metrics.ModeTransitionTotal.WithLabelValues(string(from), string(to)).Inc()
	return changed, from, err
}

// SetStage sets taskID's stage. Fails with ErrStageOutsideMission if
// stage != StageNone and the task's mode isn't MISSION.
func (m *Manager) SetStage(ctx context.Context, taskID string, stage event.Stage) error {
	m.mu.Lock()
	st := m.stateFor(taskID)
	if stage != event.StageNone && st.mode != event.ModeMission {
		m.mu.Unlock()
		return ErrStageOutsideMission
	}
	st.stage = stage
	mode := st.mode
	m.mu.Unlock()

	_, err := m.bus.Publish(ctx, event.Event{
		TaskID: taskID,
		Type:   event.StageChanged,
		Mode:   mode,
		Stage:  stage,
	})
	return err
}

// ValidateAction reports whether action is permitted under taskID's
// current (mode, stage), without emitting anything.
func (m *Manager) ValidateAction(taskID string, action Action) (ok bool, violation *Violation) {
	m.mu.Lock()
	st := m.stateFor(taskID)
	mode, stage := st.mode, st.stage
	m.mu.Unlock()

	if allowed(mode, stage, action) {
		return true, nil
	}
	return false, &Violation{Action: action, Mode: mode, Stage: stage}
}

// EnforceAction validates action and, on rejection, emits mode_violation
// and returns false. Callers must not perform the action when this
// returns false.
func (m *Manager) EnforceAction(ctx context.Context, taskID string, action Action) bool {
	ok, violation := m.ValidateAction(taskID, action)
	if ok {
		return true
	}
	metrics.ModeViolationTotal.WithLabelValues(string(violation.Mode), string(violation.Stage), string(violation.Action)).Inc()
	m.bus.Publish(ctx, event.Event{
		TaskID: taskID,
		Type:   event.ModeViolation,
		Mode:   violation.Mode,
		Stage:  violation.Stage,
		Payload: map[string]interface{}{
			"action": string(violation.Action),
		},
	})
	return false
}

// Current returns taskID's current (mode, stage) without side effects.
func (m *Manager) Current(taskID string) (event.Mode, event.Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.stateFor(taskID)
	return st.mode, st.stage
}
