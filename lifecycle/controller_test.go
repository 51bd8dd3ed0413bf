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

package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"agentcore/event"
)

func newTestController() (*Controller, *event.Bus) {
	bus := event.NewBus(event.NewMemoryStore(), nil)
	return NewController(bus), bus
}

func TestPlanMode_CompletingPlanningCompletesTask(t *testing.T) {
	c, bus := newTestController()
	ctx := context.Background()
	require.NoError(t, c.BeginIntentIntake(ctx, "t1"))
	require.NoError(t, c.CompletePlanning(ctx, "t1", event.ModePlan, map[string]interface{}{}, []interface{}{}))
	require.Equal(t, PhaseCompletion, c.CurrentPhase("t1"))

	events, err := bus.Store().GetByTask(ctx, "t1")
	require.NoError(t, err)
	types := eventTypes(events)
	require.Equal(t, []event.Type{event.IntentReceived, event.PlanCreated, event.Final}, types)
}

func TestMissionMode_GoesThroughStagedExecution(t *testing.T) {
	c, bus := newTestController()
	ctx := context.Background()
	require.NoError(t, c.BeginIntentIntake(ctx, "t1"))
	require.NoError(t, c.CompletePlanning(ctx, "t1", event.ModeMission, nil, nil))
	require.Equal(t, PhasePlanning, c.CurrentPhase("t1"))

	require.NoError(t, c.BeginMissionExecution(ctx, "t1"))
	require.Equal(t, PhaseMissionExecution, c.CurrentPhase("t1"))

	require.NoError(t, c.CompleteMission(ctx, "t1"))
	require.Equal(t, PhaseCompletion, c.CurrentPhase("t1"))

	events, err := bus.Store().GetByTask(ctx, "t1")
	require.NoError(t, err)
	types := eventTypes(events)
	require.Equal(t, []event.Type{event.IntentReceived, event.PlanCreated, event.MissionStarted, event.MissionCompleted}, types)
}

func TestPhaseTransition_OutOfOrderFailsWithoutStateChange(t *testing.T) {
	c, _ := newTestController()
	ctx := context.Background()
	err := c.CompletePlanning(ctx, "t1", event.ModePlan, nil, nil)
	require.Error(t, err)
	require.Equal(t, PhaseNew, c.CurrentPhase("t1"))
}

func TestPauseResume(t *testing.T) {
	c, bus := newTestController()
	ctx := context.Background()
	require.NoError(t, c.BeginIntentIntake(ctx, "t1"))
	require.NoError(t, c.Pause(ctx, "t1"))
	require.NoError(t, c.Resume(ctx, "t1"))

	events, err := bus.Store().GetByTask(ctx, "t1")
	require.NoError(t, err)
	types := eventTypes(events)
	require.Contains(t, types, event.ExecutionPaused)
	require.Contains(t, types, event.ExecutionResumed)
}

func TestResume_WithoutPauseFails(t *testing.T) {
	c, _ := newTestController()
	err := c.Resume(context.Background(), "t1")
	require.Error(t, err)
}

func TestCancelMission_EmitsCancelledThenStopped(t *testing.T) {
	c, bus := newTestController()
	ctx := context.Background()
	require.NoError(t, c.BeginIntentIntake(ctx, "t1"))
	require.NoError(t, c.CompletePlanning(ctx, "t1", event.ModeMission, nil, nil))
	require.NoError(t, c.BeginMissionExecution(ctx, "t1"))

	require.NoError(t, c.CancelMission(ctx, "t1"))
	require.Equal(t, PhaseCompletion, c.CurrentPhase("t1"))

	events, err := bus.Store().GetByTask(ctx, "t1")
	require.NoError(t, err)
	types := eventTypes(events)
	require.Equal(t, []event.Type{
		event.IntentReceived, event.PlanCreated, event.MissionStarted,
		event.MissionCancelled, event.ExecutionStopped,
	}, types)
}

func TestCancelMission_AfterCompletionFails(t *testing.T) {
	c, _ := newTestController()
	ctx := context.Background()
	require.NoError(t, c.BeginIntentIntake(ctx, "t1"))
	require.NoError(t, c.CompletePlanning(ctx, "t1", event.ModePlan, nil, nil))
	require.Error(t, c.CancelMission(ctx, "t1"))
}

func TestReportRepairExhausted_EmitsBlockingDecisionPoint(t *testing.T) {
	c, bus := newTestController()
	ctx := context.Background()
	require.NoError(t, c.BeginIntentIntake(ctx, "t1"))
	require.NoError(t, c.CompletePlanning(ctx, "t1", event.ModeMission, nil, nil))
	require.NoError(t, c.BeginMissionExecution(ctx, "t1"))

	require.NoError(t, c.ReportRepairExhausted(ctx, "t1", 3))

	events, err := bus.Store().GetByTask(ctx, "t1")
	require.NoError(t, err)
	last := events[len(events)-1]
	require.Equal(t, event.DecisionPointNeeded, last.Type)
	require.Equal(t, true, last.Payload["blocking"])
	require.Equal(t, 3, last.Payload["attempts"])
	require.ElementsMatch(t, RepairOptions, last.Payload["options"])
}

func eventTypes(events []event.Event) []event.Type {
	out := make([]event.Type, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
