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

package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"agentcore/event"
)

func newTestManager() (*Manager, *event.Bus) {
	bus := event.NewBus(event.NewMemoryStore(), nil)
	return NewManager(bus, nil), bus
}

func TestRequestApproval_BlocksUntilResolved(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	var wg sync.WaitGroup
	var res Resolution
	var err error
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err = m.RequestApproval(ctx, Request{TaskID: "t1", Mode: event.ModeMission, Type: TypeTerminal, Description: "run tests"})
	}()

	require.Eventually(t, func() bool { return m.PendingCount("t1") == 1 }, time.Second, time.Millisecond)

	m.mu.Lock()
	var approvalID string
	for id := range m.pendingByID {
		approvalID = id
	}
	m.mu.Unlock()

	require.NoError(t, m.ResolveApproval(ctx, approvalID, DecisionApproved, "", nil))
	wg.Wait()

	require.NoError(t, err)
	require.Equal(t, DecisionApproved, res.Decision)
	require.Equal(t, 0, m.PendingCount("t1"))
}

func TestRequestApproval_PlanApprovalIsIdempotentPerPlanID(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]Resolution, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := m.RequestApproval(ctx, Request{TaskID: "t1", Type: TypePlanApproval, PlanID: "p1"})
			require.NoError(t, err)
			results[i] = r
		}()
	}

	require.Eventually(t, func() bool { return m.PendingCount("t1") == 1 }, time.Second, time.Millisecond)

	m.mu.Lock()
	var approvalID string
	for id := range m.pendingByID {
		approvalID = id
	}
	m.mu.Unlock()
	require.NoError(t, m.ResolveApproval(ctx, approvalID, DecisionApproved, "", nil))
	wg.Wait()

	require.Equal(t, results[0].ApprovalID, results[1].ApprovalID)
}

func TestResolveApproval_EditRequestedCarriesModifiedDetails(t *testing.T) {
	m, bus := newTestManager()
	ctx := context.Background()

	done := make(chan Resolution, 1)
	go func() {
		res, err := m.RequestApproval(ctx, Request{
			TaskID: "t1", Mode: event.ModeMission, Stage: event.StageEdit,
			Type: TypeApplyDiff, Description: "apply diff",
		})
		if err == nil {
			done <- res
		}
	}()

	var approvalID string
	require.Eventually(t, func() bool {
		events, err := bus.Store().GetByTask(ctx, "t1")
		require.NoError(t, err)
		for _, e := range events {
			if e.Type == event.ApprovalRequested {
				approvalID = e.Payload["approval_id"].(string)
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	modified := map[string]interface{}{"diff": "smaller hunk"}
	require.NoError(t, m.ResolveApproval(ctx, approvalID, DecisionEditRequested, "once", modified))

	res := <-done
	require.Equal(t, DecisionEditRequested, res.Decision)
	require.Equal(t, modified, res.ModifiedDetails)
}

func TestResolveApproval_UnknownIDIsNoOp(t *testing.T) {
	m, _ := newTestManager()
	err := m.ResolveApproval(context.Background(), "does-not-exist", DecisionDenied, "", nil)
	require.NoError(t, err)
}

func TestSupersedePlanApprovals_DeniesPendingForThatPlan(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	var res Resolution
	done := make(chan struct{})
	go func() {
		r, _ := m.RequestApproval(ctx, Request{TaskID: "t1", Type: TypePlanApproval, PlanID: "old-plan"})
		res = r
		close(done)
	}()

	require.Eventually(t, func() bool { return m.PendingCount("t1") == 1 }, time.Second, time.Millisecond)
	require.NoError(t, m.SupersedePlanApprovals(ctx, "t1", "old-plan"))
	<-done
	require.Equal(t, DecisionDenied, res.Decision)
}

func TestCancelAllPending_DeniesEveryOutstandingApprovalForTask(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	results := make([]Resolution, 2)
	var wg sync.WaitGroup
	for i, planID := range []string{"p1", "p2"} {
		i, planID := i, planID
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, _ := m.RequestApproval(ctx, Request{TaskID: "t1", Type: TypePlanApproval, PlanID: planID})
			results[i] = r
		}()
	}

	require.Eventually(t, func() bool { return m.PendingCount("t1") == 2 }, time.Second, time.Millisecond)
	require.NoError(t, m.CancelAllPending(ctx, "t1"))
	wg.Wait()

	require.Equal(t, DecisionDenied, results[0].Decision)
	require.Equal(t, DecisionDenied, results[1].Decision)
	require.Equal(t, 0, m.PendingCount("t1"))
}
