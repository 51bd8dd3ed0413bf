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

package event

import (
	"context"

	"agentcore/pkg/errs"
)

// Append-time rejection kinds. Store implementations return one of these
// (or a wrapped form of one) so callers can distinguish a rejected append
// from a transport failure. Each wraps errs.ErrInvariantViolation, so a
// caller that only cares about "the append was rejected, not lost" can
// check the one sentinel with errors.Is.
var (
	// ErrInvalidType is returned when Type is not in the allowlist.
	ErrInvalidType = errs.Wrap(errs.ErrInvariantViolation, "event: type not in allowlist")
	// ErrNonMonotoneTimestamp is returned when an event's timestamp is
	// earlier than the task's last-appended event.
	ErrNonMonotoneTimestamp = errs.Wrap(errs.ErrInvariantViolation, "event: timestamp not monotone within task")
	// ErrStageRequiresMission is returned when Stage != StageNone but
	// Mode != ModeMission.
	ErrStageRequiresMission = errs.Wrap(errs.ErrInvariantViolation, "event: stage != none requires mode MISSION")
	// ErrDanglingReference is returned when EvidenceIDs or ParentEventID
	// reference an event not already present in the same task.
	ErrDanglingReference = errs.Wrap(errs.ErrInvariantViolation, "event: evidence_ids/parent_event_id reference unknown prior event")
	// ErrEmptyTaskID is returned when TaskID is empty.
	ErrEmptyTaskID = errs.Wrap(errs.ErrInvariantViolation, "event: task_id required")
)

// Store is the append-only event log. One line per event, durable before
// acknowledgement; appends are atomic per event and concurrent appenders
// are serialized. Replay is linear in log size; no index is required for
// correctness.
type Store interface {
	// Append validates and appends event to taskID's log, assigning
	// EventID/Timestamp/Hash if unset. On an invariant violation the
	// event is not written and the returned error wraps one of the
	// sentinels above.
	Append(ctx context.Context, event Event) (Event, error)
	// GetAll returns every event across every task. The memory and file
	// stores return global append order; the Postgres store returns events
	// grouped by task_id, each task's events in append order.
	GetAll(ctx context.Context) ([]Event, error)
	// GetByTask returns taskID's events in append order.
	GetByTask(ctx context.Context, taskID string) ([]Event, error)
	// GetByType returns every event of type t across all tasks, in the
	// same order GetAll uses for that store.
	GetByType(ctx context.Context, t Type) ([]Event, error)
}
