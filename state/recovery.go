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

package state

import (
	"time"

	"agentcore/event"
)

// ActiveTaskPointer mirrors state/active-task.json: the host's record of
// which task was running when it last wrote state, and whether it exited
// cleanly.
type ActiveTaskPointer struct {
	TaskID        string      `json:"task_id"`
	Mode          event.Mode  `json:"mode"`
	Stage         event.Stage `json:"stage"`
	Status        Status      `json:"status"`
	LastUpdatedAt time.Time   `json:"last_updated_at"`
	CleanlyExited bool        `json:"cleanly_exited"`
}

// RecoveryOffer is presented to the host on startup when the last
// recorded pointer did not exit cleanly: resume the task from its last
// state, or discard it.
type RecoveryOffer struct {
	TaskID  string `json:"task_id"`
	Status  Status `json:"status"`
	Offered bool   `json:"offered"`
	Reason  string `json:"reason"`
}

// ComputeRecoveryOffer decides whether the host should prompt for
// resume/discard on startup. A pointer left without MarkCleanExit means
// the previous host exited mid-task.
func ComputeRecoveryOffer(ptr ActiveTaskPointer) RecoveryOffer {
	if ptr.TaskID == "" {
		return RecoveryOffer{}
	}
	if ptr.CleanlyExited {
		return RecoveryOffer{TaskID: ptr.TaskID, Status: ptr.Status}
	}
	if ptr.Status == StatusComplete || ptr.Status == StatusIdle {
		return RecoveryOffer{TaskID: ptr.TaskID, Status: ptr.Status}
	}
	return RecoveryOffer{
		TaskID:  ptr.TaskID,
		Status:  ptr.Status,
		Offered: true,
		Reason:  "host exited without markCleanExit while task was " + string(ptr.Status),
	}
}

// PointerFromState derives the persistable active-task pointer from a
// freshly reduced TaskState.
func PointerFromState(s TaskState) ActiveTaskPointer {
	return ActiveTaskPointer{
		TaskID:        s.TaskID,
		Mode:          s.Mode,
		Stage:         s.Stage,
		Status:        s.Status,
		LastUpdatedAt: time.Now().UTC(),
		CleanlyExited: s.CleanlyExited,
	}
}
