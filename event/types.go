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

// Package event defines the canonical Event schema: the only persisted
// entity in the system. Every other entity (TaskState, ScopeSummary,
// approvals) is a projection over an event slice.
package event

import "time"

// Mode is the permission envelope a task runs under.
type Mode string

const (
	ModeAnswer  Mode = "ANSWER"
	ModePlan    Mode = "PLAN"
	ModeMission Mode = "MISSION"
)

// Stage is the MISSION-internal sub-state. Only meaningful when Mode is
// ModeMission; every other mode carries StageNone.
type Stage string

const (
	StagePlan     Stage = "plan"
	StageRetrieve Stage = "retrieve"
	StageEdit     Stage = "edit"
	StageTest     Stage = "test"
	StageRepair   Stage = "repair"
	StageCommand  Stage = "command"
	StageNone     Stage = "none"
)

// Type is a member of the closed raw-event vocabulary. New types must be
// added to allowedTypes (vocabulary.go) or appends are rejected.
type Type string

// Event is the sole persisted record. Fields are immutable once appended;
// events are never mutated or deleted.
type Event struct {
	EventID       string                 `json:"event_id"`
	TaskID        string                 `json:"task_id"`
	Timestamp     time.Time              `json:"timestamp"`
	Type          Type                   `json:"type"`
	Mode          Mode                   `json:"mode"`
	Stage         Stage                  `json:"stage"`
	Payload       map[string]interface{} `json:"payload"`
	EvidenceIDs   []string               `json:"evidence_ids,omitempty"`
	ParentEventID string                 `json:"parent_event_id,omitempty"`

	// PrevHash/Hash form the append-time proof chain: Hash =
	// SHA256(TaskID|Type|PayloadJSON|Timestamp|PrevHash). Set by the
	// store on Append, never by the caller.
	PrevHash string `json:"prev_hash,omitempty"`
	Hash     string `json:"hash,omitempty"`
}

// Clone returns a deep copy safe to hand to a caller without aliasing the
// store's internal payload map.
func (e Event) Clone() Event {
	out := e
	if e.Payload != nil {
		out.Payload = make(map[string]interface{}, len(e.Payload))
		for k, v := range e.Payload {
			out.Payload[k] = v
		}
	}
	if e.EvidenceIDs != nil {
		out.EvidenceIDs = append([]string(nil), e.EvidenceIDs...)
	}
	return out
}
