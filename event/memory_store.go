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
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is the in-memory Store, the default backend: a per-task
// append-only slice guarded by a single mutex, with the proof-chain hash
// computed at append time.
type memoryStore struct {
	mu     sync.Mutex
	byTask map[string][]Event
	byID   map[string]Event
	all    []Event // global append order, backing GetAll/GetByType
	seq    map[string]int64
}

// NewMemoryStore creates the in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		byTask: make(map[string][]Event),
		byID:   make(map[string]Event),
		seq:    make(map[string]int64),
	}
}

func (s *memoryStore) Append(ctx context.Context, e Event) (Event, error) {
	if e.TaskID == "" {
		return Event{}, ErrEmptyTaskID
	}
	if !IsAllowed(e.Type) {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidType, e.Type)
	}
	if e.Stage != "" && e.Stage != StageNone && e.Mode != ModeMission {
		return Event{}, fmt.Errorf("%w: stage %q with mode %q", ErrStageRequiresMission, e.Stage, e.Mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.byTask[e.TaskID]
	if len(current) > 0 {
		last := current[len(current)-1]
		if !e.Timestamp.IsZero() && e.Timestamp.Before(last.Timestamp) {
			return Event{}, ErrNonMonotoneTimestamp
		}
	}
	for _, id := range e.EvidenceIDs {
		if !s.taskHasEventLocked(e.TaskID, id) {
			return Event{}, fmt.Errorf("%w: evidence_id %q", ErrDanglingReference, id)
		}
	}
	if e.ParentEventID != "" && !s.taskHasEventLocked(e.TaskID, e.ParentEventID) {
		return Event{}, fmt.Errorf("%w: parent_event_id %q", ErrDanglingReference, e.ParentEventID)
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.seq[e.TaskID]++
	e.EventID = fmt.Sprintf("ev_%020d_%s", s.seq[e.TaskID], uuid.New().String())

	var prevHash string
	if len(current) > 0 {
		prevHash = current[len(current)-1].Hash
	}
	e.PrevHash = prevHash
	e.Hash = computeHash(e.TaskID, e.Type, e.Payload, e.Timestamp, prevHash)

	stored := e.Clone()
	s.byTask[e.TaskID] = append(current, stored)
	s.byID[stored.EventID] = stored
	s.all = append(s.all, stored)
	return stored.Clone(), nil
}

// taskHasEventLocked must be called with s.mu held.
func (s *memoryStore) taskHasEventLocked(taskID, eventID string) bool {
	for _, e := range s.byTask[taskID] {
		if e.EventID == eventID {
			return true
		}
	}
	return false
}

func (s *memoryStore) GetAll(ctx context.Context) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.all))
	for i, e := range s.all {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *memoryStore) GetByTask(ctx context.Context, taskID string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.byTask[taskID]
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *memoryStore) GetByType(ctx context.Context, t Type) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.all {
		if e.Type == t {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}
