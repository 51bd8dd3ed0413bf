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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fileStore is the newline-delimited JSON Store: one canonical event per
// line in a single append-only log file. Every Append is flushed and
// fsynced before it is acknowledged, and the whole log is replayed into
// memory on open, so reads never touch the file afterwards.
type fileStore struct {
	mu     sync.Mutex
	f      *os.File
	byTask map[string][]Event
	all    []Event
	seq    map[string]int64
}

// NewFileStore opens (creating if necessary) the event log at path and
// replays its existing lines into memory. A line that fails to decode
// aborts the open: a torn log is a condition the operator must look at,
// not one to silently skip over.
func NewFileStore(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("event: creating log directory: %w", err)
		}
	}
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("event: reading log: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("event: opening log: %w", err)
	}

	s := &fileStore{
		f:      f,
		byTask: make(map[string][]Event),
		all:    nil,
		seq:    make(map[string]int64),
	}
	if err := s.replay(existing); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *fileStore) replay(data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("event: log line %d is not a valid event: %w", line, err)
		}
		s.byTask[e.TaskID] = append(s.byTask[e.TaskID], e)
		s.all = append(s.all, e)
		s.seq[e.TaskID]++
	}
	return scanner.Err()
}

// Close fsyncs and closes the log file.
func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.f.Sync(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

func (s *fileStore) Append(ctx context.Context, e Event) (Event, error) {
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

	line, err := json.Marshal(e)
	if err != nil {
		s.seq[e.TaskID]--
		return Event{}, fmt.Errorf("event: marshaling event: %w", err)
	}
	line = append(line, '\n')
	if _, err := s.f.Write(line); err != nil {
		s.seq[e.TaskID]--
		return Event{}, fmt.Errorf("event: writing log: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		s.seq[e.TaskID]--
		return Event{}, fmt.Errorf("event: syncing log: %w", err)
	}

	stored := e.Clone()
	s.byTask[e.TaskID] = append(current, stored)
	s.all = append(s.all, stored)
	return stored.Clone(), nil
}

// taskHasEventLocked must be called with s.mu held.
func (s *fileStore) taskHasEventLocked(taskID, eventID string) bool {
	for _, e := range s.byTask[taskID] {
		if e.EventID == eventID {
			return true
		}
	}
	return false
}

func (s *fileStore) GetAll(ctx context.Context) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.all))
	for i, e := range s.all {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *fileStore) GetByTask(ctx context.Context, taskID string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.byTask[taskID]
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *fileStore) GetByType(ctx context.Context, t Type) ([]Event, error) {
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
