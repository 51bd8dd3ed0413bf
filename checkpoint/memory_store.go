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

package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*Checkpoint
	order map[string][]string // taskID -> checkpoint IDs in creation order
}

// NewMemoryStore creates an in-process Store backed by a map, for tests
// and single-node deployments.
func NewMemoryStore() Store {
	return &memoryStore{
		byID:  make(map[string]*Checkpoint),
		order: make(map[string][]string),
	}
}

func (s *memoryStore) Save(ctx context.Context, cp *Checkpoint) (string, error) {
	id := cp.ID
	if id == "" {
		id = "cp-" + uuid.New().String()
		cp.ID = id
	}
	cpCopy := *cp
	cpCopy.Files = cloneFiles(cp.Files)
	if cpCopy.CreatedAt.IsZero() {
		cpCopy.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[id]; !exists {
		s.order[cp.TaskID] = append(s.order[cp.TaskID], id)
	}
	s.byID[id] = &cpCopy
	return id, nil
}

func (s *memoryStore) Load(ctx context.Context, id string) (*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	out := *cp
	out.Files = cloneFiles(cp.Files)
	return &out, nil
}

func (s *memoryStore) ListByTask(ctx context.Context, taskID string) ([]*Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order[taskID]
	out := make([]*Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp := s.byID[id]
		cpCopy := *cp
		cpCopy.Files = cloneFiles(cp.Files)
		out = append(out, &cpCopy)
	}
	return out, nil
}
