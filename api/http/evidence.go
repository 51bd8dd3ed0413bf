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

package http

import (
	"context"
	"encoding/json"

	"agentcore/event"
	"agentcore/pkg/proof"
)

// busEventSource adapts an event.Bus's Store to proof.EventSource, for
// bundle export. It carries no tool ledger of its own; the executor
// records tool invocations as tool_start/tool_end events, which
// ValidateLedgerConsistency cross-checks against when a ledger is
// supplied, and skips when one isn't.
type busEventSource struct {
	bus *event.Bus
}

func (s busEventSource) ListEvents(ctx context.Context, taskID string) ([]proof.Event, error) {
	raw, err := s.bus.Store().GetByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	out := make([]proof.Event, 0, len(raw))
	for _, e := range raw {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, proof.Event{
			ID:        e.EventID,
			TaskID:    e.TaskID,
			Type:      string(e.Type),
			Payload:   string(payload),
			CreatedAt: e.Timestamp,
			PrevHash:  e.PrevHash,
			Hash:      e.Hash,
		})
	}
	return out, nil
}
