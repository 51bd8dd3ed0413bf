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

package effects

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Effect is one side-effecting tool call the Executor routes through the
// effect system before it runs for real, so that a retried step finds its
// prior outcome by IdempotencyKey instead of re-running a write.
type Effect struct {
	// ID is the unique identifier of this effect. Auto-generated if empty.
	ID string `json:"id"`

	// Kind is always KindTool today; kept as a field rather than a
	// constant so the system and its callers don't need to change shape
	// if a second effect kind is ever added.
	Kind Kind `json:"kind"`

	// Payload is the tool request (name + arguments) this effect wraps.
	Payload any `json:"payload,omitempty"`

	// IdempotencyKey dedupes retried steps. Same key returns the same
	// result instead of invoking the tool again.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// Description is a short human-readable label for history/debugging,
	// e.g. "tool.write_file".
	Description string `json:"description,omitempty"`

	// TaskID is the task this effect was recorded against.
	TaskID string `json:"task_id,omitempty"`
}

// Result is the outcome of an effect execution, as stored in the effect
// system's history and replayed for a retried step carrying the same
// IdempotencyKey.
type Result struct {
	// ID matches the Effect.ID
	ID string `json:"id"`

	// Kind matches the Effect.Kind
	Kind Kind `json:"kind"`

	// Data is the tool's output, set by Complete once the real call returns.
	Data any `json:"data,omitempty"`

	// Error is set if the tool call failed.
	Error *Error `json:"error,omitempty"`

	// Timestamp when the effect was originally executed.
	Timestamp time.Time `json:"timestamp"`

	// Duration of the effect execution in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Cached indicates this result was replayed from history, not freshly executed.
	Cached bool `json:"cached"`

	// ReplayFromID is the ID of the original effect this was replayed from.
	ReplayFromID string `json:"replay_from_id,omitempty"`
}

// Error describes why a tool effect failed.
type Error struct {
	Type      string `json:"type"`          // "tool" or "internal"
	Message   string `json:"message"`       // user-facing error message
	Code      int    `json:"code,omitempty"` // tool exit code, if any
	Retriable bool   `json:"retriable"`     // whether this error should trigger a retry
}

// NewEffect creates a new effect with auto-generated ID.
func NewEffect(kind Kind, payload any) Effect {
	return Effect{
		ID:      uuid.New().String(),
		Kind:    kind,
		Payload: payload,
	}
}

// WithIdempotencyKey sets the idempotency key.
func (e Effect) WithIdempotencyKey(key string) Effect {
	e.IdempotencyKey = key
	return e
}

// WithDescription sets the description.
func (e Effect) WithDescription(desc string) Effect {
	e.Description = desc
	return e
}

// WithTaskID sets the task ID this effect was recorded against.
func (e Effect) WithTaskID(taskID string) Effect {
	e.TaskID = taskID
	return e
}

// SuccessResult creates a successful result.
func SuccessResult(id string, kind Kind, data any, duration time.Duration) Result {
	return Result{
		ID:         id,
		Kind:       kind,
		Data:       data,
		Timestamp:  time.Now(),
		DurationMs: duration.Milliseconds(),
	}
}

// FailedResult creates a failed result.
func FailedResult(id string, kind Kind, err Error, duration time.Duration) Result {
	return Result{
		ID:         id,
		Kind:       kind,
		Error:      &err,
		Timestamp:  time.Now(),
		DurationMs: duration.Milliseconds(),
	}
}

// CachedResult wraps a result as cached (replay from history).
func CachedResult(originalID string, result Result) Result {
	result.Cached = true
	result.ReplayFromID = originalID
	result.Timestamp = time.Now()
	return result
}

// MarshalPayload serializes the effect payload to JSON bytes.
func (e Effect) MarshalPayload() ([]byte, error) {
	if e.Payload == nil {
		return []byte("null"), nil
	}
	return json.Marshal(e.Payload)
}