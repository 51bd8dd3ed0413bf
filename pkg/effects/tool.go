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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// toolRequest is the payload a tool effect wraps: the tool name and the
// arguments it was invoked with. It only needs to be stable and
// JSON-marshalable, since its sole job is feeding computeToolIdempotencyKey
// and giving the effect's history entry something to show.
type toolRequest struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolCaller performs a tool's real, non-idempotent side effect.
// Executor.Execute supplies one at step 8 wrapping its own Op.
type ToolCaller func(ctx context.Context, name string, args map[string]interface{}) (map[string]interface{}, error)

// ExecuteTool is step 8 of the tool pipeline: it builds a KindTool effect
// keyed on (name, args), asks sys to execute it, and only invokes caller on
// a cache miss. During replay, a prior result under the same idempotency
// key short-circuits caller entirely, so a retried step never re-runs a
// write it already committed.
func ExecuteTool(ctx context.Context, sys System, name string, args map[string]interface{}, caller ToolCaller) (map[string]interface{}, error) {
	key := computeToolIdempotencyKey(name, args)
	effect := NewEffect(KindTool, toolRequest{Name: name, Arguments: args}).
		WithIdempotencyKey(key).
		WithDescription("tool." + name)

	result, err := sys.Execute(ctx, effect)
	if err != nil {
		return nil, err
	}

	if result.Cached {
		if result.Data != nil {
			return result.Data.(map[string]interface{}), nil
		}
		return nil, nil
	}

	response, err := caller(ctx, name, args)
	if err != nil {
		return nil, err
	}

	_ = sys.Complete(result.ID, response)

	return response, nil
}

// computeToolIdempotencyKey derives a deterministic key from a tool name
// and its arguments, so the same (name, args) pair maps to the same effect
// no matter how many times the step that issued it retries.
func computeToolIdempotencyKey(name string, args map[string]interface{}) string {
	data, _ := json.Marshal(toolRequest{Name: name, Arguments: args})
	hash := sha256.Sum256(data)
	return "tool:" + hex.EncodeToString(hash[:])
}
