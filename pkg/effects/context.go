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
)

type contextKey string

// replayingKey indicates the context is in replay mode. When true,
// memorySystem.Execute refuses any effect it doesn't already have a
// cached result for, rather than risk running a tool call for real a
// second time.
const replayingKey contextKey = "effects.replaying"

// WithReplay sets the replay mode flag in the context.
func WithReplay(ctx context.Context, replaying bool) context.Context {
	return context.WithValue(ctx, replayingKey, replaying)
}

// IsReplaying returns true if the context is in replay mode.
func IsReplaying(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	if v := ctx.Value(replayingKey); v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}