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
	"errors"
)

// ErrReplayingForbidden is returned when an effect is executed during
// replay and memorySystem has no cached result for it under either its ID
// or its idempotency key — replay must never fall back to a real call.
var ErrReplayingForbidden = errors.New("effects: real execution forbidden during replay")