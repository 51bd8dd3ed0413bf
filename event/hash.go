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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// computeHash folds an event into the append-time proof chain:
// Hash = SHA256(TaskID|Type|PayloadJSON|Timestamp|PrevHash).
func computeHash(taskID string, t Type, payload map[string]interface{}, ts time.Time, prevHash string) string {
	payloadJSON, _ := json.Marshal(payload)
	h := sha256.New()
	h.Write([]byte(taskID))
	h.Write([]byte("|"))
	h.Write([]byte(t))
	h.Write([]byte("|"))
	h.Write(payloadJSON)
	h.Write([]byte("|"))
	h.Write([]byte(ts.Format(time.RFC3339Nano)))
	h.Write([]byte("|"))
	h.Write([]byte(prevHash))
	return hex.EncodeToString(h.Sum(nil))
}
