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

package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEventHash computes one event's link in its task's hash chain.
// Hash = SHA256(TaskID|Type|Payload|CreatedAt|PrevHash), so any edit to a
// past event's payload, or any reordering of the log, changes every hash
// from that point forward and ValidateChain catches it.
func ComputeEventHash(e Event) string {
	h := sha256.New()
	h.Write([]byte(e.TaskID))
	h.Write([]byte("|"))
	h.Write([]byte(e.Type))
	h.Write([]byte("|"))
	h.Write([]byte(e.Payload))
	h.Write([]byte("|"))
	h.Write([]byte(e.CreatedAt.Format("2006-01-02T15:04:05.999999999Z07:00"))) // RFC3339Nano
	h.Write([]byte("|"))
	h.Write([]byte(e.PrevHash))
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateChain walks a task's event log in order and confirms every
// event's PrevHash matches its predecessor's Hash, and that every event's
// own Hash is still the one ComputeEventHash would produce for it. Called
// both before export (so a corrupt log is never packaged) and during
// verification of a previously exported bundle.
func ValidateChain(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	if events[0].PrevHash != "" {
		return fmt.Errorf("first event prev_hash should be empty, got: %s", events[0].PrevHash)
	}

	expectedHash := ComputeEventHash(events[0])
	if expectedHash != events[0].Hash {
		return fmt.Errorf("event 0 hash mismatch: expected %s, got %s", expectedHash, events[0].Hash)
	}

	for i := 1; i < len(events); i++ {
		if events[i].PrevHash != events[i-1].Hash {
			return fmt.Errorf("hash chain broken at event %d: prev_hash=%s, expected=%s",
				i, events[i].PrevHash, events[i-1].Hash)
		}

		expectedHash := ComputeEventHash(events[i])
		if expectedHash != events[i].Hash {
			return fmt.Errorf("event %d hash mismatch: expected %s, got %s", i, expectedHash, events[i].Hash)
		}
	}

	return nil
}

// ComputeFileHash computes the SHA256 hash of one file inside an evidence
// bundle (events.ndjson, ledger.ndjson, ...), recorded in the bundle's
// Manifest.FileHashes so VerifyEvidenceZip can detect a tampered archive
// even before it gets to the chain itself.
func ComputeFileHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
