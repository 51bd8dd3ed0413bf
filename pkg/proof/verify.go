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
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// VerifyEvidenceZip verifies a bundle produced by ExportEvidenceZip.
func VerifyEvidenceZip(zipBytes []byte) VerifyResult {
	result := VerifyResult{
		OK:     true,
		Errors: []string{},
	}

	zipReader, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		result.OK = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read zip: %v", err))
		return result
	}

	files := make(map[string][]byte)
	for _, f := range zipReader.File {
		rc, err := f.Open()
		if err != nil {
			result.OK = false
			result.Errors = append(result.Errors, fmt.Sprintf("failed to open %s: %v", f.Name, err))
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			result.OK = false
			result.Errors = append(result.Errors, fmt.Sprintf("failed to read %s: %v", f.Name, err))
			continue
		}
		files[f.Name] = data
	}

	manifestData, ok := files["manifest.json"]
	if !ok {
		result.OK = false
		result.Errors = append(result.Errors, "manifest.json not found")
		return result
	}

	var manifest Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		result.OK = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to parse manifest: %v", err))
		return result
	}
	result.ManifestValid = true

	for filename, expectedHash := range manifest.FileHashes {
		if fileData, ok := files[filename]; ok {
			actualHash := ComputeFileHash(fileData)
			if actualHash != expectedHash {
				result.OK = false
				result.Errors = append(result.Errors, fmt.Sprintf("file hash mismatch for %s: expected %s, got %s", filename, expectedHash, actualHash))
			}
		} else {
			result.OK = false
			result.Errors = append(result.Errors, fmt.Sprintf("file %s declared in manifest but not found in zip", filename))
		}
	}

	eventsData, ok := files["events.ndjson"]
	if !ok {
		result.OK = false
		result.Errors = append(result.Errors, "events.ndjson not found")
		return result
	}

	events, err := parseEventsNDJSON(eventsData)
	if err != nil {
		result.OK = false
		result.Errors = append(result.Errors, fmt.Sprintf("failed to parse events: %v", err))
		return result
	}
	result.Events = events

	if err := ValidateChain(events); err != nil {
		result.OK = false
		result.HashChainValid = false
		result.Errors = append(result.Errors, fmt.Sprintf("hash chain invalid: %v", err))
	} else {
		result.HashChainValid = true
		result.EventsValid = true
	}

	ledgerData, ok := files["ledger.ndjson"]
	if ok {
		ledger, err := parseLedgerNDJSON(ledgerData)
		if err != nil {
			result.OK = false
			result.Errors = append(result.Errors, fmt.Sprintf("failed to parse ledger: %v", err))
		} else {
			if err := ValidateLedgerConsistency(events, ledger); err != nil {
				result.OK = false
				result.LedgerValid = false
				result.Errors = append(result.Errors, fmt.Sprintf("ledger consistency check failed: %v", err))
			} else {
				result.LedgerValid = true
			}
		}
	}

	proofData, ok := files["proof.json"]
	if ok {
		var proofSummary ProofSummary
		if err := json.Unmarshal(proofData, &proofSummary); err != nil {
			result.OK = false
			result.Errors = append(result.Errors, fmt.Sprintf("failed to parse proof: %v", err))
		} else if len(events) > 0 && proofSummary.RootHash != events[len(events)-1].Hash {
			result.OK = false
			result.Errors = append(result.Errors, fmt.Sprintf("proof root_hash mismatch: expected %s, got %s", events[len(events)-1].Hash, proofSummary.RootHash))
		}
	}

	return result
}

// ValidateLedgerConsistency checks that the event log's tool_start/tool_end
// pairs agree with the tool ledger's idempotency-keyed invocation records.
func ValidateLedgerConsistency(events []Event, ledger []ToolInvocation) error {
	startedMap := make(map[string]bool)
	finishedMap := make(map[string]map[string]interface{})

	for _, event := range events {
		switch event.Type {
		case "tool_start":
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(event.Payload), &payload); err == nil {
				if key, ok := payload["idempotency_key"].(string); ok && key != "" {
					startedMap[key] = true
				}
			}
		case "tool_end":
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(event.Payload), &payload); err == nil {
				if key, ok := payload["idempotency_key"].(string); ok && key != "" {
					finishedMap[key] = payload
				}
			}
		}
	}

	ledgerMap := make(map[string]ToolInvocation)
	for _, inv := range ledger {
		ledgerMap[inv.IdempotencyKey] = inv
	}

	for idempotencyKey, eventPayload := range finishedMap {
		ledgerInv, ok := ledgerMap[idempotencyKey]
		if !ok {
			return fmt.Errorf("tool invocation %s found in events but missing in ledger", idempotencyKey)
		}

		if toolName, ok := eventPayload["tool_name"].(string); ok {
			if toolName != "" && toolName != ledgerInv.ToolName {
				return fmt.Errorf("tool_name mismatch for %s: event=%s, ledger=%s", idempotencyKey, toolName, ledgerInv.ToolName)
			}
		}

		if outcome, ok := eventPayload["outcome"].(string); ok {
			if outcome == "success" && !ledgerInv.Committed {
				return fmt.Errorf("event shows success but ledger not committed for %s", idempotencyKey)
			}
		}
	}

	for _, inv := range ledger {
		if inv.Committed {
			if _, ok := finishedMap[inv.IdempotencyKey]; !ok {
				return fmt.Errorf("ledger shows committed but no finished event for %s", inv.IdempotencyKey)
			}
		}
	}

	return nil
}

func parseEventsNDJSON(data []byte) ([]Event, error) {
	var events []Event
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, fmt.Errorf("failed to parse event line %d: %w", i+1, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func parseLedgerNDJSON(data []byte) ([]ToolInvocation, error) {
	var ledger []ToolInvocation
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var inv ToolInvocation
		if err := json.Unmarshal([]byte(line), &inv); err != nil {
			return nil, fmt.Errorf("failed to parse ledger line %d: %w", i+1, err)
		}
		ledger = append(ledger, inv)
	}
	return ledger, nil
}
