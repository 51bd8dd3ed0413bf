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
	"context"
	"testing"
	"time"
)

func TestEndToEnd_ExportAndVerify(t *testing.T) {
	taskID := "task_e2e_1"

	baseEvents := makeTestEvents(taskID, 18)

	finishedEvent := Event{
		ID:        "evt_19",
		TaskID:    taskID,
		Type:      "tool_end",
		Payload:   `{"idempotency_key":"key_1","outcome":"success","tool_name":"github_create_issue"}`,
		CreatedAt: time.Now().UTC().Add(19 * time.Second),
		PrevHash:  baseEvents[len(baseEvents)-1].Hash,
	}
	finishedEvent.Hash = ComputeEventHash(finishedEvent)

	completedEvent := Event{
		ID:        "evt_20",
		TaskID:    taskID,
		Type:      "task_completed",
		Payload:   `{}`,
		CreatedAt: time.Now().UTC().Add(20 * time.Second),
		PrevHash:  finishedEvent.Hash,
	}
	completedEvent.Hash = ComputeEventHash(completedEvent)

	events := append(baseEvents, finishedEvent, completedEvent)

	toolInvocations := []ToolInvocation{
		{
			ID:             "inv_1",
			TaskID:         taskID,
			IdempotencyKey: "key_1",
			StepID:         "step_1",
			ToolName:       "github_create_issue",
			Status:         "success",
			Committed:      true,
			Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		},
	}

	zipBytes, err := ExportEvidenceZip(
		context.Background(),
		taskID,
		memEventSource{events: events},
		memLedgerSource{invocations: toolInvocations},
		ExportOptions{
			RuntimeVersion: "1.0.0-test",
			SchemaVersion:  "1.0",
		},
	)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	result := VerifyEvidenceZip(zipBytes)
	if !result.OK {
		t.Errorf("verification should pass, errors: %v", result.Errors)
	}

	if !result.HashChainValid {
		t.Error("hash chain should be valid")
	}
	if !result.ManifestValid {
		t.Error("manifest should be valid")
	}
	if !result.EventsValid {
		t.Error("events should be valid")
	}
	if !result.LedgerValid {
		t.Error("ledger should be valid")
	}
	if len(result.Events) != 20 {
		t.Errorf("expected 20 events, got %d", len(result.Events))
	}
}

func TestEndToEnd_TamperDetection(t *testing.T) {
	taskID := "task_e2e_2"
	events := makeTestEvents(taskID, 10)

	zipBytes, err := ExportEvidenceZip(
		context.Background(),
		taskID,
		memEventSource{events: events},
		memLedgerSource{invocations: nil},
		ExportOptions{RuntimeVersion: "test"},
	)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	result := VerifyEvidenceZip(zipBytes)
	if !result.OK {
		t.Fatalf("original package should verify, errors: %v", result.Errors)
	}

	tamperedZip := tamperZipFile(zipBytes, "events.ndjson", func(b []byte) []byte {
		if len(b) > 50 {
			b[50] ^= 0xAA
		}
		return b
	})

	tamperedResult := VerifyEvidenceZip(tamperedZip)
	if tamperedResult.OK {
		t.Error("tampered package should fail verification")
	}
	if len(tamperedResult.Errors) == 0 {
		t.Error("expected errors in tampered result")
	}
}

func TestEndToEnd_ChainIntegrity(t *testing.T) {
	taskID := "task_e2e_3"

	events := []Event{
		{
			ID:        "evt_1",
			TaskID:    taskID,
			Type:      "task_created",
			Payload:   `{"goal":"test"}`,
			CreatedAt: time.Now().UTC(),
			PrevHash:  "",
		},
	}
	events[0].Hash = ComputeEventHash(events[0])

	event2 := Event{
		ID:        "evt_2",
		TaskID:    taskID,
		Type:      "plan_generated",
		Payload:   `{"plan":{}}`,
		CreatedAt: time.Now().UTC().Add(time.Second),
		PrevHash:  events[0].Hash,
	}
	event2.Hash = ComputeEventHash(event2)
	events = append(events, event2)

	if err := ValidateChain(events); err != nil {
		t.Errorf("chain should be valid: %v", err)
	}

	zipBytes, err := ExportEvidenceZip(
		context.Background(),
		taskID,
		memEventSource{events: events},
		nil,
		ExportOptions{RuntimeVersion: "test"},
	)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	result := VerifyEvidenceZip(zipBytes)
	if !result.OK {
		t.Errorf("verification failed: %v", result.Errors)
	}
}
