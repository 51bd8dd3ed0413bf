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
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ExportEvidenceZip exports a task's event log and tool ledger as a
// tamper-evident ZIP bundle.
func ExportEvidenceZip(
	ctx context.Context,
	taskID string,
	events EventSource,
	ledger LedgerSource,
	opts ExportOptions,
) ([]byte, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task_id is required")
	}

	evs, err := events.ListEvents(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if len(evs) == 0 {
		return nil, fmt.Errorf("no events found for task %s", taskID)
	}

	if err := ValidateChain(evs); err != nil {
		return nil, fmt.Errorf("hash chain validation failed: %w", err)
	}

	var invocations []ToolInvocation
	if ledger != nil {
		invocations, err = ledger.ListToolInvocations(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("failed to list tool invocations: %w", err)
		}
	}

	eventsNDJSON, err := eventsToNDJSON(evs)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize events: %w", err)
	}

	ledgerNDJSON, err := ledgerToNDJSON(invocations)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ledger: %w", err)
	}

	metadataJSON, err := json.MarshalIndent(TaskMetadata{
		TaskID: taskID,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize metadata: %w", err)
	}

	fileHashes := map[string]string{
		"events.ndjson": ComputeFileHash(eventsNDJSON),
		"ledger.ndjson": ComputeFileHash(ledgerNDJSON),
		"metadata.json": ComputeFileHash(metadataJSON),
	}

	manifest := Manifest{
		Version:        "1.0",
		TaskID:         taskID,
		ExportedAt:     time.Now().UTC(),
		EventCount:     len(evs),
		LedgerCount:    len(invocations),
		FirstEventHash: evs[0].Hash,
		LastEventHash:  evs[len(evs)-1].Hash,
		FileHashes:     fileHashes,
		RuntimeVersion: opts.RuntimeVersion,
		SchemaVersion:  opts.SchemaVersion,
	}
	if manifest.RuntimeVersion == "" {
		manifest.RuntimeVersion = "1.0.0"
	}
	if manifest.SchemaVersion == "" {
		manifest.SchemaVersion = "1.0"
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}

	proofSummary := ProofSummary{
		TaskID:          taskID,
		RootHash:        evs[len(evs)-1].Hash,
		ChainValidated:  true,
		LedgerValidated: true,
		GeneratedBy:     fmt.Sprintf("agentcore %s", opts.RuntimeVersion),
	}

	proofJSON, err := json.MarshalIndent(proofSummary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize proof: %w", err)
	}

	fileHashes["proof.json"] = ComputeFileHash(proofJSON)

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	files := map[string][]byte{
		"manifest.json": manifestJSON,
		"events.ndjson": eventsNDJSON,
		"ledger.ndjson": ledgerNDJSON,
		"proof.json":    proofJSON,
		"metadata.json": metadataJSON,
	}

	for filename, content := range files {
		fw, err := zw.Create(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create zip file %s: %w", filename, err)
		}
		if _, err := fw.Write(content); err != nil {
			return nil, fmt.Errorf("failed to write zip file %s: %w", filename, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zip writer: %w", err)
	}

	return buf.Bytes(), nil
}

func eventsToNDJSON(events []Event) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func ledgerToNDJSON(ledger []ToolInvocation) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, inv := range ledger {
		data, err := json.Marshal(inv)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
