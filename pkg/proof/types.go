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

// Package proof computes and verifies the hash chain over a task's event
// log and packages it, together with the tool ledger, into a portable,
// tamper-evident evidence bundle.
package proof

import (
	"context"
	"time"
)

// EvidencePackage is the full in-memory form of an exported bundle.
type EvidencePackage struct {
	Manifest Manifest
	Events   []Event
	Ledger   []ToolInvocation
	Proof    ProofSummary
	Metadata TaskMetadata
}

// Manifest is the index of a bundle: what it contains and how to check it.
type Manifest struct {
	Version        string            `json:"version"`
	TaskID         string            `json:"task_id"`
	ExportedAt     time.Time         `json:"exported_at"`
	EventCount     int               `json:"event_count"`
	LedgerCount    int               `json:"ledger_count"`
	FirstEventHash string            `json:"first_event_hash"`
	LastEventHash  string            `json:"last_event_hash"`
	FileHashes     map[string]string `json:"file_hashes"` // filename -> SHA256
	RuntimeVersion string            `json:"runtime_version"`
	SchemaVersion  string            `json:"schema_version"`
}

// ProofSummary is a small, independently-checkable claim about a bundle's
// integrity, meant to be read without parsing the full event log.
type ProofSummary struct {
	TaskID          string `json:"task_id"`
	RootHash        string `json:"root_hash"` // == LastEventHash
	ChainValidated  bool   `json:"chain_validated"`
	LedgerValidated bool   `json:"ledger_validated"`
	GeneratedBy     string `json:"generated_by"`
	Signature       string `json:"signature,omitempty"` // reserved
}

// Event is the flattened, hash-chained form of a substrate event as it
// appears inside an evidence bundle.
type Event struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"` // JSON string
	CreatedAt time.Time `json:"created_at"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// ToolInvocation is a single recorded tool execution, used to cross-check
// the event log's tool_start/tool_end pairs against the executor's own
// idempotency ledger.
type ToolInvocation struct {
	ID             string `json:"id"`
	TaskID         string `json:"task_id"`
	IdempotencyKey string `json:"idempotency_key"`
	StepID         string `json:"step_id"`
	ToolName       string `json:"tool_name"`
	ArgsHash       string `json:"args_hash"`
	Status         string `json:"status"`
	Result         string `json:"result"` // JSON string
	Committed      bool   `json:"committed"`
	Timestamp      string `json:"timestamp"`
	ExternalID     string `json:"external_id,omitempty"`
}

// TaskMetadata is the small amount of task-level context recorded in a
// bundle alongside the event log.
type TaskMetadata struct {
	TaskID     string    `json:"task_id"`
	AgentID    string    `json:"agent_id"`
	Goal       string    `json:"goal"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	RetryCount int       `json:"retry_count"`
}

// ExportOptions configures an export.
type ExportOptions struct {
	RuntimeVersion   string
	SchemaVersion    string
	IncludeReasoning bool
	RedactionEnabled bool
	RedactionSalt    string // used by the hash redaction mode
}

// VerifyResult is the outcome of checking a bundle's internal consistency.
type VerifyResult struct {
	OK             bool
	Errors         []string
	Events         []Event
	EventsValid    bool
	LedgerValid    bool
	HashChainValid bool
	ManifestValid  bool
}

// EventSource supplies the event log for a task, for export.
type EventSource interface {
	ListEvents(ctx context.Context, taskID string) ([]Event, error)
}

// LedgerSource supplies the tool ledger for a task, for export.
type LedgerSource interface {
	ListToolInvocations(ctx context.Context, taskID string) ([]ToolInvocation, error)
}
