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

// Package evidence builds and stores the content-addressed attachments
// referenced by events: command output, diffs, file snapshots, test
// results and error traces. An Evidence record never carries its content
// inline; it is a small, hashable pointer into the attachment store.
package evidence

import (
	"time"
)

// Type classifies what kind of content an Evidence record points to.
type Type string

const (
	TypeLog   Type = "log"
	TypeDiff  Type = "diff"
	TypeFile  Type = "file"
	TypeTest  Type = "test"
	TypeError Type = "error"
)

// Evidence is a content-addressed pointer attached to an event. The
// content itself lives in the attachment Store, keyed by ContentRef.
type Evidence struct {
	EvidenceID    string    `json:"evidence_id"`
	Type          Type      `json:"type"`
	SourceEventID string    `json:"source_event_id"`
	ContentRef    string    `json:"content_ref"` // sha256 of the stored content
	Summary       string    `json:"summary,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Attachment is the content behind a ContentRef, as held by the Store.
type Attachment struct {
	ContentRef string    `json:"content_ref"`
	MIMEType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	Data       []byte    `json:"-"`
	StoredAt   time.Time `json:"stored_at"`
}
