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

package evidence

import (
	"time"

	"github.com/google/uuid"
)

// Builder creates Evidence records, storing their content in a Store as
// it goes and filling in the content-addressed pointer.
type Builder struct {
	store *Store
}

// NewBuilder creates an Evidence builder backed by store.
func NewBuilder(store *Store) *Builder {
	return &Builder{store: store}
}

// Build stores content and returns an Evidence record pointing to it.
func (b *Builder) Build(sourceEventID string, typ Type, content []byte, mimeType, summary string) (Evidence, error) {
	ref, err := b.store.Put(content, mimeType)
	if err != nil {
		return Evidence{}, err
	}
	return Evidence{
		EvidenceID:    uuid.New().String(),
		Type:          typ,
		SourceEventID: sourceEventID,
		ContentRef:    ref,
		Summary:       summary,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Log builds a log-type Evidence record from command/tool output.
func (b *Builder) Log(sourceEventID string, output []byte, summary string) (Evidence, error) {
	return b.Build(sourceEventID, TypeLog, output, "text/plain", summary)
}

// Diff builds a diff-type Evidence record from a unified diff.
func (b *Builder) Diff(sourceEventID string, diff []byte, summary string) (Evidence, error) {
	return b.Build(sourceEventID, TypeDiff, diff, "text/x-diff", summary)
}

// File builds a file-type Evidence record from a file snapshot.
func (b *Builder) File(sourceEventID string, content []byte, summary string) (Evidence, error) {
	return b.Build(sourceEventID, TypeFile, content, "text/plain", summary)
}

// Test builds a test-type Evidence record from structured test output.
func (b *Builder) Test(sourceEventID string, resultJSON []byte, summary string) (Evidence, error) {
	return b.Build(sourceEventID, TypeTest, resultJSON, "application/json", summary)
}

// Err builds an error-type Evidence record from an error trace.
func (b *Builder) Err(sourceEventID string, trace []byte, summary string) (Evidence, error) {
	return b.Build(sourceEventID, TypeError, trace, "text/plain", summary)
}
