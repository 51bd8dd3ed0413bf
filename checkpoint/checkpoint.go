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

// Package checkpoint implements the pre-effect file snapshot that the
// approval gate and tool executor restore from on denial or failure.
// A checkpoint is never garbage-collected implicitly within a task.
package checkpoint

import (
	"context"
	"time"

	"agentcore/event"
)

// FileSnapshot is the captured content of one file at checkpoint time.
// A nil Content with Existed=false records that the file did not exist
// yet, so restoration can delete it rather than write an empty file.
type FileSnapshot struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
	Existed bool   `json:"existed"`
}

// Checkpoint is a pre-effect snapshot of every file a caller is about to
// touch, tagged with the mode/stage active when it was taken.
type Checkpoint struct {
	ID        string
	TaskID    string
	Mode      event.Mode
	Stage     event.Stage
	Files     []FileSnapshot
	CreatedAt time.Time
}

// Store persists checkpoints. Restoring is the caller's responsibility
// (checkpoint knows nothing about the filesystem) — Store only hands
// back the snapshot to restore from.
type Store interface {
	Save(ctx context.Context, cp *Checkpoint) (id string, err error)
	Load(ctx context.Context, id string) (*Checkpoint, error)
	ListByTask(ctx context.Context, taskID string) ([]*Checkpoint, error)
}

func cloneFiles(files []FileSnapshot) []FileSnapshot {
	if files == nil {
		return nil
	}
	out := make([]FileSnapshot, len(files))
	for i, f := range files {
		fc := f
		if f.Content != nil {
			fc.Content = make([]byte, len(f.Content))
			copy(fc.Content, f.Content)
		}
		out[i] = fc
	}
	return out
}
