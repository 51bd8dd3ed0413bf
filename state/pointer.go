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

package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const activeTaskFile = "active-task.json"

// SavePointer writes ptr to <stateDir>/active-task.json via a temp-file
// rename, so a crash mid-write leaves the previous pointer intact rather
// than a torn one.
func SavePointer(stateDir string, ptr ActiveTaskPointer) error {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("state: creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(ptr, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshaling pointer: %w", err)
	}
	tmp := filepath.Join(stateDir, activeTaskFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("state: writing pointer: %w", err)
	}
	return os.Rename(tmp, filepath.Join(stateDir, activeTaskFile))
}

// LoadPointer reads the active-task pointer. A missing file returns a
// zero pointer and no error: a fresh workspace has no task to recover.
func LoadPointer(stateDir string) (ActiveTaskPointer, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, activeTaskFile))
	if os.IsNotExist(err) {
		return ActiveTaskPointer{}, nil
	}
	if err != nil {
		return ActiveTaskPointer{}, fmt.Errorf("state: reading pointer: %w", err)
	}
	var ptr ActiveTaskPointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return ActiveTaskPointer{}, fmt.Errorf("state: decoding pointer: %w", err)
	}
	return ptr, nil
}

// MarkCleanExit flips CleanlyExited on the stored pointer. The host calls
// this on orderly shutdown; its absence at next start is what turns the
// pointer into a recovery offer.
func MarkCleanExit(stateDir string) error {
	ptr, err := LoadPointer(stateDir)
	if err != nil {
		return err
	}
	if ptr.TaskID == "" {
		return nil
	}
	ptr.CleanlyExited = true
	return SavePointer(stateDir, ptr)
}
