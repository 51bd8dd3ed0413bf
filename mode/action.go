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

// Package mode owns the (mode, stage) pair for a task and the permission
// matrix gating which actions a mode/stage combination may take.
package mode

import "agentcore/event"

// Action is one of the gate-checked operation categories.
type Action string

const (
	ActionReadFile       Action = "read_file"
	ActionRetrieve       Action = "retrieve"
	ActionPlan           Action = "plan"
	ActionWriteFile      Action = "write_file"
	ActionDiff           Action = "diff"
	ActionCheckpoint     Action = "checkpoint"
	ActionExecuteCommand Action = "execute_command"
)

type permKey struct {
	mode  event.Mode
	stage event.Stage
}

// matrix is the mode × stage permission table. ANSWER and PLAN carry no
// stage (StageNone); each MISSION row is keyed by its stage.
var matrix = map[permKey]map[Action]bool{
	{event.ModeAnswer, event.StageNone}: set(ActionReadFile, ActionRetrieve),
	{event.ModePlan, event.StageNone}:   set(ActionReadFile, ActionRetrieve, ActionPlan),

	{event.ModeMission, event.StagePlan}:     set(ActionReadFile, ActionRetrieve, ActionPlan),
	{event.ModeMission, event.StageRetrieve}: set(ActionReadFile, ActionRetrieve),
	{event.ModeMission, event.StageEdit}:     set(ActionReadFile, ActionRetrieve, ActionWriteFile, ActionDiff, ActionCheckpoint),
	{event.ModeMission, event.StageTest}:     set(ActionReadFile, ActionRetrieve, ActionExecuteCommand),
	{event.ModeMission, event.StageRepair}:   set(ActionReadFile, ActionRetrieve, ActionWriteFile, ActionDiff, ActionCheckpoint, ActionExecuteCommand),
	{event.ModeMission, event.StageCommand}:  set(ActionReadFile, ActionRetrieve, ActionExecuteCommand),
}

func set(actions ...Action) map[Action]bool {
	m := make(map[Action]bool, len(actions))
	for _, a := range actions {
		m[a] = true
	}
	return m
}

// allowed reports whether (mode, stage) permits action.
func allowed(m event.Mode, s event.Stage, a Action) bool {
	if m != event.ModeMission {
		s = event.StageNone
	}
	row, ok := matrix[permKey{m, s}]
	if !ok {
		return false
	}
	return row[a]
}
