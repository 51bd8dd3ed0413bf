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

// Package memory holds the cross-run facts doc and the captured-solution
// store, and scores solutions against a query by shared-token overlap
// plus a linear recency bonus.
package memory

import "time"

// Solution is one captured fix: the problem it addressed, what changed,
// and how it was verified, so a later run facing a similar problem can
// be pointed at it instead of rediscovering it.
type Solution struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	Problem      string    `json:"problem"`
	Fix          string    `json:"fix"`
	FilesChanged []string  `json:"files_changed"`
	Tags         []string  `json:"tags"`
	Verification string    `json:"verification"`
	CapturedAt   time.Time `json:"captured_at"`
}

// ScoredSolution pairs a Solution with the score queryRelevantSolutions
// computed for it against a particular query.
type ScoredSolution struct {
	Solution Solution `json:"solution"`
	Score    float64  `json:"score"`
}
