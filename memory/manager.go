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

package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"agentcore/event"
)

const factsSummaryMaxLen = 80

// Manager wraps a Store with the facts-doc and solution-capture
// operations, publishing the corresponding events on every write so the
// event log stays the single source of truth.
type Manager struct {
	store             Store
	bus               *event.Bus
	defaultTopK       int
	recencyDecayHours float64
}

// NewManager builds a Manager. defaultTopK is used by QueryRelevantSolutions
// when called with topK<=0; recencyDecayHours is the window a solution's
// recency bonus decays linearly to zero over.
func NewManager(store Store, bus *event.Bus, defaultTopK int, recencyDecayHours float64) *Manager {
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	if recencyDecayHours <= 0 {
		recencyDecayHours = 720 // 30 days
	}
	return &Manager{store: store, bus: bus, defaultTopK: defaultTopK, recencyDecayHours: recencyDecayHours}
}

// UpdateFacts appends lines to taskID's facts doc and publishes
// memory_facts_updated carrying a truncated summary of the first new
// line, so a UI can show what changed without fetching the whole doc.
func (m *Manager) UpdateFacts(ctx context.Context, taskID string, lines []string) (event.Event, error) {
	if err := m.store.AppendFacts(ctx, taskID, lines); err != nil {
		return event.Event{}, err
	}
	summary := ""
	if len(lines) > 0 {
		summary = truncate(lines[0], factsSummaryMaxLen)
	}
	return m.bus.Publish(ctx, event.Event{
		TaskID: taskID,
		Type:   event.MemoryFactsUpdated,
		Payload: map[string]interface{}{
			"lines_added": len(lines),
			"summary":     summary,
		},
	})
}

// Facts returns taskID's full facts doc.
func (m *Manager) Facts(ctx context.Context, taskID string) ([]string, error) {
	return m.store.AllFacts(ctx, taskID)
}

// CaptureSolution persists sol (assigning an ID and CapturedAt if unset)
// and publishes solution_captured.
func (m *Manager) CaptureSolution(ctx context.Context, taskID string, sol Solution) (event.Event, error) {
	if sol.ID == "" {
		sol.ID = "sol_" + uuid.New().String()
	}
	if sol.CapturedAt.IsZero() {
		sol.CapturedAt = time.Now()
	}
	if sol.RunID == "" {
		sol.RunID = taskID
	}
	if err := m.store.SaveSolution(ctx, sol); err != nil {
		return event.Event{}, err
	}
	return m.bus.Publish(ctx, event.Event{
		TaskID: taskID,
		Type:   event.SolutionCaptured,
		Payload: map[string]interface{}{
			"solution_id":   sol.ID,
			"problem":       sol.Problem,
			"files_changed": sol.FilesChanged,
			"tags":          sol.Tags,
		},
	})
}

// QueryRelevantSolutions scores every captured solution against query by
// token overlap plus a linear recency bonus, keeps only solutions that
// share at least one token, and returns the topK highest-scoring ones in
// descending order. topK<=0 uses the Manager's configured default.
func (m *Manager) QueryRelevantSolutions(ctx context.Context, query string, topK int) ([]ScoredSolution, error) {
	if topK <= 0 {
		topK = m.defaultTopK
	}
	solutions, err := m.store.ListSolutions(ctx)
	if err != nil {
		return nil, err
	}
	queryTokens := tokenize(query)
	now := time.Now()

	var scored []ScoredSolution
	for _, sol := range solutions {
		shared := sharedTokenCount(queryTokens, tokenize(solutionText(sol)))
		if shared == 0 {
			continue
		}
		score := 2*float64(shared) + m.recencyBonus(now, sol.CapturedAt)
		scored = append(scored, ScoredSolution{Solution: sol, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Solution.CapturedAt.After(scored[j].Solution.CapturedAt)
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// recencyBonus decays linearly from 1.0 at capturedAt==now to 0 at
// recencyDecayHours old, floored at 0 for anything older.
func (m *Manager) recencyBonus(now, capturedAt time.Time) float64 {
	ageHours := now.Sub(capturedAt).Hours()
	if ageHours <= 0 {
		return 1
	}
	if ageHours >= m.recencyDecayHours {
		return 0
	}
	return 1 - ageHours/m.recencyDecayHours
}

func solutionText(sol Solution) string {
	return strings.Join(append([]string{sol.Problem, sol.Fix}, sol.Tags...), " ")
}

// tokenize lowercases, strips punctuation, and keeps tokens of length >=2,
// so single-letter noise doesn't pollute the overlap count.
func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, raw := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if len(raw) >= 2 {
			out[raw] = true
		}
	}
	return out
}

func sharedTokenCount(a, b map[string]bool) int {
	n := 0
	for tok := range a {
		if b[tok] {
			n++
		}
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
