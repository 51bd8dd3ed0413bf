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

// Package plandetect computes a deterministic composite "is this plan
// large" score from its step text, with an optional LLM-provided metadata
// nudge that may only raise the score, never lower it. The caller (the
// HTTP DetectPlan handler) decides whether to use the score breakdown;
// the detector always returns it.
package plandetect

import (
	"fmt"
	"sort"
)

// Metadata is optional LLM-supplied plan context. Any field present can
// only push Detect's score up.
type Metadata struct {
	EstimatedFileTouch   int
	EstimatedDevHours    float64
	AdditionalRiskAreas  []string
	AdditionalDomains    []string
	LowConfidence        bool
}

// Metrics is the raw inputs behind the composite score, returned
// alongside the decision so a caller can render a breakdown without the
// detector forcing one.
type Metrics struct {
	StepCount          int      `json:"step_count"`
	BigScopeHits       int      `json:"big_scope_hits"`
	AmbiguityHits      int      `json:"ambiguity_hits"`
	RiskCategories     []string `json:"risk_categories"`
	Domains            []string `json:"domains"`
	EstimatedFileTouch int      `json:"estimated_file_touch"`
}

// Result is what Detect returns: the decision, its score, human-readable
// reasons, and the metrics the score was computed from.
type Result struct {
	LargePlan bool     `json:"large_plan"`
	Score     int      `json:"score"`
	Reasons   []string `json:"reasons"`
	Metrics   Metrics  `json:"metrics"`
}

const maxScore = 100

// Detect scores steps (each plan step's description) and folds in an
// optional LLM metadata nudge, then applies the three disjoint
// large-plan rules.
func Detect(steps []string, meta *Metadata) Result {
	stepsLower := make([]string, len(steps))
	for i, s := range steps {
		stepsLower[i] = lower(s)
	}

	stepCount := len(steps)
	bigScope := 0
	ambiguity := 0
	for _, s := range stepsLower {
		bigScope += countMatches(s, bigScopeKeywords)
		ambiguity += countMatches(s, ambiguityPhrases)
	}
	risk := riskCategoriesHit(stepsLower)
	domains := domainsHit(stepsLower)
	fileTouch := estimatedFileTouch(stepsLower)

	var reasons []string

	score := stepCountScore(stepCount)
	if stepCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d steps contribute %d points", stepCount, stepCountScore(stepCount)))
	}
	score += bigScope * 8
	if bigScope > 0 {
		reasons = append(reasons, fmt.Sprintf("%d big-scope keyword hits", bigScope))
	}
	score += ambiguity * 6
	if ambiguity > 0 {
		reasons = append(reasons, fmt.Sprintf("%d ambiguity phrase hits", ambiguity))
	}
	score += len(risk) * 10
	if len(risk) > 0 {
		reasons = append(reasons, fmt.Sprintf("risk categories: %s", joinKeys(risk)))
	}
	if len(domains) >= 2 {
		score += len(domains) * 12
		reasons = append(reasons, fmt.Sprintf("spans %d domains: %s", len(domains), joinKeys(domains)))
	}
	score += fileTouch * 2
	if fileTouch > 0 {
		reasons = append(reasons, fmt.Sprintf("estimated file touch %d", fileTouch))
	}

	if meta != nil {
		if meta.EstimatedFileTouch > fileTouch {
			delta := (meta.EstimatedFileTouch - fileTouch) * 2
			score += delta
			fileTouch = meta.EstimatedFileTouch
			reasons = append(reasons, fmt.Sprintf("LLM-estimated file touch %d raises score by %d", meta.EstimatedFileTouch, delta))
		}
		if meta.EstimatedDevHours >= 8 {
			score += 15
			reasons = append(reasons, fmt.Sprintf("LLM-estimated dev hours %.1f adds 15", meta.EstimatedDevHours))
		}
		for _, area := range meta.AdditionalRiskAreas {
			if !risk[area] {
				risk[area] = true
				score += 10
				reasons = append(reasons, fmt.Sprintf("LLM flagged additional risk area %q", area))
			}
		}
		for _, d := range meta.AdditionalDomains {
			if !domains[d] {
				domains[d] = true
				score += 12
				reasons = append(reasons, fmt.Sprintf("LLM flagged additional domain %q", d))
			}
		}
		if meta.LowConfidence {
			score += 10
			reasons = append(reasons, "LLM reported low confidence, adds 10")
		}
	}

	if score > maxScore {
		score = maxScore
	}

	large := false
	if score >= 60 {
		large = true
		reasons = append(reasons, "score >= 60")
	}
	if stepCount >= largeStepThreshold {
		large = true
		reasons = append(reasons, fmt.Sprintf("step_count >= %d", largeStepThreshold))
	}
	if len(risk) >= 2 && stepCount >= 10 {
		large = true
		reasons = append(reasons, "risk_flags >= 2 and step_count >= 10")
	}

	return Result{
		LargePlan: large,
		Score:     score,
		Reasons:   reasons,
		Metrics: Metrics{
			StepCount:          stepCount,
			BigScopeHits:       bigScope,
			AmbiguityHits:      ambiguity,
			RiskCategories:     keys(risk),
			Domains:            keys(domains),
			EstimatedFileTouch: fileTouch,
		},
	}
}

func joinKeys(m map[string]bool) string {
	s := ""
	for _, k := range keys(m) {
		if s != "" {
			s += ", "
		}
		s += k
	}
	return s
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
