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

package plandetect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetect_SmallPlanIsNotLarge(t *testing.T) {
	res := Detect([]string{"fix typo in readme", "update changelog"}, nil)
	require.False(t, res.LargePlan)
	require.Less(t, res.Score, 60)
}

func TestDetect_StepCountAloneTriggersLarge(t *testing.T) {
	steps := make([]string, 16)
	for i := range steps {
		steps[i] = "update a small file"
	}
	res := Detect(steps, nil)
	require.True(t, res.LargePlan)
	require.Contains(t, res.Reasons[len(res.Reasons)-1], "step_count >=")
}

func TestDetect_RiskFlagsWithStepCountTriggersLarge(t *testing.T) {
	steps := []string{
		"update authentication flow", "migrate user data", "update billing invoice logic",
		"update payment checkout", "refactor auth module", "add oauth support",
		"update database schema", "update permission checks", "update api endpoint",
		"write tests",
	}
	res := Detect(steps, nil)
	require.GreaterOrEqual(t, len(res.Metrics.RiskCategories), 2)
	require.GreaterOrEqual(t, res.Metrics.StepCount, 10)
	require.True(t, res.LargePlan)
}

func TestDetect_GreenfieldScoreAloneTriggersLarge(t *testing.T) {
	steps := []string{
		"rewrite the entire system from scratch, across the codebase, system-wide",
		"full rewrite of every service",
	}
	res := Detect(steps, nil)
	require.GreaterOrEqual(t, res.Score, 60)
	require.True(t, res.LargePlan)
}

func TestDetect_LLMMetadataCanOnlyRaiseScore(t *testing.T) {
	steps := []string{"fix typo"}
	base := Detect(steps, nil)

	raised := Detect(steps, &Metadata{EstimatedFileTouch: 50, LowConfidence: true})
	require.Greater(t, raised.Score, base.Score)
}

func TestDetect_ScoreIsCappedAt100(t *testing.T) {
	steps := make([]string, 40)
	for i := range steps {
		steps[i] = "rewrite the entire authentication payment migration refactor upgrade system, every mobile ios android web frontend backend server"
	}
	res := Detect(steps, &Metadata{EstimatedFileTouch: 500, EstimatedDevHours: 40, LowConfidence: true})
	require.LessOrEqual(t, res.Score, 100)
}

func TestDetect_DeterministicForSameInput(t *testing.T) {
	steps := []string{"refactor auth", "migrate database", "update payments"}
	a := Detect(steps, nil)
	b := Detect(steps, nil)
	require.Equal(t, a, b)
}
