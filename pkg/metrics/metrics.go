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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// DefaultRegistry is the process-wide registry exposed at /metrics.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		EventAppendTotal, EventAppendRejectedTotal,
		ModeTransitionTotal, ModeViolationTotal,
		ApprovalRequestTotal, ApprovalLatencySeconds, ApprovalOutcomeTotal,
		ScopeExpansionRequestTotal, ScopeBlockedTotal,
		ToolExecutionTotal, ToolExecutionDurationSeconds,
		RateLimitWaitSeconds, RateLimitRejectionsTotal,
		LargePlanDetectedTotal, IntentClassificationTotal,
		CheckpointTotal, CheckpointRestoreTotal,
	)
}

// EventAppendTotal counts events appended to the log, by type.
var EventAppendTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_event_append_total",
		Help: "Events appended to the event log, by event type",
	},
	[]string{"type"},
)

// EventAppendRejectedTotal counts appends rejected by an append-time
// invariant check (unknown type, non-monotone timestamp, dangling
// reference, stage outside MISSION).
var EventAppendRejectedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "agentcore_event_append_rejected_total",
		Help: "Appends rejected by an append-time invariant check",
	},
)

// ModeTransitionTotal counts mode changes, by from/to mode.
var ModeTransitionTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_mode_transition_total",
		Help: "Mode transitions, by source and destination mode",
	},
	[]string{"from", "to"},
)

// ModeViolationTotal counts actions rejected by the permission matrix.
var ModeViolationTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_mode_violation_total",
		Help: "Actions rejected because the current mode/stage forbids them",
	},
	[]string{"mode", "stage", "action"},
)

// ApprovalRequestTotal counts approval requests raised, by kind.
var ApprovalRequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_approval_request_total",
		Help: "Approval requests raised, by kind",
	},
	[]string{"kind"},
)

// ApprovalLatencySeconds measures time from request to resolution.
var ApprovalLatencySeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "agentcore_approval_latency_seconds",
		Help:    "Time from approval request to resolution",
		Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 3600},
	},
	[]string{"kind"},
)

// ApprovalOutcomeTotal counts approval resolutions, by outcome.
var ApprovalOutcomeTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_approval_outcome_total",
		Help: "Approval resolutions, by outcome",
	},
	[]string{"kind", "outcome"}, // approved | denied | expired | superseded
)

// ScopeExpansionRequestTotal counts scope expansion requests, by outcome.
var ScopeExpansionRequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_scope_expansion_request_total",
		Help: "Scope expansion requests, by outcome",
	},
	[]string{"outcome"}, // granted | denied
)

// ScopeBlockedTotal counts actions blocked by the current scope contract.
var ScopeBlockedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_scope_blocked_total",
		Help: "Actions blocked for exceeding the granted scope",
	},
	[]string{"reason"}, // max_files | max_lines | max_iterations | max_tool_calls | max_time
)

// ToolExecutionTotal counts tool executions, by tool and outcome.
var ToolExecutionTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_tool_execution_total",
		Help: "Tool executions, by tool and outcome",
	},
	[]string{"tool", "outcome"}, // success | error | mode_violation | scope_blocked | path_traversal | approval_denied
)

// ToolExecutionDurationSeconds measures tool execution latency.
var ToolExecutionDurationSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "agentcore_tool_execution_duration_seconds",
		Help:    "Tool execution duration",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// RateLimitWaitSeconds measures time spent waiting on the tool-call limiter.
var RateLimitWaitSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "agentcore_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a tool-call rate limit token",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
	},
)

// RateLimitRejectionsTotal counts calls rejected by the rate limiter.
var RateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "agentcore_rate_limit_rejections_total",
		Help: "Tool calls rejected by the rate limiter",
	},
)

// LargePlanDetectedTotal counts plans flagged by the large-plan detector.
var LargePlanDetectedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_large_plan_detected_total",
		Help: "Plans flagged as large, by triggering rule",
	},
	[]string{"rule"},
)

// IntentClassificationTotal counts router classifications, by resulting behavior.
var IntentClassificationTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_intent_classification_total",
		Help: "Intent classifications, by resulting behavior",
	},
	[]string{"behavior"}, // ANSWER | CLARIFY | QUICK_ACTION | PLAN | CONTINUE_RUN
)

// CheckpointTotal counts checkpoints created.
var CheckpointTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "agentcore_checkpoint_total",
		Help: "Checkpoints created",
	},
)

// CheckpointRestoreTotal counts checkpoint restores, by trigger.
var CheckpointRestoreTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcore_checkpoint_restore_total",
		Help: "Checkpoint restores, by trigger",
	},
	[]string{"trigger"}, // approval_denied | tool_error
)

// WritePrometheus writes the registry's metrics in Prometheus text format to w.
func WritePrometheus(w io.Writer) error {
	mfs, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
