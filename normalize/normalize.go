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

package normalize

import "agentcore/event"

// Normalize projects e onto the closed PrimitiveEventType set. It is
// total: every event.Type produces a valid NormalizedEvent, falling back
// to UnknownEvent{kind: raw.type} for anything the mapping table doesn't
// recognize, so no raw event is ever dropped by a UI consumer walking the
// normalized feed.
func Normalize(e event.Event) NormalizedEvent {
	if e.Type == event.OutputTruncated {
		code, recovered := extractTruncation(e)
		primitive := ErrorRaised
		if recovered {
			primitive = WarningRaised
		}
		return NormalizedEvent{
			Raw: e,
			Normalized: Normalized{
				Type:    primitive,
				Kind:    "output_truncated",
				Code:    code,
				Scope:   ScopeTool,
				Details: e.Payload,
				UIHint:  truncationUIHint(recovered),
			},
			NormalizerVersion: Version,
		}
	}

	entry, ok := mapping[e.Type]
	if !ok {
		return NormalizedEvent{
			Raw: e,
			Normalized: Normalized{
				Type:    UnknownEvent,
				Kind:    string(e.Type),
				Scope:   ScopeRun,
				Details: e.Payload,
			},
			NormalizerVersion: Version,
		}
	}

	code, from, to, details := entry.extract(e)
	return NormalizedEvent{
		Raw: e,
		Normalized: Normalized{
			Type:    entry.primitive,
			Kind:    entry.kind,
			Code:    code,
			Scope:   entry.scope,
			From:    from,
			To:      to,
			Details: details,
			UIHint:  uiHintFor(entry.primitive),
		},
		NormalizerVersion: Version,
	}
}

// NormalizeBatch normalizes a slice of events, preserving order.
func NormalizeBatch(events []event.Event) []NormalizedEvent {
	out := make([]NormalizedEvent, len(events))
	for i, e := range events {
		out[i] = Normalize(e)
	}
	return out
}

func truncationUIHint(recovered bool) string {
	if recovered {
		return "toast"
	}
	return "banner"
}

func uiHintFor(p PrimitiveEventType) string {
	switch p {
	case DecisionPointNeeded:
		return "modal"
	case ErrorRaised:
		return "banner"
	case WarningRaised:
		return "toast"
	case ProgressUpdated, StateChanged:
		return "status_line"
	default:
		return ""
	}
}
