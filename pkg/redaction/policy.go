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

package redaction

// RedactionPolicy is the resolved set of field masks the tool pipeline
// applies to a tool's inputs before they're recorded on a tool_start
// event. Masks are keyed by tool name, since a tool's argument shape (not
// an event type) is what determines which of its fields can carry a
// secret-shaped value.
type RedactionPolicy struct {
	ToolRules   map[string][]FieldMask // tool name -> field masks
	GlobalRules []FieldMask            // applied to every tool's inputs regardless of name
}

// FieldMask is one field-path mask within a policy.
type FieldMask struct {
	FieldPath string        // JSON path into the tool's input object (e.g. "args.token")
	Mode      RedactionMode
	Salt      string // used by the hash mode only
}

// RedactionMode selects how a masked field's value is replaced.
type RedactionMode string

const (
	RedactionModeRedact  RedactionMode = "redact"  // replace with "***REDACTED***"
	RedactionModeHash    RedactionMode = "hash"    // replace with a SHA256 digest
	RedactionModeEncrypt RedactionMode = "encrypt" // replace with a ciphertext (requires a key)
	RedactionModeRemove  RedactionMode = "remove"  // drop the field entirely
)

// PolicyConfig is the YAML-facing form of a redaction policy, loaded as
// part of agentcore's top-level config.
type PolicyConfig struct {
	Enable   bool               `yaml:"enable"`
	Policies []ToolPolicyConfig `yaml:"policies"`
}

// ToolPolicyConfig is the redaction policy for inputs to a single tool.
type ToolPolicyConfig struct {
	Tool   string            `yaml:"tool"`
	Fields []FieldMaskConfig `yaml:"fields"`
}

// FieldMaskConfig is the YAML-facing form of a FieldMask.
type FieldMaskConfig struct {
	Path string        `yaml:"path"`
	Mode RedactionMode `yaml:"mode"`
	Salt string        `yaml:"salt"`
}

// LoadPolicyFromConfig builds a RedactionPolicy from its YAML-facing
// config. Returns nil when redaction is disabled, in which case the
// Executor's built-in sensitive-key pass is the only masking that runs.
func LoadPolicyFromConfig(config PolicyConfig) *RedactionPolicy {
	if !config.Enable {
		return nil
	}

	policy := &RedactionPolicy{
		ToolRules:   make(map[string][]FieldMask),
		GlobalRules: []FieldMask{},
	}

	for _, toolPolicy := range config.Policies {
		masks := []FieldMask{}
		for _, fieldConfig := range toolPolicy.Fields {
			masks = append(masks, FieldMask{
				FieldPath: fieldConfig.Path,
				Mode:      fieldConfig.Mode,
				Salt:      fieldConfig.Salt,
			})
		}
		policy.ToolRules[toolPolicy.Tool] = masks
	}

	return policy
}
