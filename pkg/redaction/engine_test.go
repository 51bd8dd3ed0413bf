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

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_RedactMode(t *testing.T) {
	policy := &RedactionPolicy{
		ToolRules: map[string][]FieldMask{
			"send_email": {
				{FieldPath: "to", Mode: RedactionModeRedact},
			},
		},
	}
	engine := NewEngine(policy, nil)

	input := []byte(`{"to":"user@example.com","subject":"hello"}`)
	output, err := engine.RedactData("send_email", input)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(output, &result))

	assert.Equal(t, "***REDACTED***", result["to"])
	assert.Equal(t, "hello", result["subject"])
}

func TestEngine_HashMode(t *testing.T) {
	policy := &RedactionPolicy{
		ToolRules: map[string][]FieldMask{
			"run_command": {
				{FieldPath: "env_token", Mode: RedactionModeHash, Salt: "pepper"},
			},
		},
	}
	engine := NewEngine(policy, nil)

	input := []byte(`{"env_token":"sensitive_data","cmd":"visible"}`)
	output, err := engine.RedactData("run_command", input)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(output, &result))

	hashed, ok := result["env_token"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(hashed, "hash:"))
	assert.Equal(t, "visible", result["cmd"])
}

func TestEngine_RemoveMode(t *testing.T) {
	policy := &RedactionPolicy{
		ToolRules: map[string][]FieldMask{
			"write_file": {
				{FieldPath: "internal_trace_id", Mode: RedactionModeRemove},
			},
		},
	}
	engine := NewEngine(policy, nil)

	input := []byte(`{"internal_trace_id":"secret","path":"visible"}`)
	output, err := engine.RedactData("write_file", input)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(output, &result))

	_, exists := result["internal_trace_id"]
	assert.False(t, exists)
	assert.Equal(t, "visible", result["path"])
}

func TestEngine_NestedField(t *testing.T) {
	policy := &RedactionPolicy{
		ToolRules: map[string][]FieldMask{
			"send_email": {
				{FieldPath: "headers.authorization", Mode: RedactionModeRedact},
			},
		},
	}
	engine := NewEngine(policy, nil)

	input := []byte(`{"headers":{"authorization":"Bearer xyz","content-type":"text/plain"}}`)
	output, err := engine.RedactData("send_email", input)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(output, &result))

	headers := result["headers"].(map[string]interface{})
	assert.Equal(t, "***REDACTED***", headers["authorization"])
	assert.Equal(t, "text/plain", headers["content-type"])
}

func TestEngine_GlobalRulesApplyToEveryTool(t *testing.T) {
	policy := &RedactionPolicy{
		ToolRules: map[string][]FieldMask{},
		GlobalRules: []FieldMask{
			{FieldPath: "api_key", Mode: RedactionModeRemove},
		},
	}
	engine := NewEngine(policy, nil)

	input := []byte(`{"api_key":"secret","query":"visible"}`)
	output, err := engine.RedactData("any_tool", input)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(output, &result))

	_, exists := result["api_key"]
	assert.False(t, exists)
	assert.Equal(t, "visible", result["query"])
}

func TestEngine_NoPolicyReturnsDataUnchanged(t *testing.T) {
	engine := NewEngine(nil, nil)

	input := []byte(`{"token":"secret"}`)
	output, err := engine.RedactData("any_tool", input)
	require.NoError(t, err)
	assert.Equal(t, input, output)
}

func TestEngine_EncryptMode(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	policy := &RedactionPolicy{
		ToolRules: map[string][]FieldMask{
			"store_secret": {
				{FieldPath: "value", Mode: RedactionModeEncrypt},
			},
		},
	}
	engine := NewEngine(policy, key)

	input := []byte(`{"value":"top-secret"}`)
	output, err := engine.RedactData("store_secret", input)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(output, &result))

	encrypted, ok := result["value"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(encrypted, "enc:"))
}
