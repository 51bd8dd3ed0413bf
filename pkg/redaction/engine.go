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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Engine applies a RedactionPolicy's field masks to a tool's JSON-encoded
// input object before the Executor records it on a tool_start event.
type Engine struct {
	policy     *RedactionPolicy
	encryptKey []byte // used by the encrypt mode
}

// NewEngine creates a redaction engine bound to policy.
func NewEngine(policy *RedactionPolicy, encryptKey []byte) *Engine {
	return &Engine{
		policy:     policy,
		encryptKey: encryptKey,
	}
}

// RedactData applies the policy's field masks to toolName's JSON-encoded
// input object, returning the masked payload. Returns data unchanged if no
// policy is configured, so the Executor's own sensitive-key pass is still
// the baseline protection with redaction disabled.
func (e *Engine) RedactData(toolName string, data []byte) ([]byte, error) {
	if e.policy == nil || len(data) == 0 {
		return data, nil
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return data, err
	}

	rules := e.policy.ToolRules[toolName]
	rules = append(rules, e.policy.GlobalRules...)

	for _, rule := range rules {
		e.applyFieldMask(obj, rule)
	}

	return json.Marshal(obj)
}

// applyFieldMask applies a single field mask to a tool's parsed input
// object. A tool's arguments aren't declared anywhere agentcore can check
// ahead of time, so a configured path that doesn't exist for a given call
// (an optional arg the caller omitted) is simply a no-op.
func (e *Engine) applyFieldMask(obj map[string]interface{}, mask FieldMask) {
	parts := strings.Split(mask.FieldPath, ".")

	current := obj
	for i := 0; i < len(parts)-1; i++ {
		if next, ok := current[parts[i]].(map[string]interface{}); ok {
			current = next
		} else {
			return
		}
	}

	lastKey := parts[len(parts)-1]
	value, exists := current[lastKey]
	if !exists {
		return
	}

	switch mask.Mode {
	case RedactionModeRedact:
		current[lastKey] = "***REDACTED***"

	case RedactionModeHash:
		strValue := fmt.Sprintf("%v", value)
		hashValue := e.hashValue(strValue, mask.Salt)
		current[lastKey] = hashValue

	case RedactionModeEncrypt:
		strValue := fmt.Sprintf("%v", value)
		encrypted, err := e.encryptValue(strValue)
		if err == nil {
			current[lastKey] = encrypted
		}

	case RedactionModeRemove:
		delete(current, lastKey)
	}
}

// hashValue computes the SHA256 digest of a field's value.
func (e *Engine) hashValue(value string, salt string) string {
	h := sha256.New()
	h.Write([]byte(value))
	if salt != "" {
		h.Write([]byte(salt))
	}
	return "hash:" + hex.EncodeToString(h.Sum(nil))
}

// encryptValue encrypts a field's value with AES-256-GCM.
func (e *Engine) encryptValue(value string) (string, error) {
	if len(e.encryptKey) == 0 {
		return "", fmt.Errorf("encryption key not configured")
	}

	block, err := aes.NewCipher(e.encryptKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(value), nil)
	return "enc:" + hex.EncodeToString(ciphertext), nil
}
