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
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"agentcore/pkg/config"
)

const solutionsHashKey = "agentcore:solutions"

// redisStore is the go-redis-backed Store, used when SolutionStoreConfig.Type
// is "redis". Facts docs live as per-task lists; solutions live as fields
// of one hash, keyed by solution ID, so ListSolutions is a single HGETALL.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore dials a redis client from cfg and returns a Store backed
// by it. It does not ping; callers that want a fail-fast startup should
// call Ping themselves.
func NewRedisStore(cfg config.SolutionStoreConfig) Store {
	opts := &redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	}
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	return &redisStore{client: redis.NewClient(opts)}
}

// Ping verifies connectivity to the redis server.
func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func factsKey(taskID string) string {
	return "agentcore:facts:" + taskID
}

func (s *redisStore) AppendFacts(ctx context.Context, taskID string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	args := make([]interface{}, len(lines))
	for i, l := range lines {
		args[i] = l
	}
	return s.client.RPush(ctx, factsKey(taskID), args...).Err()
}

func (s *redisStore) AllFacts(ctx context.Context, taskID string) ([]string, error) {
	return s.client.LRange(ctx, factsKey(taskID), 0, -1).Result()
}

func (s *redisStore) SaveSolution(ctx context.Context, sol Solution) error {
	b, err := json.Marshal(sol)
	if err != nil {
		return fmt.Errorf("marshal solution: %w", err)
	}
	return s.client.HSet(ctx, solutionsHashKey, sol.ID, b).Err()
}

func (s *redisStore) ListSolutions(ctx context.Context) ([]Solution, error) {
	raw, err := s.client.HGetAll(ctx, solutionsHashKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Solution, 0, len(raw))
	for _, v := range raw {
		var sol Solution
		if err := json.Unmarshal([]byte(v), &sol); err != nil {
			continue
		}
		out = append(out, sol)
	}
	return out, nil
}
