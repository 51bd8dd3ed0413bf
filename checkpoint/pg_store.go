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

package checkpoint

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"agentcore/event"
)

// pgStore is the optional PostgreSQL-backed Store, selectable alongside
// the in-memory default via config.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pooled connection to dsn. The caller must have
// applied the checkpoints table migration (id, task_id, mode, stage,
// files jsonb, created_at).
func NewPostgresStore(ctx context.Context, dsn string) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &pgStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *pgStore) Close() {
	s.pool.Close()
}

func (s *pgStore) Save(ctx context.Context, cp *Checkpoint) (string, error) {
	id := cp.ID
	if id == "" {
		id = "cp-" + uuid.New().String()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	filesJSON, err := json.Marshal(cp.Files)
	if err != nil {
		return "", err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO checkpoints (id, task_id, mode, stage, files, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET files = EXCLUDED.files`,
		id, cp.TaskID, string(cp.Mode), string(cp.Stage), filesJSON, cp.CreatedAt)
	if err != nil {
		return "", err
	}
	cp.ID = id
	return id, nil
}

func (s *pgStore) Load(ctx context.Context, id string) (*Checkpoint, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, task_id, mode, stage, files, created_at FROM checkpoints WHERE id = $1`, id)
	return scanCheckpoint(row)
}

func (s *pgStore) ListByTask(ctx context.Context, taskID string) ([]*Checkpoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, mode, stage, files, created_at FROM checkpoints WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

type pgRow interface {
	Scan(dest ...interface{}) error
}

func scanCheckpoint(row pgRow) (*Checkpoint, error) {
	var cp Checkpoint
	var modeStr, stageStr string
	var filesJSON []byte
	if err := row.Scan(&cp.ID, &cp.TaskID, &modeStr, &stageStr, &filesJSON, &cp.CreatedAt); err != nil {
		return nil, err
	}
	cp.Mode = event.Mode(modeStr)
	cp.Stage = event.Stage(stageStr)
	if len(filesJSON) > 0 {
		if err := json.Unmarshal(filesJSON, &cp.Files); err != nil {
			return nil, err
		}
	}
	return &cp, nil
}
