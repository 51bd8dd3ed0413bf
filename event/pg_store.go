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

package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore is the optional PostgreSQL-backed Store. It keeps the same
// append-time invariant checks as memoryStore but persists durably and
// serializes appends per task at the database level via a row lock on
// the task's last event.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pooled connection to dsn and returns a
// PostgreSQL-backed Store. The caller is responsible for having applied
// the events table migration (task_id, event_id, seq, type, mode, stage,
// payload, evidence_ids, parent_event_id, created_at, prev_hash, hash).
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

func (s *pgStore) Append(ctx context.Context, e Event) (Event, error) {
	if e.TaskID == "" {
		return Event{}, ErrEmptyTaskID
	}
	if !IsAllowed(e.Type) {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidType, e.Type)
	}
	if e.Stage != "" && e.Stage != StageNone && e.Mode != ModeMission {
		return Event{}, fmt.Errorf("%w: stage %q with mode %q", ErrStageRequiresMission, e.Stage, e.Mode)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Event{}, err
	}
	defer tx.Rollback(ctx)

	var lastTS time.Time
	var prevHash string
	row := tx.QueryRow(ctx,
		`SELECT created_at, hash FROM events WHERE task_id = $1 ORDER BY seq DESC LIMIT 1 FOR UPDATE`,
		e.TaskID)
	switch err := row.Scan(&lastTS, &prevHash); {
	case err == nil:
		if !e.Timestamp.IsZero() && e.Timestamp.Before(lastTS) {
			return Event{}, ErrNonMonotoneTimestamp
		}
	case errors.Is(err, pgx.ErrNoRows):
		// first event in the task, prevHash stays empty
	default:
		return Event{}, err
	}

	for _, id := range e.EvidenceIDs {
		if ok, err := taskHasEvent(ctx, tx, e.TaskID, id); err != nil {
			return Event{}, err
		} else if !ok {
			return Event{}, fmt.Errorf("%w: evidence_id %q", ErrDanglingReference, id)
		}
	}
	if e.ParentEventID != "" {
		if ok, err := taskHasEvent(ctx, tx, e.TaskID, e.ParentEventID); err != nil {
			return Event{}, err
		} else if !ok {
			return Event{}, fmt.Errorf("%w: parent_event_id %q", ErrDanglingReference, e.ParentEventID)
		}
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.EventID = "ev_" + uuid.New().String()
	e.PrevHash = prevHash
	e.Hash = computeHash(e.TaskID, e.Type, e.Payload, e.Timestamp, prevHash)

	payloadJSON, err := json.Marshal(e.Payload)
	if err != nil {
		return Event{}, err
	}
	evidenceJSON, err := json.Marshal(e.EvidenceIDs)
	if err != nil {
		return Event{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO events (task_id, event_id, type, mode, stage, payload, evidence_ids, parent_event_id, created_at, prev_hash, hash, seq)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11, (SELECT COALESCE(MAX(seq),0)+1 FROM events WHERE task_id=$1))`,
		e.TaskID, e.EventID, string(e.Type), string(e.Mode), string(e.Stage), payloadJSON, evidenceJSON, e.ParentEventID, e.Timestamp, e.PrevHash, e.Hash)
	if err != nil {
		return Event{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Event{}, err
	}
	return e.Clone(), nil
}

func (s *pgStore) GetAll(ctx context.Context) ([]Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT task_id, event_id, type, mode, stage, payload, evidence_ids, parent_event_id, created_at, prev_hash, hash FROM events ORDER BY task_id, seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *pgStore) GetByTask(ctx context.Context, taskID string) ([]Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT task_id, event_id, type, mode, stage, payload, evidence_ids, parent_event_id, created_at, prev_hash, hash FROM events WHERE task_id = $1 ORDER BY seq`,
		taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *pgStore) GetByType(ctx context.Context, t Type) ([]Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT task_id, event_id, type, mode, stage, payload, evidence_ids, parent_event_id, created_at, prev_hash, hash FROM events WHERE type = $1 ORDER BY task_id, seq`,
		string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func taskHasEvent(ctx context.Context, tx pgx.Tx, taskID, eventID string) (bool, error) {
	var one int
	err := tx.QueryRow(ctx,
		`SELECT 1 FROM events WHERE task_id = $1 AND event_id = $2`,
		taskID, eventID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type pgRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanEvents(rows pgRows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var e Event
		var typeStr, modeStr, stageStr string
		var payloadJSON, evidenceJSON []byte
		if err := rows.Scan(&e.TaskID, &e.EventID, &typeStr, &modeStr, &stageStr, &payloadJSON, &evidenceJSON, &e.ParentEventID, &e.Timestamp, &e.PrevHash, &e.Hash); err != nil {
			return nil, err
		}
		e.Type = Type(typeStr)
		e.Mode = Mode(modeStr)
		e.Stage = Stage(stageStr)
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
				return nil, err
			}
		}
		if len(evidenceJSON) > 0 {
			if err := json.Unmarshal(evidenceJSON, &e.EvidenceIDs); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
