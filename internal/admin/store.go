// Copyright 2025 Arion Yau
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

package admin

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"majordomo/internal/mdp"
)

// StatsStore persists periodic broker snapshots for historical queries.
// This is diagnostics storage only, entirely separate from in-flight
// message routing; losing the database never affects routing, since no
// request or reply is ever written here.
type StatsStore struct {
	db    *sql.DB
	runID string
}

// NewStatsStore opens (creating if necessary) a SQLite database at path.
// Every row this process writes is tagged with a freshly generated run
// ID, so a stats file shared across broker restarts still lets a query
// distinguish which process instance produced which rows.
func NewStatsStore(path string) (*StatsStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open stats database: %w", err)
	}
	s := &StatsStore{db: db, runID: uuid.NewString()}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init stats schema: %w", err)
	}
	return s, nil
}

func (s *StatsStore) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		recorded_at DATETIME NOT NULL,
		requests INTEGER NOT NULL,
		replies INTEGER NOT NULL,
		heartbeats_sent INTEGER NOT NULL,
		heartbeats_received INTEGER NOT NULL,
		services INTEGER NOT NULL,
		workers INTEGER NOT NULL
	)`)
	return err
}

// Close releases the underlying database handle.
func (s *StatsStore) Close() error {
	return s.db.Close()
}

// Record writes one point-in-time snapshot.
func (s *StatsStore) Record(ctx context.Context, snap mdp.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, recorded_at, requests, replies, heartbeats_sent, heartbeats_received, services, workers)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, time.Now(), snap.Stats.Requests, snap.Stats.Replies,
		snap.Stats.HeartbeatsSent, snap.Stats.HeartbeatsReceived,
		snap.Stats.Services, snap.Stats.Workers)
	return err
}

// SnapshotPoint is one historical row read back from the store.
type SnapshotPoint struct {
	RunID              string
	RecordedAt         time.Time
	Requests           int64
	Replies            int64
	HeartbeatsSent     int64
	HeartbeatsReceived int64
	Services           int
	Workers            int
}

// Recent returns up to limit most-recent snapshot rows, newest first,
// across all run IDs ever written to this database.
func (s *StatsStore) Recent(ctx context.Context, limit int) ([]SnapshotPoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, recorded_at, requests, replies, heartbeats_sent, heartbeats_received, services, workers
		 FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent snapshots: %w", err)
	}
	defer rows.Close()

	var points []SnapshotPoint
	for rows.Next() {
		var p SnapshotPoint
		if err := rows.Scan(&p.RunID, &p.RecordedAt, &p.Requests, &p.Replies, &p.HeartbeatsSent, &p.HeartbeatsReceived, &p.Services, &p.Workers); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Collector periodically records broker snapshots into a StatsStore until
// its context is cancelled.
type Collector struct {
	broker *mdp.Broker
	store  *StatsStore
	period time.Duration
}

// NewCollector builds a Collector that polls broker every period.
func NewCollector(broker *mdp.Broker, store *StatsStore, period time.Duration) *Collector {
	if period <= 0 {
		period = 10 * time.Second
	}
	return &Collector{broker: broker, store: store, period: period}
}

// Run blocks, recording snapshots until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap, err := c.broker.Snapshot(ctx)
			if err != nil {
				continue
			}
			_ = c.store.Record(ctx, snap)
		}
	}
}
