// Package archive persists terminal tasks and drain runs to SQLite.
// It replaces the unbounded in-memory history list with durable storage
// that can be queried and pruned.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calder/relay/internal/db"
	"github.com/calder/relay/internal/tasks"
)

// Store reads and writes archived tasks.
type Store struct {
	db *db.DB
}

// DrainRecord summarizes one drain of the queue (a scheduled run or a
// one-shot `relay run`).
type DrainRecord struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Submitted int
	Completed int
	Failed    int
	Source    string // "run", "daemon", "spool"
	Error     string
}

// Summary aggregates archived tasks for one day.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	ByType    map[string]int
	ByAgent   map[string]int
}

// New creates a store on the given database.
func New(database *db.DB) (*Store, error) {
	if database == nil || database.SQL() == nil {
		return nil, fmt.Errorf("archive requires an open database")
	}
	return &Store{db: database}, nil
}

// Record persists a terminal task. Recording the same task id again
// overwrites the earlier row.
func (s *Store) Record(t *tasks.Task) error {
	if !t.IsTerminal() {
		return fmt.Errorf("task %s is %s, only terminal tasks are archived", t.ID, t.Status)
	}

	_, err := s.db.SQL().Exec(`
		INSERT INTO tasks (id, type, content, priority, status, agent, error, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			agent = excluded.agent,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at`,
		t.ID, t.Type, t.Content, t.Priority, string(t.Status), t.AssignedAgent,
		nullString(t.Error), t.CreatedAt, nullTime(t.StartedAt), nullTime(t.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("archiving task %s: %w", t.ID, err)
	}
	return nil
}

// RecordDrain persists a drain record. An empty id gets a generated one.
func (s *Store) RecordDrain(r DrainRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	_, err := s.db.SQL().Exec(`
		INSERT INTO drains (id, start_time, end_time, submitted, completed, failed, source, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartTime, nullTime(r.EndTime), r.Submitted, r.Completed, r.Failed,
		r.Source, nullString(r.Error),
	)
	if err != nil {
		return fmt.Errorf("recording drain: %w", err)
	}
	return nil
}

// History returns the most recently completed tasks, newest first.
func (s *Store) History(n int) ([]*tasks.Task, error) {
	if n <= 0 {
		n = 50
	}

	rows, err := s.db.SQL().Query(`
		SELECT id, type, content, priority, status, agent, error, created_at, started_at, completed_at
		FROM tasks ORDER BY completed_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*tasks.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Drains returns the most recent drain records, newest first.
func (s *Store) Drains(n int) ([]DrainRecord, error) {
	if n <= 0 {
		n = 10
	}

	rows, err := s.db.SQL().Query(`
		SELECT id, start_time, end_time, submitted, completed, failed, source, error
		FROM drains ORDER BY start_time DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying drains: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DrainRecord
	for rows.Next() {
		var r DrainRecord
		var end sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.StartTime, &end, &r.Submitted, &r.Completed, &r.Failed, &r.Source, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning drain: %w", err)
		}
		r.EndTime = end.Time
		r.Error = errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// TodaySummary aggregates tasks completed since local midnight.
func (s *Store) TodaySummary() (Summary, error) {
	return s.SummarySince(startOfDay(time.Now()))
}

// SummarySince aggregates tasks completed at or after the given time.
func (s *Store) SummarySince(since time.Time) (Summary, error) {
	summary := Summary{
		ByType:  make(map[string]int),
		ByAgent: make(map[string]int),
	}

	rows, err := s.db.SQL().Query(`
		SELECT type, agent, status FROM tasks WHERE completed_at >= ?`, since)
	if err != nil {
		return summary, fmt.Errorf("querying summary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var taskType, agent, status string
		if err := rows.Scan(&taskType, &agent, &status); err != nil {
			return summary, fmt.Errorf("scanning summary row: %w", err)
		}
		summary.Total++
		if status == string(tasks.StatusFailed) {
			summary.Failed++
		} else {
			summary.Completed++
		}
		summary.ByType[taskType]++
		if agent != "" {
			summary.ByAgent[agent]++
		}
	}
	return summary, rows.Err()
}

// Prune deletes archived tasks and drains completed before the cutoff.
// Returns the number of task rows removed.
func (s *Store) Prune(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	res, err := s.db.SQL().Exec(`DELETE FROM tasks WHERE completed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning tasks: %w", err)
	}
	removed, _ := res.RowsAffected()

	if _, err := s.db.SQL().Exec(`DELETE FROM drains WHERE start_time < ?`, cutoff); err != nil {
		return int(removed), fmt.Errorf("pruning drains: %w", err)
	}
	return int(removed), nil
}

func scanTask(rows *sql.Rows) (*tasks.Task, error) {
	var t tasks.Task
	var status string
	var errMsg sql.NullString
	var started, completed sql.NullTime

	err := rows.Scan(&t.ID, &t.Type, &t.Content, &t.Priority, &status, &t.AssignedAgent,
		&errMsg, &t.CreatedAt, &started, &completed)
	if err != nil {
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	t.Status = tasks.Status(status)
	t.Error = errMsg.String
	t.StartedAt = started.Time
	t.CompletedAt = completed.Time
	return &t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
