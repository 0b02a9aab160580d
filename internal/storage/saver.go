package storage

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/logger"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
)

const saveQueueSize = 256

// Saver implements mission.Saver against SQLite. Snapshots are enqueued and
// written by one background goroutine so state transitions never wait on
// disk. When the queue is full the snapshot is dropped; a later transition
// for the same entity re-saves the row, so history converges anyway.
type Saver struct {
	db    *DB
	queue chan any
	done  chan struct{}
}

// NewSaver starts the background writer.
func NewSaver(db *DB) *Saver {
	s := &Saver{
		db:    db,
		queue: make(chan any, saveQueueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Close drains the queue and stops the writer.
func (s *Saver) Close() {
	close(s.queue)
	<-s.done
}

func (s *Saver) run() {
	defer close(s.done)
	for item := range s.queue {
		var err error
		switch v := item.(type) {
		case mission.Mission:
			err = s.writeMission(v)
		case mission.Task:
			err = s.writeTask(v)
		case mission.ToolCall:
			err = s.writeToolCall(v)
		case mission.CollaborationMessage:
			err = s.writeMessage(v)
		}
		if err != nil {
			logger.Log.Printf("[storage] save failed: %v", err)
		}
	}
}

func (s *Saver) enqueue(item any) {
	select {
	case s.queue <- item:
	default:
		logger.Log.Printf("[storage] save queue full, dropped %T snapshot", item)
	}
}

func (s *Saver) SaveMission(m mission.Mission) { s.enqueue(m) }

func (s *Saver) SaveTask(t mission.Task) { s.enqueue(t) }

func (s *Saver) SaveToolCall(c mission.ToolCall) { s.enqueue(c) }

func (s *Saver) SaveMessage(m mission.CollaborationMessage) { s.enqueue(m) }

func (s *Saver) writeMission(m mission.Mission) error {
	_, err := s.db.Exec(`
		INSERT INTO missions (id, request, status, plan_version, discipline, error, failed_task_ids, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			plan_version = excluded.plan_version,
			discipline = excluded.discipline,
			error = excluded.error,
			failed_task_ids = excluded.failed_task_ids,
			completed_at = excluded.completed_at
	`, m.ID, m.Request, string(m.Status), m.PlanVersion, string(m.Discipline), m.Error,
		strings.Join(m.FailedTaskIDs, ","), formatTime(m.CreatedAt), nullableTime(m.CompletedAt))
	return err
}

func (s *Saver) writeTask(t mission.Task) error {
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, mission_id, description, tool, worker_id, status, depends_on, result, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			worker_id = excluded.worker_id,
			status = excluded.status,
			result = excluded.result,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, t.ID, t.MissionID, t.Description, t.Tool, t.WorkerID, string(t.Status),
		strings.Join(t.DependsOn, ","), t.Result, t.Error, formatTime(t.CreatedAt), nullableTime(t.CompletedAt))
	return err
}

func (s *Saver) writeToolCall(c mission.ToolCall) error {
	params := marshalJSON(c.Params)
	result := marshalJSON(c.Result)
	attempts := marshalJSON(c.Attempts)
	_, err := s.db.Exec(`
		INSERT INTO tool_calls (id, task_id, tool, provider, status, params, result, attempts, error, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			provider = excluded.provider,
			status = excluded.status,
			result = excluded.result,
			attempts = excluded.attempts,
			error = excluded.error,
			ended_at = excluded.ended_at
	`, c.ID, c.TaskID, c.Tool, c.Provider, string(c.Status), params, result, attempts,
		c.Error, formatTime(c.StartedAt), nullableTime(c.EndedAt))
	return err
}

func (s *Saver) writeMessage(m mission.CollaborationMessage) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO messages (id, mission_id, from_worker, to_worker, kind, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.MissionID, m.From, m.To, m.Kind, m.Content, formatTime(m.Timestamp))
	return err
}

// LoadMission reads a persisted mission with its tasks.
func (s *Saver) LoadMission(id string) (mission.Mission, []mission.Task, error) {
	var m mission.Mission
	var status, discipline, failedIDs string
	var errMsg, createdAt sql.NullString
	var completedAt sql.NullString
	row := s.db.QueryRow(`
		SELECT id, request, status, plan_version, discipline, error, failed_task_ids, created_at, completed_at
		FROM missions WHERE id = ?
	`, id)
	if err := row.Scan(&m.ID, &m.Request, &status, &m.PlanVersion, &discipline, &errMsg, &failedIDs, &createdAt, &completedAt); err != nil {
		if err == sql.ErrNoRows {
			return mission.Mission{}, nil, mission.ErrUnknownMission
		}
		return mission.Mission{}, nil, err
	}
	m.Status = mission.MissionStatus(status)
	m.Discipline = mission.Discipline(discipline)
	m.Error = errMsg.String
	if failedIDs != "" {
		m.FailedTaskIDs = strings.Split(failedIDs, ",")
	}
	if createdAt.Valid {
		m.CreatedAt, _ = parseTime(createdAt.String)
	}
	m.CompletedAt = parseNullableTime(completedAt)

	tasks, err := s.tasksFor(id)
	if err != nil {
		return mission.Mission{}, nil, err
	}
	for _, t := range tasks {
		m.TaskIDs = append(m.TaskIDs, t.ID)
	}
	return m, tasks, nil
}

func (s *Saver) tasksFor(missionID string) ([]mission.Task, error) {
	rows, err := s.db.Query(`
		SELECT id, mission_id, description, tool, worker_id, status, depends_on, result, error, created_at, completed_at
		FROM tasks WHERE mission_id = ? ORDER BY created_at, id
	`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []mission.Task
	for rows.Next() {
		var t mission.Task
		var tool, workerID, status, dependsOn, result, errMsg, createdAt sql.NullString
		var completedAt sql.NullString
		if err := rows.Scan(&t.ID, &t.MissionID, &t.Description, &tool, &workerID, &status,
			&dependsOn, &result, &errMsg, &createdAt, &completedAt); err != nil {
			return nil, err
		}
		t.Tool = tool.String
		t.WorkerID = workerID.String
		t.Status = mission.TaskStatus(status.String)
		if dependsOn.String != "" {
			t.DependsOn = strings.Split(dependsOn.String, ",")
		}
		t.Result = result.String
		t.Error = errMsg.String
		if createdAt.Valid {
			t.CreatedAt, _ = parseTime(createdAt.String)
		}
		t.CompletedAt = parseNullableTime(completedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecentMissions lists persisted missions, newest first.
func (s *Saver) RecentMissions(limit int) ([]mission.Mission, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, request, status, plan_version, created_at
		FROM missions ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []mission.Mission
	for rows.Next() {
		var m mission.Mission
		var status, createdAt string
		if err := rows.Scan(&m.ID, &m.Request, &status, &m.PlanVersion, &createdAt); err != nil {
			return nil, err
		}
		m.Status = mission.MissionStatus(status)
		m.CreatedAt, _ = parseTime(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

func marshalJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
