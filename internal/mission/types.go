// Package mission holds the data model and the authoritative state store for
// the orchestration core. All mutation flows through Store transition methods.
package mission

import "time"

// MissionStatus represents the lifecycle state of a mission.
type MissionStatus string

const (
	MissionPlanning   MissionStatus = "planning"
	MissionDelegating MissionStatus = "delegating"
	MissionExecuting  MissionStatus = "executing"
	MissionCompleted  MissionStatus = "completed"
	MissionFailed     MissionStatus = "failed"
	MissionCancelled  MissionStatus = "cancelled"
)

// Terminal returns true once a mission can no longer change state.
func (s MissionStatus) Terminal() bool {
	return s == MissionCompleted || s == MissionFailed || s == MissionCancelled
}

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskBlocked    TaskStatus = "blocked"
	TaskCancelled  TaskStatus = "cancelled"
)

// Terminal returns true once a task can no longer change state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskBlocked, TaskCancelled:
		return true
	default:
		return false
	}
}

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskFailed, TaskBlocked, TaskCancelled:
		return true
	default:
		return false
	}
}

// ToolCallStatus represents the lifecycle state of a tool invocation.
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallRunning   ToolCallStatus = "running"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallFailed    ToolCallStatus = "failed"
	ToolCallCancelled ToolCallStatus = "cancelled"
)

// WorkerStatus is the live state of a worker during a mission. Workers are
// read-mostly reference data; only this field and Progress mutate.
type WorkerStatus string

const (
	WorkerIdle      WorkerStatus = "idle"
	WorkerThinking  WorkerStatus = "thinking"
	WorkerWorking   WorkerStatus = "working"
	WorkerBlocked   WorkerStatus = "blocked"
	WorkerCompleted WorkerStatus = "completed"
	WorkerError     WorkerStatus = "error"
)

// Discipline is the concurrency pattern governing how a plan's tasks execute.
type Discipline string

const (
	DisciplineSequential    Discipline = "sequential"
	DisciplineParallel      Discipline = "parallel"
	DisciplineCollaborative Discipline = "collaborative"
)

// Mission is one user-initiated unit of work.
type Mission struct {
	ID          string        `json:"id"`
	Request     string        `json:"request"`
	Status      MissionStatus `json:"status"`
	TaskIDs     []string      `json:"task_ids"`
	PlanVersion int           `json:"plan_version"`
	Discipline  Discipline    `json:"discipline,omitempty"`
	// FailedTaskIDs names tasks that ended failed, carried on mission failure
	// and on partial-success completion alike.
	FailedTaskIDs []string   `json:"failed_task_ids,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Task is one decomposed unit of a mission's plan.
type Task struct {
	ID          string     `json:"id"`
	MissionID   string     `json:"mission_id"`
	Description string     `json:"description"`
	// Tool pins the task to one capability when the plan already knows it;
	// empty means the worker decides from the description.
	Tool     string `json:"tool,omitempty"`
	WorkerID string `json:"worker_id,omitempty"`
	Status      TaskStatus `json:"status"`
	DependsOn   []string   `json:"depends_on,omitempty"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Attempt records one provider try within a tool call's fallback chain.
// Attempts are append-only so the audit trail for fallback reasoning survives.
type Attempt struct {
	Provider  string    `json:"provider"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// ToolCall is one invocation of an external capability on behalf of a task.
type ToolCall struct {
	ID        string         `json:"id"`
	TaskID    string         `json:"task_id"`
	Tool      string         `json:"tool"`
	Params    map[string]any `json:"params"`
	Status    ToolCallStatus `json:"status"`
	Provider  string         `json:"provider,omitempty"` // provenance of the successful attempt
	Attempts  []Attempt      `json:"attempts,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
}

// CollaborationMessage is a timestamped note exchanged during the
// collaborative discipline. Immutable once created.
type CollaborationMessage struct {
	ID        string    `json:"id"`
	MissionID string    `json:"mission_id"`
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
	Kind      string    `json:"kind"` // "turn", "handoff", "arbitration", "user_request"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkerState is the mutable per-mission view of a worker.
type WorkerState struct {
	WorkerID string       `json:"worker_id"`
	Status   WorkerStatus `json:"status"`
	Progress int          `json:"progress"` // 0-100
}
