package metrics

import "time"

type ToolCallMetrics struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	Provider   string    `json:"provider"`
	Attempts   int       `json:"attempts"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Err        string    `json:"err,omitempty"`
}

type TaskMetrics struct {
	TaskID     string            `json:"task_id"`
	WorkerID   string            `json:"worker_id,omitempty"`
	Status     string            `json:"status"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	DurationMs int64             `json:"duration_ms"`
	ToolCalls  []ToolCallMetrics `json:"tool_calls,omitempty"`
}

type MissionMetrics struct {
	MissionID  string        `json:"mission_id"`
	Discipline string        `json:"discipline"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	DurationMs int64         `json:"duration_ms"`
	Succeeded  bool          `json:"succeeded"`
	Turns      int           `json:"turns,omitempty"` // collaborative missions only
	Tasks      []TaskMetrics `json:"tasks"`
}

// Finalize computes the task's derived fields.
func (t *TaskMetrics) Finalize() {
	t.DurationMs = t.End.Sub(t.Start).Milliseconds()
}

// Finalize computes the mission's derived fields.
func (m *MissionMetrics) Finalize() {
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
}
