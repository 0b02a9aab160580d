package mission

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownMission     = errors.New("unknown mission")
	ErrUnknownTask        = errors.New("unknown task")
	ErrDependencyNotMet   = errors.New("dependency not completed")
	ErrTaskAlreadyRunning = errors.New("task already in progress")
	ErrTerminalState      = errors.New("entity is in a terminal state")
)

// Saver persists state snapshots. Implementations must not block the caller;
// the in-memory store stays the source of truth during a session.
type Saver interface {
	SaveMission(m Mission)
	SaveTask(t Task)
	SaveToolCall(c ToolCall)
	SaveMessage(msg CollaborationMessage)
}

// Store is the single authoritative container for mission state. Every
// mutation goes through a transition method under one lock, so two parallel
// tasks completing at the same instant cannot corrupt the derived mission
// status. Transitions are idempotent: re-applying one with the same payload
// is a no-op.
type Store struct {
	mu       sync.Mutex
	missions map[string]*Mission
	tasks    map[string]*Task
	calls    map[string]*ToolCall
	messages map[string][]CollaborationMessage
	workers  map[string]map[string]*WorkerState // missionID -> workerID -> state

	emitter *Emitter
	saver   Saver

	// SuccessFraction is the parallel partial-failure policy: the fraction of
	// tasks that must complete for the mission to count as completed.
	SuccessFraction float64
}

func NewStore(emitter *Emitter) *Store {
	if emitter == nil {
		emitter = NewEmitter()
	}
	return &Store{
		missions:        make(map[string]*Mission),
		tasks:           make(map[string]*Task),
		calls:           make(map[string]*ToolCall),
		messages:        make(map[string][]CollaborationMessage),
		workers:         make(map[string]map[string]*WorkerState),
		emitter:         emitter,
		SuccessFraction: 1.0,
	}
}

// SetSaver attaches a persistence collaborator. Saves are fire-and-forget.
func (s *Store) SetSaver(sv Saver) {
	s.mu.Lock()
	s.saver = sv
	s.mu.Unlock()
}

func (s *Store) Emitter() *Emitter { return s.emitter }

// CreateMission registers a new mission in the planning phase.
func (s *Store) CreateMission(request string) *Mission {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &Mission{
		ID:        uuid.New().String()[:8],
		Request:   request,
		Status:    MissionPlanning,
		CreatedAt: time.Now(),
	}
	s.missions[m.ID] = m
	s.workers[m.ID] = make(map[string]*WorkerState)
	s.emitMission(m)
	s.save(m, nil, nil, nil)
	return snapshotMission(m)
}

// AttachPlan records the plan's tasks and moves the mission to delegating.
// Replanning attaches a higher version; the prior tasks stay in history.
func (s *Store) AttachPlan(missionID string, version int, d Discipline, tasks []*Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.missions[missionID]
	if !ok {
		return ErrUnknownMission
	}
	if m.Status.Terminal() {
		return fmt.Errorf("attach plan to mission %s: %w", missionID, ErrTerminalState)
	}
	if version <= m.PlanVersion {
		return fmt.Errorf("plan version %d not newer than %d", version, m.PlanVersion)
	}

	m.PlanVersion = version
	m.Discipline = d
	m.Status = MissionDelegating
	for _, t := range tasks {
		t.MissionID = missionID
		t.Status = TaskPending
		t.CreatedAt = time.Now()
		s.tasks[t.ID] = t
		m.TaskIDs = append(m.TaskIDs, t.ID)
		s.emitTask(t)
		s.save(nil, t, nil, nil)
	}
	s.emitMission(m)
	s.save(m, nil, nil, nil)
	return nil
}

// AssignWorker records the delegation decision for a task.
func (s *Store) AssignWorker(taskID, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return ErrUnknownTask
	}
	if t.WorkerID == workerID {
		return nil // idempotent re-apply
	}
	if t.Status.Terminal() || t.Status == TaskInProgress {
		return fmt.Errorf("assign worker to task %s: %w", taskID, ErrTerminalState)
	}
	t.WorkerID = workerID
	s.emitTask(t)
	s.save(nil, t, nil, nil)
	return nil
}

// StartTask moves a task to in_progress. The guard fails if any dependency
// is not completed, or if the task is already running (at most one concurrent
// execution per task).
func (s *Store) StartTask(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return ErrUnknownTask
	}
	if t.Status == TaskInProgress {
		return fmt.Errorf("start task %s: %w", taskID, ErrTaskAlreadyRunning)
	}
	if t.Status.Terminal() {
		return fmt.Errorf("start task %s from %s: %w", taskID, t.Status, ErrTerminalState)
	}
	for _, depID := range t.DependsOn {
		dep, ok := s.tasks[depID]
		if !ok || dep.Status != TaskCompleted {
			return fmt.Errorf("start task %s: dependency %s: %w", taskID, depID, ErrDependencyNotMet)
		}
	}
	t.Status = TaskInProgress
	s.emitTask(t)
	s.save(nil, t, nil, nil)
	s.recomputeMission(t.MissionID)
	return nil
}

// CompleteTask records a task result. Re-applying with the same result is a
// no-op; any other transition out of a terminal state is rejected.
func (s *Store) CompleteTask(taskID, result string) error {
	return s.finishTask(taskID, TaskCompleted, result, "")
}

// FailTask records a task error.
func (s *Store) FailTask(taskID, errMsg string) error {
	return s.finishTask(taskID, TaskFailed, "", errMsg)
}

// BlockTask marks a task blocked because a dependency failed or no worker
// matched. Blocked is terminal for the current plan version.
func (s *Store) BlockTask(taskID, reason string) error {
	return s.finishTask(taskID, TaskBlocked, "", reason)
}

// CancelTask marks a task cancelled. Distinct from failed: the work was not
// abandoned silently, it was explicitly cut short.
func (s *Store) CancelTask(taskID string) error {
	return s.finishTask(taskID, TaskCancelled, "", "mission cancelled")
}

func (s *Store) finishTask(taskID string, status TaskStatus, result, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return ErrUnknownTask
	}
	if t.Status == status && t.Result == result && t.Error == errMsg {
		return nil // duplicate status event, e.g. a network retry
	}
	if t.Status.Terminal() {
		return fmt.Errorf("task %s already %s: %w", taskID, t.Status, ErrTerminalState)
	}
	t.Status = status
	t.Result = result
	t.Error = errMsg
	now := time.Now()
	t.CompletedAt = &now
	s.emitTask(t)
	s.save(nil, t, nil, nil)
	s.recomputeMission(t.MissionID)
	return nil
}

// SetMissionPhase moves a non-terminal mission between pre-execution phases.
func (s *Store) SetMissionPhase(missionID string, status MissionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.missions[missionID]
	if !ok {
		return ErrUnknownMission
	}
	if m.Status == status {
		return nil
	}
	if m.Status.Terminal() {
		return fmt.Errorf("mission %s already %s: %w", missionID, m.Status, ErrTerminalState)
	}
	m.Status = status
	s.emitMission(m)
	s.save(m, nil, nil, nil)
	return nil
}

// FailMission terminates a mission with a mission-level error (plan
// generation failure, collaboration exhaustion).
func (s *Store) FailMission(missionID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.missions[missionID]
	if !ok {
		return ErrUnknownMission
	}
	if m.Status == MissionFailed && m.Error == errMsg {
		return nil
	}
	if m.Status.Terminal() {
		return fmt.Errorf("mission %s already %s: %w", missionID, m.Status, ErrTerminalState)
	}
	m.Status = MissionFailed
	m.Error = errMsg
	now := time.Now()
	m.CompletedAt = &now
	s.emitMission(m)
	s.save(m, nil, nil, nil)
	return nil
}

// CancelMission marks the mission and every non-terminal task cancelled.
func (s *Store) CancelMission(missionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.missions[missionID]
	if !ok {
		return ErrUnknownMission
	}
	if m.Status == MissionCancelled {
		return nil
	}
	if m.Status.Terminal() {
		return fmt.Errorf("mission %s already %s: %w", missionID, m.Status, ErrTerminalState)
	}
	for _, id := range m.TaskIDs {
		t := s.tasks[id]
		if t == nil || t.Status.Terminal() {
			continue
		}
		t.Status = TaskCancelled
		t.Error = "mission cancelled"
		now := time.Now()
		t.CompletedAt = &now
		s.emitTask(t)
		s.save(nil, t, nil, nil)
	}
	m.Status = MissionCancelled
	now := time.Now()
	m.CompletedAt = &now
	s.emitMission(m)
	s.save(m, nil, nil, nil)
	return nil
}

// RecordToolCall upserts a tool call snapshot. Completed calls are append-only:
// a terminal call cannot be rewritten.
func (s *Store) RecordToolCall(c ToolCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.calls[c.ID]; ok {
		switch prev.Status {
		case ToolCallCompleted, ToolCallFailed, ToolCallCancelled:
			if prev.Status == c.Status {
				return nil
			}
			return fmt.Errorf("tool call %s already %s: %w", c.ID, prev.Status, ErrTerminalState)
		}
	}
	stored := c
	s.calls[c.ID] = &stored
	s.emitter.Emit(StatusEvent{
		EntityType: "tool_call",
		EntityID:   c.ID,
		MissionID:  s.missionIDForTask(c.TaskID),
		NewStatus:  string(c.Status),
		Payload:    map[string]any{"tool": c.Tool, "provider": c.Provider},
	})
	if s.saver != nil {
		s.saver.SaveToolCall(stored)
	}
	return nil
}

// AppendMessage records an immutable collaboration message.
func (s *Store) AppendMessage(msg CollaborationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.missions[msg.MissionID]; !ok {
		return ErrUnknownMission
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()[:8]
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.messages[msg.MissionID] = append(s.messages[msg.MissionID], msg)
	s.emitter.Emit(StatusEvent{
		EntityType: "message",
		EntityID:   msg.ID,
		MissionID:  msg.MissionID,
		NewStatus:  msg.Kind,
		Payload:    map[string]any{"from": msg.From, "to": msg.To, "content": msg.Content},
	})
	if s.saver != nil {
		s.saver.SaveMessage(msg)
	}
	return nil
}

// SetWorkerState updates a worker's live status and progress for a mission.
// Only the execution coordinator calls this.
func (s *Store) SetWorkerState(missionID, workerID string, status WorkerStatus, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workers[missionID]
	if !ok {
		return ErrUnknownMission
	}
	st := ws[workerID]
	if st == nil {
		st = &WorkerState{WorkerID: workerID}
		ws[workerID] = st
	}
	if st.Status == status && st.Progress == progress {
		return nil
	}
	st.Status = status
	st.Progress = progress
	s.emitter.Emit(StatusEvent{
		EntityType: "worker",
		EntityID:   workerID,
		MissionID:  missionID,
		NewStatus:  string(status),
		Payload:    map[string]any{"progress": progress},
	})
	return nil
}

// Mission returns a copy of the mission record.
func (s *Store) Mission(id string) (Mission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[id]
	if !ok {
		return Mission{}, false
	}
	return *snapshotMission(m), true
}

// Task returns a copy of the task record.
func (s *Store) Task(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *snapshotTask(t), true
}

// Tasks returns copies of a mission's tasks in plan order.
func (s *Store) Tasks(missionID string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.missions[missionID]
	if !ok {
		return nil
	}
	out := make([]Task, 0, len(m.TaskIDs))
	for _, id := range m.TaskIDs {
		if t := s.tasks[id]; t != nil {
			out = append(out, *snapshotTask(t))
		}
	}
	return out
}

// Messages returns the mission's collaboration thread in timestamp order.
func (s *Store) Messages(missionID string) []CollaborationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[missionID]
	out := make([]CollaborationMessage, len(msgs))
	copy(out, msgs)
	return out
}

// ToolCalls returns copies of the tool calls issued by a task, in issue order.
func (s *Store) ToolCalls(taskID string) []ToolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ToolCall
	for _, c := range s.calls {
		if c.TaskID == taskID {
			out = append(out, *c)
		}
	}
	sortToolCalls(out)
	return out
}

// recomputeMission derives the mission status from its tasks' statuses.
// Mission status is never stored redundantly against the tasks; it is a pure
// function of them plus the partial-failure policy. Caller holds the lock.
func (s *Store) recomputeMission(missionID string) {
	m, ok := s.missions[missionID]
	if !ok || m.Status.Terminal() || len(m.TaskIDs) == 0 {
		return
	}

	var completed, failed, blocked, cancelled, terminal int
	var failedIDs []string
	for _, id := range m.TaskIDs {
		t := s.tasks[id]
		if t == nil {
			continue
		}
		if t.Status.Terminal() {
			terminal++
		}
		switch t.Status {
		case TaskCompleted:
			completed++
		case TaskFailed:
			failed++
			failedIDs = append(failedIDs, id)
		case TaskBlocked:
			blocked++
		case TaskCancelled:
			cancelled++
		}
	}

	prev := m.Status
	if terminal < len(m.TaskIDs) {
		m.Status = MissionExecuting
	} else {
		m.FailedTaskIDs = failedIDs
		frac := s.SuccessFraction
		if frac <= 0 || frac > 1 {
			frac = 1.0
		}
		switch {
		case cancelled > 0 && completed+failed+blocked == 0:
			m.Status = MissionCancelled
		case float64(completed) >= frac*float64(len(m.TaskIDs)):
			m.Status = MissionCompleted
		default:
			m.Status = MissionFailed
			if m.Error == "" {
				switch {
				case len(failedIDs) > 0:
					m.Error = fmt.Sprintf("task %s failed", failedIDs[0])
				case blocked > 0:
					m.Error = fmt.Sprintf("%d task(s) blocked", blocked)
				}
			}
		}
		now := time.Now()
		m.CompletedAt = &now
	}

	if m.Status != prev {
		s.emitMission(m)
		s.save(m, nil, nil, nil)
	}
}

func (s *Store) missionIDForTask(taskID string) string {
	if t, ok := s.tasks[taskID]; ok {
		return t.MissionID
	}
	return ""
}

func (s *Store) emitMission(m *Mission) {
	payload := map[string]any{"plan_version": m.PlanVersion}
	if m.Error != "" {
		payload["error"] = m.Error
	}
	if len(m.FailedTaskIDs) > 0 {
		payload["failed_task_ids"] = append([]string(nil), m.FailedTaskIDs...)
	}
	s.emitter.Emit(StatusEvent{
		EntityType: "mission",
		EntityID:   m.ID,
		MissionID:  m.ID,
		NewStatus:  string(m.Status),
		Payload:    payload,
	})
}

func (s *Store) emitTask(t *Task) {
	payload := map[string]any{"description": t.Description}
	if t.WorkerID != "" {
		payload["worker_id"] = t.WorkerID
	}
	if t.Error != "" {
		payload["error"] = t.Error
	}
	s.emitter.Emit(StatusEvent{
		EntityType: "task",
		EntityID:   t.ID,
		MissionID:  t.MissionID,
		NewStatus:  string(t.Status),
		Payload:    payload,
	})
}

func (s *Store) save(m *Mission, t *Task, c *ToolCall, msg *CollaborationMessage) {
	if s.saver == nil {
		return
	}
	if m != nil {
		s.saver.SaveMission(*snapshotMission(m))
	}
	if t != nil {
		s.saver.SaveTask(*snapshotTask(t))
	}
	if c != nil {
		s.saver.SaveToolCall(*c)
	}
	if msg != nil {
		s.saver.SaveMessage(*msg)
	}
}

func snapshotMission(m *Mission) *Mission {
	cp := *m
	cp.TaskIDs = append([]string(nil), m.TaskIDs...)
	cp.FailedTaskIDs = append([]string(nil), m.FailedTaskIDs...)
	return &cp
}

func snapshotTask(t *Task) *Task {
	cp := *t
	cp.DependsOn = append([]string(nil), t.DependsOn...)
	return &cp
}

func sortToolCalls(calls []ToolCall) {
	for i := 1; i < len(calls); i++ {
		for j := i; j > 0 && calls[j].StartedAt.Before(calls[j-1].StartedAt); j-- {
			calls[j], calls[j-1] = calls[j-1], calls[j]
		}
	}
}
