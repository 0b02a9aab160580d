package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/logger"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/metrics"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/planner"
)

// MissionResult is what the supervisor reports back once a mission ends.
type MissionResult struct {
	MissionID string                  `json:"mission_id"`
	Request   string                  `json:"request"`
	Status    mission.MissionStatus   `json:"status"`
	Output    string                  `json:"output,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Metrics   *metrics.MissionMetrics `json:"metrics,omitempty"`
}

// Supervisor owns the mission work queue. Missions run one at a time in
// submission order; each gets its own cancellable context registered by ID.
type Supervisor struct {
	coord *Coordinator
	store *mission.Store

	queue   chan string
	Results chan MissionResult

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	recent  string
	history []planner.Turn
}

func NewSupervisor(coord *Coordinator, store *mission.Store) *Supervisor {
	return &Supervisor{
		coord:   coord,
		store:   store,
		queue:   make(chan string, 100),
		Results: make(chan MissionResult, 100),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start launches the queue consumer. It stops when ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case id := <-s.queue:
				s.runOne(ctx, id)
			}
		}
	}()
}

// Submit creates a mission for the request and enqueues it. The returned ID
// is usable immediately for status reads and cancellation.
func (s *Supervisor) Submit(request string) string {
	m := s.store.CreateMission(request)
	logger.Log.Printf("[supervisor] mission %s queued: %q", m.ID, request)
	s.queue <- m.ID
	return m.ID
}

// Cancel stops the running mission with the given ID.
func (s *Supervisor) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.cancels[id]
	if !ok {
		return fmt.Errorf("mission %s is not running", id)
	}
	cancel()
	return nil
}

// CancelMostRecent stops the most recently started mission and returns its ID.
func (s *Supervisor) CancelMostRecent() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recent == "" {
		return "", fmt.Errorf("no mission is currently running")
	}
	cancel, ok := s.cancels[s.recent]
	if !ok {
		return "", fmt.Errorf("no mission is currently running")
	}
	cancel()
	return s.recent, nil
}

func (s *Supervisor) runOne(ctx context.Context, id string) {
	mctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels[id] = cancel
	s.recent = id
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, id)
		if s.recent == id {
			s.recent = ""
		}
		s.mu.Unlock()
	}()

	m, _ := s.store.Mission(id)
	logger.Log.Printf("[supervisor] mission %s starting: %q", id, m.Request)

	s.mu.Lock()
	history := append([]planner.Turn(nil), s.history...)
	s.mu.Unlock()

	mm, output, err := s.coord.Run(mctx, id, history)

	final, _ := s.store.Mission(id)
	result := MissionResult{
		MissionID: id,
		Request:   final.Request,
		Status:    final.Status,
		Output:    output,
		Metrics:   mm,
	}
	if err != nil {
		result.Error = err.Error()
	}

	turn := planner.Turn{Request: final.Request, Plan: s.planSummary(id), Error: result.Error}
	s.mu.Lock()
	s.history = append(s.history, turn)
	if len(s.history) > 10 {
		s.history = s.history[len(s.history)-10:]
	}
	s.mu.Unlock()

	logger.Log.Printf("[supervisor] mission %s finished: status=%s err=%q", id, final.Status, result.Error)
	select {
	case s.Results <- result:
	default:
		logger.Log.Printf("[supervisor] result channel full, dropped result for mission %s", id)
	}
}

// planSummary renders the mission's tasks as compact JSON for the planner's
// conversation history.
func (s *Supervisor) planSummary(missionID string) string {
	tasks := s.store.Tasks(missionID)
	drafts := make([]planner.TaskDraft, 0, len(tasks))
	for _, t := range tasks {
		drafts = append(drafts, planner.TaskDraft{
			ID:          t.ID,
			Description: t.Description,
			DependsOn:   t.DependsOn,
			Tool:        t.Tool,
		})
	}
	b, err := json.Marshal(drafts)
	if err != nil {
		var ids []string
		for _, t := range tasks {
			ids = append(ids, t.ID)
		}
		return strings.Join(ids, ", ")
	}
	return string(b)
}
