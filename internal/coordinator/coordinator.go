// Package coordinator drives missions end to end: classify the request,
// obtain a plan, delegate tasks to workers, then execute under the plan's
// concurrency discipline while the mission store tracks every transition.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/classifier"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/graph"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/llm"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/logger"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/metrics"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/planner"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/registry"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/tools"
)

// ErrCollaborationExhausted means the collaborative thread hit the turn cap
// without any worker declaring the work complete.
var ErrCollaborationExhausted = errors.New("collaboration turn limit exhausted")

// fastPathConfidence is the floor for skipping the model planner entirely
// and building a chained tool plan from the classifier detections.
const fastPathConfidence = 70

// Params collects the coordinator's collaborators and tunables.
type Params struct {
	Store   *mission.Store
	Workers *registry.Registry
	Planner *planner.Generator
	Engine  *tools.Engine
	Client  llm.Client
	Model   string

	MaxParallel int
	MaxTurns    int
	PlanTimeout time.Duration
}

// Coordinator executes missions. One instance serves all missions; per-run
// state lives on the stack and in the mission store.
type Coordinator struct {
	store   *mission.Store
	workers *registry.Registry
	planner *planner.Generator
	engine  *tools.Engine
	client  llm.Client
	model   string

	maxParallel int
	maxTurns    int
	planTimeout time.Duration
}

func New(p Params) *Coordinator {
	if p.MaxParallel <= 0 {
		p.MaxParallel = 16
	}
	if p.MaxTurns <= 0 {
		p.MaxTurns = 50
	}
	if p.PlanTimeout <= 0 {
		p.PlanTimeout = 20 * time.Second
	}
	if p.Model == "" && p.Client != nil {
		p.Model = p.Client.DefaultModel()
	}
	return &Coordinator{
		store:       p.Store,
		workers:     p.Workers,
		planner:     p.Planner,
		engine:      p.Engine,
		client:      p.Client,
		model:       p.Model,
		maxParallel: p.MaxParallel,
		maxTurns:    p.MaxTurns,
		planTimeout: p.PlanTimeout,
	}
}

// Run takes a created mission through planning, delegation and execution.
// It returns the mission metrics and the aggregated output of the plan's
// final tasks.
func (c *Coordinator) Run(ctx context.Context, missionID string, history []planner.Turn) (*metrics.MissionMetrics, string, error) {
	mm := &metrics.MissionMetrics{MissionID: missionID, Start: time.Now()}
	defer func() {
		mm.End = time.Now()
		mm.Finalize()
	}()

	m, ok := c.store.Mission(missionID)
	if !ok {
		return mm, "", mission.ErrUnknownMission
	}

	det := classifier.Classify(m.Request)
	plan, err := c.buildPlan(ctx, m, det, history)
	if err != nil {
		if ctx.Err() != nil {
			c.store.CancelMission(missionID)
			return mm, "", ctx.Err()
		}
		c.store.FailMission(missionID, err.Error())
		return mm, "", err
	}

	discipline := disciplineFor(plan, det)
	mm.Discipline = string(discipline)

	drafts := make([]*mission.Task, 0, len(plan.Tasks))
	for _, d := range plan.Tasks {
		drafts = append(drafts, &mission.Task{
			ID:          d.ID,
			Description: d.Description,
			Tool:        d.Tool,
			DependsOn:   d.DependsOn,
		})
	}
	if err := c.store.AttachPlan(missionID, plan.Version, discipline, drafts); err != nil {
		return mm, "", err
	}

	g, err := planner.Graph(plan)
	if err != nil {
		c.store.FailMission(missionID, err.Error())
		return mm, "", err
	}

	c.delegate(missionID, discipline)
	c.store.SetMissionPhase(missionID, mission.MissionExecuting)

	logger.Log.Printf("[coordinator] mission %s executing %d task(s), discipline=%s", missionID, len(plan.Tasks), discipline)

	switch discipline {
	case mission.DisciplineCollaborative:
		err = c.executeCollaborative(ctx, missionID, g, mm)
	case mission.DisciplineParallel:
		err = c.executeParallel(ctx, missionID, g, mm)
	default:
		err = c.executeSequential(ctx, missionID, g, mm)
	}

	if ctx.Err() != nil {
		c.store.CancelMission(missionID)
		return mm, "", ctx.Err()
	}

	final, _ := c.store.Mission(missionID)
	mm.Succeeded = final.Status == mission.MissionCompleted
	output := c.aggregateOutput(missionID, g)
	if err != nil {
		return mm, output, err
	}
	if final.Status == mission.MissionFailed {
		return mm, output, errors.New(final.Error)
	}
	return mm, output, nil
}

// buildPlan either takes the classifier fast path (high-confidence tool-only
// request) or asks the model planner. A SuggestedRoute always goes through
// the planner so the heavier workflow gets a say.
func (c *Coordinator) buildPlan(ctx context.Context, m mission.Mission, det classifier.Detection, history []planner.Turn) (*planner.Plan, error) {
	if det.SuggestedRoute == "" && det.Confidence >= fastPathConfidence && c.allToolBacked(det) {
		return fastPathPlan(m.PlanVersion+1, m.Request, det), nil
	}
	pctx, cancel := context.WithTimeout(ctx, c.planTimeout)
	defer cancel()
	return c.planner.GeneratePlan(pctx, m.PlanVersion+1, m.Request, c.workers.Summary(), history)
}

func (c *Coordinator) allToolBacked(det classifier.Detection) bool {
	if len(det.Capabilities) == 0 {
		return false
	}
	for _, cap := range det.Capabilities {
		if !c.engine.Has(string(cap)) {
			return false
		}
	}
	return true
}

// fastPathPlan chains one task per detected capability in detection order,
// each feeding its output into the next.
func fastPathPlan(version int, request string, det classifier.Detection) *planner.Plan {
	plan := &planner.Plan{Version: version}
	var prev string
	for i, cap := range det.Capabilities {
		id := fmt.Sprintf("task-%d", i+1)
		draft := planner.TaskDraft{ID: id, Description: request, Tool: string(cap)}
		if prev != "" {
			draft.DependsOn = []string{prev}
		}
		plan.Tasks = append(plan.Tasks, draft)
		prev = id
	}
	return plan
}

// disciplineFor derives the concurrency pattern: the planner's collaborative
// flag wins, otherwise a plan whose first wave holds more than one task runs
// parallel, and a single chain runs sequential.
func disciplineFor(plan *planner.Plan, det classifier.Detection) mission.Discipline {
	if plan.Collaborative || det.SuggestedRoute == classifier.CapMultiAgent {
		return mission.DisciplineCollaborative
	}
	g, err := planner.Graph(plan)
	if err == nil && len(g.Ready(nil)) > 1 {
		return mission.DisciplineParallel
	}
	return mission.DisciplineSequential
}

// delegate assigns a worker to every task, blocking tasks nothing can serve.
func (c *Coordinator) delegate(missionID string, d mission.Discipline) {
	busy := make(map[string]bool)
	for _, t := range c.store.Tasks(missionID) {
		w, err := c.workers.Select(t.Description, requiredTools(t, c.engine), d, busy)
		if err != nil {
			logger.Log.Printf("[coordinator] task %s: %v", t.ID, err)
			c.store.BlockTask(t.ID, "no worker matched the task requirements")
			continue
		}
		c.store.AssignWorker(t.ID, w.ID)
		busy[w.ID] = true
	}
}

// requiredTools lists the tool chains a task will exercise, either pinned on
// the task or inferred from its description.
func requiredTools(t mission.Task, engine *tools.Engine) []string {
	if t.Tool != "" {
		return []string{t.Tool}
	}
	det := classifier.Classify(t.Description)
	var out []string
	for _, cap := range det.Capabilities {
		if engine.Has(string(cap)) {
			out = append(out, string(cap))
		}
	}
	return out
}

// dependencyContext composes completed dependency results into the context
// block handed to the next task.
func (c *Coordinator) dependencyContext(t mission.Task) string {
	var sb strings.Builder
	for _, depID := range t.DependsOn {
		dep, ok := c.store.Task(depID)
		if ok && dep.Result != "" {
			fmt.Fprintf(&sb, "[%s] %s\n", depID, dep.Result)
		}
	}
	return sb.String()
}

// aggregateOutput joins the results of the plan's leaf tasks (tasks nothing
// depends on) into the mission's final answer.
func (c *Coordinator) aggregateOutput(missionID string, g *graph.Graph) string {
	var parts []string
	for _, t := range c.store.Tasks(missionID) {
		if len(g.Downstream(t.ID)) > 0 {
			continue
		}
		if t.Result != "" {
			parts = append(parts, t.Result)
		}
	}
	return strings.Join(parts, "\n\n")
}

// workerFor resolves the assigned worker, falling back to an anonymous
// generalist so execution never stalls on registry drift.
func (c *Coordinator) workerFor(t mission.Task) registry.Worker {
	if w, ok := c.workers.Get(t.WorkerID); ok {
		return w
	}
	return registry.Worker{ID: t.WorkerID, Name: "Generalist", PromptTemplate: "generalist"}
}
