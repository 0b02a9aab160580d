package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/graph"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/logger"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/metrics"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
)

// executeSequential runs the plan one task at a time in topological order.
// A failure blocks every transitive dependent; the mission error names the
// root cause, not the pile-up behind it.
func (c *Coordinator) executeSequential(ctx context.Context, missionID string, g *graph.Graph, mm *metrics.MissionMetrics) error {
	for _, id := range g.TopoOrder() {
		if err := ctx.Err(); err != nil {
			return err
		}

		t, ok := c.store.Task(id)
		if !ok || t.Status.Terminal() {
			continue // blocked at delegation, or cut down with an upstream failure
		}

		if err := c.store.StartTask(id); err != nil {
			c.store.BlockTask(id, err.Error())
			c.blockDownstream(g, id, fmt.Sprintf("upstream task %s could not start", id))
			continue
		}

		tm := metrics.TaskMetrics{TaskID: id, WorkerID: t.WorkerID, Start: time.Now()}
		result, calls, err := c.runTask(ctx, t, c.workerFor(t), c.dependencyContext(t))
		tm.End = time.Now()
		tm.ToolCalls = calls
		tm.Finalize()

		if err != nil {
			if ctx.Err() != nil {
				tm.Status = string(mission.TaskCancelled)
				mm.Tasks = append(mm.Tasks, tm)
				return ctx.Err()
			}
			logger.Log.Printf("[coordinator] task %s failed: %v", id, err)
			c.store.FailTask(id, err.Error())
			c.blockDownstream(g, id, fmt.Sprintf("upstream task %s failed", id))
			tm.Status = string(mission.TaskFailed)
		} else {
			c.store.CompleteTask(id, result)
			tm.Status = string(mission.TaskCompleted)
		}
		mm.Tasks = append(mm.Tasks, tm)
	}
	return nil
}

func (c *Coordinator) blockDownstream(g *graph.Graph, id, reason string) {
	for _, depID := range g.Downstream(id) {
		c.store.BlockTask(depID, reason)
	}
}
