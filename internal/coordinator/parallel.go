package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/graph"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/logger"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/metrics"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
)

// executeParallel fans each ready wave out across workers with a concurrency
// cap. A failing task never cancels its siblings; whether the mission still
// counts as completed is the store's partial-failure policy, decided after
// every task has reached a terminal state.
func (c *Coordinator) executeParallel(ctx context.Context, missionID string, g *graph.Graph, mm *metrics.MissionMetrics) error {
	completed := make(map[string]bool)
	done := make(map[string]bool)

	for len(done) < g.Size() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var wave []string
		for _, id := range g.Ready(completed) {
			if !done[id] {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			c.blockUnreachable(missionID, done)
			return nil
		}

		var mu sync.Mutex // guards completed and mm.Tasks
		eg := new(errgroup.Group)
		eg.SetLimit(c.maxParallel)

		for _, id := range wave {
			id := id
			eg.Go(func() (rerr error) {
				defer func() {
					if rec := recover(); rec != nil {
						logger.Log.Printf("[coordinator] panic in task %s: %v", id, rec)
						c.store.FailTask(id, fmt.Sprintf("panic: %v", rec))
					}
				}()

				t, ok := c.store.Task(id)
				if !ok || t.Status.Terminal() {
					return nil
				}
				if err := c.store.StartTask(id); err != nil {
					c.store.BlockTask(id, err.Error())
					return nil
				}

				tm := metrics.TaskMetrics{TaskID: id, WorkerID: t.WorkerID, Start: time.Now()}
				result, calls, err := c.runTask(ctx, t, c.workerFor(t), c.dependencyContext(t))
				tm.End = time.Now()
				tm.ToolCalls = calls
				tm.Finalize()

				if err != nil {
					if ctx.Err() != nil {
						tm.Status = string(mission.TaskCancelled)
					} else {
						logger.Log.Printf("[coordinator] task %s failed: %v", id, err)
						c.store.FailTask(id, err.Error())
						tm.Status = string(mission.TaskFailed)
					}
				} else {
					c.store.CompleteTask(id, result)
					tm.Status = string(mission.TaskCompleted)
					mu.Lock()
					completed[id] = true
					mu.Unlock()
				}

				mu.Lock()
				mm.Tasks = append(mm.Tasks, tm)
				mu.Unlock()
				return nil
			})
		}
		eg.Wait()

		for _, id := range wave {
			done[id] = true
		}
	}
	return ctx.Err()
}

// blockUnreachable marks every task whose dependencies can no longer all
// complete, naming the first dead dependency as the reason.
func (c *Coordinator) blockUnreachable(missionID string, done map[string]bool) {
	for _, t := range c.store.Tasks(missionID) {
		if done[t.ID] || t.Status.Terminal() {
			continue
		}
		reason := "dependencies can no longer complete"
		for _, depID := range t.DependsOn {
			dep, ok := c.store.Task(depID)
			if ok && dep.Status.Terminal() && dep.Status != mission.TaskCompleted {
				reason = fmt.Sprintf("upstream task %s %s", depID, dep.Status)
				break
			}
		}
		c.store.BlockTask(t.ID, reason)
	}
}
