package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/classifier"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/metrics"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/registry"
)

// runTask executes one task as its assigned worker: invoke the task's tool
// chain when a capability matches, otherwise answer directly through the
// model with the worker's persona. Dependency results arrive as depContext.
func (c *Coordinator) runTask(ctx context.Context, t mission.Task, w registry.Worker, depContext string) (string, []metrics.ToolCallMetrics, error) {
	c.store.SetWorkerState(t.MissionID, w.ID, mission.WorkerThinking, 10)

	det := classifier.Classify(t.Description)
	toolChain := requiredTools(t, c.engine)

	var calls []metrics.ToolCallMetrics
	if len(toolChain) == 0 {
		c.store.SetWorkerState(t.MissionID, w.ID, mission.WorkerWorking, 50)
		out, err := c.client.Stream(ctx, personaPrompt(w, t.Description, depContext), c.model, func(chunk string) {
			// Each chunk goes out as a worker event so the presentation
			// layer can render the answer as it is produced.
			c.store.Emitter().Emit(mission.StatusEvent{
				EntityType: "worker",
				EntityID:   w.ID,
				MissionID:  t.MissionID,
				NewStatus:  string(mission.WorkerWorking),
				Payload:    map[string]any{"task_id": t.ID, "chunk": chunk},
			})
		})
		if err != nil {
			c.store.SetWorkerState(t.MissionID, w.ID, mission.WorkerError, 100)
			return "", calls, fmt.Errorf("worker %s: %w", w.ID, err)
		}
		c.store.SetWorkerState(t.MissionID, w.ID, mission.WorkerCompleted, 100)
		return strings.TrimSpace(out), calls, nil
	}

	contextText := depContext
	var final string
	for i, tool := range toolChain {
		progress := 20 + (70*i)/len(toolChain)
		c.store.SetWorkerState(t.MissionID, w.ID, mission.WorkerWorking, progress)

		params := map[string]any{"prompt": t.Description, "query": t.Description}
		for k, v := range det.Params {
			params[k] = v
		}
		if contextText != "" {
			params["context"] = contextText
		}

		call, err := c.engine.Invoke(ctx, t.ID, tool, params)
		calls = append(calls, toolCallMetrics(call))
		if err != nil {
			c.store.SetWorkerState(t.MissionID, w.ID, mission.WorkerError, 100)
			return "", calls, fmt.Errorf("tool %s: %w", tool, err)
		}

		out := resultText(call.Result)
		contextText = chainContext(contextText, tool, out)
		final = out
	}

	c.store.SetWorkerState(t.MissionID, w.ID, mission.WorkerCompleted, 100)
	return final, calls, nil
}

func personaPrompt(w registry.Worker, description, depContext string) string {
	var sb strings.Builder
	name := w.Name
	if name == "" {
		name = "Generalist"
	}
	fmt.Fprintf(&sb, "You are %s", name)
	if len(w.Skills) > 0 {
		fmt.Fprintf(&sb, ", a specialist in %s", strings.Join(w.Skills, ", "))
	}
	sb.WriteString(". Complete the task below and respond with the deliverable only.\n\n")
	if strings.TrimSpace(depContext) != "" {
		sb.WriteString("CONTEXT FROM EARLIER STEPS:\n")
		sb.WriteString(depContext)
		sb.WriteString("\n")
	}
	sb.WriteString("TASK: ")
	sb.WriteString(description)
	return sb.String()
}

// resultText pulls the human-readable payload out of a tool result.
func resultText(result map[string]any) string {
	for _, key := range []string{"summary", "content", "file"} {
		if s, ok := result[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	b, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(b)
}

func chainContext(prev, tool, out string) string {
	if out == "" {
		return prev
	}
	entry := fmt.Sprintf("[%s] %s\n", tool, out)
	return prev + entry
}

func toolCallMetrics(call mission.ToolCall) metrics.ToolCallMetrics {
	tm := metrics.ToolCallMetrics{
		ID:       call.ID,
		Tool:     call.Tool,
		Provider: call.Provider,
		Attempts: len(call.Attempts),
		Start:    call.StartedAt,
		Success:  call.Status == mission.ToolCallCompleted,
		Err:      call.Error,
	}
	if call.EndedAt != nil {
		tm.End = *call.EndedAt
		tm.DurationMs = tm.End.Sub(tm.Start).Milliseconds()
	}
	return tm
}
