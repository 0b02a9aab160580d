// Package display renders plans, mission summaries and metrics for the
// terminal. Formatting only; no state.
package display

import (
	"fmt"
	"strings"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/metrics"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/planner"
)

const maxValueLength = 100

func FormatPlan(plan *planner.Plan) string {
	var sb strings.Builder
	sb.WriteString("Proposed execution plan:\n")
	sb.WriteString("--------------------------------------------------\n")
	for _, t := range plan.Tasks {
		sb.WriteString(fmt.Sprintf("  - Task: %s\n", t.ID))
		sb.WriteString(fmt.Sprintf("    Description: %s\n", truncate(t.Description)))
		if t.Tool != "" {
			sb.WriteString(fmt.Sprintf("    Tool: %s\n", t.Tool))
		}
		if len(t.DependsOn) > 0 {
			sb.WriteString(fmt.Sprintf("    Depends on: %s\n", strings.Join(t.DependsOn, ", ")))
		}
	}
	if plan.Collaborative {
		sb.WriteString("  (collaborative session)\n")
	}
	sb.WriteString("--------------------------------------------------")
	return sb.String()
}

func FormatMissionSummary(m mission.Mission, tasks []mission.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mission %s [%s]", m.ID, m.Status))
	if m.Discipline != "" {
		sb.WriteString(fmt.Sprintf(" (%s, plan v%d)", m.Discipline, m.PlanVersion))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Request: %s\n", truncate(m.Request)))
	for _, t := range tasks {
		line := fmt.Sprintf("  %-10s %-12s", t.ID, t.Status)
		if t.WorkerID != "" {
			line += " worker=" + t.WorkerID
		}
		if t.Error != "" {
			line += "  " + truncate(t.Error)
		}
		sb.WriteString(line + "\n")
	}
	if m.Error != "" {
		sb.WriteString(fmt.Sprintf("  Error: %s\n", m.Error))
	}
	return sb.String()
}

func FormatMissionMetrics(mm *metrics.MissionMetrics) string {
	if mm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Execution metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (success=%v, discipline=%s)\n", mm.DurationMs, mm.Succeeded, mm.Discipline))
	if mm.Turns > 0 {
		sb.WriteString(fmt.Sprintf("- Collaboration turns: %d\n", mm.Turns))
	}
	for _, t := range mm.Tasks {
		sb.WriteString(fmt.Sprintf("  Task %-10s %5d ms  [%s]\n", t.TaskID, t.DurationMs, t.Status))
		for _, c := range t.ToolCalls {
			status := "ok"
			if !c.Success {
				status = "err"
			}
			sb.WriteString(fmt.Sprintf("    - %-18s via %-14s %d attempt(s) %5d ms  [%s]\n",
				c.Tool, c.Provider, c.Attempts, c.DurationMs, status))
		}
	}
	return sb.String()
}

// FormatStatusEvent renders one live status line for the event stream.
func FormatStatusEvent(ev mission.StatusEvent) string {
	return fmt.Sprintf("[%s %s] %s -> %s", ev.EntityType, ev.EntityID, ev.MissionID, ev.NewStatus)
}

func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > maxValueLength {
		return s[:maxValueLength] + "..."
	}
	return s
}
