// Package planner turns a free-text request into a validated execution plan
// by way of the Language Model Service.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/graph"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/llm"
)

// ErrPlanGenerationFailed is fatal to the mission; it is returned only after
// the single stricter retry also produced unusable output.
var ErrPlanGenerationFailed = errors.New("plan generation failed")

// TaskDraft is one proposed unit of work before delegation.
type TaskDraft struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	DependsOn   []string `json:"depends_on,omitempty"`
	// Tool is set on classifier fast-path plans where the capability is
	// already known; model-generated plans leave it empty.
	Tool string `json:"tool,omitempty"`
}

// Plan is one immutable plan version. Replanning creates a new version so
// mission history stays auditable; a Plan is never mutated in place.
type Plan struct {
	Version       int         `json:"version"`
	Tasks         []TaskDraft `json:"tasks"`
	Collaborative bool        `json:"collaborative,omitempty"`
}

// Turn is one prior mission outcome fed back to the model as context.
type Turn struct {
	Request string `json:"request"`
	Plan    string `json:"plan"`
	Error   string `json:"error,omitempty"`
}

// Generator asks the model for a plan and repairs or rejects its output.
type Generator struct {
	client llm.Client
	model  string
}

// NewGenerator builds a plan generator. An empty model falls back to the
// client's default.
func NewGenerator(client llm.Client, model string) *Generator {
	if model == "" && client != nil {
		model = client.DefaultModel()
	}
	return &Generator{client: client, model: model}
}

func buildPrompt(history []Turn, request, workerSummary string, strict bool) string {
	var sb strings.Builder

	sb.WriteString("You are an expert AI mission planner. Decompose the user's request into subtasks.\n")
	sb.WriteString("Respond ONLY with JSON. No extra text.\n\n")

	if len(history) > 0 {
		sb.WriteString("PREVIOUS MISSIONS (context):\n")
		for _, t := range history {
			sb.WriteString(fmt.Sprintf("Request: %q\nPlan: %s\n", t.Request, t.Plan))
			if strings.TrimSpace(t.Error) != "" {
				sb.WriteString(fmt.Sprintf("Outcome Error: %s\n", t.Error))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("OUTPUT JSON SCHEMA:\n")
	sb.WriteString(`{"tasks": [{"id": "<slug>", "description": "<string>", "depends_on": ["<id>"]}], "collaborative": <bool>}` + "\n\n")

	sb.WriteString("RULES:\n")
	sb.WriteString("- Task IDs must be short, unique, lowercase slugs.\n")
	sb.WriteString("- depends_on lists tasks that must COMPLETE first. Never create cycles.\n")
	sb.WriteString("- Tasks with no dependencies may run in parallel.\n")
	sb.WriteString("- Set collaborative=true ONLY when the work needs back-and-forth between specialists (debugging sessions, conflicting approaches).\n")
	sb.WriteString("- Each description must be a self-contained instruction a single specialist can execute.\n")

	if workerSummary != "" {
		sb.WriteString("\nAVAILABLE WORKERS:\n")
		sb.WriteString(workerSummary)
		sb.WriteString("\n")
	}

	if strict {
		sb.WriteString("\nYour previous answer was not valid JSON for the schema above.\n")
		sb.WriteString("Return EXACTLY one JSON object matching the schema. Do not wrap it in markdown fences.\n")
	}

	sb.WriteString("\nUser Request: ")
	sb.WriteString(fmt.Sprintf("%q\n", request))
	sb.WriteString("Assistant: ")
	return sb.String()
}

// GeneratePlan produces plan version `version` for the request. Malformed
// model output gets one stricter retry; a cycle or unknown reference is
// rejected outright.
func (g *Generator) GeneratePlan(ctx context.Context, version int, request, workerSummary string, history []Turn) (*Plan, error) {
	plan, err := g.generateOnce(ctx, request, workerSummary, history, false)
	if err != nil {
		plan, err = g.generateOnce(ctx, request, workerSummary, history, true)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanGenerationFailed, err)
	}

	// A response with zero tasks for a non-trivial request degrades to a
	// one-task plan equal to the original request.
	if len(plan.Tasks) == 0 {
		plan.Tasks = []TaskDraft{{ID: "task-1", Description: request}}
	}

	if err := Validate(plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanGenerationFailed, err)
	}
	plan.Version = version
	return plan, nil
}

func (g *Generator) generateOnce(ctx context.Context, request, workerSummary string, history []Turn, strict bool) (*Plan, error) {
	prompt := buildPrompt(history, request, workerSummary, strict)
	raw, err := g.client.CompleteJSON(ctx, prompt, g.model, nil)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}
	var plan Plan
	if err := json.Unmarshal([]byte(stripFences(raw)), &plan); err != nil {
		return nil, fmt.Errorf("parse plan JSON: %v (raw: %.200s)", err, raw)
	}
	return &plan, nil
}

// Validate checks the drafted tasks: non-empty descriptions, unique IDs,
// known dependency references, and no cycles.
func Validate(plan *Plan) error {
	nodes := make([]graph.Node, 0, len(plan.Tasks))
	for i := range plan.Tasks {
		t := &plan.Tasks[i]
		if strings.TrimSpace(t.ID) == "" {
			t.ID = fmt.Sprintf("task-%d", i+1)
		}
		if strings.TrimSpace(t.Description) == "" {
			return fmt.Errorf("task %s has an empty description", t.ID)
		}
		nodes = append(nodes, graph.Node{ID: t.ID, DependsOn: t.DependsOn})
	}
	if _, err := graph.Build(nodes); err != nil {
		return err
	}
	return nil
}

// Graph builds the dependency graph for a validated plan.
func Graph(plan *Plan) (*graph.Graph, error) {
	nodes := make([]graph.Node, 0, len(plan.Tasks))
	for _, t := range plan.Tasks {
		nodes = append(nodes, graph.Node{ID: t.ID, DependsOn: t.DependsOn})
	}
	return graph.Build(nodes)
}

// stripFences removes a markdown code fence if the model wrapped its JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
