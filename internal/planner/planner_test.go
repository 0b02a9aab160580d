package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/graph"
)

// scriptedClient returns canned responses in order, recording each call.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedClient) DefaultModel() string { return "scripted" }

func (c *scriptedClient) Complete(_ context.Context, _, _ string) (string, error) {
	return c.next()
}

func (c *scriptedClient) CompleteJSON(_ context.Context, _, _ string, _ any) (string, error) {
	return c.next()
}

func (c *scriptedClient) Stream(_ context.Context, _, _ string, onChunk func(string)) (string, error) {
	s, err := c.next()
	if err == nil && onChunk != nil {
		onChunk(s)
	}
	return s, err
}

func (c *scriptedClient) next() (string, error) {
	i := c.calls
	c.calls++
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], err
	}
	return "", err
}

func TestNewGeneratorDefaultsModel(t *testing.T) {
	g := NewGenerator(&scriptedClient{}, "")
	if g.model != "scripted" {
		t.Errorf("model = %q, want the client default", g.model)
	}
	g = NewGenerator(&scriptedClient{}, "pinned")
	if g.model != "pinned" {
		t.Errorf("model = %q, want the configured model to win", g.model)
	}
}

func TestGeneratePlanRetriesOnceThenFails(t *testing.T) {
	client := &scriptedClient{responses: []string{"not json at all", "still { not json"}}
	g := NewGenerator(client, "")

	_, err := g.GeneratePlan(context.Background(), 1, "do things", "", nil)
	if !errors.Is(err, ErrPlanGenerationFailed) {
		t.Fatalf("expected ErrPlanGenerationFailed, got %v", err)
	}
	if client.calls != 2 {
		t.Errorf("expected exactly one retry (2 calls), got %d", client.calls)
	}
}

func TestGeneratePlanRecoversOnRetry(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"```whoops",
		`{"tasks": [{"id": "a", "description": "step one"}]}`,
	}}
	g := NewGenerator(client, "")

	plan, err := g.GeneratePlan(context.Background(), 1, "do things", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Tasks) != 1 || plan.Tasks[0].ID != "a" {
		t.Errorf("unexpected plan: %+v", plan)
	}
}

func TestGeneratePlanDegeneratesEmptyResponse(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"tasks": []}`}}
	g := NewGenerator(client, "")

	plan, err := g.GeneratePlan(context.Background(), 1, "summarize the report", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Tasks) != 1 {
		t.Fatalf("expected degenerate one-task plan, got %d tasks", len(plan.Tasks))
	}
	if plan.Tasks[0].Description != "summarize the report" {
		t.Errorf("degenerate task should carry the original request, got %q", plan.Tasks[0].Description)
	}
}

func TestGeneratePlanRejectsCycle(t *testing.T) {
	cyclic := `{"tasks": [
		{"id": "a", "description": "one", "depends_on": ["b"]},
		{"id": "b", "description": "two", "depends_on": ["a"]}
	]}`
	// The answer parses, so no retry happens; validation rejects the cycle.
	client := &scriptedClient{responses: []string{cyclic}}
	g := NewGenerator(client, "")

	_, err := g.GeneratePlan(context.Background(), 1, "do things", "", nil)
	if !errors.Is(err, ErrPlanGenerationFailed) {
		t.Fatalf("expected ErrPlanGenerationFailed for a cyclic plan, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name      string
		plan      Plan
		expectErr bool
	}{
		{
			name: "valid chain",
			plan: Plan{Tasks: []TaskDraft{
				{ID: "a", Description: "one"},
				{ID: "b", Description: "two", DependsOn: []string{"a"}},
			}},
		},
		{
			name: "missing ids are assigned",
			plan: Plan{Tasks: []TaskDraft{
				{Description: "one"},
				{Description: "two"},
			}},
		},
		{
			name: "unknown dependency",
			plan: Plan{Tasks: []TaskDraft{
				{ID: "a", Description: "one", DependsOn: []string{"ghost"}},
			}},
			expectErr: true,
		},
		{
			name: "empty description",
			plan: Plan{Tasks: []TaskDraft{
				{ID: "a", Description: "   "},
			}},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.plan)
			if tc.expectErr && err == nil {
				t.Error("expected an error, got nil")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateCycleSurfacesGraphError(t *testing.T) {
	plan := Plan{Tasks: []TaskDraft{
		{ID: "a", Description: "one", DependsOn: []string{"b"}},
		{ID: "b", Description: "two", DependsOn: []string{"a"}},
	}}
	if err := Validate(&plan); !errors.Is(err, graph.ErrCycleDetected) {
		t.Errorf("expected cycle error, got %v", err)
	}
}

func TestStripFences(t *testing.T) {
	in := "```json\n{\"tasks\": []}\n```"
	if got := stripFences(in); got != `{"tasks": []}` {
		t.Errorf("stripFences = %q", got)
	}
}
