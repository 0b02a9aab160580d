package graph

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuildRejectsCycles(t *testing.T) {
	testCases := []struct {
		name      string
		nodes     []Node
		expectErr error
	}{
		{
			name: "two node cycle",
			nodes: []Node{
				{ID: "a", DependsOn: []string{"b"}},
				{ID: "b", DependsOn: []string{"a"}},
			},
			expectErr: ErrCycleDetected,
		},
		{
			name: "self dependency",
			nodes: []Node{
				{ID: "a", DependsOn: []string{"a"}},
			},
			expectErr: ErrCycleDetected,
		},
		{
			name: "three node cycle deep in a valid prefix",
			nodes: []Node{
				{ID: "root"},
				{ID: "a", DependsOn: []string{"root", "c"}},
				{ID: "b", DependsOn: []string{"a"}},
				{ID: "c", DependsOn: []string{"b"}},
			},
			expectErr: ErrCycleDetected,
		},
		{
			name: "diamond is fine",
			nodes: []Node{
				{ID: "a"},
				{ID: "b", DependsOn: []string{"a"}},
				{ID: "c", DependsOn: []string{"a"}},
				{ID: "d", DependsOn: []string{"b", "c"}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.nodes)
			if tc.expectErr != nil && !errors.Is(err, tc.expectErr) {
				t.Errorf("expected %v, got %v", tc.expectErr, err)
			}
			if tc.expectErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestBuildRejectsUnknownAndDuplicate(t *testing.T) {
	if _, err := Build([]Node{{ID: "a", DependsOn: []string{"ghost"}}}); err == nil {
		t.Error("unknown dependency must be rejected")
	}
	if _, err := Build([]Node{{ID: "a"}, {ID: "a"}}); err == nil {
		t.Error("duplicate id must be rejected")
	}
}

func TestReadyAndTopoOrder(t *testing.T) {
	g, err := Build([]Node{
		{ID: "fetch"},
		{ID: "render", DependsOn: []string{"fetch"}},
		{ID: "index"},
		{ID: "publish", DependsOn: []string{"render", "index"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	ready := g.Ready(map[string]bool{})
	if !reflect.DeepEqual(ready, []string{"fetch", "index"}) {
		t.Errorf("initial ready = %v", ready)
	}

	order := g.TopoOrder()
	pos := make(map[string]int)
	for i, id := range order {
		pos[id] = i
	}
	if pos["fetch"] > pos["render"] || pos["render"] > pos["publish"] || pos["index"] > pos["publish"] {
		t.Errorf("topo order violates dependencies: %v", order)
	}
}

func TestDownstream(t *testing.T) {
	g, err := Build([]Node{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"b"}},
		{ID: "d"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got := g.Downstream("a")
	if !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("downstream of a = %v, want [b c]", got)
	}
	if len(g.Downstream("d")) != 0 {
		t.Error("d has no dependents")
	}
}
