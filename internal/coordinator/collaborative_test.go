package coordinator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
)

const collabPlan = `{"tasks": [` +
	`{"id": "design", "description": "design the api"},` +
	`{"id": "review", "description": "review the api design", "depends_on": ["design"]}` +
	`], "collaborative": true}`

func TestCollaborativeCompletesOnConsensus(t *testing.T) {
	f := newFixture(t, &scriptedClient{answers: []string{
		collabPlan,
		`{"message": "I propose REST with versioned routes", "proposal": "REST", "handoff_to": "researcher"}`,
		`{"message": "Final deliverable: the API spec", "is_complete": true}`,
	}}, nil)

	m := f.store.CreateMission("have the team design an api")
	mm, out, err := f.coord.Run(context.Background(), m.ID, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	final, _ := f.store.Mission(m.ID)
	if final.Status != mission.MissionCompleted {
		t.Errorf("mission status = %s, want completed", final.Status)
	}
	if final.Discipline != mission.DisciplineCollaborative {
		t.Errorf("discipline = %s, want collaborative", final.Discipline)
	}
	for _, task := range f.store.Tasks(m.ID) {
		if task.Status != mission.TaskCompleted {
			t.Errorf("task %s status = %s, want completed", task.ID, task.Status)
		}
		if task.Result != "Final deliverable: the API spec" {
			t.Errorf("task %s result = %q", task.ID, task.Result)
		}
	}
	if mm.Turns != 2 {
		t.Errorf("turns = %d, want 2", mm.Turns)
	}
	if !strings.Contains(out, "Final deliverable") {
		t.Errorf("output = %q", out)
	}
}

func TestCollaborativeArbitrationOnConflict(t *testing.T) {
	f := newFixture(t, &scriptedClient{answers: []string{
		collabPlan,
		`{"message": "We should use REST", "proposal": "REST", "handoff_to": "researcher"}`,
		`{"message": "GraphQL fits better", "proposal": "GraphQL"}`,
		`{"message": "Done per the arbiter's call", "is_complete": true}`,
	}}, nil)

	m := f.store.CreateMission("have the team design an api")
	if _, _, err := f.coord.Run(context.Background(), m.ID, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var sawArbitration bool
	for _, msg := range f.store.Messages(m.ID) {
		if msg.Kind == "arbitration" && msg.From == "arbiter" {
			sawArbitration = true
		}
	}
	if !sawArbitration {
		t.Error("conflicting proposals should produce an arbitration message")
	}
}

func TestCollaborativeExhaustion(t *testing.T) {
	stall := `{"message": "still thinking", "is_complete": false}`
	f := newFixture(t, &scriptedClient{answers: []string{
		collabPlan, stall, stall, stall, stall, stall, stall,
	}}, nil)

	m := f.store.CreateMission("have the team design an api")
	_, _, err := f.coord.Run(context.Background(), m.ID, nil)
	if !errors.Is(err, ErrCollaborationExhausted) {
		t.Fatalf("Run() error = %v, want ErrCollaborationExhausted", err)
	}

	final, _ := f.store.Mission(m.ID)
	if final.Status != mission.MissionFailed {
		t.Errorf("mission status = %s, want failed", final.Status)
	}
	if !strings.Contains(final.Error, "turn limit") {
		t.Errorf("mission error = %q", final.Error)
	}
	for _, task := range f.store.Tasks(m.ID) {
		if task.Status != mission.TaskBlocked {
			t.Errorf("task %s status = %s, want blocked", task.ID, task.Status)
		}
	}
}

func TestCollaborativeNeedsUser(t *testing.T) {
	f := newFixture(t, &scriptedClient{answers: []string{
		collabPlan,
		`{"message": "Which auth scheme does the client require?", "needs_user": true}`,
	}}, nil)

	m := f.store.CreateMission("have the team design an api")
	f.coord.Run(context.Background(), m.ID, nil)

	var sawRequest bool
	for _, msg := range f.store.Messages(m.ID) {
		if msg.Kind == "user_request" {
			sawRequest = true
		}
	}
	if !sawRequest {
		t.Error("needs_user should record a user_request message")
	}
	for _, task := range f.store.Tasks(m.ID) {
		if task.Status != mission.TaskBlocked {
			t.Errorf("task %s status = %s, want blocked pending user input", task.ID, task.Status)
		}
	}
}

func TestNoWorkerMatchBlocksTask(t *testing.T) {
	f := newFixture(t, &scriptedClient{answers: []string{
		`{"tasks": [{"id": "odd", "description": "qqq zzz nothing matches"}]}`,
	}}, nil)

	m := f.store.CreateMission("something no worker can serve")
	_, _, err := f.coord.Run(context.Background(), m.ID, nil)
	if err == nil {
		t.Fatal("Run() should fail when the only task is blocked")
	}

	tasks := f.store.Tasks(m.ID)
	if len(tasks) != 1 || tasks[0].Status != mission.TaskBlocked {
		t.Fatalf("tasks = %+v, want single blocked task", tasks)
	}
	if !strings.Contains(tasks[0].Error, "no worker matched") {
		t.Errorf("blocked reason = %q", tasks[0].Error)
	}
	final, _ := f.store.Mission(m.ID)
	if final.Status != mission.MissionFailed {
		t.Errorf("mission status = %s, want failed", final.Status)
	}
}
