package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/storage"
)

type fakeSupervisor struct {
	store     *mission.Store
	cancelled []string
	cancelErr error
}

func (f *fakeSupervisor) Submit(request string) string {
	return f.store.CreateMission(request).ID
}

func (f *fakeSupervisor) Cancel(id string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	return f.store.CancelMission(id)
}

func newTestServer(t *testing.T) (*httptest.Server, *mission.Store, *fakeSupervisor) {
	t.Helper()
	store := mission.NewStore(nil)
	sup := &fakeSupervisor{store: store}
	ts := httptest.NewServer(New(store, sup, nil))
	t.Cleanup(ts.Close)
	return ts, store, sup
}

func TestSubmitMission(t *testing.T) {
	ts, store, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/missions", "application/json",
		strings.NewReader(`{"request": "search for go release notes"}`))
	if err != nil {
		t.Fatalf("POST /missions error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := store.Mission(body["mission_id"]); !ok {
		t.Errorf("mission %q not created", body["mission_id"])
	}
}

func TestSubmitRejectsEmptyRequest(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/missions", "application/json", strings.NewReader(`{"request": "  "}`))
	if err != nil {
		t.Fatalf("POST /missions error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMissionStatus(t *testing.T) {
	ts, store, _ := newTestServer(t)
	m := store.CreateMission("do something")

	resp, err := http.Get(ts.URL + "/missions/" + m.ID)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Mission mission.Mission `json:"mission"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Mission.ID != m.ID || body.Mission.Status != mission.MissionPlanning {
		t.Errorf("mission = %+v", body.Mission)
	}

	resp2, err := http.Get(ts.URL + "/missions/nope")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("unknown mission status = %d, want 404", resp2.StatusCode)
	}
}

func TestMissionStatusFallsBackToPersistedHistory(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "missions.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Persist a mission from an "earlier session": it never enters the
	// in-memory store the server reads from.
	saver := storage.NewSaver(db)
	saver.SaveMission(mission.Mission{
		ID:        "old-mission",
		Request:   "finished last week",
		Status:    mission.MissionCompleted,
		CreatedAt: time.Now().Add(-7 * 24 * time.Hour),
	})
	saver.SaveTask(mission.Task{
		ID:        "old-task",
		MissionID: "old-mission",
		Status:    mission.TaskCompleted,
		Result:    "done",
		CreatedAt: time.Now().Add(-7 * 24 * time.Hour),
	})
	saver.Close()

	store := mission.NewStore(nil)
	ts := httptest.NewServer(New(store, &fakeSupervisor{store: store}, saver))
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/missions/old-mission")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 from persisted history", resp.StatusCode)
	}

	var body struct {
		Mission mission.Mission `json:"mission"`
		Tasks   []mission.Task  `json:"tasks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Mission.ID != "old-mission" || body.Mission.Status != mission.MissionCompleted {
		t.Errorf("mission = %+v", body.Mission)
	}
	if len(body.Tasks) != 1 || body.Tasks[0].ID != "old-task" {
		t.Errorf("tasks = %+v", body.Tasks)
	}

	resp2, err := http.Get(ts.URL + "/missions/never-existed")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when storage misses too", resp2.StatusCode)
	}
}

func TestCancelMission(t *testing.T) {
	ts, store, sup := newTestServer(t)
	m := store.CreateMission("do something")

	resp, err := http.Post(ts.URL+"/missions/"+m.ID+"/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("POST cancel error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(sup.cancelled) != 1 || sup.cancelled[0] != m.ID {
		t.Errorf("cancelled = %v", sup.cancelled)
	}

	sup.cancelErr = fmt.Errorf("mission %s is not running", m.ID)
	resp2, err := http.Post(ts.URL+"/missions/"+m.ID+"/cancel", "application/json", nil)
	if err != nil {
		t.Fatalf("POST cancel error = %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp2.StatusCode)
	}
}

func TestEventStreamFiltersAndTerminates(t *testing.T) {
	ts, store, _ := newTestServer(t)
	m := store.CreateMission("watched mission")
	other := store.CreateMission("unrelated mission")

	go func() {
		time.Sleep(50 * time.Millisecond)
		store.AttachPlan(other.ID, 1, mission.DisciplineSequential,
			[]*mission.Task{{ID: "other-t", Description: "noise"}})
		store.AttachPlan(m.ID, 1, mission.DisciplineSequential,
			[]*mission.Task{{ID: "t1", Description: "watched task"}})
		store.StartTask("t1")
		store.CompleteTask("t1", "done")
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(ts.URL + "/missions/" + m.ID + "/events")
	if err != nil {
		t.Fatalf("GET events error = %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	// The stream closes on the terminal mission event, so this read ends.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	body := string(raw)

	if !strings.Contains(body, `"t1"`) {
		t.Errorf("stream missing watched task events:\n%s", body)
	}
	if !strings.Contains(body, string(mission.MissionCompleted)) {
		t.Errorf("stream missing terminal mission event:\n%s", body)
	}
	if strings.Contains(body, "other-t") {
		t.Errorf("stream leaked another mission's events:\n%s", body)
	}
}
