package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "missions.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestSaverRoundTrip(t *testing.T) {
	db := openTestDB(t)
	s := NewSaver(db)

	created := time.Now().Add(-time.Minute)
	done := time.Now()
	m := mission.Mission{
		ID:          "m1",
		Request:     "write a report",
		Status:      mission.MissionCompleted,
		PlanVersion: 1,
		Discipline:  mission.DisciplineSequential,
		CreatedAt:   created,
		CompletedAt: &done,
	}
	task := mission.Task{
		ID:          "task-1",
		MissionID:   "m1",
		Description: "draft the report",
		WorkerID:    "writer",
		Status:      mission.TaskCompleted,
		Result:      "done",
		CreatedAt:   created,
		CompletedAt: &done,
	}

	s.SaveMission(m)
	s.SaveTask(task)
	s.Close() // drains the queue

	got, tasks, err := s.LoadMission("m1")
	if err != nil {
		t.Fatalf("LoadMission() error = %v", err)
	}
	if got.Status != mission.MissionCompleted || got.PlanVersion != 1 {
		t.Errorf("mission = %+v", got)
	}
	if got.Discipline != mission.DisciplineSequential {
		t.Errorf("discipline = %q", got.Discipline)
	}
	if len(tasks) != 1 || tasks[0].WorkerID != "writer" || tasks[0].Result != "done" {
		t.Errorf("tasks = %+v", tasks)
	}
	if len(got.TaskIDs) != 1 || got.TaskIDs[0] != "task-1" {
		t.Errorf("task ids = %v", got.TaskIDs)
	}
}

func TestSaverUpsertsLaterSnapshots(t *testing.T) {
	db := openTestDB(t)
	s := NewSaver(db)

	m := mission.Mission{ID: "m1", Request: "r", Status: mission.MissionPlanning, CreatedAt: time.Now()}
	s.SaveMission(m)
	m.Status = mission.MissionFailed
	m.Error = "plan generation failed"
	m.PlanVersion = 2
	s.SaveMission(m)
	s.Close()

	got, _, err := s.LoadMission("m1")
	if err != nil {
		t.Fatalf("LoadMission() error = %v", err)
	}
	if got.Status != mission.MissionFailed || got.Error != "plan generation failed" || got.PlanVersion != 2 {
		t.Errorf("mission after upsert = %+v", got)
	}
}

func TestLoadMissionUnknown(t *testing.T) {
	db := openTestDB(t)
	s := NewSaver(db)
	defer s.Close()

	if _, _, err := s.LoadMission("nope"); err != mission.ErrUnknownMission {
		t.Fatalf("LoadMission() error = %v, want ErrUnknownMission", err)
	}
}

func TestRecentMissionsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	s := NewSaver(db)

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		s.SaveMission(mission.Mission{
			ID: id, Request: id, Status: mission.MissionCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	s.Close()

	got, err := s.RecentMissions(2)
	if err != nil {
		t.Fatalf("RecentMissions() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
		t.Errorf("recent = %+v", got)
	}
}

func TestPurgeOldMissions(t *testing.T) {
	db := openTestDB(t)
	s := NewSaver(db)

	s.SaveMission(mission.Mission{ID: "stale", Request: "r", Status: mission.MissionCompleted, CreatedAt: time.Now().Add(-48 * time.Hour)})
	s.SaveTask(mission.Task{ID: "t1", MissionID: "stale", Description: "d", Status: mission.TaskCompleted, CreatedAt: time.Now().Add(-48 * time.Hour)})
	s.SaveMission(mission.Mission{ID: "fresh", Request: "r", Status: mission.MissionCompleted, CreatedAt: time.Now()})
	s.Close()

	n, err := db.PurgeOldMissions(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldMissions() error = %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}

	s2 := NewSaver(db)
	defer s2.Close()
	if _, _, err := s2.LoadMission("stale"); err != mission.ErrUnknownMission {
		t.Errorf("stale mission should be gone, err = %v", err)
	}
	if _, _, err := s2.LoadMission("fresh"); err != nil {
		t.Errorf("fresh mission should remain, err = %v", err)
	}
}
