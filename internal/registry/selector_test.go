package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(DefaultWorkers())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSelectBySkillOverlap(t *testing.T) {
	r := testRegistry(t)

	testCases := []struct {
		name        string
		description string
		tools       []string
		expectID    string
	}{
		{
			name:        "research task goes to the researcher",
			description: "search the news for recent AI trends and collect information",
			tools:       []string{"web-search"},
			expectID:    "researcher",
		},
		{
			name:        "coding task goes to the coder",
			description: "implement a function to parse the api response and debug the script",
			tools:       []string{"code-generation"},
			expectID:    "coder",
		},
		{
			name:        "visual task goes to the designer",
			description: "produce an image for the landing page, a warm sunset illustration",
			tools:       []string{"image-generation"},
			expectID:    "designer",
		},
		{
			name:        "writing task goes to the writer",
			description: "write a short report summarizing the findings as an article",
			expectID:    "writer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := r.Select(tc.description, tc.tools, mission.DisciplineSequential, nil)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if w.ID != tc.expectID {
				t.Errorf("selected %s, want %s", w.ID, tc.expectID)
			}
		})
	}
}

func TestSelectNoMatch(t *testing.T) {
	r := testRegistry(t)
	_, err := r.Select("zzz qqq xyzzy", nil, mission.DisciplineSequential, nil)
	if !errors.Is(err, ErrNoWorkerMatch) {
		t.Errorf("expected ErrNoWorkerMatch, got %v", err)
	}
}

func TestSelectBusyPenaltyOnlySequential(t *testing.T) {
	workers := []Worker{
		{ID: "a", Skills: []string{"search"}, Specialization: 2},
		{ID: "b", Skills: []string{"search"}, Specialization: 1},
	}
	r, err := New(workers)
	if err != nil {
		t.Fatal(err)
	}
	busy := map[string]bool{"a": true}

	// Sequential: the busy penalty drops a below b.
	w, err := r.Select("search something", nil, mission.DisciplineSequential, busy)
	if err != nil {
		t.Fatal(err)
	}
	if w.ID != "b" {
		t.Errorf("sequential with busy a: selected %s, want b", w.ID)
	}

	// Parallel: busy is advisory only; specialization breaks the tie.
	w, err = r.Select("search something", nil, mission.DisciplineParallel, busy)
	if err != nil {
		t.Fatal(err)
	}
	if w.ID != "a" {
		t.Errorf("parallel with busy a: selected %s, want a", w.ID)
	}
}

func TestSelectTieBreaks(t *testing.T) {
	workers := []Worker{
		{ID: "generalist", Skills: []string{"review"}, Specialization: 1},
		{ID: "specialist", Skills: []string{"review"}, Specialization: 5},
		{ID: "specialist2", Skills: []string{"review"}, Specialization: 5},
	}
	r, err := New(workers)
	if err != nil {
		t.Fatal(err)
	}
	w, err := r.Select("review the draft", nil, mission.DisciplineSequential, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Narrower specialist wins; equal specialists resolve by registry order.
	if w.ID != "specialist" {
		t.Errorf("selected %s, want specialist", w.ID)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workers.yaml")
	doc := `workers:
  - id: scout
    name: Scout
    skills: [search, explore]
    tools: [web-search]
    prompt_template: scout
    specialization: 2
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	w, ok := r.Get("scout")
	if !ok || w.Name != "Scout" || len(w.Skills) != 2 {
		t.Errorf("loaded worker mismatch: %+v", w)
	}
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	r, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.All()) == 0 {
		t.Error("default roster must not be empty")
	}
}
