// Package registry holds the catalog of AI workers and the matching policy
// that assigns them to tasks. The worker list is read-only during execution;
// live status lives in the mission store, not here.
package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Worker is a named capability bundle. Definitions come from a YAML file or
// the built-in defaults.
type Worker struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Skills []string `yaml:"skills"`
	Tools  []string `yaml:"tools"`
	// PromptTemplate names the instruction template used when this worker
	// executes a task through the language model.
	PromptTemplate string `yaml:"prompt_template"`
	// Specialization ranks how narrow the worker is; a higher rank beats a
	// generalist on ties.
	Specialization int `yaml:"specialization"`
}

// Registry is the read-only worker catalog.
type Registry struct {
	workers []Worker
	byID    map[string]*Worker
	// MinScore is the floor a candidate must clear; below it the selector
	// reports no match rather than forcing a poor assignment.
	MinScore int
}

// Load reads worker definitions from a YAML file of the shape:
//
//	workers:
//	  - id: researcher
//	    skills: [research, search]
//	    tools: [web-search]
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read worker registry: %w", err)
	}
	var doc struct {
		Workers []Worker `yaml:"workers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse worker registry YAML: %w", err)
	}
	if len(doc.Workers) == 0 {
		return nil, fmt.Errorf("worker registry %s defines no workers", path)
	}
	return New(doc.Workers)
}

// LoadOrDefault loads the YAML registry, falling back to the built-in
// workers when the file does not exist.
func LoadOrDefault(path string) (*Registry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(DefaultWorkers())
	}
	return Load(path)
}

// New builds a registry, validating IDs.
func New(workers []Worker) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Worker, len(workers)), MinScore: overlapWeight}
	for _, w := range workers {
		if strings.TrimSpace(w.ID) == "" {
			return nil, fmt.Errorf("worker %q has no id", w.Name)
		}
		if _, dup := r.byID[w.ID]; dup {
			return nil, fmt.Errorf("duplicate worker id %q", w.ID)
		}
		r.workers = append(r.workers, w)
		r.byID[w.ID] = &r.workers[len(r.workers)-1]
	}
	return r, nil
}

// DefaultWorkers is the built-in employee roster.
func DefaultWorkers() []Worker {
	return []Worker{
		{ID: "researcher", Name: "Research Analyst", Skills: []string{"research", "search", "news", "trends", "information"}, Tools: []string{"web-search"}, PromptTemplate: "researcher", Specialization: 3},
		{ID: "coder", Name: "Software Engineer", Skills: []string{"code", "program", "debug", "script", "function", "api", "implement"}, Tools: []string{"code-generation"}, PromptTemplate: "coder", Specialization: 3},
		{ID: "designer", Name: "Visual Designer", Skills: []string{"image", "picture", "logo", "illustration", "visual", "design", "video"}, Tools: []string{"image-generation", "video-generation"}, PromptTemplate: "designer", Specialization: 3},
		{ID: "writer", Name: "Content Writer", Skills: []string{"write", "document", "report", "essay", "article", "summary", "draft"}, Tools: []string{"document-creation"}, PromptTemplate: "writer", Specialization: 2},
		{ID: "analyst", Name: "Data Analyst", Skills: []string{"analyze", "data", "statistics", "chart", "numbers", "metrics"}, Tools: []string{"data-analysis"}, PromptTemplate: "analyst", Specialization: 2},
		{ID: "generalist", Name: "Generalist", Skills: []string{"plan", "organize", "assist", "answer", "explain", "review"}, Tools: nil, PromptTemplate: "generalist", Specialization: 1},
	}
}

// Get returns a worker by ID.
func (r *Registry) Get(id string) (Worker, bool) {
	w, ok := r.byID[id]
	if !ok {
		return Worker{}, false
	}
	return *w, true
}

// All returns the workers in registry order.
func (r *Registry) All() []Worker {
	out := make([]Worker, len(r.workers))
	copy(out, r.workers)
	return out
}

// Summary renders the roster for the planner prompt.
func (r *Registry) Summary() string {
	var sb strings.Builder
	for _, w := range r.workers {
		sb.WriteString(fmt.Sprintf("- %s (%s): skills [%s]", w.ID, w.Name, strings.Join(w.Skills, ", ")))
		if len(w.Tools) > 0 {
			sb.WriteString(fmt.Sprintf(", tools [%s]", strings.Join(w.Tools, ", ")))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
