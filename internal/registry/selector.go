package registry

import (
	"errors"
	"strings"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
)

// ErrNoWorkerMatch means no candidate cleared the minimum score. The caller
// treats this as a blocked task, not a crash.
var ErrNoWorkerMatch = errors.New("no worker matches task requirements")

const (
	overlapWeight = 10
	toolBonus     = 5
	busyPenalty   = 8
)

// Select matches a task to the best-fit worker.
//
// Score = skill-keyword overlap x 10
//   - +5 per required tool the worker has access to
//   - -8 when the worker is busy and the discipline is sequential (a busy
//     worker there would create a false dependency; in parallel discipline
//     the busy flag is advisory only)
//
// Ties break toward the narrower specialist, then registry order, so test
// runs are deterministic.
func (r *Registry) Select(description string, requiredTools []string, d mission.Discipline, busy map[string]bool) (Worker, error) {
	lower := strings.ToLower(description)

	best := -1
	bestScore := 0
	for i := range r.workers {
		w := &r.workers[i]
		score := 0

		for _, skill := range w.Skills {
			if containsWord(lower, strings.ToLower(skill)) {
				score += overlapWeight
			}
		}
		for _, tool := range requiredTools {
			if hasTool(w, tool) {
				score += toolBonus
			}
		}
		if busy[w.ID] && d == mission.DisciplineSequential {
			score -= busyPenalty
		}

		if score < r.MinScore {
			continue
		}
		if best < 0 || score > bestScore ||
			(score == bestScore && w.Specialization > r.workers[best].Specialization) {
			best = i
			bestScore = score
		}
	}

	if best < 0 {
		return Worker{}, ErrNoWorkerMatch
	}
	return r.workers[best], nil
}

func hasTool(w *Worker, tool string) bool {
	for _, t := range w.Tools {
		if t == tool {
			return true
		}
	}
	return false
}

// containsWord reports whether word appears in s at word boundaries.
func containsWord(s, word string) bool {
	start := 0
	for {
		i := strings.Index(s[start:], word)
		if i < 0 {
			return false
		}
		i += start
		before := i == 0 || !isAlnum(s[i-1])
		end := i + len(word)
		after := end >= len(s) || !isAlnum(s[end])
		if before && after {
			return true
		}
		start = end
		if start >= len(s) {
			return false
		}
	}
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
