package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/graph"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/logger"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/metrics"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/registry"
)

// collabTurn is the JSON a participant must answer with on its turn.
type collabTurn struct {
	Message    string `json:"message"`
	IsComplete bool   `json:"is_complete"`
	HandoffTo  string `json:"handoff_to,omitempty"`
	NeedsUser  bool   `json:"needs_user,omitempty"`
	Proposal   string `json:"proposal,omitempty"`
}

// executeCollaborative runs the plan as a moderated conversation: one
// current speaker at a time, explicit handoffs, an arbiter when two
// participants push conflicting proposals, and a hard turn cap so a thread
// that never converges fails instead of spinning.
func (c *Coordinator) executeCollaborative(ctx context.Context, missionID string, g *graph.Graph, mm *metrics.MissionMetrics) error {
	participants := c.participants(missionID)
	agenda := c.agenda(missionID)

	speaker := participants[0]
	var lastProposal, lastProposer string

	for turn := 1; turn <= c.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		mm.Turns = turn
		c.store.SetWorkerState(missionID, speaker.ID, mission.WorkerThinking, (100*turn)/c.maxTurns)

		raw, err := c.client.CompleteJSON(ctx, c.collabPrompt(missionID, speaker, participants, agenda), c.model, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.store.FailMission(missionID, fmt.Sprintf("collaboration turn by %s: %v", speaker.ID, err))
			return err
		}

		var out collabTurn
		if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
			// An unparseable turn still advances the thread as plain prose.
			out = collabTurn{Message: strings.TrimSpace(raw)}
		}

		c.store.AppendMessage(mission.CollaborationMessage{
			MissionID: missionID,
			From:      speaker.ID,
			To:        out.HandoffTo,
			Kind:      "turn",
			Content:   out.Message,
		})

		if out.NeedsUser {
			c.store.AppendMessage(mission.CollaborationMessage{
				MissionID: missionID,
				From:      speaker.ID,
				Kind:      "user_request",
				Content:   out.Message,
			})
			for _, t := range c.store.Tasks(missionID) {
				c.store.BlockTask(t.ID, "waiting on user input")
			}
			return nil
		}

		if out.Proposal != "" {
			if lastProposal != "" && lastProposer != speaker.ID && out.Proposal != lastProposal {
				decision := c.arbitrate(ctx, agenda, lastProposal, out.Proposal)
				c.store.AppendMessage(mission.CollaborationMessage{
					MissionID: missionID,
					From:      "arbiter",
					Kind:      "arbitration",
					Content:   decision,
				})
				lastProposal, lastProposer = decision, "arbiter"
			} else {
				lastProposal, lastProposer = out.Proposal, speaker.ID
			}
		}

		if out.IsComplete {
			c.finishCollaboration(missionID, g, out.Message)
			return nil
		}

		next := nextSpeaker(participants, speaker, out.HandoffTo)
		if out.HandoffTo != "" && next.ID == out.HandoffTo {
			c.store.AppendMessage(mission.CollaborationMessage{
				MissionID: missionID,
				From:      speaker.ID,
				To:        next.ID,
				Kind:      "handoff",
				Content:   fmt.Sprintf("%s hands off to %s", speaker.ID, next.ID),
			})
		}
		speaker = next
	}

	logger.Log.Printf("[coordinator] mission %s: collaboration exhausted after %d turns", missionID, c.maxTurns)
	c.store.FailMission(missionID, ErrCollaborationExhausted.Error())
	for _, t := range c.store.Tasks(missionID) {
		c.store.BlockTask(t.ID, ErrCollaborationExhausted.Error())
	}
	return ErrCollaborationExhausted
}

// participants resolves the distinct workers delegated to the mission's
// tasks, padding with the registry roster so a thread always has at least
// two voices.
func (c *Coordinator) participants(missionID string) []registry.Worker {
	seen := make(map[string]bool)
	var out []registry.Worker
	for _, t := range c.store.Tasks(missionID) {
		if t.WorkerID == "" || seen[t.WorkerID] {
			continue
		}
		seen[t.WorkerID] = true
		out = append(out, c.workerFor(t))
	}
	for _, w := range c.workers.All() {
		if len(out) >= 2 {
			break
		}
		if !seen[w.ID] {
			seen[w.ID] = true
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		out = append(out, registry.Worker{ID: "generalist", Name: "Generalist"})
	}
	return out
}

func (c *Coordinator) agenda(missionID string) string {
	var sb strings.Builder
	for _, t := range c.store.Tasks(missionID) {
		fmt.Fprintf(&sb, "- %s: %s\n", t.ID, t.Description)
	}
	return sb.String()
}

func (c *Coordinator) collabPrompt(missionID string, speaker registry.Worker, participants []registry.Worker, agenda string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s (%s) in a working session with specialists.\n", speaker.ID, speaker.Name)
	sb.WriteString("Participants: ")
	var names []string
	for _, p := range participants {
		names = append(names, p.ID)
	}
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString("\n\nAGENDA:\n")
	sb.WriteString(agenda)

	msgs := c.store.Messages(missionID)
	if len(msgs) > 0 {
		sb.WriteString("\nTHREAD SO FAR:\n")
		for _, m := range msgs {
			fmt.Fprintf(&sb, "[%s] %s: %s\n", m.Kind, m.From, m.Content)
		}
	}

	sb.WriteString("\nTake your turn. Respond ONLY with JSON:\n")
	sb.WriteString(`{"message": "<your contribution>", "is_complete": <bool>, "handoff_to": "<participant id or empty>", "needs_user": <bool>, "proposal": "<concrete approach you are committing to, or empty>"}` + "\n")
	sb.WriteString("Set is_complete=true only when the agenda is fully addressed; put the final deliverable in message.\n")
	return sb.String()
}

// arbitrate settles two conflicting proposals with one model call. The
// decision is binding for the rest of the thread.
func (c *Coordinator) arbitrate(ctx context.Context, agenda, a, b string) string {
	prompt := fmt.Sprintf(
		"Two specialists disagree on how to proceed.\nAGENDA:\n%s\nPROPOSAL A: %s\nPROPOSAL B: %s\n"+
			"Pick the stronger proposal and state it in one short paragraph. Do not hedge.",
		agenda, a, b)
	decision, err := c.client.Complete(ctx, prompt, c.model)
	if err != nil || strings.TrimSpace(decision) == "" {
		// Arbiter unavailable: keep the earlier commitment.
		return a
	}
	return strings.TrimSpace(decision)
}

// finishCollaboration marks every task completed with the thread's final
// deliverable, walking topological order so dependency guards hold.
func (c *Coordinator) finishCollaboration(missionID string, g *graph.Graph, deliverable string) {
	for _, id := range g.TopoOrder() {
		t, ok := c.store.Task(id)
		if !ok || t.Status.Terminal() {
			continue
		}
		if err := c.store.StartTask(id); err != nil {
			c.store.BlockTask(id, err.Error())
			continue
		}
		c.store.CompleteTask(id, deliverable)
	}
}

func nextSpeaker(participants []registry.Worker, current registry.Worker, handoff string) registry.Worker {
	if handoff != "" {
		for _, p := range participants {
			if p.ID == handoff {
				return p
			}
		}
	}
	for i, p := range participants {
		if p.ID == current.ID {
			return participants[(i+1)%len(participants)]
		}
	}
	return participants[0]
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
