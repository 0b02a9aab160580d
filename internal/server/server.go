// Package server exposes the orchestration core over HTTP: mission
// submission, status reads, cancellation, and a live status event feed.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/logger"
	"github.com/siddharthanagula3/agiagentautomation-sub014/internal/mission"
)

// Submitter is the supervisor surface the server needs.
type Submitter interface {
	Submit(request string) string
	Cancel(id string) error
}

// Loader reads missions that are no longer in the in-memory store, such as
// those from earlier sessions. May be nil.
type Loader interface {
	LoadMission(id string) (mission.Mission, []mission.Task, error)
}

// Server serves the mission API. Reads come from the store, falling back to
// persisted history; writes go through the supervisor.
type Server struct {
	store  *mission.Store
	sup    Submitter
	loader Loader
	mux    *http.ServeMux
}

func New(store *mission.Store, sup Submitter, loader Loader) *Server {
	s := &Server{store: store, sup: sup, loader: loader, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /missions", s.handleSubmit)
	s.mux.HandleFunc("GET /missions/{id}", s.handleStatus)
	s.mux.HandleFunc("GET /missions/{id}/events", s.handleEvents)
	s.mux.HandleFunc("POST /missions/{id}/cancel", s.handleCancel)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Log.Printf("[server] listening on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Request string `json:"request"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Request) == "" {
		httpError(w, http.StatusBadRequest, "request must not be empty")
		return
	}
	id := s.sup.Submit(body.Request)
	writeJSON(w, http.StatusAccepted, map[string]string{"mission_id": id})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if m, ok := s.store.Mission(id); ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"mission": m,
			"tasks":   s.store.Tasks(id),
		})
		return
	}
	if s.loader != nil {
		if m, tasks, err := s.loader.LoadMission(id); err == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"mission": m,
				"tasks":   tasks,
			})
			return
		}
	}
	httpError(w, http.StatusNotFound, "unknown mission")
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.store.Mission(id); !ok {
		httpError(w, http.StatusNotFound, "unknown mission")
		return
	}
	if err := s.sup.Cancel(id); err != nil {
		httpError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mission_id": id, "status": "cancelling"})
}

// handleEvents streams the mission's status events as server-sent events
// until the client disconnects or the mission reaches a terminal state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.store.Mission(id); !ok {
		httpError(w, http.StatusNotFound, "unknown mission")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := s.store.Emitter().Subscribe(64)
	defer unsubscribe()

	// Snapshot first so a late subscriber still sees the current state.
	if m, ok := s.store.Mission(id); ok {
		writeSSE(w, mission.StatusEvent{
			EntityType: "mission",
			EntityID:   m.ID,
			MissionID:  m.ID,
			NewStatus:  string(m.Status),
			Timestamp:  time.Now(),
		})
		flusher.Flush()
		if m.Status.Terminal() {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.MissionID != id {
				continue
			}
			writeSSE(w, ev)
			flusher.Flush()
			if ev.EntityType == "mission" && mission.MissionStatus(ev.NewStatus).Terminal() {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, ev mission.StatusEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.EntityType, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Printf("[server] write response: %v", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
