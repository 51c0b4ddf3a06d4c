package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cuemby/dispatch/pkg/log"
	"github.com/cuemby/dispatch/pkg/metrics"
	"github.com/cuemby/dispatch/pkg/scheduler"
	"github.com/cuemby/dispatch/pkg/storage"
	"github.com/cuemby/dispatch/pkg/types"
	"github.com/rs/zerolog"
)

// Server is the admin/job-coordinator-facing HTTP API in front of a
// Scheduler. It has no state of its own beyond the mux: apart from the
// health, metrics and job-events routes, every route is a thin adapter onto
// a Scheduler method.
type Server struct {
	sched  *scheduler.Scheduler
	store  storage.Store // optional; nil disables event-log retrieval and drop-on-clean
	logger zerolog.Logger
	mux    *http.ServeMux
}

// NewServer builds the admin API around sched. store may be nil.
func NewServer(sched *scheduler.Scheduler, store storage.Store) *Server {
	s := &Server{
		sched:  sched,
		store:  store,
		logger: log.WithComponent("api"),
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/ready", s.readyHandler)
	s.mux.HandleFunc("/live", s.liveHandler)
	s.mux.Handle("/metrics", metricsHandlerFunc())

	s.mux.HandleFunc("/tasks", s.handleSubmit)
	s.mux.HandleFunc("/jobs/", s.handleJob) // /jobs/{name}, /jobs/{name}/clean, /jobs/{name}/active, /jobs/{name}/events
	s.mux.HandleFunc("/nodes", s.handleNodes)
	s.mux.HandleFunc("/nodes/", s.handleNode) // /nodes/{name}, /nodes/{name}/blacklist
	s.mux.HandleFunc("/config", s.handleConfig)

	return s
}

// Handler returns the http.Handler to mount, instrumented with request
// metrics.
func (s *Server) Handler() http.Handler {
	return s.instrument(s.mux)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.APIRequestsTotal.WithLabelValues(r.Method, http.StatusText(rec.status)).Inc()
		timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// submitRequest is the wire shape of a task submission.
type submitRequest struct {
	Jobname       string `json:"jobname"`
	Partid        int    `json:"partid"`
	Mode          string `json:"mode"`
	PrefNode      string `json:"pref_node,omitempty"`
	TaskBlacklist []string `json:"task_blacklist,omitempty"`
	Input         []byte `json:"input,omitempty"`
	Data          []byte `json:"data,omitempty"`
}

// httpReply is the types.Reply for tasks submitted over HTTP. It discards
// what it is given rather than pushing it over a live connection — the
// admin API is request/response, not a persistent stream. A task's outcome
// shows up in GET /jobs/{name}/events only through the events the scheduler
// publishes, when those are persisted to the event store.
type httpReply struct {
	store storage.Store
}

func (h httpReply) Notify(o types.Outcome) {
	// Outcome delivery to the event log happens through the scheduler's
	// own event publication; this reply has nothing further to do.
	_ = o
}

func (h httpReply) MasterError(message string) {
	_ = message
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Jobname == "" {
		writeError(w, http.StatusBadRequest, "jobname is required")
		return
	}

	task := &types.Task{
		Jobname: req.Jobname,
		Partid:  req.Partid,
		Mode:    req.Mode,
		Pref:    types.Pref{Node: req.PrefNode, TaskBlacklist: req.TaskBlacklist},
		Input:   req.Input,
		Data:    req.Data,
		ReplyTo: httpReply{store: s.store},
	}
	s.sched.Submit(task)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "admitted"})
}

// handleJob dispatches /jobs/{name}[/clean|/active|/events].
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/jobs/")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		writeError(w, http.StatusBadRequest, "job name is required")
		return
	}
	jobname := parts[0]
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodDelete:
		s.sched.KillJob(jobname)
		writeJSON(w, http.StatusOK, map[string]string{"status": "killed"})

	case sub == "clean" && r.Method == http.MethodPost:
		var drop func(string) error
		if s.store != nil {
			drop = s.store.DropJob
		}
		s.sched.CleanJob(jobname, drop)
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleaned"})

	case sub == "active" && r.Method == http.MethodGet:
		nodes, partids := s.sched.GetActive(jobname)
		writeJSON(w, http.StatusOK, map[string]interface{}{"nodes": nodes, "partids": partids})

	case sub == "events" && r.Method == http.MethodGet:
		if s.store == nil {
			writeError(w, http.StatusNotImplemented, "no event store configured")
			return
		}
		evs, err := s.store.ListEvents(jobname)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, evs)

	default:
		writeError(w, http.StatusNotFound, "unknown job route")
	}
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	writeJSON(w, http.StatusOK, s.sched.GetNodeInfo())
}

// handleNode dispatches /nodes/{name}[/blacklist].
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/nodes/")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		writeError(w, http.StatusBadRequest, "node name is required")
		return
	}
	node := parts[0]
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		info, workers, ok := s.sched.GetNode(node)
		if !ok {
			writeError(w, http.StatusNotFound, "node not configured: "+node)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"info": info, "workers": workers})

	case sub == "blacklist" && r.Method == http.MethodPost:
		s.sched.Blacklist(node)
		writeJSON(w, http.StatusOK, map[string]string{"status": "blacklisted"})

	case sub == "blacklist" && r.Method == http.MethodDelete:
		s.sched.Whitelist(node)
		writeJSON(w, http.StatusOK, map[string]string{"status": "whitelisted"})

	default:
		writeError(w, http.StatusNotFound, "unknown node route")
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "PUT required")
		return
	}
	var req struct {
		Nodes []types.Node `json:"nodes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.sched.UpdateConfig(req.Nodes)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// ListenAndServe starts the admin HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info().Str("addr", addr).Msg("admin API listening")
	return server.ListenAndServe()
}
