package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/logging"
	pgraph "github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/pkg/definition"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/graph"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/workflows/codereview"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// Server serves the engine over HTTP.
type Server struct {
	Engine  ports.WorkflowService
	Streams *StreamManager

	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithStreams serves GET /runs/{id}/events from sm. The engine must have been
// built with sm.Hooks() for events to flow.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithMetrics serves GET /metrics from g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.WorkflowService, opts ...Option) http.Handler {
	s := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)

	r.Get("/tools", s.ListTools)
	r.Post("/tools/call", s.CallTool)

	r.Route("/graphs", func(r chi.Router) {
		r.Get("/", s.ListGraphs)
		r.Post("/", s.CreateGraph)
		r.Get("/list", s.ListGraphs)
		r.Get("/{graphID}", s.GetGraph)
		r.Get("/{graphID}/mermaid", s.GetGraphMermaid)
		r.Post("/{graphID}/runs", s.RunGraph)
	})

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.ListRuns)
		r.Get("/{runID}", s.GetRun)
		if s.Streams != nil {
			r.Get("/{runID}/events", s.SubscribeEvents)
		}
	})

	r.Post("/workflows/code-review", s.RunCodeReview)

	// Paths of the original Python service.
	r.Get("/tools/list", s.ListTools)
	r.Post("/graph/create", s.CreateGraph)
	r.Get("/graph/runs", s.ListRuns)
	r.Post("/graph/run", s.RunGraph)
	r.Get("/graph/state/{runID}", s.GetRun)
	r.Get("/graph/{graphID}", s.GetGraph)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   tendril.Version,
	})
}

// ListTools handles GET /tools.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.Engine.ListTools()
	s.writeJSON(w, http.StatusOK, map[string]any{"tools": tools, "count": len(tools)})
}

type toolCallRequest struct {
	ToolName string         `json:"tool_name"`
	Kwargs   map[string]any `json:"kwargs"`
}

// CallTool handles POST /tools/call.
func (s *Server) CallTool(w http.ResponseWriter, r *http.Request) {
	var body toolCallRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.ToolName == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("tool_name is required"))
		return
	}

	result, err := s.Engine.CallTool(r.Context(), body.ToolName, body.Kwargs)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrToolNotFound) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tool_name": body.ToolName,
		"result":    result,
		"success":   true,
	})
}

// CreateGraph handles POST /graphs with a definition document.
func (s *Server) CreateGraph(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if !s.decode(w, r, &raw) {
		return
	}
	def, err := definition.Decode(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	warnings, err := s.Engine.CreateGraph(r.Context(), def)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrDuplicateGraph) {
			status = http.StatusConflict
		}
		s.writeError(w, status, err)
		return
	}

	info, err := s.Engine.DescribeGraph(def.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"graph_id":   info.ID,
		"status":     "created",
		"node_count": len(info.Nodes),
		"edge_count": len(info.Edges),
		"valid":      true,
		"warnings":   warnings,
	})
}

type graphSummary struct {
	ID          string    `json:"graph_id"`
	Description string    `json:"description,omitempty"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListGraphs handles GET /graphs.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	infos := s.Engine.ListGraphs()
	out := make([]graphSummary, len(infos))
	for i, info := range infos {
		out[i] = graphSummary{
			ID:          info.ID,
			Description: info.Description,
			Nodes:       len(info.Nodes),
			Edges:       len(info.Edges),
			CreatedAt:   info.CreatedAt,
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"graphs": out, "count": len(out)})
}

type graphDetail struct {
	graph.Info
	NodeIDs   []string `json:"node_ids"`
	NodeCount int      `json:"node_count"`
	EdgeCount int      `json:"edge_count"`
}

// GetGraph handles GET /graphs/{graphID}.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	info, err := s.Engine.DescribeGraph(chi.URLParam(r, "graphID"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	ids := make([]string, len(info.Nodes))
	for i, n := range info.Nodes {
		ids[i] = n.ID
	}
	s.writeJSON(w, http.StatusOK, graphDetail{
		Info:      info,
		NodeIDs:   ids,
		NodeCount: len(info.Nodes),
		EdgeCount: len(info.Edges),
	})
}

// GetGraphMermaid handles GET /graphs/{graphID}/mermaid. The optional run_id
// query parameter overlays that run's path.
func (s *Server) GetGraphMermaid(w http.ResponseWriter, r *http.Request) {
	info, err := s.Engine.DescribeGraph(chi.URLParam(r, "graphID"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	var overlay *pgraph.GraphOverlay
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		run, err := s.Engine.GetRun(r.Context(), runID)
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
		if run.GraphID != info.ID {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("run %s belongs to graph %s", run.ID, run.GraphID))
			return
		}
		overlay = pgraph.OverlayFromRun(run)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, pgraph.GenerateMermaid(info, overlay))
}

type runRequest struct {
	GraphID      string        `json:"graph_id"`
	InitialState *domain.State `json:"initial_state"`
	Async        bool          `json:"async_execution"`
}

// RunGraph handles POST /graphs/{graphID}/runs and POST /graph/run.
// Synchronous runs answer 200 with the terminal record, failed or not.
// Async runs (async_execution or ?async=true) answer 202 with the pending record.
func (s *Server) RunGraph(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if !s.decode(w, r, &body) {
		return
	}
	if id := chi.URLParam(r, "graphID"); id != "" {
		body.GraphID = id
	}
	if body.GraphID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("graph_id is required"))
		return
	}
	if v := r.URL.Query().Get("async"); v != "" {
		async, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid async parameter: %w", err))
			return
		}
		body.Async = async
	}
	s.execute(w, r, body.GraphID, body.InitialState, body.Async)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, graphID string, initial *domain.State, async bool) {
	if initial == nil {
		initial = domain.NewState()
	}

	if async {
		run, err := s.Engine.StartRun(r.Context(), graphID, initial)
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
		w.Header().Set("Location", "/runs/"+run.ID)
		s.writeJSON(w, http.StatusAccepted, run)
		return
	}

	run, err := s.Engine.RunGraph(r.Context(), graphID, initial)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.logger.InfoContext(r.Context(), "run finished",
		"run_id", run.ID, "graph", graphID, "status", run.Status, "steps", len(run.Log))
	s.writeJSON(w, http.StatusOK, run)
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Engine.ListRuns(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]domain.RunSummary, len(runs))
	for i, run := range runs {
		out[i] = run.Summary()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": out, "count": len(out)})
}

// GetRun handles GET /runs/{runID}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.Engine.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

type codeReviewRequest struct {
	Code             string   `json:"code"`
	QualityThreshold *float64 `json:"quality_threshold"`
	Gate             bool     `json:"gate"`
	Async            bool     `json:"async_execution"`
}

// RunCodeReview handles POST /workflows/code-review.
func (s *Server) RunCodeReview(w http.ResponseWriter, r *http.Request) {
	var body codeReviewRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Code == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("'code' field is required"))
		return
	}
	threshold := codereview.DefaultThreshold
	if body.QualityThreshold != nil {
		threshold = *body.QualityThreshold
	}
	graphID := codereview.WorkflowID
	if body.Gate {
		graphID = codereview.GateWorkflowID
	}
	s.execute(w, r, graphID, codereview.InitialState(body.Code, threshold), body.Async)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.logger.WarnContext(r.Context(), "invalid request body", "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrGraphNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrToolNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateGraph):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
