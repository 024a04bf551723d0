package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// StreamManager fans lifecycle events out to SSE subscribers by run id.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{} // RunID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager. A nil logger discards logs.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel for runID. The returned func unsubscribes and
// closes the channel.
func (sm *StreamManager) Subscribe(runID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 32)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan string]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			// Finish may already have removed and closed ch
			if subs, ok := sm.subscribers[runID]; ok {
				if _, live := subs[ch]; live {
					delete(subs, ch)
					close(ch)
				}
				if len(subs) == 0 {
					delete(sm.subscribers, runID)
				}
			}
		})
	}
}

// Broadcast sends msg to every subscriber of runID, dropping it for slow
// clients.
func (sm *StreamManager) Broadcast(runID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[runID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "run_id", runID)
		}
	}
}

// Finish delivers the terminal msg to every subscriber of runID and closes
// their channels. A full buffer loses its oldest event instead of msg.
func (sm *StreamManager) Finish(runID string, msg string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for ch := range sm.subscribers[runID] {
		for sent := false; !sent; {
			select {
			case ch <- msg:
				sent = true
			default:
				select {
				case <-ch:
					sm.logger.Warn("SSE: Client buffer full, dropping oldest message", "run_id", runID)
				default:
				}
			}
		}
		close(ch)
	}
	delete(sm.subscribers, runID)
}

func (sm *StreamManager) publish(runID string, event any, terminal bool) {
	data, err := json.Marshal(event)
	if err != nil {
		sm.logger.Warn("SSE: encode event failed", "run_id", runID, "error", err)
		return
	}
	if terminal {
		sm.Finish(runID, string(data))
		return
	}
	sm.Broadcast(runID, string(data))
}

// Hooks returns lifecycle hooks feeding the manager. Tool payloads are left
// out of the stream.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart:  func(_ context.Context, e *domain.RunEvent) { sm.publish(e.RunID, e, false) },
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) { sm.publish(e.RunID, e, true) },
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { sm.publish(e.RunID, e, false) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { sm.publish(e.RunID, e, false) },
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			c := *e
			c.Input, c.Output = nil, nil
			sm.publish(e.RunID, &c, false)
		},
	}
}

// SubscribeEvents handles GET /runs/{runID}/events (SSE).
// The stream ends after the run_finish event. Runs that are already terminal
// get a single run_finish event built from the record.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming not supported"))
		return
	}
	runID := chi.URLParam(r, "runID")

	// Subscribe before reading the record so no event falls in between.
	ch, cancel := s.Streams.Subscribe(runID)
	defer cancel()

	run, err := s.Engine.GetRun(r.Context(), runID)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	if run.Status.IsTerminal() {
		data, _ := json.Marshal(finishEvent(run))
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", domain.EventRunFinish, data)
		flusher.Flush()
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var head domain.EventBase
			_ = json.Unmarshal([]byte(msg), &head)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", head.Type, msg)
			flusher.Flush()
			if head.Type == domain.EventRunFinish {
				return
			}
		}
	}
}

func finishEvent(run *domain.Run) *domain.RunEvent {
	e := &domain.RunEvent{
		EventBase: domain.EventBase{Type: domain.EventRunFinish, RunID: run.ID, GraphID: run.GraphID},
		Status:    run.Status,
		Steps:     len(run.Log),
		Error:     run.Error,
	}
	if run.CompletedAt != nil {
		e.Timestamp = *run.CompletedAt
		if run.StartedAt != nil {
			e.Duration = run.CompletedAt.Sub(*run.StartedAt)
		}
	}
	return e
}
