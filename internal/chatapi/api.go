// Package chatapi exposes the HTTP surface: message ingest, context
// reads, extraction records, and feedback.
package chatapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/scribe/internal/chat"
	"github.com/linnemanlabs/scribe/internal/convo"
	"github.com/linnemanlabs/scribe/internal/extract"
)

// ExtractService defines the extraction operations chatapi needs.
type ExtractService interface {
	Submit(ctx context.Context, msg *chat.Message, enriched *convo.Enriched) (*extract.SubmitResult, error)
	Get(ctx context.Context, id string) (*extract.Record, bool, error)
	Feedback(ctx context.Context, id, outcome, correction string) (bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	convo    *convo.Engine
	svc      ExtractService
	projects map[string]string // channel ID -> project name
}

// New creates a new API handler. projects maps channels to declared
// projects for cross-channel memory; nil disables it.
func New(logger log.Logger, convoEngine *convo.Engine, svc ExtractService, projects map[string]string) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if convoEngine == nil {
		panic(xerrors.New("context engine is required"))
	}
	if svc == nil {
		panic(xerrors.New("extract service is required"))
	}
	return &API{
		logger:   logger,
		convo:    convoEngine,
		svc:      svc,
		projects: projects,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/messages", a.handleIngestMessage)
		r.Get("/context/{channelID}", a.handleGetContext)
		r.Post("/query", a.handleQuery)
		r.Get("/tasks/{id}", a.handleGetTask)
		r.Get("/tasks/{id}/origin", a.handleGetTaskOrigin)
		r.Post("/tasks/{id}/feedback", a.handleTaskFeedback)
	})
}

func (a *API) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("scribe.extract.id", id))

	record, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get extraction record", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("scribe.extract.status", string(record.Status)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(record)
}

func (a *API) handleGetTaskOrigin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("scribe.task.id", id))

	text, ok := a.convo.TaskContextForAI(id)
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"task_id": id,
		"origin":  text,
	})
}

func (a *API) handleTaskFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("scribe.extract.id", id))

	var req struct {
		Outcome    string `json:"outcome"`
		Correction string `json:"correction,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	ok, err := a.svc.Feedback(r.Context(), id, req.Outcome, req.Correction)
	if err != nil {
		http.Error(w, `{"error":"invalid outcome"}`, http.StatusBadRequest)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "recorded"})
}
