package chatapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/scribe/internal/convo"
)

func (a *API) handleGetContext(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("scribe.channel.id", channelID))

	text := a.convo.FormattedContext(channelID, convo.ContextOptions{
		IncludeDecisions: true,
		IncludeFocus:     true,
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"channel_id": channelID,
		"context":    text,
	})
}

func (a *API) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string `json:"query"`
		ChannelID string `json:"channel_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if req.Query == "" || req.ChannelID == "" {
		http.Error(w, `{"error":"query and channel_id are required"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("scribe.channel.id", req.ChannelID))

	answer := a.convo.AnswerContextQuery(req.Query, req.ChannelID, a.projects[req.ChannelID])

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"answer": answer})
}
