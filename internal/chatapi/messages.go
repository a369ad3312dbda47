package chatapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/scribe/internal/chat"
	"github.com/linnemanlabs/scribe/internal/convo"
)

// ingestResponse is the enriched bundle plus the extraction submit
// outcome for one accepted message.
type ingestResponse struct {
	*convo.Enriched

	Extraction struct {
		ID      string `json:"id,omitempty"`
		Skipped bool   `json:"skipped"`
		Reason  string `json:"reason,omitempty"`
	} `json:"extraction"`
}

func (a *API) handleIngestMessage(w http.ResponseWriter, r *http.Request) {
	var msg chat.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if msg.ChannelID == "" || msg.Content == "" || msg.Username == "" {
		http.Error(w, `{"error":"channel_id, content, and username are required"}`, http.StatusBadRequest)
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("scribe.channel.id", msg.ChannelID))

	enriched := a.convo.ProcessMessage(
		msg.ChannelID, msg.MessageID, msg.Content, msg.Username, msg.Timestamp,
		a.projects[msg.ChannelID],
	)

	span.SetAttributes(
		attribute.String("scribe.thread.id", enriched.ThreadID),
		attribute.Int("scribe.attention.score", enriched.Attention.Score),
	)

	res, err := a.svc.Submit(r.Context(), &msg, enriched)
	if err != nil {
		a.logger.Error(r.Context(), err, "extraction submit failed", "channel", msg.ChannelID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	resp := ingestResponse{Enriched: enriched}
	resp.Extraction.ID = res.ID
	resp.Extraction.Skipped = res.Skipped
	resp.Extraction.Reason = res.Reason

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(resp)
}
