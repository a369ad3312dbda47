package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/scribe/internal/chat"
	"github.com/linnemanlabs/scribe/internal/convo"
)

const (
	// ResponseTokens caps the completion size; the task payload is small.
	ResponseTokens = 1024

	// contextMessages bounds how much thread history goes into the prompt.
	contextMessages = 8
)

var tracer = otel.Tracer("github.com/linnemanlabs/scribe/internal/extract")

// EngineHooks receives engine events for metrics. All fields are optional.
type EngineHooks struct {
	OnLLMCall  func(inputTokens, outputTokens int, duration float64)
	OnComplete func(e *CompleteEvent)
}

// CompleteEvent describes a finished extraction run.
type CompleteEvent struct {
	Status     Status
	Model      string
	Duration   float64
	TokensIn   int
	TokensOut  int
	Confidence string
	Actionable bool
}

// RunResult is the outcome of a single extraction run.
type RunResult struct {
	Status             Status
	Actionable         bool
	Title              string
	Description        string
	Priority           string
	Assignee           string
	Labels             []string
	Confidence         string
	AdjustedConfidence string
	AdjustReasons      []string
	Failure            string
	Model              string
	CompletedAt        time.Time
	Duration           float64
	TokensIn           int
	TokensOut          int
}

// Engine turns one chat message plus its conversational context into a task
// candidate via a single forced-JSON LLM completion.
type Engine struct {
	provider Provider
	convo    *convo.Engine
	logger   log.Logger
	hooks    EngineHooks
}

// NewEngine creates a new extraction engine with the given dependencies.
func NewEngine(provider Provider, convoEngine *convo.Engine, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		provider: provider,
		convo:    convoEngine,
		logger:   logger,
		hooks:    hooks,
	}
}

// taskPayload is the JSON shape the model is asked to produce.
type taskPayload struct {
	Actionable  bool     `json:"actionable"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Assignee    string   `json:"assignee"`
	Labels      []string `json:"labels"`
	Confidence  string   `json:"confidence"`
}

// Run executes one extraction: build prompts, call the provider once, parse
// the task payload, and apply the learned confidence adjustment.
func (e *Engine) Run(ctx context.Context, id string, msg *chat.Message) *RunResult {
	start := time.Now()
	rr := &RunResult{Status: StatusComplete}

	L := e.logger.With(
		"extract_id", id,
		"channel", msg.ChannelID,
	)

	system := buildSystemPrompt()
	user := e.buildUserPrompt(msg)

	ctx, span := tracer.Start(ctx, "llm.call", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", "llm.call"),
		attribute.String("scribe.extract.id", id),
		attribute.String("scribe.channel.id", msg.ChannelID),
	))
	span.AddEvent("llm.request", trace.WithAttributes(
		attribute.String("llm.request.body", user),
	))

	llmStart := time.Now()
	resp, err := e.provider.Send(ctx, &LLMRequest{
		MaxTokens: ResponseTokens,
		System:    system,
		Messages:  []Message{{Role: "user", Content: user}},
	})
	llmDur := time.Since(llmStart).Seconds()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		L.Error(ctx, err, "llm call failed")
		rr.Status = StatusFailed
		rr.Failure = fmt.Sprintf("LLM error: %v", err)
		e.finish(rr, start)
		return rr
	}

	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.Int("gen_ai.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", resp.Usage.OutputTokens),
	)
	span.AddEvent("llm.response", trace.WithAttributes(
		attribute.String("llm.response.body", resp.Text),
	))
	span.End()

	if e.hooks.OnLLMCall != nil {
		e.hooks.OnLLMCall(resp.Usage.InputTokens, resp.Usage.OutputTokens, llmDur)
	}

	rr.Model = resp.Model
	rr.TokensIn = resp.Usage.InputTokens
	rr.TokensOut = resp.Usage.OutputTokens

	L.Info(ctx, "llm response",
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)

	payload, err := parseTaskPayload(resp.Text)
	if err != nil {
		L.Error(ctx, err, "task payload parse failed")
		rr.Status = StatusFailed
		rr.Failure = fmt.Sprintf("payload parse: %v", err)
		e.finish(rr, start)
		return rr
	}

	rr.Actionable = payload.Actionable
	rr.Title = payload.Title
	rr.Description = payload.Description
	rr.Priority = payload.Priority
	rr.Assignee = payload.Assignee
	rr.Labels = payload.Labels
	rr.Confidence = normalizeConfidence(payload.Confidence)

	adj := e.convo.LearnedConfidenceAdjustment(msg.Content, rr.Confidence)
	rr.AdjustedConfidence = adj.Adjusted
	rr.AdjustReasons = adj.Reasons

	e.finish(rr, start)

	L.Info(ctx, "extraction complete",
		"actionable", rr.Actionable,
		"confidence", rr.Confidence,
		"adjusted_confidence", rr.AdjustedConfidence,
		"duration", rr.Duration,
	)
	return rr
}

func (e *Engine) finish(rr *RunResult, start time.Time) {
	rr.CompletedAt = time.Now()
	rr.Duration = time.Since(start).Seconds()
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(&CompleteEvent{
			Status:     rr.Status,
			Model:      rr.Model,
			Duration:   rr.Duration,
			TokensIn:   rr.TokensIn,
			TokensOut:  rr.TokensOut,
			Confidence: rr.AdjustedConfidence,
			Actionable: rr.Actionable,
		})
	}
}

// buildSystemPrompt instructs the model to judge actionability and emit the
// task payload as bare JSON.
func buildSystemPrompt() string {
	return `You are Scribe, a task-extraction assistant for engineering chat.
Given one chat message and the surrounding conversation context, decide whether
the message describes actionable work (a bug to fix, a feature to build, a
concrete follow-up). If it does, produce an issue-tracker-ready task.

Respond with a single JSON object and nothing else:
{
  "actionable": true|false,
  "title": "imperative, under 80 characters",
  "description": "what and why, with relevant context",
  "priority": "low|medium|high",
  "assignee": "username if the message names one, else empty",
  "labels": ["bug"|"feature"|"chore", ...],
  "confidence": "low|medium|high"
}

Set confidence low for hedged or speculative messages, high only when the
message clearly commits to work.`
}

// buildUserPrompt packs the message and the channel's formatted context.
func (e *Engine) buildUserPrompt(msg *chat.Message) string {
	convoContext := e.convo.FormattedContext(msg.ChannelID, convo.ContextOptions{
		MaxMessages:      contextMessages,
		IncludeDecisions: true,
		IncludeFocus:     true,
	})

	return fmt.Sprintf(`Message from %s at %s:
%s

Conversation context:
%s`,
		msg.Username,
		msg.Timestamp.Format(time.RFC3339),
		msg.Content,
		convoContext,
	)
}

// parseTaskPayload pulls the JSON object out of the completion text. Models
// occasionally wrap the object in prose or fences, so scan for the braces.
func parseTaskPayload(text string) (*taskPayload, error) {
	open := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if open < 0 || end <= open {
		return nil, fmt.Errorf("no JSON object in completion: %q", snippet(text))
	}

	var p taskPayload
	if err := json.Unmarshal([]byte(text[open:end+1]), &p); err != nil {
		return nil, fmt.Errorf("unmarshal task payload: %w", err)
	}
	return &p, nil
}

func normalizeConfidence(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return "low"
	case "high":
		return "high"
	default:
		return "medium"
	}
}

func snippet(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
