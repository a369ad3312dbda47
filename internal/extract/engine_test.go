package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/scribe/internal/chat"
	"github.com/linnemanlabs/scribe/internal/convo"
)

const claudeTestModel = "claude-sonnet-4-20250514"

// mockProvider returns preconfigured responses in sequence.
type mockProvider struct {
	mu        sync.Mutex
	responses []*LLMResponse
	errs      []error
	callIdx   int
	lastReq   *LLMRequest
}

func (m *mockProvider) Send(_ context.Context, req *LLMRequest) (*LLMResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastReq = req
	idx := m.callIdx
	m.callIdx++

	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return &LLMResponse{
		Text:       `{"actionable":false,"confidence":"low"}`,
		StopReason: StopEnd,
		Model:      claudeTestModel,
		Usage:      Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func taskResponse(text string) *LLMResponse {
	return &LLMResponse{
		Text:       text,
		StopReason: StopEnd,
		Model:      claudeTestModel,
		Usage:      Usage{InputTokens: 120, OutputTokens: 40},
	}
}

func newConvoEngine() *convo.Engine {
	return convo.NewEngine(convo.NewStore(), log.Nop(), convo.Hooks{})
}

func testMessage(content string) *chat.Message {
	return &chat.Message{
		ChannelID: "ch-eng",
		MessageID: "m1",
		Content:   content,
		Username:  "alice",
		Timestamp: time.Now(),
	}
}

func TestRun_ParsesPayload(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{responses: []*LLMResponse{taskResponse(
		"Here is the task:\n```json\n" +
			`{"actionable":true,"title":"Fix checkout timeout","description":"Payments time out under load","priority":"high","assignee":"bob","labels":["bug"],"confidence":"high"}` +
			"\n```",
	)}}
	engine := NewEngine(provider, newConvoEngine(), log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "x-1", testMessage("we need to fix the checkout timeout"))

	if rr.Status != StatusComplete {
		t.Fatalf("status = %q, want %q", rr.Status, StatusComplete)
	}
	if !rr.Actionable {
		t.Error("expected actionable")
	}
	if rr.Title != "Fix checkout timeout" {
		t.Errorf("title = %q", rr.Title)
	}
	if rr.Priority != "high" || rr.Assignee != "bob" {
		t.Errorf("priority/assignee = %q/%q", rr.Priority, rr.Assignee)
	}
	if len(rr.Labels) != 1 || rr.Labels[0] != "bug" {
		t.Errorf("labels = %v", rr.Labels)
	}
	if rr.Confidence != "high" {
		t.Errorf("confidence = %q, want high", rr.Confidence)
	}
	if rr.AdjustedConfidence != "high" {
		t.Errorf("adjusted confidence = %q, want high with an empty trail", rr.AdjustedConfidence)
	}
	if rr.Model != claudeTestModel {
		t.Errorf("model = %q", rr.Model)
	}
	if rr.TokensIn != 120 || rr.TokensOut != 40 {
		t.Errorf("tokens = %d/%d", rr.TokensIn, rr.TokensOut)
	}
	if rr.Duration <= 0 {
		t.Error("expected positive duration")
	}
}

func TestRun_LLMError(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{errs: []error{errors.New("api key expired")}}
	engine := NewEngine(provider, newConvoEngine(), log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "x-2", testMessage("fix the importer"))

	if rr.Status != StatusFailed {
		t.Errorf("status = %q, want %q", rr.Status, StatusFailed)
	}
	if !strings.Contains(rr.Failure, "api key expired") {
		t.Errorf("failure = %q, want it to contain the error", rr.Failure)
	}
}

func TestRun_BadPayload(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{responses: []*LLMResponse{taskResponse("I cannot determine a task here.")}}
	engine := NewEngine(provider, newConvoEngine(), log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "x-3", testMessage("fix the importer"))

	if rr.Status != StatusFailed {
		t.Errorf("status = %q, want %q", rr.Status, StatusFailed)
	}
	if !strings.Contains(rr.Failure, "payload parse") {
		t.Errorf("failure = %q, want a parse failure", rr.Failure)
	}
}

func TestRun_NormalizesConfidence(t *testing.T) {
	t.Parallel()

	provider := &mockProvider{responses: []*LLMResponse{taskResponse(
		`{"actionable":true,"title":"T","confidence":"certain"}`,
	)}}
	engine := NewEngine(provider, newConvoEngine(), log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "x-4", testMessage("fix the importer"))

	if rr.Confidence != "medium" {
		t.Errorf("confidence = %q, want medium for an unknown level", rr.Confidence)
	}
}

func TestRun_AppliesLearnedAdjustment(t *testing.T) {
	t.Parallel()

	ce := newConvoEngine()
	for i := 0; i < 6; i++ {
		ce.RecordConfidence("maybe we could look at this sometime", convo.ExtractionResult{
			Actionable: false,
			Confidence: "low",
		}, "skipped")
	}

	provider := &mockProvider{responses: []*LLMResponse{taskResponse(
		`{"actionable":true,"title":"T","confidence":"medium"}`,
	)}}
	engine := NewEngine(provider, ce, log.Nop(), EngineHooks{})

	rr := engine.Run(context.Background(), "x-5", testMessage("maybe we should fix the importer"))

	if rr.AdjustedConfidence != "low" {
		t.Errorf("adjusted confidence = %q, want low (hedging history)", rr.AdjustedConfidence)
	}
	if len(rr.AdjustReasons) == 0 {
		t.Error("expected adjustment reasons")
	}
}

func TestRun_PromptCarriesContext(t *testing.T) {
	t.Parallel()

	ce := newConvoEngine()
	ce.ProcessMessage("ch-eng", "m0", "we need to fix the payout job", "alice", time.Now(), "")

	provider := &mockProvider{}
	engine := NewEngine(provider, ce, log.Nop(), EngineHooks{})

	engine.Run(context.Background(), "x-6", testMessage("let's do it this sprint"))

	provider.mu.Lock()
	defer provider.mu.Unlock()
	if provider.lastReq == nil {
		t.Fatal("provider not called")
	}
	if provider.lastReq.System == "" {
		t.Error("expected a system prompt")
	}
	user := provider.lastReq.Messages[0].Content
	if !strings.Contains(user, "let's do it this sprint") {
		t.Errorf("user prompt missing the message:\n%s", user)
	}
	if !strings.Contains(user, "payout job") {
		t.Errorf("user prompt missing channel context:\n%s", user)
	}
}

func TestRun_HooksCalled(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		llmCalls  int
		tokensIn  int
		completes []*CompleteEvent
	)
	hooks := EngineHooks{
		OnLLMCall: func(in, _ int, _ float64) {
			mu.Lock()
			defer mu.Unlock()
			llmCalls++
			tokensIn += in
		},
		OnComplete: func(e *CompleteEvent) {
			mu.Lock()
			defer mu.Unlock()
			completes = append(completes, e)
		},
	}

	provider := &mockProvider{responses: []*LLMResponse{taskResponse(
		`{"actionable":true,"title":"T","confidence":"high"}`,
	)}}
	engine := NewEngine(provider, newConvoEngine(), log.Nop(), hooks)

	engine.Run(context.Background(), "x-7", testMessage("fix the importer"))

	mu.Lock()
	defer mu.Unlock()
	if llmCalls != 1 {
		t.Errorf("llm hook calls = %d, want 1", llmCalls)
	}
	if tokensIn != 120 {
		t.Errorf("tokens in = %d, want 120", tokensIn)
	}
	if len(completes) != 1 {
		t.Fatalf("complete hook calls = %d, want 1", len(completes))
	}
	if completes[0].Status != StatusComplete {
		t.Errorf("complete status = %q", completes[0].Status)
	}
	if completes[0].Confidence != "high" {
		t.Errorf("complete confidence = %q, want high", completes[0].Confidence)
	}
}

func TestRun_CreatesSpans(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	provider := &mockProvider{responses: []*LLMResponse{taskResponse(
		`{"actionable":true,"title":"T","confidence":"high"}`,
	)}}
	engine := NewEngine(provider, newConvoEngine(), log.Nop(), EngineHooks{})

	engine.Run(context.Background(), "span-id", testMessage("fix the importer"))

	spans := exporter.GetSpans()
	var found bool
	for _, s := range spans {
		if s.Name != "llm.call" {
			continue
		}
		found = true
		attrs := make(map[string]any)
		for _, a := range s.Attributes {
			attrs[string(a.Key)] = a.Value.AsInterface()
		}
		if v := attrs["scribe.extract.id"]; v != "span-id" {
			t.Errorf("scribe.extract.id = %v, want span-id", v)
		}
		if v := attrs["gen_ai.response.model"]; v != claudeTestModel {
			t.Errorf("gen_ai.response.model = %v", v)
		}
		events := make(map[string]bool)
		for _, ev := range s.Events {
			events[ev.Name] = true
		}
		if !events["llm.request"] || !events["llm.response"] {
			t.Error("llm.call span missing request/response events")
		}
	}
	if !found {
		t.Fatal("no llm.call span recorded")
	}
}
