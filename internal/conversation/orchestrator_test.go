package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/smart-schedule/internal/booking"
	"github.com/wolfman30/smart-schedule/internal/schedule"
	"github.com/wolfman30/smart-schedule/pkg/logging"
	"google.golang.org/api/googleapi"
)

type stubLLM struct {
	mu        sync.Mutex
	responses []LLMResponse
	errs      []error
	requests  []LLMRequest
}

func (s *stubLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return LLMResponse{}, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return LLMResponse{Text: "ok"}, nil
}

func (s *stubLLM) lastRequest() LLMRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type recordingMetrics struct {
	turns   []string
	tools   []string
	ignored int
}

func (m *recordingMetrics) ObserveTurn(outcome string) { m.turns = append(m.turns, outcome) }
func (m *recordingMetrics) ObserveToolCall(tool string) { m.tools = append(m.tools, tool) }
func (m *recordingMetrics) ObserveIgnoredToolCalls(n int) { m.ignored += n }
func (m *recordingMetrics) ObserveLLMLatency(string, float64) {}

type fixture struct {
	llm     *stubLLM
	repo    *schedule.InMemoryRepository
	history *MemoryHistoryStore
	metrics *recordingMetrics
	orch    *Orchestrator
}

func newFixture(t *testing.T, seed bool) *fixture {
	t.Helper()
	repo := schedule.NewInMemoryRepository()
	if seed {
		_, err := schedule.Seed(context.Background(), repo, schedule.DefaultCatalog())
		require.NoError(t, err)
	}
	loc := time.FixedZone("BRT", -3*60*60)
	logger := logging.New("error")
	f := &fixture{
		llm:     &stubLLM{},
		repo:    repo,
		history: NewMemoryHistoryStore(time.Hour),
		metrics: &recordingMetrics{},
	}
	resolver := booking.NewResolver(repo, logger, booking.WithLocation(loc))
	f.orch = NewOrchestrator(f.llm, repo, resolver, f.history, logger,
		WithLocation(loc),
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }),
	)
	return f
}

func bookCall(args map[string]any) LLMResponse {
	return LLMResponse{ToolCalls: []ToolCall{{Name: ToolBookAppointment, Args: args}}}
}

func fullArgs() map[string]any {
	return map[string]any{
		"customerName":  "Carlos",
		"customerPhone": "11999998888",
		"serviceName":   "degradê",
		"dateTimeIso":   "2026-10-18T10:00:00",
	}
}

func TestHandleMessagePlainReply(t *testing.T) {
	f := newFixture(t, true)
	f.llm.responses = []LLMResponse{{Text: "Qual dia prefere?"}}

	reply := f.orch.HandleMessage(context.Background(), "s1", "Quero cortar o cabelo")

	assert.Equal(t, "Qual dia prefere?", reply.Text)
	assert.Equal(t, "s1", reply.SessionID)
	assert.False(t, reply.Booked)

	req := f.llm.lastRequest()
	require.Len(t, req.Tools, 2)
	require.Len(t, req.System, 1)
	assert.Contains(t, req.System[0], "17/10/2026 06:00")
	require.Len(t, req.Messages, 1)
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "Quero cortar o cabelo"}, req.Messages[0])

	history, _ := f.history.Load(context.Background(), "s1")
	assert.Equal(t, []ChatMessage{
		{Role: ChatRoleUser, Content: "Quero cortar o cabelo"},
		{Role: ChatRoleAssistant, Content: "Qual dia prefere?"},
	}, history)
	assert.Equal(t, []string{outcomeReply}, f.metrics.turns)
}

func TestHandleMessageListServicesInCatalogOrder(t *testing.T) {
	f := newFixture(t, true)
	f.llm.responses = []LLMResponse{{ToolCalls: []ToolCall{{Name: ToolListServices}}}}

	reply := f.orch.HandleMessage(context.Background(), "s1", "Oi")

	want := "Olá. Segue a lista de serviços:\n\n" +
		"- Corte Degradê: R$45.00\n" +
		"- Barba Terapia: R$35.00\n" +
		"- Combo Completo: R$75.00\n\n" +
		"Qual serviço deseja agendar?"
	assert.Equal(t, want, reply.Text)
	assert.Equal(t, []string{ToolListServices}, f.metrics.tools)
}

func TestHandleMessageEmptyCatalog(t *testing.T) {
	f := newFixture(t, false)
	f.llm.responses = []LLMResponse{{ToolCalls: []ToolCall{{Name: ToolListServices}}}}

	reply := f.orch.HandleMessage(context.Background(), "s1", "Oi")
	assert.Equal(t, MsgNoServices, reply.Text)
}

func TestHandleMessageBookingResetsHistory(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.llm.responses = []LLMResponse{
		{Text: "Qual seu nome e telefone?"},
		bookCall(fullArgs()),
		{Text: "Posso ajudar em algo mais?"},
	}

	f.orch.HandleMessage(ctx, "s1", "Corte degradê amanhã às 10h")
	reply := f.orch.HandleMessage(ctx, "s1", "Carlos, 11999998888")

	require.True(t, reply.Booked)
	assert.Equal(t, "Agendamento confirmado. Serviço: Corte Degradê. Cliente: Carlos. Data: 18/10/2026 10:00.", reply.Text)
	history, _ := f.history.Load(ctx, "s1")
	assert.Empty(t, history)

	appts, err := f.repo.ListAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, 1, f.repo.CustomerCount())

	f.orch.HandleMessage(ctx, "s1", "Obrigado")
	assert.Len(t, f.llm.lastRequest().Messages, 1, "next turn starts from an empty history")
}

func TestHandleMessageBookingRejectionKeepsHistory(t *testing.T) {
	f := newFixture(t, true)
	args := fullArgs()
	args["dateTimeIso"] = "amanhã"
	f.llm.responses = []LLMResponse{bookCall(args)}

	reply := f.orch.HandleMessage(context.Background(), "s1", "amanhã às 10h")

	assert.Equal(t, booking.MsgInvalidDate, reply.Text)
	assert.False(t, reply.Booked)
	history, _ := f.history.Load(context.Background(), "s1")
	assert.Len(t, history, 2)
	appts, _ := f.repo.ListAppointments(context.Background())
	assert.Empty(t, appts)
}

func TestHandleMessageMissingFieldsNoSideEffects(t *testing.T) {
	f := newFixture(t, true)
	args := fullArgs()
	delete(args, "customerPhone")
	f.llm.responses = []LLMResponse{bookCall(args)}

	reply := f.orch.HandleMessage(context.Background(), "s1", "Carlos")

	assert.Equal(t, booking.MsgMissingFields, reply.Text)
	assert.Zero(t, f.repo.CustomerCount())
}

func TestHandleMessageNonStringArgumentRejected(t *testing.T) {
	f := newFixture(t, true)
	args := fullArgs()
	args["customerPhone"] = float64(11999998888)
	f.llm.responses = []LLMResponse{bookCall(args)}

	reply := f.orch.HandleMessage(context.Background(), "s1", "Carlos 11999998888")

	assert.Equal(t, booking.MsgMissingFields, reply.Text)
	assert.Zero(t, f.repo.CustomerCount())
	assert.Equal(t, []string{outcomeInvalidArgs}, f.metrics.turns)
}

func TestHandleMessageOnlyFirstToolCallHonored(t *testing.T) {
	f := newFixture(t, true)
	f.llm.responses = []LLMResponse{{ToolCalls: []ToolCall{
		{Name: ToolListServices},
		{Name: ToolBookAppointment, Args: fullArgs()},
	}}}

	reply := f.orch.HandleMessage(context.Background(), "s1", "Oi")

	assert.True(t, strings.HasPrefix(reply.Text, "Olá. Segue a lista de serviços:"))
	appts, _ := f.repo.ListAppointments(context.Background())
	assert.Empty(t, appts)
	assert.Equal(t, 1, f.metrics.ignored)
}

func TestHandleMessageUnknownTool(t *testing.T) {
	f := newFixture(t, true)
	f.llm.responses = []LLMResponse{{ToolCalls: []ToolCall{{Name: "cancel_appointment"}}}}

	reply := f.orch.HandleMessage(context.Background(), "s1", "Cancelar")
	assert.Equal(t, booking.MsgTechnicalError, reply.Text)
	assert.Equal(t, []string{outcomeUnknownTool}, f.metrics.turns)
}

func TestHandleMessageEmptyTextFallsBack(t *testing.T) {
	f := newFixture(t, true)
	f.llm.responses = []LLMResponse{{Text: "   "}}

	reply := f.orch.HandleMessage(context.Background(), "s1", "...")
	assert.Equal(t, MsgFallback, reply.Text)
}

func TestHandleMessageErrorsDoNotTouchHistory(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.llm.responses = []LLMResponse{{Text: "Olá"}}
	f.llm.errs = []error{nil, &googleapi.Error{Code: 429}, errors.New("boom")}

	f.orch.HandleMessage(ctx, "s1", "Oi")
	busy := f.orch.HandleMessage(ctx, "s1", "Oi de novo")
	failed := f.orch.HandleMessage(ctx, "s1", "Alô")

	assert.Equal(t, MsgBusy, busy.Text)
	assert.Equal(t, booking.MsgTechnicalError, failed.Text)
	history, _ := f.history.Load(ctx, "s1")
	assert.Len(t, history, 2)
	assert.Equal(t, []string{outcomeReply, outcomeBusy, outcomeError}, f.metrics.turns)
}

func TestHandleMessageSessionsAreIsolated(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.orch.HandleMessage(ctx, "a", "Oi, sou o A")
	f.orch.HandleMessage(ctx, "b", "Oi, sou o B")

	req := f.llm.lastRequest()
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "Oi, sou o B", req.Messages[0].Content)
}

func TestHandleMessageCapsReplayedHistory(t *testing.T) {
	f := newFixture(t, true)
	f.orch.cfg.maxHistory = 2
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.orch.HandleMessage(ctx, "s1", "msg")
	}
	assert.Len(t, f.llm.lastRequest().Messages, 3)

	stored, err := f.history.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestHandleMessageOddHistoryCapStartsWithUser(t *testing.T) {
	f := newFixture(t, true)
	f.orch.cfg.maxHistory = 5
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		f.orch.HandleMessage(ctx, "s1", "msg")
	}
	msgs := f.llm.lastRequest().Messages
	require.NotEmpty(t, msgs)
	assert.Equal(t, ChatRoleUser, msgs[0].Role)
	assert.Len(t, msgs, 5)

	stored, err := f.history.Load(ctx, "s1")
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	assert.Equal(t, ChatRoleUser, stored[0].Role)
}

func TestTrimHistory(t *testing.T) {
	history := []ChatMessage{
		{Role: ChatRoleUser, Content: "1"},
		{Role: ChatRoleAssistant, Content: "2"},
		{Role: ChatRoleUser, Content: "3"},
		{Role: ChatRoleAssistant, Content: "4"},
	}
	assert.Equal(t, history, trimHistory(history, 10))
	assert.Equal(t, history[2:], trimHistory(history, 3))
	assert.Equal(t, history[2:], trimHistory(history, 2))
	assert.Empty(t, trimHistory(history, 1))
	assert.Empty(t, trimHistory(nil, 4))
}

func TestResetClearsSession(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.orch.HandleMessage(ctx, "s1", "Oi")

	require.NoError(t, f.orch.Reset(ctx, "s1"))
	history, _ := f.history.Load(ctx, "s1")
	assert.Empty(t, history)
}

func TestRenderServices(t *testing.T) {
	assert.Equal(t, MsgNoServices, RenderServices(nil))
	got := RenderServices([]schedule.Service{{Name: "Pezinho", PriceCents: 1050}})
	assert.Contains(t, got, "- Pezinho: R$10.50")
}
