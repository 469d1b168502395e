package graph

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/repo"
	"github.com/Chative-core-poc-v1/dialogue/internal/calculator"
	"github.com/Chative-core-poc-v1/dialogue/internal/outlets"
	"github.com/Chative-core-poc-v1/dialogue/internal/products"
	"github.com/Chative-core-poc-v1/dialogue/pkg/sqlite"
)

type harness struct {
	engine   *Engine
	sessions *conversations.SessionManager
}

func newHarness(t *testing.T, executor nodes.ToolExecutor) *harness {
	t.Helper()
	ctx := context.Background()

	if executor == nil {
		cfg := sqlite.Config{Path: sqlite.MemoryPath}
		db, err := cfg.Open(ctx)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		store, err := outlets.NewStore(ctx, db)
		require.NoError(t, err)

		gw, err := tools.NewGateway(ctx,
			tools.NewCalculatorTool(calculator.New()),
			tools.NewOutletsTool(store),
			tools.NewProductsTool(products.DefaultCatalog(), 5),
		)
		require.NoError(t, err)
		executor = gw
	}

	sessions := conversations.NewSessionManager(repo.NewMemorySessionStore(), model.SessionConfig{MaxAge: time.Hour})
	engine, err := NewEngine(ctx, Config{
		Classifier: parsers.DefaultIntentClassifier(),
		Tools:      executor,
		Sessions:   sessions,
		Engine:     model.EngineConfig{MaxUtteranceBytes: 4096, MaxRunSteps: 10},
	})
	require.NoError(t, err)
	return &harness{engine: engine, sessions: sessions}
}

func (h *harness) chat(t *testing.T, id, utterance string) model.Reply {
	t.Helper()
	reply, err := h.engine.Chat(context.Background(), id, utterance)
	require.NoError(t, err)
	return reply
}

func (h *harness) session(t *testing.T, id string) *model.Session {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func TestOutletScenarioCarriesLocation(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.chat(t, "pj", "Is there an outlet in Petaling Jaya?")
	assert.Equal(t, "pj", reply.SessionID)
	assert.Equal(t, "tool_call_outlets", reply.ActionTaken)
	assert.Contains(t, reply.Message, "ZUS Coffee SS2")

	s := h.session(t, "pj")
	assert.Equal(t, model.IntentOutletQuery, s.State.CurrentIntent)
	assert.Equal(t, "petaling jaya", s.State.ExtractedEntities.String(model.SlotLocation))
	assert.Contains(t, s.State.ToolContext, model.ToolOutlets)

	reply = h.chat(t, "pj", "SS 2, what's the opening time?")
	assert.Equal(t, "tool_call_outlets", reply.ActionTaken)
	assert.Contains(t, reply.Message, "🕐")

	s = h.session(t, "pj")
	assert.Equal(t, model.Entities{
		model.SlotLocation:       "petaling jaya",
		model.SlotSpecificOutlet: "SS2",
		model.SlotQueryType:      model.QueryTypeOpeningHours,
	}, s.State.ExtractedEntities)
	assert.Empty(t, s.State.MissingSlots)

	var out model.OutletSearchOutput
	require.NoError(t, json.Unmarshal(s.State.ToolContext[model.ToolOutlets], &out))
	assert.Equal(t, "petaling jaya opening hours", out.Query)

	// system, then two user/assistant pairs
	require.Len(t, s.Messages, 5)
	assert.Equal(t, model.RoleSystem, s.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, s.Messages[4].Role)
	assert.Equal(t, reply.Message, s.Messages[4].Content)
}

func TestSlotFillingAsksThenUsesCarriedSlot(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.chat(t, "slots", "show me your outlets")
	assert.Equal(t, nodes.AskLocationMessage, reply.Message)
	assert.Equal(t, "ask_for_info", reply.ActionTaken)
	assert.True(t, reply.NeedsFollowup)
	assert.Equal(t, []string{model.SlotLocation}, h.session(t, "slots").State.MissingSlots)

	reply = h.chat(t, "slots", "outlets in SS2")
	assert.Equal(t, "tool_call_outlets", reply.ActionTaken)
	assert.Empty(t, h.session(t, "slots").State.MissingSlots)

	reply = h.chat(t, "slots", "what time do they open?")
	assert.Equal(t, "tool_call_outlets", reply.ActionTaken)
	assert.False(t, reply.NeedsFollowup)
	assert.Contains(t, reply.Message, "ZUS Coffee SS2")
}

func TestCannedReplies(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.chat(t, "c", "hello there")
	assert.Equal(t, nodes.GreetingMessage, reply.Message)
	assert.Equal(t, "finish", reply.ActionTaken)

	reply = h.chat(t, "c", "what can you do?")
	assert.Equal(t, nodes.CapabilityMessage, reply.Message)

	reply = h.chat(t, "c", "tell me a joke")
	assert.Equal(t, nodes.ClarifyMessage, reply.Message)
	assert.Equal(t, "clarify", reply.ActionTaken)
	assert.Equal(t, model.IntentUnknown, h.session(t, "c").State.CurrentIntent)
}

func TestCalculationTurns(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.chat(t, "calc", "calculate something for me")
	assert.Equal(t, nodes.AskExpressionMsg, reply.Message)
	assert.True(t, reply.NeedsFollowup)

	reply = h.chat(t, "calc", "what is 15 * 4")
	assert.Equal(t, "The result of 15 * 4 is 60", reply.Message)
	assert.Equal(t, "tool_call_calculator", reply.ActionTaken)
	assert.Equal(t, "15 * 4", reply.Entities.String(model.SlotExpression))

	reply = h.chat(t, "calc", "calculate 5 / 0")
	assert.Equal(t, "I encountered an error: Calculation error: Division by zero", reply.Message)
	assert.Equal(t, "tool_error", reply.ActionTaken)

	s := h.session(t, "calc")
	assert.Equal(t, "tool_error", s.State.LastAction)
	var out model.CalculationOutput
	require.NoError(t, json.Unmarshal(s.State.ToolContext[model.ToolCalculator], &out))
	assert.Equal(t, "60", out.Result)
}

func TestCalculationPhrasings(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.chat(t, "words", "what is 10 divided by 4")
	assert.Equal(t, "tool_call_calculator", reply.ActionTaken)
	assert.Equal(t, "The result of 10 / 4 is 2.5", reply.Message)

	reply = h.chat(t, "signs", "calculate -5 + 3")
	assert.Equal(t, "tool_call_calculator", reply.ActionTaken)
	assert.Equal(t, "The result of -5 + 3 is -2", reply.Message)
}

func TestProductTurn(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.chat(t, "p", "do you sell a tumbler?")
	assert.Equal(t, "tool_call_products", reply.ActionTaken)
	assert.Contains(t, reply.Message, "Top products:\n• ZUS Coffee Tumbler Black - RM 45.00")
}

type panickingExecutor struct{}

func (panickingExecutor) Execute(context.Context, string, map[string]any) model.ToolResult {
	panic("connection to 10.1.2.3 lost")
}

type garbageExecutor struct{}

func (garbageExecutor) Execute(_ context.Context, name string, _ map[string]any) model.ToolResult {
	return model.ToolResult{Success: true, ToolName: name, Data: json.RawMessage(`"not an object"`)}
}

func TestUnexpectedFaultsBecomeApology(t *testing.T) {
	for name, executor := range map[string]nodes.ToolExecutor{
		"panic":   panickingExecutor{},
		"garbage": garbageExecutor{},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, executor)

			reply := h.chat(t, "f", "2 + 3")
			assert.Equal(t, nodes.ExecutionErrorMessage, reply.Message)
			assert.Equal(t, "execution_error", reply.ActionTaken)
			assert.NotContains(t, reply.Message, "10.1.2.3")

			s := h.session(t, "f")
			assert.Equal(t, "execution_error", s.State.LastAction)
			assert.Empty(t, s.State.ToolContext)
			assert.Equal(t, nodes.ExecutionErrorMessage, s.Messages[len(s.Messages)-1].Content)
		})
	}
}

func TestChatTruncatesLongUtterances(t *testing.T) {
	h := newHarness(t, nil)

	h.chat(t, "long", "hello "+strings.Repeat("é", 5000))
	s := h.session(t, "long")
	user := s.Messages[1].Content
	assert.LessOrEqual(t, len(user), 4096)
	assert.True(t, strings.HasPrefix(user, "hello "))
	assert.NotContains(t, user, "�")
}

func TestChatRejectsEmptySessionID(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.engine.Chat(context.Background(), "", "hello")
	assert.Error(t, err)
}

func TestConcurrentTurnsOnOneSession(t *testing.T) {
	const turns = 10
	h := newHarness(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.Chat(context.Background(), "busy", "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, h.session(t, "busy").Messages, 1+2*turns)
}

func TestTruncateUtterance(t *testing.T) {
	assert.Equal(t, "abc", truncateUtterance("abc", 0))
	assert.Equal(t, "ab", truncateUtterance("abc", 2))
	assert.Equal(t, "a", truncateUtterance("aé", 2))
}
