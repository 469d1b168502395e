package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	"github.com/Chative-core-poc-v1/dialogue/pkg/sqlite"
)

func testConfig() AppConfig {
	return AppConfig{
		Environment: "testing",
		LogLevel:    "error",
		Outlets:     sqlite.Config{Path: sqlite.MemoryPath},
		Session:     model.SessionConfig{Backend: "memory", MaxAge: time.Hour},
		Engine:      model.EngineConfig{MaxUtteranceBytes: 4096, MaxRunSteps: 10},
		Products:    model.ProductsConfig{TopK: 5},
		Calculator:  model.CalculatorConfig{Provider: "none", Timeout: time.Second},
	}
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(context.Background(), testConfig())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestChatLoop(t *testing.T) {
	a := newTestApp(t)
	var out bytes.Buffer

	in := strings.NewReader("hello\n\n2 + 3\nexit\nnever sent\n")
	require.NoError(t, chatLoop(context.Background(), a, "loop", in, &out))

	text := out.String()
	assert.Contains(t, text, "bot>  "+nodes.GreetingMessage)
	assert.Contains(t, text, "bot>  The result of 2 + 3 is 5")
	assert.Equal(t, 2, strings.Count(text, "bot>  "))

	s, err := a.sessions.Get(context.Background(), "loop")
	require.NoError(t, err)
	assert.Len(t, s.Messages, 5)
}

func TestChatLoopStopsAtEOF(t *testing.T) {
	a := newTestApp(t)
	var out bytes.Buffer
	require.NoError(t, chatLoop(context.Background(), a, "eof", strings.NewReader("hi"), &out))
	assert.Contains(t, out.String(), nodes.GreetingMessage)
}

func TestPrintSession(t *testing.T) {
	a := newTestApp(t)
	_, err := a.engine.Chat(context.Background(), "show", "Is there an outlet in Petaling Jaya?")
	require.NoError(t, err)
	s, err := a.sessions.Get(context.Background(), "show")
	require.NoError(t, err)

	var out bytes.Buffer
	printSession(&out, s)
	text := out.String()
	assert.Contains(t, text, "Session:       show")
	assert.Contains(t, text, "Last action:   tool_call_outlets")
	assert.Contains(t, text, "user> Is there an outlet in Petaling Jaya?")
	assert.Contains(t, text, "bot>  I found the ZUS Coffee SS2 outlet:")
}

func TestNewAppRejectsUnknownSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Backend = "etcd"
	_, err := newApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown session backend")

	cfg = testConfig()
	cfg.Calculator.Provider = "abacus"
	_, err = newApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown calculation provider")

	// resources opened before the failure are closed, not leaked
	cfg.Session.Backend = "sqlite"
	cfg.Session.DBPath = filepath.Join(t.TempDir(), "sessions.db")
	a, err := newApp(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown calculation provider")
	assert.Nil(t, a)
}

func TestSQLiteSessionsCarryAcrossRuns(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Session.Backend = "sqlite"
	cfg.Session.DBPath = filepath.Join(t.TempDir(), "sessions.db")

	first, err := newApp(ctx, cfg)
	require.NoError(t, err)
	_, err = first.engine.Chat(ctx, "demo", "Is there an outlet in Petaling Jaya?")
	require.NoError(t, err)
	first.Close()

	second := func() *app {
		a, err := newApp(ctx, cfg)
		require.NoError(t, err)
		t.Cleanup(a.Close)
		return a
	}()
	reply, err := second.engine.Chat(ctx, "demo", "what time do they open?")
	require.NoError(t, err)
	assert.Equal(t, "tool_call_outlets", reply.ActionTaken)

	ids, err := second.sessions.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, ids)
	s, err := second.sessions.Get(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, s.Messages, 5)
}

func TestNewCalculatorGeminiNeedsKey(t *testing.T) {
	cfg := testConfig()
	cfg.Calculator.Provider = "gemini"
	_, err := newCalculator(context.Background(), cfg)
	assert.Error(t, err)
}

func TestResolveSessionID(t *testing.T) {
	sessionID = "  fixed "
	t.Cleanup(func() { sessionID = "" })
	assert.Equal(t, "fixed", resolveSessionID())

	sessionID = ""
	assert.Len(t, resolveSessionID(), 36)
}
