package graph

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
	"github.com/Chative-core-poc-v1/dialogue/internal/metrics"
	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
)

const defaultMaxRunSteps = 10

// GraphConfig holds everything needed to build the turn graph.
type GraphConfig struct {
	Classifier  *parsers.IntentClassifier
	Tools       nodes.ToolExecutor
	MaxRunSteps int
}

// GraphBuilder handles the construction of the turn graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, model.Reply]
}

// BuildGraph constructs and compiles the turn graph:
// Understand -> Track -> Plan -> {ToolExecutor -> Format | Respond} -> END.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, model.Reply], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Classifier == nil {
		return nil, fmt.Errorf("intent classifier is nil")
	}
	if config.Tools == nil {
		return nil, fmt.Errorf("tool executor is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, model.Reply](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	steps := []struct {
		key    string
		lambda *compose.Lambda
		opts   []compose.GraphAddNodeOpt
	}{
		{nodes.NodeUnderstand, nodes.NewUnderstandNode(b.config.Classifier),
			[]compose.GraphAddNodeOpt{compose.WithStatePreHandler(nodes.NewUnderstandPreHandler())}},
		{nodes.NodeTrack, nodes.NewTrackNode(), nil},
		{nodes.NodePlan, nodes.NewPlanNode(), nil},
		{nodes.NodeToolExecutor, nodes.NewToolExecutorNode(b.config.Tools), nil},
		{nodes.NodeFormat, nodes.NewFormatNode(), nil},
		{nodes.NodeRespond, nodes.NewRespondNode(), nil},
	}

	for _, s := range steps {
		opts := append([]compose.GraphAddNodeOpt{compose.WithNodeName(s.key)}, s.opts...)
		if err := b.graph.AddLambdaNode(s.key, s.lambda, opts...); err != nil {
			return fmt.Errorf("add node %s: %w", s.key, err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeUnderstand},
		{nodes.NodeUnderstand, nodes.NodeTrack},
		{nodes.NodeTrack, nodes.NodePlan},
		{nodes.NodeToolExecutor, nodes.NodeFormat},
		{nodes.NodeFormat, compose.END},
		{nodes.NodeRespond, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	actionBranch := compose.NewGraphBranch(
		nodes.NewActionCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			nodes.NodeRespond:      true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodePlan, actionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding action branch")
		return fmt.Errorf("error adding action branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, model.Reply], error) {
	maxSteps := b.config.MaxRunSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxRunSteps
	}

	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("DialogueTurn"),
		compose.WithMaxRunSteps(maxSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// Config wires an Engine.
type Config struct {
	Classifier *parsers.IntentClassifier
	Tools      nodes.ToolExecutor
	Sessions   *conversations.SessionManager
	Engine     model.EngineConfig
}

// Engine runs dialogue turns against stored sessions.
type Engine struct {
	runnable          compose.Runnable[model.TurnInput, model.Reply]
	sessions          *conversations.SessionManager
	maxUtteranceBytes int
}

func NewEngine(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is nil")
	}
	runnable, err := BuildGraph(ctx, &GraphConfig{
		Classifier:  cfg.Classifier,
		Tools:       cfg.Tools,
		MaxRunSteps: cfg.Engine.MaxRunSteps,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{
		runnable:          runnable,
		sessions:          cfg.Sessions,
		maxUtteranceBytes: cfg.Engine.MaxUtteranceBytes,
	}, nil
}

// Chat runs one turn for sessionID inside the store's atomic update. Faults
// inside the turn become the generic apology; only session store failures
// are returned as errors.
func (e *Engine) Chat(ctx context.Context, sessionID, utterance string) (model.Reply, error) {
	start := time.Now()
	utterance = truncateUtterance(strings.TrimSpace(utterance), e.maxUtteranceBytes)

	var (
		reply  model.Reply
		intent model.Intent
	)
	_, err := e.sessions.Run(ctx, sessionID, func(s *model.Session) error {
		s.AddMessage(model.RoleUser, utterance)
		reply = e.runTurn(ctx, s, utterance)
		s.AddMessage(model.RoleAssistant, reply.Message)
		intent = s.State.CurrentIntent
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("turn not persisted")
		return model.Reply{}, err
	}

	reply.SessionID = sessionID
	metrics.RecordTurn(string(intent), reply.ActionTaken, time.Since(start))
	logx.Info().
		Str("session_id", sessionID).
		Str("intent", string(intent)).
		Str("action", reply.ActionTaken).
		Dur("elapsed", time.Since(start)).
		Msg("turn completed")
	return reply, nil
}

func (e *Engine) runTurn(ctx context.Context, s *model.Session, utterance string) (reply model.Reply) {
	defer func() {
		if r := recover(); r != nil {
			err := errx.Internal(fmt.Errorf("turn panicked: %v", r))
			logx.Error().Err(err).Str("session_id", s.ID).Msg("turn panicked")
			reply = nodes.ExecutionFailure(&s.State)
		}
	}()

	out, err := e.runnable.Invoke(ctx,
		model.TurnInput{SessionID: s.ID, Utterance: utterance, Session: s},
		compose.WithCallbacks(observers.NewAllCallbacks()),
	)
	if err != nil {
		logx.Error().Err(err).Str("session_id", s.ID).Msg("turn graph failed")
		return nodes.ExecutionFailure(&s.State)
	}
	return out
}

// truncateUtterance cuts s to at most max bytes without splitting a rune.
func truncateUtterance(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
