package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/dialogue/internal/core/error"
	"github.com/Chative-core-poc-v1/dialogue/internal/metrics"
	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
)

const (
	errToolNotAvailable = "tool not available"
	errToolFailed       = "tool execution failed"
)

// Gateway dispatches tool calls by name. Execute never returns an error or
// panics; every outcome is a ToolResult.
type Gateway struct {
	tools map[string]tool.InvokableTool
}

// NewGateway registers tools under the name reported by their Info.
func NewGateway(ctx context.Context, ts ...tool.InvokableTool) (*Gateway, error) {
	g := &Gateway{tools: make(map[string]tool.InvokableTool, len(ts))}
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tool info: %w", err)
		}
		if _, dup := g.tools[info.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", info.Name)
		}
		g.tools[info.Name] = t
	}
	return g, nil
}

// Names lists the registered tools in lexical order.
func (g *Gateway) Names() []string {
	names := make([]string, 0, len(g.tools))
	for name := range g.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute marshals params to JSON arguments and runs the named tool.
func (g *Gateway) Execute(ctx context.Context, name string, params map[string]any) (result model.ToolResult) {
	result.ToolName = name
	log := logx.Component("tool_gateway").With().Str("tool", name).Logger()

	t, ok := g.tools[name]
	if !ok {
		log.Warn().Msg("unknown tool requested")
		metrics.RecordToolCall(name, metrics.ToolStatusUnknown)
		result.Error = errToolNotAvailable
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			err := errx.Internal(fmt.Errorf("tool %s panicked: %v", name, r))
			log.Error().Err(err).Str("kind", string(err.Kind)).Msg("tool panicked")
			metrics.RecordToolCall(name, metrics.ToolStatusFailure)
			result = model.ToolResult{ToolName: name, Error: errToolFailed}
		}
	}()

	args, err := json.Marshal(params)
	if err != nil {
		log.Error().Err(err).Msg("marshal tool params")
		metrics.RecordToolCall(name, metrics.ToolStatusFailure)
		result.Error = errToolFailed
		return result
	}

	ctx = einocb.ReuseHandlers(ctx, &einocb.RunInfo{Name: name, Type: "Gateway", Component: components.ComponentOfTool})
	ctx = einocb.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: string(args)})

	out, err := t.InvokableRun(ctx, string(args))
	if err != nil {
		einocb.OnError(ctx, err)
		log.Warn().Err(err).Str("kind", string(errx.KindOf(err))).Msg("tool call failed")
		metrics.RecordToolCall(name, metrics.ToolStatusFailure)
		result.Error = errx.SafeMessage(err, errToolFailed)
		return result
	}
	einocb.OnEnd(ctx, &tool.CallbackOutput{Response: out})

	if !json.Valid([]byte(out)) {
		log.Error().Msg("tool returned invalid JSON")
		metrics.RecordToolCall(name, metrics.ToolStatusFailure)
		result.Error = errToolFailed
		return result
	}

	metrics.RecordToolCall(name, metrics.ToolStatusSuccess)
	result.Success = true
	result.Data = json.RawMessage(out)
	return result
}
