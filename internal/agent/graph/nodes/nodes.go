package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/dialogue/pkg/logger"
)

// Node keys of the turn graph.
const (
	NodeUnderstand   = "Understand"
	NodeTrack        = "Track"
	NodePlan         = "Plan"
	NodeToolExecutor = "ToolExecutor"
	NodeFormat       = "Format"
	NodeRespond      = "Respond"
)

// NewUnderstandPreHandler binds the turn's session to the graph state.
func NewUnderstandPreHandler() func(context.Context, model.TurnInput, *model.TurnState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.TurnState) (model.TurnInput, error) {
		if in.Session == nil {
			return in, fmt.Errorf("turn input has no session")
		}
		s.Session = in.Session
		s.Turn = nil
		s.Plan = model.ActionPlan{}
		return in, nil
	}
}

// NewUnderstandNode classifies the utterance and extracts this turn's entities.
func NewUnderstandNode(classifier *parsers.IntentClassifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.NLUResult, error) {
		intent := classifier.Classify(in.Utterance)
		entities := parsers.ExtractEntities(in.Utterance, intent)

		logx.Debug().
			Str("session_id", in.SessionID).
			Str("intent", string(intent)).
			Int("entities", len(entities)).
			Msg("utterance understood")
		return model.NLUResult{Intent: intent, Entities: entities}, nil
	})
}

// NewTrackNode merges the turn into the session's dialogue state.
func NewTrackNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.NLUResult) (model.NLUResult, error) {
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			if s.Session == nil {
				return fmt.Errorf("missing session in turn state")
			}
			s.Turn = in.Entities
			conversations.ApplyTurn(&s.Session.State, in.Intent, in.Entities)
			return nil
		})
		if err != nil {
			return model.NLUResult{}, fmt.Errorf("track turn: %w", err)
		}
		return in, nil
	})
}

// NewPlanNode picks the action for the turn and refreshes the missing slots.
func NewPlanNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.NLUResult) (model.ActionPlan, error) {
		var plan model.ActionPlan
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			state := &s.Session.State
			plan = Plan(in.Intent, s.Turn, state.ExtractedEntities)
			conversations.SetMissingSlots(state, plan.MissingSlots)
			s.Plan = plan

			logx.Debug().
				Str("session_id", s.Session.ID).
				Str("intent", string(plan.Intent)).
				Str("action", string(plan.Kind)).
				Str("tool", plan.ToolName).
				Strs("missing_slots", plan.MissingSlots).
				Msg("action planned")
			return nil
		})
		if err != nil {
			return model.ActionPlan{}, fmt.Errorf("plan turn: %w", err)
		}
		return plan, nil
	})
}

// NewActionCondition routes tool calls to the executor and everything else
// straight to a reply.
func NewActionCondition() func(context.Context, model.ActionPlan) (string, error) {
	return func(ctx context.Context, plan model.ActionPlan) (string, error) {
		if plan.Kind == model.ActionCallTool {
			return NodeToolExecutor, nil
		}
		return NodeRespond, nil
	}
}

// NewToolExecutorNode runs the planned tool through tools.
func NewToolExecutorNode(tools ToolExecutor) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, plan model.ActionPlan) (model.ToolResult, error) {
		return tools.Execute(ctx, plan.ToolName, plan.ToolParams), nil
	})
}

// NewFormatNode renders a tool result and records it on the dialogue state.
// A result that cannot be rendered becomes the generic apology.
func NewFormatNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, result model.ToolResult) (model.Reply, error) {
		var reply model.Reply
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			var err error
			reply, err = Complete(&s.Session.State, result)
			if err != nil {
				logx.Error().
					Err(err).
					Str("session_id", s.Session.ID).
					Str("tool", result.ToolName).
					Msg("render tool result")
				reply = ExecutionFailure(&s.Session.State)
			}
			return nil
		})
		if err != nil {
			return model.Reply{}, fmt.Errorf("format tool result: %w", err)
		}
		return reply, nil
	})
}

// NewRespondNode replies to plans that need no tool.
func NewRespondNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, plan model.ActionPlan) (model.Reply, error) {
		var reply model.Reply
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			reply = Respond(&s.Session.State, plan)
			return nil
		})
		if err != nil {
			return model.Reply{}, fmt.Errorf("respond: %w", err)
		}
		return reply, nil
	})
}
