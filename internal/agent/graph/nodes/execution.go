package nodes

import (
	"context"
	"fmt"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
)

// ExecutionErrorMessage is the reply for any unexpected fault during a turn.
const ExecutionErrorMessage = "Sorry, I encountered an error while processing your request. Please try again."

// ToolExecutor dispatches a named tool call. Implementations never fail;
// every outcome is carried by the ToolResult.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, params map[string]any) model.ToolResult
}

// Respond builds the reply of a plan that needs no tool.
func Respond(state *model.DialogueState, plan model.ActionPlan) model.Reply {
	switch plan.Kind {
	case model.ActionFinish:
		conversations.RecordAction(state, model.LastActionFinish)
		return model.Reply{Message: plan.Template, ActionTaken: model.LastActionFinish}
	case model.ActionAsk:
		conversations.RecordAction(state, model.LastActionAskForInfo)
		return model.Reply{Message: plan.Template, ActionTaken: model.LastActionAskForInfo, NeedsFollowup: true}
	case model.ActionClarify:
		conversations.RecordAction(state, model.LastActionClarify)
		return model.Reply{Message: plan.Template, ActionTaken: model.LastActionClarify}
	}
	return ExecutionFailure(state)
}

// Complete turns a tool result into the reply. A successful result is kept
// as the tool's context; a failed one is reported with its safe error text.
func Complete(state *model.DialogueState, result model.ToolResult) (model.Reply, error) {
	if !result.Success {
		conversations.RecordAction(state, model.LastActionToolError)
		return model.Reply{
			Message:     fmt.Sprintf("I encountered an error: %s", result.Error),
			ActionTaken: model.LastActionToolError,
		}, nil
	}

	msg, err := FormatToolResult(result)
	if err != nil {
		return model.Reply{}, err
	}
	action := model.ToolCallAction(result.ToolName)
	conversations.RecordToolResult(state, result.ToolName, result.Data)
	conversations.RecordAction(state, action)
	return model.Reply{
		Message:     msg,
		ActionTaken: action,
		Entities:    conversations.MergeEntities(nil, state.ExtractedEntities),
	}, nil
}

// ExecutionFailure records an execution error and returns the generic apology.
func ExecutionFailure(state *model.DialogueState) model.Reply {
	conversations.RecordAction(state, model.LastActionExecutionError)
	return model.Reply{Message: ExecutionErrorMessage, ActionTaken: model.LastActionExecutionError}
}
