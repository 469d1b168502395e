package model

type ActionKind string

const (
	ActionFinish   ActionKind = "finish"
	ActionAsk      ActionKind = "ask"
	ActionClarify  ActionKind = "clarify"
	ActionCallTool ActionKind = "call_tool"
)

// last_action values recorded on the dialogue state.
const (
	LastActionFinish         = "finish"
	LastActionAskForInfo     = "ask_for_info"
	LastActionClarify        = "clarify"
	LastActionToolError      = "tool_error"
	LastActionExecutionError = "execution_error"
	lastActionToolCallPrefix = "tool_call_"
)

// ToolCallAction is the last_action recorded after a successful call to tool.
func ToolCallAction(tool string) string {
	return lastActionToolCallPrefix + tool
}

// ActionPlan is the planner's decision for one turn. Only the fields that
// belong to Kind are populated.
type ActionPlan struct {
	Kind         ActionKind     `json:"kind"`
	Intent       Intent         `json:"intent"`
	Template     string         `json:"template,omitempty"`
	MissingSlots []string       `json:"missing_slots,omitempty"`
	ToolName     string         `json:"tool_name,omitempty"`
	ToolParams   map[string]any `json:"tool_params,omitempty"`
}

func Finish(intent Intent, template string) ActionPlan {
	return ActionPlan{Kind: ActionFinish, Intent: intent, Template: template}
}

func Ask(intent Intent, missing []string, template string) ActionPlan {
	return ActionPlan{Kind: ActionAsk, Intent: intent, MissingSlots: missing, Template: template}
}

func Clarify(intent Intent, template string) ActionPlan {
	return ActionPlan{Kind: ActionClarify, Intent: intent, Template: template}
}

func CallTool(intent Intent, tool string, params map[string]any) ActionPlan {
	return ActionPlan{Kind: ActionCallTool, Intent: intent, ToolName: tool, ToolParams: params}
}

// Reply is the outcome of a turn as seen by the caller.
type Reply struct {
	Message       string   `json:"message"`
	SessionID     string   `json:"session_id"`
	ActionTaken   string   `json:"action_taken"`
	Entities      Entities `json:"entities_extracted,omitempty"`
	NeedsFollowup bool     `json:"needs_followup"`
}
