package conversations

import (
	"encoding/json"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
)

// MergeEntities returns a new map holding existing overwritten key-wise by
// incoming. Neither argument is modified.
func MergeEntities(existing, incoming model.Entities) model.Entities {
	merged := make(model.Entities, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}

// ApplyTurn replaces the current intent and merges this turn's entities.
func ApplyTurn(state *model.DialogueState, intent model.Intent, entities model.Entities) {
	state.CurrentIntent = intent
	state.ExtractedEntities = MergeEntities(state.ExtractedEntities, entities)
}

// SetMissingSlots overwrites the missing slots; they are never accumulated.
func SetMissingSlots(state *model.DialogueState, slots []string) {
	state.MissingSlots = append([]string{}, slots...)
}

func RecordAction(state *model.DialogueState, action string) {
	state.LastAction = action
}

// RecordToolResult stores the data of a successful tool call under the tool name.
func RecordToolResult(state *model.DialogueState, tool string, data json.RawMessage) {
	if state.ToolContext == nil {
		state.ToolContext = map[string]json.RawMessage{}
	}
	state.ToolContext[tool] = append(json.RawMessage(nil), data...)
}
