package conversations

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
)

func TestMergeEntitiesLaw(t *testing.T) {
	base := model.Entities{"location": "petaling jaya", "query_type": "opening_hours"}
	cases := []struct {
		name string
		a, b model.Entities
	}{
		{"disjoint", model.Entities{"specific_outlet": "SS2"}, model.Entities{"product_type": "mug"}},
		{"overlapping", model.Entities{"location": "bangsar"}, model.Entities{"location": "klcc", "expression": "2 + 3"}},
		{"empty", model.Entities{}, model.Entities{}},
		{"nil", nil, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stepwise := MergeEntities(MergeEntities(base, tc.a), tc.b)
			combined := MergeEntities(base, MergeEntities(tc.a, tc.b))
			if diff := cmp.Diff(combined, stepwise); diff != "" {
				t.Fatalf("merge law violated (-combined +stepwise):\n%s", diff)
			}
		})
	}
}

func TestMergeEntitiesIdentityAndPurity(t *testing.T) {
	base := model.Entities{"location": "petaling jaya"}
	if diff := cmp.Diff(base, MergeEntities(base, model.Entities{})); diff != "" {
		t.Fatalf("merge with empty changed entities:\n%s", diff)
	}

	merged := MergeEntities(base, model.Entities{"location": "ss2"})
	assert.Equal(t, "ss2", merged["location"])
	assert.Equal(t, "petaling jaya", base["location"])
}

func TestApplyTurnKeepsUntouchedSlots(t *testing.T) {
	state := model.DialogueState{}
	ApplyTurn(&state, model.IntentOutletQuery, model.Entities{"location": "petaling jaya"})
	ApplyTurn(&state, model.IntentOutletQuery, model.Entities{"specific_outlet": "SS2", "query_type": "opening_hours"})

	want := model.Entities{
		"location":        "petaling jaya",
		"specific_outlet": "SS2",
		"query_type":      "opening_hours",
	}
	if diff := cmp.Diff(want, state.ExtractedEntities); diff != "" {
		t.Fatalf("unexpected entities (-want +got):\n%s", diff)
	}

	ApplyTurn(&state, model.IntentGreeting, nil)
	assert.Equal(t, model.IntentGreeting, state.CurrentIntent)
	assert.Len(t, state.ExtractedEntities, 3)
}

func TestSetMissingSlotsReplaces(t *testing.T) {
	state := model.DialogueState{}
	slots := []string{"location"}
	SetMissingSlots(&state, slots)
	SetMissingSlots(&state, []string{"expression"})
	assert.Equal(t, []string{"expression"}, state.MissingSlots)

	SetMissingSlots(&state, nil)
	assert.Empty(t, state.MissingSlots)
	assert.Equal(t, []string{"location"}, slots)
}

func TestRecordToolResult(t *testing.T) {
	state := model.DialogueState{}
	data := json.RawMessage(`{"result":"5"}`)
	RecordToolResult(&state, "calculator", data)
	data[2] = 'X'

	assert.JSONEq(t, `{"result":"5"}`, string(state.ToolContext["calculator"]))

	RecordAction(&state, model.ToolCallAction("calculator"))
	assert.Equal(t, "tool_call_calculator", state.LastAction)
}
