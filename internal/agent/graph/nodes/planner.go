package nodes

import (
	"github.com/Chative-core-poc-v1/dialogue/internal/agent/model"
)

const (
	GreetingMessage    = "Hello! I'm here to help you with ZUS Coffee outlets, products, and calculations. What can I do for you today?"
	CapabilityMessage  = "I can help you with: 1) Finding ZUS Coffee outlets and their details, 2) Information about ZUS products and drinkware, 3) Simple calculations. What would you like to know?"
	ClarifyMessage     = "I'm not sure I understand. I can help with outlet information, product queries, or calculations. Could you please rephrase your question?"
	AskLocationMessage = "Which location are you interested in? For example, you can ask about outlets in Petaling Jaya, Kuala Lumpur, or a specific area like SS2."
	AskExpressionMsg   = "What calculation would you like me to perform? For example: '2 + 3' or 'calculate 15 * 4'"

	defaultProductQuery = "drinkware coffee products"
)

// Plan decides the action for one turn. turn holds the entities found in the
// current utterance, merged the session's entities after this turn's merge.
// query_type is only honoured when it was said in the current utterance.
func Plan(intent model.Intent, turn, merged model.Entities) model.ActionPlan {
	switch intent {
	case model.IntentGreeting:
		return model.Finish(intent, GreetingMessage)

	case model.IntentGeneralInfo:
		return model.Finish(intent, CapabilityMessage)

	case model.IntentOutletQuery:
		query := merged.String(model.SlotLocation)
		if query == "" {
			query = merged.String(model.SlotSpecificOutlet)
		}
		if query == "" {
			return model.Ask(intent, []string{model.SlotLocation}, AskLocationMessage)
		}
		if turn.String(model.SlotQueryType) == model.QueryTypeOpeningHours {
			query += " opening hours"
		}
		return model.CallTool(intent, model.ToolOutlets, map[string]any{"query": query})

	case model.IntentProductQuery:
		query := merged.String(model.SlotProductType)
		if query == "" {
			query = defaultProductQuery
		}
		return model.CallTool(intent, model.ToolProducts, map[string]any{"query": query})

	case model.IntentCalculation:
		expr := merged.String(model.SlotExpression)
		if expr == "" {
			return model.Ask(intent, []string{model.SlotExpression}, AskExpressionMsg)
		}
		return model.CallTool(intent, model.ToolCalculator, map[string]any{"expression": expr})
	}

	return model.Clarify(model.IntentUnknown, ClarifyMessage)
}
