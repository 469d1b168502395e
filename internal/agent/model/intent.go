package model

type Intent string

const (
	IntentOutletQuery  Intent = "outlet_query"
	IntentProductQuery Intent = "product_query"
	IntentCalculation  Intent = "calculation"
	IntentGreeting     Intent = "greeting"
	IntentGeneralInfo  Intent = "general_info"
	IntentUnknown      Intent = "unknown"
)

// Slot names produced by the entity extractor.
const (
	SlotLocation       = "location"
	SlotSpecificOutlet = "specific_outlet"
	SlotQueryType      = "query_type"
	SlotProductType    = "product_type"
	SlotExpression     = "expression"
)

const QueryTypeOpeningHours = "opening_hours"

// Entities is a partial slot map. A missing key means "not found this turn".
type Entities map[string]any

// String returns the value of key when it is a non-empty string.
func (e Entities) String(key string) string {
	if e == nil {
		return ""
	}
	s, _ := e[key].(string)
	return s
}

// NLUResult is what the understanding step produces for one utterance.
type NLUResult struct {
	Intent   Intent   `json:"intent"`
	Entities Entities `json:"entities"`
}
