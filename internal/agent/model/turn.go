package model

// TurnInput is the input of the turn graph. Session is the snapshot being
// mutated by this turn; it never leaves the process.
type TurnInput struct {
	SessionID string   `json:"session_id"`
	Utterance string   `json:"utterance"`
	Session   *Session `json:"-"`
}

// TurnState is the per-invocation local state of the turn graph.
type TurnState struct {
	Session *Session
	// Turn holds the entities extracted from this utterance only.
	Turn Entities
	Plan ActionPlan
}
