package proposals

import (
	"maps"
	"time"
)

// ApplyAnswer overwrites the answer of p. Re-answering is allowed in either
// direction; the latest state and justification win.
func ApplyAnswer(p *Proposal, state AnswerState, justification LocalizedText, at time.Time) error {
	if state != StateAccepted && state != StateRejected {
		return validation("state", "cannot answer with %q", state)
	}
	p.Answer = &Answer{
		State:         state,
		Justification: maps.Clone(justification),
		AnsweredAt:    at,
	}
	return nil
}

// AnswerDisplay is what a proposal page shows about its answer.
type AnswerDisplay struct {
	Badge         string        `json:"badge,omitempty"`
	Positive      bool          `json:"positive"`
	Justification LocalizedText `json:"justification,omitempty"`
}

func DisplayAnswer(p Proposal) AnswerDisplay {
	switch p.State() {
	case StateAccepted:
		return AnswerDisplay{Badge: "Accepted", Positive: true, Justification: p.Answer.Justification}
	case StateRejected:
		return AnswerDisplay{Badge: "Rejected", Justification: p.Answer.Justification}
	default:
		return AnswerDisplay{}
	}
}
