package webserver

import (
	"context"

	"github.com/stake-plus/civic-proposals/src/proposals"
)

// ProposalService is the part of proposals.Service the handlers use.
type ProposalService interface {
	List(ctx context.Context, featureID int64, req proposals.ListRequest) (*proposals.Listing, error)
	NewForm(ctx context.Context, featureID, userID int64) (*proposals.Form, error)
	Create(ctx context.Context, in proposals.CreateParams) (*proposals.Proposal, error)
	Show(ctx context.Context, id int64, locale string) (*proposals.Detail, error)
	Vote(ctx context.Context, proposalID, userID int64) (int, error)
	Answer(ctx context.Context, proposalID int64, state proposals.AnswerState, justification proposals.LocalizedText) (*proposals.Proposal, error)
}

// Counters receives domain events for metrics.
type Counters interface {
	ProposalCreated()
	VoteCast()
	ProposalAnswered(state string)
}

type noCounters struct{}

func (noCounters) ProposalCreated()        {}
func (noCounters) VoteCast()               {}
func (noCounters) ProposalAnswered(string) {}
