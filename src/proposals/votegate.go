package proposals

// CanVote is the vote gate: only features with votes enabled accept votes.
// Per-user uniqueness is the VoteLedger's job.
func CanVote(_ Proposal, cfg FeatureConfig) bool {
	return cfg.voteMode() == VotesEnabled
}

// VoteControl is the vote widget rendered on a proposal card.
type VoteControl string

const (
	VoteControlNone     VoteControl = "none"
	VoteControlActive   VoteControl = "vote"
	VoteControlDisabled VoteControl = "voting_disabled"
)

// CardActions are the per-card actions of a listing. The title always links
// to the proposal; ViewLink is the separate "View proposal" action.
type CardActions struct {
	Vote     VoteControl `json:"vote"`
	ViewLink bool        `json:"view_link"`
}

func CardActionsFor(cfg FeatureConfig) CardActions {
	switch cfg.voteMode() {
	case VotesBlocked:
		return CardActions{Vote: VoteControlDisabled}
	case VotesDisabled:
		return CardActions{Vote: VoteControlNone, ViewLink: true}
	default:
		return CardActions{Vote: VoteControlActive, ViewLink: true}
	}
}
