package proposals

// VoteMode is the mutually exclusive voting setting of a feature.
type VoteMode string

const (
	VotesEnabled  VoteMode = "enabled"
	VotesBlocked  VoteMode = "blocked"
	VotesDisabled VoteMode = "disabled"
)

// FeatureConfig carries the feature, step and process toggles that gate the
// engine. It is passed by value into every call; nothing here is global.
type FeatureConfig struct {
	CreationEnabled              bool
	OfficialProposalsEnabled     bool
	ScopedProposalsEnabled       bool
	ProposalAnsweringEnabled     bool
	StepProposalAnsweringEnabled bool
	Votes                        VoteMode
	GeocodingEnabled             bool
	// CreatePermission names the authorization handler required to create
	// citizen proposals. Empty means no handler is required.
	CreatePermission string
	// ProcessScopeID is set when the parent process is bound to one scope.
	ProcessScopeID  *int64
	ProcessID       int64
	ReferencePrefix string
}

func (c FeatureConfig) voteMode() VoteMode {
	switch c.Votes {
	case VotesBlocked, VotesDisabled:
		return c.Votes
	default:
		return VotesEnabled
	}
}

func (c FeatureConfig) OriginFilterAvailable() bool {
	return c.OfficialProposalsEnabled
}

// ScopeFilterAvailable is false whenever the process is bound to a scope,
// regardless of the scoped proposals setting.
func (c FeatureConfig) ScopeFilterAvailable() bool {
	return c.ScopedProposalsEnabled && c.ProcessScopeID == nil
}

func (c FeatureConfig) StateFilterAvailable() bool {
	return c.ProposalAnsweringEnabled && c.StepProposalAnsweringEnabled
}

// ScopeSelectable reports whether the creation form offers a scope selector
// and whether the detail view shows a proposal's scope.
func (c FeatureConfig) ScopeSelectable() bool {
	return c.ProcessScopeID == nil
}
