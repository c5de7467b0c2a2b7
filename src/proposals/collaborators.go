package proposals

import "context"

// Store is the persistence boundary. Implementations must give the caller
// read-after-write visibility and make IncrementVotes atomic.
type Store interface {
	Create(ctx context.Context, p *Proposal) (int64, error)
	Get(ctx context.Context, id int64) (*Proposal, error)
	ListByParent(ctx context.Context, featureID int64) ([]Proposal, error)
	Update(ctx context.Context, p *Proposal) error
	IncrementVotes(ctx context.Context, id int64) (int, error)
}

// FeatureSource resolves the toggles of a proposals feature.
type FeatureSource interface {
	Config(ctx context.Context, featureID int64) (FeatureConfig, error)
}

type UserGroup struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

// Authorizer answers identity questions for the creation path.
type Authorizer interface {
	IsAuthorized(ctx context.Context, userID int64, handler string) (bool, error)
	IsGroupMember(ctx context.Context, userID, groupID int64) (bool, error)
	UserGroups(ctx context.Context, userID int64) ([]UserGroup, error)
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Geocoder interface {
	Lookup(ctx context.Context, address string) (Coordinates, error)
}

const (
	OfficialAuthorName = "Official proposal"
	DeletedUserName    = "Deleted user"
)

type AuthorProfile struct {
	Name    string
	Deleted bool
}

// AuthorDirectory resolves author identities at read time.
type AuthorDirectory interface {
	Resolve(ctx context.Context, a Author) (AuthorProfile, error)
}

type Taxonomy interface {
	Category(ctx context.Context, id int64) (*Category, error)
	Scope(ctx context.Context, id int64) (*Scope, error)
}

// RelationKind names a link between a proposal and a resource owned elsewhere.
type RelationKind string

const (
	RelationComments RelationKind = "comments"
	RelationMeetings RelationKind = "meetings"
	RelationResults  RelationKind = "results"
	RelationProjects RelationKind = "projects"
)

var relationKinds = []RelationKind{RelationComments, RelationMeetings, RelationResults, RelationProjects}

type ExternalResource struct {
	Kind  RelationKind  `json:"kind"`
	ID    int64         `json:"id"`
	Title LocalizedText `json:"title"`
}

type Linker interface {
	ListLinked(ctx context.Context, proposalID int64, kind RelationKind) ([]ExternalResource, error)
}

// VoteLedger remembers who voted what. Record reports false when the pair
// was already present.
type VoteLedger interface {
	Record(ctx context.Context, proposalID, userID int64) (bool, error)
	Forget(ctx context.Context, proposalID, userID int64) error
}

const (
	EventCreated  = "proposal.created"
	EventVoted    = "proposal.voted"
	EventAnswered = "proposal.answered"
)

type Event struct {
	Type       string
	ProposalID int64
	FeatureID  int64
	Payload    map[string]any
}

type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// TextSearcher is an optional full-text index used in place of the
// in-memory search text match.
type TextSearcher interface {
	SearchIDs(ctx context.Context, featureID int64, text string) ([]int64, error)
	IndexProposal(ctx context.Context, p Proposal) error
}
