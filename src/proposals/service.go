package proposals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/stake-plus/civic-proposals/src/logging"
)

// Deps wires a Service. Store and Features are required; every other
// collaborator is optional and skipped when nil.
type Deps struct {
	Store    Store
	Features FeatureSource
	Auth     Authorizer
	Geocoder Geocoder
	Authors  AuthorDirectory
	Taxonomy Taxonomy
	Linker   Linker
	Ledger   VoteLedger
	Events   EventPublisher
	Search   TextSearcher
	Logger   *slog.Logger
	Now      func() time.Time
}

type Service struct {
	Deps
	strict  *bluemonday.Policy
	ugc     *bluemonday.Policy
	answers *keyedMutex
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		Deps:    d,
		strict:  bluemonday.StrictPolicy(),
		ugc:     bluemonday.UGCPolicy(),
		answers: newKeyedMutex(),
	}
}

type CreateParams struct {
	FeatureID   int64
	UserID      int64
	UserGroupID *int64
	Official    bool
	Title       string
	Body        string
	CategoryID  *int64
	ScopeID     *int64
	Address     string
}

// Create authorizes, validates and stores a new proposal. Nothing is stored
// when authorization or validation fails.
func (s *Service) Create(ctx context.Context, in CreateParams) (*Proposal, error) {
	ctx = logging.WithLogFields(ctx, logging.LogFields{FeatureID: &in.FeatureID, Component: "proposals.create"})

	cfg, err := s.Features.Config(ctx, in.FeatureID)
	if err != nil {
		return nil, err
	}
	switch {
	case in.Official && !cfg.OfficialProposalsEnabled:
		return nil, ErrOfficialDisabled
	case !in.Official && !cfg.CreationEnabled:
		return nil, ErrCreationDisabled
	}

	author := OfficialAuthor()
	if !in.Official {
		if err := s.authorize(ctx, cfg, in); err != nil {
			return nil, err
		}
		author = UserAuthor(in.UserID)
		if in.UserGroupID != nil {
			author = GroupAuthor(*in.UserGroupID)
		}
	}

	p := &Proposal{
		FeatureID:  in.FeatureID,
		Title:      strings.TrimSpace(s.strict.Sanitize(in.Title)),
		Body:       strings.TrimSpace(s.strict.Sanitize(in.Body)),
		Author:     author,
		CategoryID: in.CategoryID,
		ScopeID:    in.ScopeID,
		Address:    strings.TrimSpace(in.Address),
		CreatedAt:  s.Now(),
	}
	if p.Title == "" {
		return nil, validation("title", "can't be blank")
	}
	if p.Body == "" {
		return nil, validation("body", "can't be blank")
	}
	if err := s.checkTaxonomy(ctx, cfg, p); err != nil {
		return nil, err
	}
	if cfg.GeocodingEnabled && p.Address != "" && s.Geocoder != nil {
		s.geocode(ctx, p)
	}

	id, err := s.Store.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("store proposal: %w", err)
	}
	p.ID = id

	s.afterWrite(ctx, EventCreated, *p, map[string]any{"title": p.Title, "origin": string(p.Origin())})
	s.Logger.InfoContext(ctx, "proposal created", "proposal_id", p.ID, "origin", p.Origin())
	return p, nil
}

func (s *Service) authorize(ctx context.Context, cfg FeatureConfig, in CreateParams) error {
	if cfg.CreatePermission != "" {
		if s.Auth == nil {
			return &AuthorizationError{Handler: cfg.CreatePermission}
		}
		ok, err := s.Auth.IsAuthorized(ctx, in.UserID, cfg.CreatePermission)
		if err != nil {
			return err
		}
		if !ok {
			return &AuthorizationError{Handler: cfg.CreatePermission}
		}
	}
	if in.UserGroupID != nil {
		if s.Auth == nil {
			return &AuthorizationError{Reason: "user group membership cannot be checked"}
		}
		ok, err := s.Auth.IsGroupMember(ctx, in.UserID, *in.UserGroupID)
		if err != nil {
			return err
		}
		if !ok {
			return &AuthorizationError{Reason: "not a member of a verified user group"}
		}
	}
	return nil
}

// checkTaxonomy settles the proposal's scope and category against the
// feature: a scope is kept only when scoped proposals are on (a bound process
// scope always wins) and a category must exist in the feature's process.
func (s *Service) checkTaxonomy(ctx context.Context, cfg FeatureConfig, p *Proposal) error {
	switch {
	case cfg.ProcessScopeID != nil:
		scope := *cfg.ProcessScopeID
		p.ScopeID = &scope
	case !cfg.ScopedProposalsEnabled:
		p.ScopeID = nil
	case p.ScopeID != nil && s.Taxonomy != nil:
		if _, err := s.Taxonomy.Scope(ctx, *p.ScopeID); err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				return validation("scope_id", "is invalid")
			}
			return fmt.Errorf("load scope: %w", err)
		}
	}

	if p.CategoryID == nil || s.Taxonomy == nil {
		return nil
	}
	c, err := s.Taxonomy.Category(ctx, *p.CategoryID)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return validation("category_id", "is invalid")
		}
		return fmt.Errorf("load category: %w", err)
	}
	if cfg.ProcessID != 0 && c.ProcessID != cfg.ProcessID {
		return validation("category_id", "does not belong to this process")
	}
	return nil
}

// geocode stores coordinates when the lookup succeeds and otherwise leaves
// the proposal without them.
func (s *Service) geocode(ctx context.Context, p *Proposal) {
	coords, err := s.Geocoder.Lookup(ctx, p.Address)
	if err != nil {
		s.Logger.WarnContext(ctx, "geocoding failed, storing proposal without coordinates",
			"address", p.Address, "error", err, "rate_limited", logging.IsRateLimit(err))
		return
	}
	lat, lng := coords.Latitude, coords.Longitude
	p.Latitude, p.Longitude = &lat, &lng
}

// List returns one page of a feature's proposals.
func (s *Service) List(ctx context.Context, featureID int64, req ListRequest) (*Listing, error) {
	ctx = logging.WithLogFields(ctx, logging.LogFields{FeatureID: &featureID, RequestID: req.RequestID, Component: "proposals.list"})

	cfg, err := s.Features.Config(ctx, featureID)
	if err != nil {
		return nil, err
	}
	if err := req.Filter.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.Store.ListByParent(ctx, featureID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	if text := strings.TrimSpace(req.Filter.SearchText); text != "" && s.Search != nil {
		ids, err := s.Search.SearchIDs(ctx, featureID, text)
		if err != nil {
			s.Logger.WarnContext(ctx, "full-text search unavailable, matching in memory", "error", err)
		} else {
			candidates = keepIDs(candidates, ids)
			req.Filter.SearchText = ""
		}
	}

	return BuildListing(candidates, cfg, req)
}

func keepIDs(ps []Proposal, ids []int64) []Proposal {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := make([]Proposal, 0, len(ids))
	for _, p := range ps {
		if _, ok := set[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

type Detail struct {
	Proposal     Proposal                            `json:"proposal"`
	Reference    string                              `json:"reference"`
	Origin       Origin                              `json:"origin"`
	AuthorName   string                              `json:"author_name"`
	CategoryName string                              `json:"category_name,omitempty"`
	ScopeName    string                              `json:"scope_name,omitempty"`
	Answer       AnswerDisplay                       `json:"answer"`
	Linked       map[RelationKind][]ExternalResource `json:"linked"`
	Actions      CardActions                         `json:"actions"`
	CanVote      bool                                `json:"can_vote"`
}

// Show assembles the single proposal view.
func (s *Service) Show(ctx context.Context, id int64, locale string) (*Detail, error) {
	ctx = logging.WithLogFields(ctx, logging.LogFields{ProposalID: &id, Component: "proposals.show"})

	p, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Features.Config(ctx, p.FeatureID)
	if err != nil {
		return nil, err
	}

	d := &Detail{
		Proposal:  *p,
		Reference: p.Reference(cfg.ReferencePrefix),
		Origin:    p.Origin(),
		Answer:    DisplayAnswer(*p),
		Linked:    make(map[RelationKind][]ExternalResource),
		Actions:   CardActionsFor(cfg),
		CanVote:   CanVote(*p, cfg),
	}
	if !cfg.ScopeSelectable() {
		d.Proposal.ScopeID = nil
	}

	if d.AuthorName, err = s.authorName(ctx, p.Author); err != nil {
		return nil, err
	}

	if s.Taxonomy != nil {
		if p.CategoryID != nil {
			if c, err := s.Taxonomy.Category(ctx, *p.CategoryID); err == nil {
				d.CategoryName = c.Name.Translated(locale)
			} else if !isNotFound(err) {
				return nil, err
			}
		}
		if d.Proposal.ScopeID != nil {
			if sc, err := s.Taxonomy.Scope(ctx, *d.Proposal.ScopeID); err == nil {
				d.ScopeName = sc.Name
			} else if !isNotFound(err) {
				return nil, err
			}
		}
	}

	if s.Linker != nil {
		for _, kind := range relationKinds {
			linked, err := s.Linker.ListLinked(ctx, p.ID, kind)
			if err != nil {
				return nil, fmt.Errorf("list linked %s: %w", kind, err)
			}
			if len(linked) > 0 {
				d.Linked[kind] = linked
			}
		}
	}
	return d, nil
}

func (s *Service) authorName(ctx context.Context, a Author) (string, error) {
	if a.IsOfficial() {
		return OfficialAuthorName, nil
	}
	if s.Authors == nil {
		return "", nil
	}
	profile, err := s.Authors.Resolve(ctx, a)
	switch {
	case isNotFound(err):
		return DeletedUserName, nil
	case err != nil:
		return "", err
	case profile.Deleted:
		return DeletedUserName, nil
	}
	return profile.Name, nil
}

func isNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Vote passes the vote gate, records the voter and bumps the counter.
func (s *Service) Vote(ctx context.Context, proposalID, userID int64) (int, error) {
	ctx = logging.WithLogFields(ctx, logging.LogFields{ProposalID: &proposalID, Component: "proposals.vote"})

	p, err := s.Store.Get(ctx, proposalID)
	if err != nil {
		return 0, err
	}
	cfg, err := s.Features.Config(ctx, p.FeatureID)
	if err != nil {
		return 0, err
	}
	if !CanVote(*p, cfg) {
		return 0, ErrVotingClosed
	}

	if s.Ledger != nil {
		fresh, err := s.Ledger.Record(ctx, proposalID, userID)
		if err != nil {
			return 0, fmt.Errorf("record vote: %w", err)
		}
		if !fresh {
			return 0, ErrAlreadyVoted
		}
	}

	count, err := s.Store.IncrementVotes(ctx, proposalID)
	if err != nil {
		if s.Ledger != nil {
			if ferr := s.Ledger.Forget(ctx, proposalID, userID); ferr != nil {
				s.Logger.ErrorContext(ctx, "vote ledger rollback failed", "error", ferr)
			}
		}
		return 0, fmt.Errorf("increment votes: %w", err)
	}

	p.VoteCount = count
	s.afterWrite(ctx, EventVoted, *p, map[string]any{"votes": count, "user_id": userID})
	return count, nil
}

// Answer sets or replaces the answer of a proposal.
func (s *Service) Answer(ctx context.Context, proposalID int64, state AnswerState, justification LocalizedText) (*Proposal, error) {
	ctx = logging.WithLogFields(ctx, logging.LogFields{ProposalID: &proposalID, Component: "proposals.answer"})

	if state != StateAccepted && state != StateRejected {
		return nil, validation("state", "cannot answer with %q", state)
	}

	unlock := s.answers.Lock(proposalID)
	defer unlock()

	p, err := s.Store.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	clean := make(LocalizedText, len(justification))
	for locale, text := range justification {
		clean[locale] = strings.TrimSpace(s.ugc.Sanitize(text))
	}
	if err := ApplyAnswer(p, state, clean, s.Now()); err != nil {
		return nil, err
	}
	if err := s.Store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("store answer: %w", err)
	}

	s.afterWrite(ctx, EventAnswered, *p, map[string]any{"state": string(state)})
	s.Logger.InfoContext(ctx, "proposal answered", "state", state)
	return p, nil
}

// Form describes the creation form for a user.
type Form struct {
	CreationEnabled       bool        `json:"creation_enabled"`
	ScopeSelectable       bool        `json:"scope_selectable"`
	AddressField          bool        `json:"address_field"`
	AuthorizationRequired bool        `json:"authorization_required"`
	Handler               string      `json:"authorization_handler,omitempty"`
	UserGroups            []UserGroup `json:"user_groups"`
}

func (s *Service) NewForm(ctx context.Context, featureID, userID int64) (*Form, error) {
	cfg, err := s.Features.Config(ctx, featureID)
	if err != nil {
		return nil, err
	}
	f := &Form{
		CreationEnabled: cfg.CreationEnabled,
		ScopeSelectable: cfg.ScopeSelectable(),
		AddressField:    cfg.GeocodingEnabled,
		UserGroups:      []UserGroup{},
	}
	if cfg.CreatePermission != "" {
		f.Handler = cfg.CreatePermission
		f.AuthorizationRequired = true
		if s.Auth != nil {
			ok, err := s.Auth.IsAuthorized(ctx, userID, cfg.CreatePermission)
			if err != nil {
				return nil, err
			}
			f.AuthorizationRequired = !ok
		}
	}
	if s.Auth != nil {
		groups, err := s.Auth.UserGroups(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			if g.Verified {
				f.UserGroups = append(f.UserGroups, g)
			}
		}
	}
	return f, nil
}

func (s *Service) afterWrite(ctx context.Context, kind string, p Proposal, payload map[string]any) {
	if s.Search != nil {
		if err := s.Search.IndexProposal(ctx, p); err != nil {
			s.Logger.WarnContext(ctx, "search index update failed", "error", err)
		}
	}
	if s.Events != nil {
		e := Event{Type: kind, ProposalID: p.ID, FeatureID: p.FeatureID, Payload: payload}
		if err := s.Events.Publish(ctx, e); err != nil {
			s.Logger.WarnContext(ctx, "publish event failed", "event", kind, "error", err)
		}
	}
}

// ParseID parses a path identifier, reporting a validation error on garbage.
func ParseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, validation(field, "must be a positive integer")
	}
	return id, nil
}
