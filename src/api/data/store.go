package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stake-plus/civic-proposals/src/api/types"
	"github.com/stake-plus/civic-proposals/src/proposals"
	"github.com/stake-plus/civic-proposals/src/shared/id"
	"gorm.io/gorm"
)

// ProposalStore persists proposals through gorm.
type ProposalStore struct {
	db *gorm.DB
}

func NewProposalStore(db *gorm.DB) ProposalStore {
	return ProposalStore{db: db}
}

// columns written by Update. vote_count is left to IncrementVotes.
var updatableColumns = []string{
	"title", "body", "category_id", "scope_id",
	"answer_state", "answer_justification", "answered_at",
	"address", "latitude", "longitude",
}

func (s ProposalStore) Create(ctx context.Context, p *proposals.Proposal) (int64, error) {
	if p.ID == 0 {
		p.ID = id.New()
	}
	row := toRow(*p)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("create proposal: %w", err)
	}
	p.CreatedAt = row.CreatedAt
	return row.ID, nil
}

func (s ProposalStore) Get(ctx context.Context, proposalID int64) (*proposals.Proposal, error) {
	var row types.Proposal
	err := s.db.WithContext(ctx).First(&row, proposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, proposalNotFound(proposalID)
	}
	if err != nil {
		return nil, fmt.Errorf("get proposal %d: %w", proposalID, err)
	}
	p := fromRow(row)
	return &p, nil
}

func (s ProposalStore) ListByParent(ctx context.Context, featureID int64) ([]proposals.Proposal, error) {
	var rows []types.Proposal
	if err := s.db.WithContext(ctx).
		Where("feature_id = ?", featureID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list proposals of feature %d: %w", featureID, err)
	}
	out := make([]proposals.Proposal, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out, nil
}

func (s ProposalStore) Update(ctx context.Context, p *proposals.Proposal) error {
	row := toRow(*p)
	res := s.db.WithContext(ctx).
		Model(&types.Proposal{ID: p.ID}).
		Select(updatableColumns).
		Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("update proposal %d: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows when nothing changed.
		var n int64
		if err := s.db.WithContext(ctx).Model(&types.Proposal{}).Where("id = ?", p.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("update proposal %d: %w", p.ID, err)
		}
		if n == 0 {
			return proposalNotFound(p.ID)
		}
	}
	return nil
}

// IncrementVotes bumps the counter in SQL and reads it back inside the same
// transaction, so the returned count includes exactly this vote.
func (s ProposalStore) IncrementVotes(ctx context.Context, proposalID int64) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.Proposal{}).
			Where("id = ?", proposalID).
			UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return proposalNotFound(proposalID)
		}
		var row types.Proposal
		if err := tx.Select("vote_count").First(&row, proposalID).Error; err != nil {
			return err
		}
		count = row.VoteCount
		return nil
	})
	if err != nil {
		var nf *proposals.NotFoundError
		if errors.As(err, &nf) {
			return 0, err
		}
		return 0, fmt.Errorf("increment votes of %d: %w", proposalID, err)
	}
	return count, nil
}

func proposalNotFound(proposalID int64) error {
	return &proposals.NotFoundError{Resource: "proposal", ID: strconv.FormatInt(proposalID, 10)}
}

func toRow(p proposals.Proposal) types.Proposal {
	row := types.Proposal{
		ID:         p.ID,
		FeatureID:  p.FeatureID,
		Title:      p.Title,
		Body:       p.Body,
		AuthorKind: string(p.Author.Kind),
		CategoryID: p.CategoryID,
		ScopeID:    p.ScopeID,
		VoteCount:  p.VoteCount,
		Address:    p.Address,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
		CreatedAt:  p.CreatedAt,
	}
	if !p.Author.IsOfficial() {
		authorID := p.Author.ID
		row.AuthorID = &authorID
	}
	if p.Answer != nil {
		at := p.Answer.AnsweredAt
		row.AnswerState = string(p.Answer.State)
		row.AnswerJustification = p.Answer.Justification
		row.AnsweredAt = &at
	}
	return row
}

func fromRow(r types.Proposal) proposals.Proposal {
	p := proposals.Proposal{
		ID:         r.ID,
		FeatureID:  r.FeatureID,
		Title:      r.Title,
		Body:       r.Body,
		Author:     proposals.Author{Kind: proposals.AuthorKind(r.AuthorKind)},
		CategoryID: r.CategoryID,
		ScopeID:    r.ScopeID,
		VoteCount:  r.VoteCount,
		Address:    r.Address,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		CreatedAt:  r.CreatedAt,
	}
	if r.AuthorID != nil {
		p.Author.ID = *r.AuthorID
	}
	if r.AnswerState != "" {
		p.Answer = &proposals.Answer{
			State:         proposals.AnswerState(r.AnswerState),
			Justification: proposals.LocalizedText(r.AnswerJustification),
		}
		if r.AnsweredAt != nil {
			p.Answer.AnsweredAt = *r.AnsweredAt
		}
	}
	return p
}
