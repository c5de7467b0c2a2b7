package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stake-plus/civic-proposals/src/api/types"
	"github.com/stake-plus/civic-proposals/src/proposals"
	"github.com/stake-plus/civic-proposals/src/verifications"
	"gorm.io/gorm"
)

// Identity answers authorization and group questions from the database.
// Handler names are checked against the registry before any lookup.
type Identity struct {
	db       *gorm.DB
	registry *verifications.Registry
}

func NewIdentity(db *gorm.DB, registry *verifications.Registry) Identity {
	return Identity{db: db, registry: registry}
}

// IsAuthorized reports whether the user holds a granted authorization for
// handler. Multistep workflows only count once granted.
func (i Identity) IsAuthorized(ctx context.Context, userID int64, handler string) (bool, error) {
	if _, err := i.registry.Resolve(handler); err != nil {
		return false, &proposals.NotFoundError{Resource: "authorization handler", ID: handler}
	}
	var n int64
	err := i.db.WithContext(ctx).Model(&types.Authorization{}).
		Where("user_id = ? AND name = ? AND granted_at IS NOT NULL", userID, handler).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check authorization %s: %w", handler, err)
	}
	return n > 0, nil
}

// IsGroupMember only counts verified groups.
func (i Identity) IsGroupMember(ctx context.Context, userID, groupID int64) (bool, error) {
	var n int64
	err := i.db.WithContext(ctx).Model(&types.UserGroupMembership{}).
		Joins("JOIN user_groups g ON g.id = user_group_memberships.user_group_id").
		Where("user_group_memberships.user_id = ? AND user_group_memberships.user_group_id = ? AND g.verified = ?", userID, groupID, true).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check group membership: %w", err)
	}
	return n > 0, nil
}

func (i Identity) UserGroups(ctx context.Context, userID int64) ([]proposals.UserGroup, error) {
	var rows []types.UserGroup
	err := i.db.WithContext(ctx).
		Joins("JOIN user_group_memberships m ON m.user_group_id = user_groups.id").
		Where("m.user_id = ?", userID).
		Order("user_groups.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list groups of user %d: %w", userID, err)
	}
	out := make([]proposals.UserGroup, 0, len(rows))
	for _, r := range rows {
		out = append(out, proposals.UserGroup{ID: r.ID, Name: r.Name, Verified: r.Verified})
	}
	return out, nil
}

// Directory resolves authors, taxonomy and linked resources.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) Directory {
	return Directory{db: db}
}

func (d Directory) Resolve(ctx context.Context, a proposals.Author) (proposals.AuthorProfile, error) {
	switch a.Kind {
	case proposals.AuthorOfficial:
		return proposals.AuthorProfile{Name: proposals.OfficialAuthorName}, nil
	case proposals.AuthorGroup:
		var g types.UserGroup
		if err := d.first(ctx, &g, a.ID, "user group"); err != nil {
			return proposals.AuthorProfile{}, err
		}
		return proposals.AuthorProfile{Name: g.Name}, nil
	default:
		var u types.User
		err := d.first(ctx, &u, a.ID, "user")
		var nf *proposals.NotFoundError
		if errors.As(err, &nf) {
			return proposals.AuthorProfile{Name: proposals.DeletedUserName, Deleted: true}, nil
		}
		if err != nil {
			return proposals.AuthorProfile{}, err
		}
		if u.DeletedAt != nil {
			return proposals.AuthorProfile{Name: proposals.DeletedUserName, Deleted: true}, nil
		}
		return proposals.AuthorProfile{Name: u.Name}, nil
	}
}

func (d Directory) Category(ctx context.Context, categoryID int64) (*proposals.Category, error) {
	var c types.Category
	if err := d.first(ctx, &c, categoryID, "category"); err != nil {
		return nil, err
	}
	return &proposals.Category{ID: c.ID, ProcessID: c.ProcessID, Name: proposals.LocalizedText(c.Name)}, nil
}

func (d Directory) Scope(ctx context.Context, scopeID int64) (*proposals.Scope, error) {
	var s types.Scope
	if err := d.first(ctx, &s, scopeID, "scope"); err != nil {
		return nil, err
	}
	return &proposals.Scope{ID: s.ID, Name: s.Name}, nil
}

func (d Directory) ListLinked(ctx context.Context, proposalID int64, kind proposals.RelationKind) ([]proposals.ExternalResource, error) {
	var rows []types.ResourceLink
	err := d.db.WithContext(ctx).
		Where("proposal_id = ? AND kind = ?", proposalID, string(kind)).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list %s linked to %d: %w", kind, proposalID, err)
	}
	out := make([]proposals.ExternalResource, 0, len(rows))
	for _, r := range rows {
		out = append(out, proposals.ExternalResource{
			Kind:  kind,
			ID:    r.ExternalID,
			Title: proposals.LocalizedText(r.Title),
		})
	}
	return out, nil
}

func (d Directory) first(ctx context.Context, dest interface{}, rowID int64, resource string) error {
	err := d.db.WithContext(ctx).First(dest, rowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &proposals.NotFoundError{Resource: resource, ID: strconv.FormatInt(rowID, 10)}
	}
	if err != nil {
		return fmt.Errorf("load %s %d: %w", resource, rowID, err)
	}
	return nil
}
