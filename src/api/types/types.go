package types

import "time"

// Participatory processes
type Process struct {
	ID              int64  `gorm:"primaryKey"`
	Title           string `gorm:"size:255"`
	ScopeID         *int64 `gorm:"index"`
	ActiveStepID    *int64
	ReferencePrefix string `gorm:"size:16"`
}

// Step level overrides of a feature's settings
type FeatureStepSetting struct {
	FeatureID                int64 `gorm:"primaryKey;autoIncrement:false"`
	StepID                   int64 `gorm:"primaryKey;autoIncrement:false"`
	ProposalAnsweringEnabled bool  `gorm:"default:true"`
}

// Proposals features
type Feature struct {
	ID                       int64   `gorm:"primaryKey"`
	ProcessID                int64   `gorm:"index;not null"`
	CreationEnabled          bool    `gorm:"default:false"`
	OfficialProposalsEnabled bool    `gorm:"default:false"`
	ScopedProposalsEnabled   bool    `gorm:"default:false"`
	ProposalAnsweringEnabled bool    `gorm:"default:true"`
	VotesMode                string  `gorm:"size:16;default:enabled"` // enabled|blocked|disabled
	GeocodingEnabled         bool    `gorm:"default:false"`
	CreatePermission         string  `gorm:"size:128"`
	Process                  Process `gorm:"foreignKey:ProcessID"`
}

type Scope struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null"`
}

type Category struct {
	ID        int64             `gorm:"primaryKey"`
	ProcessID int64             `gorm:"index;not null"`
	Name      map[string]string `gorm:"serializer:json;type:text"`
}

type Proposal struct {
	ID                  int64             `gorm:"primaryKey;autoIncrement:false"`
	FeatureID           int64             `gorm:"index;not null"`
	Title               string            `gorm:"size:255;not null"`
	Body                string            `gorm:"type:text;not null"`
	AuthorKind          string            `gorm:"size:16;not null"` // user|group|official
	AuthorID            *int64            `gorm:"index"`
	CategoryID          *int64            `gorm:"index"`
	ScopeID             *int64            `gorm:"index"`
	VoteCount           int               `gorm:"not null;default:0"`
	AnswerState         string            `gorm:"size:16;index"`
	AnswerJustification map[string]string `gorm:"serializer:json;type:text"`
	AnsweredAt          *time.Time
	Address             string `gorm:"size:512"`
	Latitude            *float64
	Longitude           *float64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Participants. Deleted accounts keep their row so authorship survives.
type User struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"size:255"`
	Nickname  string `gorm:"size:64"`
	DeletedAt *time.Time
}

type UserGroup struct {
	ID       int64  `gorm:"primaryKey"`
	Name     string `gorm:"size:255;not null"`
	Verified bool   `gorm:"default:false"`
}

type UserGroupMembership struct {
	UserID      int64 `gorm:"primaryKey;autoIncrement:false"`
	UserGroupID int64 `gorm:"primaryKey;autoIncrement:false"`
}

// Granted (or in progress, for multistep workflows) verifications
type Authorization struct {
	ID        int64  `gorm:"primaryKey"`
	UserID    int64  `gorm:"uniqueIndex:idx_authorization_user_name;not null"`
	Name      string `gorm:"uniqueIndex:idx_authorization_user_name;size:128;not null"`
	GrantedAt *time.Time
	CreatedAt time.Time
}

// Links from resources owned by other modules to a proposal
type ResourceLink struct {
	ID         int64             `gorm:"primaryKey"`
	ProposalID int64             `gorm:"index;not null"`
	Kind       string            `gorm:"size:32;index;not null"` // comments|meetings|results|projects
	ExternalID int64             `gorm:"not null"`
	Title      map[string]string `gorm:"serializer:json;type:text"`
	CreatedAt  time.Time
}

var AllModels = []interface{}{
	&Process{}, &FeatureStepSetting{}, &Feature{}, &Scope{}, &Category{},
	&Proposal{}, &User{}, &UserGroup{}, &UserGroupMembership{},
	&Authorization{}, &ResourceLink{},
}
