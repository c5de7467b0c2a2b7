package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stake-plus/civic-proposals/src/api/types"
	"github.com/stake-plus/civic-proposals/src/proposals"
	"gorm.io/gorm"
)

// Features reads feature settings, overlaying the active step's settings
// and the owning process scope.
type Features struct {
	db *gorm.DB
}

func NewFeatures(db *gorm.DB) Features {
	return Features{db: db}
}

func (f Features) Config(ctx context.Context, featureID int64) (proposals.FeatureConfig, error) {
	var feature types.Feature
	err := f.db.WithContext(ctx).Preload("Process").First(&feature, featureID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return proposals.FeatureConfig{}, &proposals.NotFoundError{Resource: "feature", ID: strconv.FormatInt(featureID, 10)}
	}
	if err != nil {
		return proposals.FeatureConfig{}, fmt.Errorf("load feature %d: %w", featureID, err)
	}

	stepAnswering := true
	if step := feature.Process.ActiveStepID; step != nil {
		var setting types.FeatureStepSetting
		err := f.db.WithContext(ctx).
			Where("feature_id = ? AND step_id = ?", featureID, *step).
			First(&setting).Error
		switch {
		case err == nil:
			stepAnswering = setting.ProposalAnsweringEnabled
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return proposals.FeatureConfig{}, fmt.Errorf("load step settings of feature %d: %w", featureID, err)
		}
	}

	return proposals.FeatureConfig{
		CreationEnabled:              feature.CreationEnabled,
		OfficialProposalsEnabled:     feature.OfficialProposalsEnabled,
		ScopedProposalsEnabled:       feature.ScopedProposalsEnabled,
		ProposalAnsweringEnabled:     feature.ProposalAnsweringEnabled,
		StepProposalAnsweringEnabled: stepAnswering,
		Votes:                        proposals.VoteMode(feature.VotesMode),
		GeocodingEnabled:             feature.GeocodingEnabled,
		CreatePermission:             feature.CreatePermission,
		ProcessScopeID:               feature.Process.ScopeID,
		ProcessID:                    feature.ProcessID,
		ReferencePrefix:              feature.Process.ReferencePrefix,
	}, nil
}
