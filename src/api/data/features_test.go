package data

import (
	"context"
	"testing"

	"github.com/stake-plus/civic-proposals/src/api/types"
	"github.com/stake-plus/civic-proposals/src/proposals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeaturesConfig(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&types.Process{ID: 1, ScopeID: ptr(int64(9)), ActiveStepID: ptr(int64(2)), ReferencePrefix: "BCN"}).Error)
	require.NoError(t, db.Create(&types.Feature{
		ID:                       4,
		ProcessID:                1,
		CreationEnabled:          true,
		OfficialProposalsEnabled: true,
		ProposalAnsweringEnabled: true,
		VotesMode:                "blocked",
		CreatePermission:         "id_documents",
	}).Error)
	require.NoError(t, db.Create(&types.FeatureStepSetting{FeatureID: 4, StepID: 2, ProposalAnsweringEnabled: true}).Error)
	// false is a zero value, so gorm would fall back to the column default on insert
	require.NoError(t, db.Model(&types.FeatureStepSetting{}).
		Where("feature_id = ? AND step_id = ?", 4, 2).
		Update("proposal_answering_enabled", false).Error)

	cfg, err := NewFeatures(db).Config(ctx, 4)
	require.NoError(t, err)
	assert.True(t, cfg.CreationEnabled)
	assert.True(t, cfg.OfficialProposalsEnabled)
	assert.True(t, cfg.ProposalAnsweringEnabled)
	assert.False(t, cfg.StepProposalAnsweringEnabled)
	assert.False(t, cfg.StateFilterAvailable())
	assert.Equal(t, proposals.VotesBlocked, cfg.Votes)
	assert.Equal(t, "id_documents", cfg.CreatePermission)
	assert.Equal(t, int64(9), *cfg.ProcessScopeID)
	assert.Equal(t, "BCN", cfg.ReferencePrefix)
	assert.Equal(t, int64(1), cfg.ProcessID)
}

func TestFeaturesConfigWithoutStepSettings(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Create(&types.Process{ID: 1}).Error)
	require.NoError(t, db.Create(&types.Feature{ID: 4, ProcessID: 1}).Error)

	cfg, err := NewFeatures(db).Config(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, cfg.StepProposalAnsweringEnabled)
	assert.Equal(t, proposals.VotesEnabled, cfg.Votes)
	assert.Nil(t, cfg.ProcessScopeID)
}

func TestFeaturesConfigMissing(t *testing.T) {
	_, err := NewFeatures(openTestDB(t)).Config(context.Background(), 1)
	var nf *proposals.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "feature", nf.Resource)
}
