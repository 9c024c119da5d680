package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/stake_go_server/internal/model"
	"github.com/qs3c/stake_go_server/internal/testutil"
)

func TestUserRepository_EarliestCreatedAt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	// 空表不报错
	earliest, err := repo.EarliestCreatedAt()
	require.NoError(t, err)
	assert.Nil(t, earliest)

	old := testutil.TestUser(t, db)
	testutil.TestUser(t, db)
	registeredAt := time.Now().AddDate(0, 0, -30)
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", old.ID).
		Update("created_at", registeredAt).Error)

	earliest, err = repo.EarliestCreatedAt()
	require.NoError(t, err)
	require.NotNil(t, earliest)
	assert.WithinDuration(t, registeredAt, *earliest, time.Second)
}
