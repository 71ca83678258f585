package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatehub/curatehub/internal/model"
)

func TestFeedCRUD(t *testing.T) {
	db := testDB(t)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	feed := &model.Feed{ID: "news", Name: "News", Enabled: true, Approvers: mustJSON(t, []string{"mod1"})}
	require.NoError(t, repo.Create(ctx, feed))

	got, err := repo.Get(ctx, "news")
	require.NoError(t, err)
	assert.Equal(t, "News", got.Name)
	assert.True(t, got.HasApprover("MOD1")) // 大小写不敏感

	got.Name = "Tech News"
	got.Enabled = false
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Get(ctx, "news")
	require.NoError(t, err)
	assert.Equal(t, "Tech News", got.Name)
	assert.False(t, got.Enabled)

	require.NoError(t, repo.Delete(ctx, "news"))
	_, err = repo.Get(ctx, "news")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Update(ctx, feed), ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "news"), ErrNotFound)
}

func TestFeedListEnabled(t *testing.T) {
	db := testDB(t)
	repo := NewFeedRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Feed{ID: "a", Name: "a", Enabled: true}))
	require.NoError(t, repo.Create(ctx, &model.Feed{ID: "b", Name: "b", Enabled: false}))
	require.NoError(t, repo.Create(ctx, &model.Feed{ID: "c", Name: "c", Enabled: true}))

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, "a", enabled[0].ID)
	assert.Equal(t, "c", enabled[1].ID)

	all, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
