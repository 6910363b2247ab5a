package posts

import (
	"context"
	"math"
	"strings"
	"testing"

	"example.com/microblog/internal/common"
	"example.com/microblog/internal/models"
	"example.com/microblog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, int64) {
	t.Helper()
	st := store.NewMock()
	acc, err := st.CreateAccount(context.Background(), &models.Account{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	return NewService(st, 2), acc.ID
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, alice := setup(t)

	p, err := svc.Create(ctx, alice, "  hello world  ", "en-us")
	require.NoError(t, err)
	assert.Equal(t, "hello world", p.Body)
	assert.Equal(t, "en-US", p.Language)
	assert.NotZero(t, p.ID)

	p, err = svc.Create(ctx, alice, "hola", "not a tag!")
	require.NoError(t, err)
	assert.Empty(t, p.Language)

	_, err = svc.Create(ctx, alice, "   ", "")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.Create(ctx, alice, strings.Repeat("é", 141), "")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.Create(ctx, alice, strings.Repeat("é", 140), "")
	assert.NoError(t, err, "length counts characters, not bytes")
}

func TestCreate_UnknownAuthor(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Create(context.Background(), 999, "hi", "")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc, alice := setup(t)
	for _, body := range []string{"go is fun", "learning Go", "rust and go", "python"} {
		_, err := svc.Create(ctx, alice, body, "")
		require.NoError(t, err)
	}

	res, err := svc.Search(ctx, "go", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Items, 2)
	assert.True(t, res.HasNext)
	assert.False(t, res.HasPrev)

	res, err = svc.Search(ctx, "go", 2, 0)
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.False(t, res.HasNext)
	assert.True(t, res.HasPrev)

	_, err = svc.Search(ctx, "  ", 1, 0)
	assert.ErrorIs(t, err, common.ErrInvalidOperation)
}

func TestSearch_HugePageIsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, alice := setup(t)
	_, err := svc.Create(ctx, alice, "go go go", "")
	require.NoError(t, err)

	res, err := svc.Search(ctx, "go", math.MaxInt, 4)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, res.Total)
	assert.False(t, res.HasNext)
	assert.False(t, res.HasPrev)
	assert.Equal(t, (math.MaxInt-1)/4, res.Page)
}
