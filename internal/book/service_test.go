package book

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarium-io/librarium/internal/book/entity"
	bookrepo "github.com/librarium-io/librarium/internal/book/repo"
	userrepo "github.com/librarium-io/librarium/internal/user/repo"
	"github.com/librarium-io/librarium/pkg/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Connect(database.Config{
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		MaxConns: 2,
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	// books.borrower_id references users, so both tables are needed
	require.NoError(t, userrepo.NewUserRepo(db).EnsureTable(ctx))
	require.NoError(t, bookrepo.NewBookRepo(db).EnsureTable(ctx))

	return NewService(db, nil)
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(t)

	b, err := svc.Create(context.Background(), "Dune", "Frank Herbert")
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "Frank Herbert", b.Author)
	assert.Equal(t, entity.StatusAvailable, b.Status)
	assert.Nil(t, b.BorrowerID)

	got, err := svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePartial(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, "Dune", "Frank Herbert")
	require.NoError(t, err)

	title := "Dune Messiah"
	updated, err := svc.Update(ctx, b.ID, &title, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Equal(t, "Frank Herbert", updated.Author)
	assert.Equal(t, entity.StatusAvailable, updated.Status)

	status := entity.StatusBorrowed
	updated, err = svc.Update(ctx, b.ID, nil, nil, &status)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusBorrowed, updated.Status)
	assert.Equal(t, "Dune Messiah", updated.Title)
}

func TestUpdateNotFound(t *testing.T) {
	svc := newTestService(t)

	title := "Ghost"
	_, err := svc.Update(context.Background(), 42, &title, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteReturnsSnapshot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b, err := svc.Create(ctx, "Dune", "Frank Herbert")
	require.NoError(t, err)

	snap, err := svc.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, snap.ID)
	assert.Equal(t, "Dune", snap.Title)

	_, err = svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Delete(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndAvailable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b1, err := svc.Create(ctx, "A", "x")
	require.NoError(t, err)
	b2, err := svc.Create(ctx, "B", "y")
	require.NoError(t, err)
	b3, err := svc.Create(ctx, "C", "z")
	require.NoError(t, err)

	status := entity.StatusBorrowed
	_, err = svc.Update(ctx, b2.ID, nil, nil, &status)
	require.NoError(t, err)

	all, err := svc.List(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, b1.ID, all[0].ID)
	assert.Equal(t, b2.ID, all[1].ID)
	assert.Equal(t, b3.ID, all[2].ID)

	page, err := svc.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, b2.ID, page[0].ID)

	available, err := svc.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, b1.ID, available[0].ID)
	assert.Equal(t, b3.ID, available[1].ID)
}
