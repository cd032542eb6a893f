package instruments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountCodeReserveUsageHonorsLimit(t *testing.T) {
	conn := setupInstrumentsTestDB(t)
	repo := NewDiscountCodeRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	code := newCode(t, conn, "SAVE-LIMIT", 2)

	for i := 0; i < 2; i++ {
		ok, err := repo.ReserveUsage(ctx, code.ID, now)
		require.NoError(t, err)
		assert.True(t, ok, "reserve %d should succeed", i+1)
	}

	ok, err := repo.ReserveUsage(ctx, code.ID, now)
	require.NoError(t, err)
	assert.False(t, ok, "third reserve must be rejected by the limit guard")

	reloaded, err := repo.FindByID(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.CurrentUsageCount)
	assert.True(t, reloaded.Used)
}

func TestDiscountCodeUnlimitedUsage(t *testing.T) {
	conn := setupInstrumentsTestDB(t)
	repo := NewDiscountCodeRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	code := newCode(t, conn, "SAVE-UNLIMITED", 0)

	for i := 0; i < 5; i++ {
		ok, err := repo.ReserveUsage(ctx, code.ID, now)
		require.NoError(t, err)
		require.True(t, ok)
	}

	reloaded, err := repo.FindByID(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.CurrentUsageCount)
	assert.False(t, reloaded.Used, "zero limit codes never exhaust")
}

func TestDiscountCodeReleaseUsageFloorsAtZero(t *testing.T) {
	conn := setupInstrumentsTestDB(t)
	repo := NewDiscountCodeRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	code := newCode(t, conn, "SAVE-RELEASE", 1)

	ok, err := repo.ReserveUsage(ctx, code.ID, now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ReleaseUsage(ctx, code.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	// Releasing again must not drive the counter negative.
	ok, err = repo.ReleaseUsage(ctx, code.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := repo.FindByID(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.CurrentUsageCount)
	assert.False(t, reloaded.Used)
}
