package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/core"
	"folio/internal/sheets"
	"folio/internal/sheets/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) sheets.RecordStore { return New() })
}

func TestMutationsRefreshLastUpdate(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return clock }))

	cfg, err := s.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T09:00:00Z", cfg[core.ConfigLastUpdate])

	clock = clock.Add(time.Hour)
	_, err = s.AddAccount(ctx, core.Account{Type: core.Crypto, Name: "w", Platform: "binance"})
	require.NoError(t, err)

	cfg, err = s.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T10:00:00Z", cfg[core.ConfigLastUpdate])
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.AddAccount(ctx, core.Account{ID: "a", Type: core.Crypto, Name: "w", Platform: "binance"})
	require.NoError(t, err)

	list, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	list[0].Name = "mutated"

	again, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "w", again[0].Name)
}
