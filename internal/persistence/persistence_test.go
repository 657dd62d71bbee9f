package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarketSnapshotTableName(t *testing.T) {
	require.Equal(t, "market_snapshots", MarketSnapshot{}.TableName())
}

func TestErrNotFoundIsDistinctSentinel(t *testing.T) {
	require.Error(t, ErrNotFound)
	require.NotEqual(t, ErrNotFound.Error(), "")
}
