//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"github.com/stretchr/testify/require"
)

func currentRecord(ctx context.Context, t *testing.T, s ratelimit.Store, key string) *ratelimit.Record {
	t.Helper()

	record, err := s.Get(ctx, key)
	if errors.Is(err, ratelimit.ErrNotFound) {
		return nil
	}

	require.NoError(t, err)

	return &record
}
