package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/lazywalker/internal/domain"
)

const walkID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

func TestCursorRoundTrip(t *testing.T) {
	c := &domain.Cursor{CompletedAt: time.Date(2024, 5, 15, 7, 30, 0, 123, time.UTC), ID: walkID}
	token := EncodeCursor(c)
	require.NotEmpty(t, token)

	decoded, err := DecodeCursor(token)
	require.NoError(t, err)
	require.True(t, c.CompletedAt.Equal(decoded.CompletedAt))
	require.Equal(t, walkID, decoded.ID)
}

func TestDecodeCursorEdgeCases(t *testing.T) {
	c, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, c)

	_, err = DecodeCursor("%%%")
	require.Error(t, err)

	_, err = DecodeCursor(EncodeCursor(&domain.Cursor{ID: "x"})[:4])
	require.Error(t, err)

	_, err = DecodeCursor(EncodeCursor(&domain.Cursor{CompletedAt: time.Now(), ID: "walk-1"}))
	require.ErrorContains(t, err, "parse cursor id")
}

func TestClampLimitAndNextCursor(t *testing.T) {
	require.Equal(t, DefaultPageSize, ClampLimit(0))
	require.Equal(t, MaxPageSize, ClampLimit(1000))
	require.Equal(t, 7, ClampLimit(7))

	walks := []domain.Walk{{ID: "a"}, {ID: "b"}}
	require.Nil(t, NextCursor(walks, 3))
	require.Equal(t, "b", NextCursor(walks, 2).ID)
}
