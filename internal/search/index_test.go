package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"bookmarket/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewIndex("", 2, 25)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestSearchMatchesPrefixes(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexBook(models.Book{ID: 1, Title: "Operating Systems", Author: "Tanenbaum"}))
	require.NoError(t, idx.IndexBook(models.Book{ID: 2, Title: "Linear Algebra", Author: "Strang"}))

	ids, err := idx.Search(ctx, "oper", 10)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids)

	ids, err = idx.Search(ctx, "lin", 10)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, ids)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexBook(models.Book{ID: 1, Title: "Operating Systems"}))

	ids, err := idx.Search(ctx, "OPER", 10)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids)
}

func TestSearchCoversAllFields(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexBook(models.Book{
		ID:          1,
		Title:       "Untitled",
		Author:      "Knuth",
		Description: "barely used, some highlighting",
		Major:       "Computer Science",
	}))

	for _, q := range []string{"knu", "highl", "comp"} {
		ids, err := idx.Search(ctx, q, 10)
		require.NoError(t, err, "query %q", q)
		require.Equal(t, []int64{1}, ids, "query %q", q)
	}
}

func TestSearchNoMatch(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.IndexBook(models.Book{ID: 1, Title: "Operating Systems"}))

	ids, err := idx.Search(context.Background(), "zzzz", 10)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestIndexBookReplacesDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexBook(models.Book{ID: 1, Title: "Operating Systems"}))
	require.NoError(t, idx.IndexBook(models.Book{ID: 1, Title: "Linear Algebra"}))

	ids, err := idx.Search(ctx, "oper", 10)
	require.NoError(t, err)
	require.Empty(t, ids)

	ids, err = idx.Search(ctx, "lin", 10)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, ids)
}

func TestDeleteBookRemovesFromResults(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexBook(models.Book{ID: 1, Title: "Operating Systems"}))
	require.NoError(t, idx.DeleteBook(1))
	require.NoError(t, idx.DeleteBook(99)) // never indexed

	ids, err := idx.Search(ctx, "oper", 10)
	require.NoError(t, err)
	require.Empty(t, ids)
}
