package resolver

import (
	"fmt"
	"testing"

	"github.com/dyluth/docroom/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot(ids ...string) catalog.Snapshot {
	private := make([]catalog.Document, len(ids))
	for i, id := range ids {
		private[i] = catalog.Document{ID: id, Title: id, Visibility: catalog.Private}
	}
	return catalog.Snapshot{Public: catalog.PublicDocuments(), Private: private}
}

func TestResolveDocumentID(t *testing.T) {
	snap := snapshot("doc_abc123xyz", "doc_abc999xyz", "doc_zzz000")

	t.Run("exact id", func(t *testing.T) {
		id, err := ResolveDocumentID(snap, "public-roadmap")
		require.NoError(t, err)
		assert.Equal(t, "public-roadmap", id)
	})

	t.Run("unique prefix", func(t *testing.T) {
		id, err := ResolveDocumentID(snap, "doc_abc1")
		require.NoError(t, err)
		assert.Equal(t, "doc_abc123xyz", id)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := ResolveDocumentID(snap, "doc_abc")
		require.Error(t, err)
		assert.True(t, IsAmbiguousError(err))
		assert.Len(t, err.(*AmbiguousError).Matches, 2)
	})

	t.Run("prefix too short", func(t *testing.T) {
		_, err := ResolveDocumentID(snap, "doc_")
		assert.True(t, IsNotFoundError(err))
	})

	t.Run("no match", func(t *testing.T) {
		_, err := ResolveDocumentID(snap, "doc_nothing")
		assert.True(t, IsNotFoundError(err))
		assert.EqualError(t, err, "no documents found matching 'doc_nothing'")
	})
}

func TestFormatAmbiguousError(t *testing.T) {
	matches := make([]string, 12)
	for i := range matches {
		matches[i] = fmt.Sprintf("doc_same%02d", i)
	}

	msg := FormatAmbiguousError(&AmbiguousError{ShortID: "doc_same", Matches: matches})
	assert.Contains(t, msg, "  doc_same09\n")
	assert.NotContains(t, msg, "doc_same10")
	assert.Contains(t, msg, "...and 2 more")
}
