package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, text := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0o644))
	}
	return dir
}

func TestDirStore(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"turkiye_economy.txt": "economy industry",
		"turkiye_capital.txt": "ankara capital",
		"notes.md":            "ignored",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))
	s := NewDirStore(dir, "txt")
	ctx := context.Background()

	ids, err := s.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"turkiye_capital", "turkiye_economy"}, ids)

	text, err := s.Get(ctx, "turkiye_capital")
	require.NoError(t, err)
	assert.Equal(t, "ankara capital", text)

	_, err = s.Get(ctx, "turkiye_climate")
	assert.ErrorIs(t, err, domain.ErrMissingDocument)

	_, err = s.Get(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrMissingDocument)
}

func TestDirStoreMissingDirectory(t *testing.T) {
	s := NewDirStore(filepath.Join(t.TempDir(), "absent"), "")
	_, err := s.IDs(context.Background())
	assert.ErrorIs(t, err, domain.ErrMissingArtifact)
}

func TestDocumentsInIDOrder(t *testing.T) {
	docs, err := Documents(context.Background(), MapStore{"b": "2", "a": "1"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Document{{ID: "a", Text: "1"}, {ID: "b", Text: "2"}}, docs)
}

func TestDirStoreSkipsBareExtensionFile(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		".txt":                "no name",
		"turkiye_climate.txt": "mild mediterranean",
	})
	s := NewDirStore(dir, ".txt")

	ids, err := s.IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"turkiye_climate"}, ids)

	docs, err := Documents(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
