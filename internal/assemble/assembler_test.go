package assemble

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/corpus"
	"docqa/internal/domain"
)

var store = corpus.MapStore{
	"capital": "ankara capital city",
	"economy": "industry agriculture tourism",
	"climate": "black sea humid",
	"türkçe":  "çay fındık ğüşiöç",
}

func hits(ids ...string) []domain.Hit {
	out := make([]domain.Hit, len(ids))
	for i, id := range ids {
		out[i] = domain.Hit{DocID: id, Distance: float64(i)}
	}
	return out
}

func TestAssembleRankOrderWithinBudget(t *testing.T) {
	block, err := Assemble(context.Background(), hits("economy", "capital"), store, 1000)
	require.NoError(t, err)
	assert.Equal(t, "industry agriculture tourism\n\nankara capital city", block.Text)
	assert.Equal(t, []string{"economy", "capital"}, block.Sources)
}

func TestAssembleTruncatesTail(t *testing.T) {
	// "ankara capital city" is 19 characters; the separator takes 2 more.
	block, err := Assemble(context.Background(), hits("capital", "economy", "climate"), store, 25)
	require.NoError(t, err)
	assert.Equal(t, "ankara capital city\n\nindu", block.Text)
	assert.Equal(t, []string{"capital", "economy"}, block.Sources)
}

func TestAssembleDropsSourcesOutsideBudget(t *testing.T) {
	block, err := Assemble(context.Background(), hits("capital", "economy"), store, 20)
	require.NoError(t, err)
	assert.Equal(t, "ankara capital city\n", block.Text)
	assert.Equal(t, []string{"capital"}, block.Sources)
}

func TestAssembleHardTruncatesSingleDocument(t *testing.T) {
	block, err := Assemble(context.Background(), hits("capital"), store, 6)
	require.NoError(t, err)
	assert.Equal(t, "ankara", block.Text)
	assert.Equal(t, []string{"capital"}, block.Sources)
}

func TestAssembleCountsCharactersNotBytes(t *testing.T) {
	block, err := Assemble(context.Background(), hits("türkçe"), store, 9)
	require.NoError(t, err)
	assert.Equal(t, "çay fındı", block.Text)
	assert.True(t, utf8.ValidString(block.Text))
}

func TestAssembleNeverExceedsBudget(t *testing.T) {
	ids := []string{"capital", "economy", "climate", "türkçe"}
	for budget := 1; budget <= 120; budget++ {
		block, err := Assemble(context.Background(), hits(ids...), store, budget)
		require.NoError(t, err)
		assert.LessOrEqual(t, utf8.RuneCountInString(block.Text), budget)
		assert.True(t, strings.HasPrefix(strings.Join([]string{
			store["capital"], store["economy"], store["climate"], store["türkçe"],
		}, Separator), block.Text))
	}
}

func TestAssembleIdempotent(t *testing.T) {
	in := hits("climate", "capital")
	a, err := Assemble(context.Background(), in, store, 30)
	require.NoError(t, err)
	b, err := Assemble(context.Background(), in, store, 30)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssembleMissingDocumentFails(t *testing.T) {
	_, err := Assemble(context.Background(), hits("capital", "history"), store, 100)
	assert.ErrorIs(t, err, domain.ErrMissingDocument)
}

func TestAssembleRejectsBadBudget(t *testing.T) {
	_, err := Assemble(context.Background(), hits("capital"), store, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAssembleNoHits(t *testing.T) {
	block, err := Assemble(context.Background(), nil, store, 10)
	require.NoError(t, err)
	assert.Empty(t, block.Text)
	assert.Empty(t, block.Sources)
}
