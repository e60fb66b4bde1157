package retrieval

import (
	"cmp"
	"context"
	"math"
	"regexp"
	"slices"
	"strings"

	"docqa/internal/domain"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Title ranks documents by word overlap between the question and the document id,
// e.g. "turkiye_economy" for "How is the economy?".
type Title struct {
	ids    []string
	tokens []map[string]struct{}
}

// NewTitle indexes the words of each id.
func NewTitle(ids []string) *Title {
	t := &Title{ids: slices.Clone(ids), tokens: make([]map[string]struct{}, len(ids))}
	for i, id := range ids {
		t.tokens[i] = toTokenSet(id)
	}
	return t
}

// Name returns StrategyTitle.
func (t *Title) Name() string { return StrategyTitle }

// Retrieve scores every id with the Ochiai coefficient and reports 1-score as the
// distance. Equal distances keep id order.
func (t *Title) Retrieve(ctx context.Context, question string, k int) ([]domain.Hit, error) {
	if k < 1 {
		return nil, domain.Errorf(domain.KindInvalidArgument, "retrieval.Retrieve", "k must be at least 1, got %d", k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qset := toTokenSet(question)
	hits := make([]domain.Hit, len(t.ids))
	for i, id := range t.ids {
		hits[i] = domain.Hit{DocID: id, Distance: 1 - overlapOchiai(qset, t.tokens[i])}
	}
	slices.SortStableFunc(hits, func(a, b domain.Hit) int { return cmp.Compare(a.Distance, b.Distance) })
	return hits[:min(k, len(hits))], nil
}

func toTokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		m[tok] = struct{}{}
	}
	return m
}

// overlapOchiai is |A∩B| / sqrt(|A||B|).
func overlapOchiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range b {
		if _, ok := a[tok]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
