// Package assemble builds the bounded context window handed to generation.
package assemble

import (
	"context"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// Separator sits between consecutive documents in the context text.
const Separator = "\n\n"

// Assemble concatenates the text of hits in rank order and cuts the result at
// the budget-th character, so the lowest ranked text is lost first. Sources
// lists, in rank order, the documents that start within the budget. A hit
// without stored text fails the whole assembly.
func Assemble(ctx context.Context, hits []domain.Hit, store domain.CorpusStore, budget int) (domain.ContextBlock, error) {
	const op = "assemble.Assemble"
	if budget < 1 {
		return domain.ContextBlock{}, domain.Errorf(domain.KindInvalidArgument, op, "budget must be at least 1, got %d", budget)
	}
	texts := make([]string, len(hits))
	for i, h := range hits {
		text, err := store.Get(ctx, h.DocID)
		if err != nil {
			if ctx.Err() != nil || domain.KindOf(err) == domain.KindMissingDocument {
				return domain.ContextBlock{}, err
			}
			return domain.ContextBlock{}, domain.Wrap(domain.KindMissingDocument, op, err)
		}
		texts[i] = text
	}

	sepLen := utf8.RuneCountInString(Separator)
	starts := make([]int, len(texts))
	total := 0
	var b strings.Builder
	for i, text := range texts {
		if i > 0 {
			b.WriteString(Separator)
			total += sepLen
		}
		starts[i] = total
		b.WriteString(text)
		total += utf8.RuneCountInString(text)
	}
	block := domain.ContextBlock{Text: b.String()}
	if total > budget {
		block.Text = truncateRunes(block.Text, budget)
	}
	for i, h := range hits {
		if starts[i] < budget {
			block.Sources = append(block.Sources, h.DocID)
		}
	}
	return block, nil
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
