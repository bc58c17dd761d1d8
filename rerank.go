package archway

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// LLMRerankProcessor asks provider to score each document's relevance to
// the query on a 0-100 scale and reorders documents by that score
// descending. Any failure (provider error, unparsable response) degrades
// gracefully: the original document order is returned unchanged rather than
// failing the whole retrieval.
type LLMRerankProcessor struct {
	Provider Provider
}

type rerankScore struct {
	Index int `json:"index"`
	Score int `json:"score"`
}

func (p LLMRerankProcessor) Process(ctx context.Context, query string, docs []Document) ([]Document, error) {
	if len(docs) == 0 {
		return docs, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Score each document's relevance to the query on a 0-100 scale.\nQuery: %s\n\n", query)
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] %s\n\n", i, d.Content)
	}
	b.WriteString(`Respond with a JSON array of {"index": int, "score": int}, one entry per document, no other text.`)

	req := ChatRequest{Messages: []Message{UserMessage(b.String())}}
	resp, err := p.Provider.Chat(ctx, req)
	if err != nil {
		return docs, nil // graceful degradation
	}

	var scores []rerankScore
	if err := json.Unmarshal([]byte(resp.Message.Text()), &scores); err != nil {
		return docs, nil
	}
	byIndex := make(map[int]int, len(scores))
	for _, s := range scores {
		byIndex[s.Index] = s.Score
	}

	ranked := make([]Document, len(docs))
	copy(ranked, docs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return byIndex[indexOf(docs, ranked[i])] > byIndex[indexOf(docs, ranked[j])]
	})
	return ranked, nil
}

func indexOf(docs []Document, target Document) int {
	for i, d := range docs {
		if d.ID == target.ID {
			return i
		}
	}
	return -1
}
