package proposals

import (
	"fmt"
	"time"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func makeProposals(n int) []Proposal {
	out := make([]Proposal, n)
	for i := range out {
		out[i] = Proposal{
			ID:        int64(i + 1),
			FeatureID: 1,
			Title:     fmt.Sprintf("Proposal %d", i+1),
			Body:      "Body",
			Author:    UserAuthor(int64(100 + i)),
			CreatedAt: baseTime.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func ids(ps []Proposal) []int64 {
	out := make([]int64, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
