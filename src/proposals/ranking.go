package proposals

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/OneOfOne/xxhash"
)

// Order selects how a listing is ranked.
type Order string

const (
	OrderMostVoted Order = "most_voted"
	OrderRecent    Order = "recent"
	OrderRandom    Order = "random"
)

// DefaultOrder is most voted unless the feature has no voting at all.
func DefaultOrder(cfg FeatureConfig) Order {
	if cfg.voteMode() == VotesDisabled {
		return OrderRandom
	}
	return OrderMostVoted
}

func AvailableOrders(cfg FeatureConfig) []Order {
	if cfg.voteMode() == VotesDisabled {
		return []Order{OrderRandom, OrderRecent}
	}
	return []Order{OrderRandom, OrderRecent, OrderMostVoted}
}

// ResolveOrder maps a requested order to the one used. Unknown values are a
// validation error; known orders the feature does not offer fall back to the
// default.
func ResolveOrder(raw string, cfg FeatureConfig) (Order, error) {
	if raw == "" {
		return DefaultOrder(cfg), nil
	}
	o := Order(raw)
	switch o {
	case OrderMostVoted, OrderRecent, OrderRandom:
	default:
		return "", validation("order", "unknown order %q", raw)
	}
	if !slices.Contains(AvailableOrders(cfg), o) {
		return DefaultOrder(cfg), nil
	}
	return o, nil
}

// SeedFor derives a shuffle seed from a request identifier.
func SeedFor(requestID string) uint64 {
	return xxhash.ChecksumString64(requestID)
}

// Rank returns a newly ordered copy of ps. seed is only used by OrderRandom.
func Rank(ps []Proposal, order Order, seed uint64) []Proposal {
	out := slices.Clone(ps)
	switch order {
	case OrderRandom:
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		// deterministic base so the same seed always yields the same permutation
		slices.SortFunc(out, byID)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	case OrderRecent:
		slices.SortStableFunc(out, byRecent)
	default:
		slices.SortStableFunc(out, byVotes)
	}
	return out
}

func byID(a, b Proposal) int {
	return cmp.Compare(a.ID, b.ID)
}

func byRecent(a, b Proposal) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return byID(a, b)
}

func byVotes(a, b Proposal) int {
	if c := cmp.Compare(b.VoteCount, a.VoteCount); c != 0 {
		return c
	}
	return byRecent(a, b)
}
