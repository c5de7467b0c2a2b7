package proposals

import (
	"slices"
	"strings"
)

// Filter is the declarative listing filter. Zero values mean "any".
type Filter struct {
	Origin     Origin
	ScopeIDs   []int64
	CategoryID *int64
	State      AnswerState
	SearchText string
}

// Validate rejects values no dimension understands. Dimensions that are
// disabled for a feature are not an error; ApplyFilter ignores them.
func (f Filter) Validate() error {
	switch f.Origin {
	case "", OriginOfficial, OriginCitizenship:
	default:
		return validation("origin", "unknown origin %q", f.Origin)
	}
	switch f.State {
	case "", StateAccepted, StateRejected:
	default:
		return validation("state", "unknown state %q", f.State)
	}
	return nil
}

// AvailableFilters lists the dimensions a filter form shows for a feature.
type AvailableFilters struct {
	Origin     bool `json:"origin"`
	Scope      bool `json:"scope"`
	Category   bool `json:"category"`
	State      bool `json:"state"`
	SearchText bool `json:"search_text"`
}

func AvailableFiltersFor(cfg FeatureConfig) AvailableFilters {
	return AvailableFilters{
		Origin:     cfg.OriginFilterAvailable(),
		Scope:      cfg.ScopeFilterAvailable(),
		Category:   true,
		State:      cfg.StateFilterAvailable(),
		SearchText: true,
	}
}

// ApplyFilter returns the candidates matching every active dimension of f.
// The input slice is not modified.
func ApplyFilter(candidates []Proposal, f Filter, cfg FeatureConfig) []Proposal {
	avail := AvailableFiltersFor(cfg)
	text := strings.ToLower(strings.TrimSpace(f.SearchText))

	out := make([]Proposal, 0, len(candidates))
	for _, p := range candidates {
		if avail.Origin && f.Origin != "" && p.Origin() != f.Origin {
			continue
		}
		if avail.Scope && len(f.ScopeIDs) > 0 && (p.ScopeID == nil || !slices.Contains(f.ScopeIDs, *p.ScopeID)) {
			continue
		}
		if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
			continue
		}
		if avail.State && f.State != "" && p.State() != f.State {
			continue
		}
		if text != "" && !matchesText(p, text) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesText(p Proposal, lowered string) bool {
	return strings.Contains(strings.ToLower(p.Title), lowered) ||
		strings.Contains(strings.ToLower(p.Body), lowered)
}
