package proposals

import "github.com/google/uuid"

type ListRequest struct {
	Filter Filter
	Order  string
	// Page is 1-based. Nil means the first page; an explicit value below 1
	// is rejected.
	Page    *int
	PerPage int
	// Seed replays a previous random order. Nil draws a new one.
	Seed      *uint64
	RequestID string
}

type Listing struct {
	Proposals       Page[Proposal]   `json:"proposals"`
	Order           Order            `json:"order"`
	AvailableOrders []Order          `json:"available_orders"`
	Seed            uint64           `json:"seed,omitempty"`
	Filters         AvailableFilters `json:"filters"`
	Actions         CardActions      `json:"actions"`
}

// BuildListing runs filter, rank and paginate over a snapshot of candidates.
func BuildListing(candidates []Proposal, cfg FeatureConfig, req ListRequest) (*Listing, error) {
	if err := req.Filter.Validate(); err != nil {
		return nil, err
	}
	order, err := ResolveOrder(req.Order, cfg)
	if err != nil {
		return nil, err
	}
	number := 1
	if req.Page != nil {
		number = *req.Page
	}

	var seed uint64
	if order == OrderRandom {
		switch {
		case req.Seed != nil:
			seed = *req.Seed
		case req.RequestID != "":
			seed = SeedFor(req.RequestID)
		default:
			seed = SeedFor(uuid.NewString())
		}
	}

	ranked := Rank(ApplyFilter(candidates, req.Filter, cfg), order, seed)
	page, err := Paginate(ranked, req.PerPage, number)
	if err != nil {
		return nil, err
	}

	return &Listing{
		Proposals:       page,
		Order:           order,
		AvailableOrders: AvailableOrders(cfg),
		Seed:            seed,
		Filters:         AvailableFiltersFor(cfg),
		Actions:         CardActionsFor(cfg),
	}, nil
}
