// Package search keeps proposals in a Meilisearch index and answers the
// search_text filter from it.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/stake-plus/civic-proposals/src/proposals"
)

const (
	idxProposals = "proposals"
	// hitsPage is the batch size SearchIDs pages through the index with.
	hitsPage = 1000
	// maxTotalHits raises Meilisearch's default cap of 1000 reachable hits.
	maxTotalHits = 100000
)

var ErrUnhealthy = errors.New("meilisearch unhealthy")

type proposalRecord struct {
	ID        int64  `json:"id"`
	FeatureID int64  `json:"featureId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// Meili implements proposals.TextSearcher.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	logger  *slog.Logger
}

// NewMeili creates the client and configures the index when reachable.
// An unreachable server is retried from the health loop.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		done:   make(chan struct{}),
		logger: logger.With("component", "search"),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.Warn("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxProposals,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", idxProposals, "error", err)
	}

	index := m.client.Index(idxProposals)
	filterable := []interface{}{"featureId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", idxProposals, "error", err)
	}
	if _, err := index.UpdatePagination(&meili.Pagination{MaxTotalHits: maxTotalHits}); err != nil {
		m.logger.Warn("update pagination", "index", idxProposals, "error", err)
	}
	searchable := []string{"title", "body"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", idxProposals, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// SearchIDs returns the ids of every proposal of the feature matching text,
// paging through the index until a short batch comes back.
func (m *Meili) SearchIDs(ctx context.Context, featureID int64, text string) ([]int64, error) {
	if !m.healthy.Load() {
		return nil, ErrUnhealthy
	}

	var ids []int64
	for offset := int64(0); offset < maxTotalHits; offset += hitsPage {
		resp, err := m.client.MultiSearchWithContext(ctx, &meili.MultiSearchRequest{
			Queries: []*meili.SearchRequest{{
				IndexUID:             idxProposals,
				Query:                text,
				Filter:               fmt.Sprintf("featureId = %d", featureID),
				Offset:               offset,
				Limit:                hitsPage,
				AttributesToRetrieve: []string{"id"},
			}},
		})
		if err != nil {
			m.healthy.Store(false)
			return nil, fmt.Errorf("meilisearch multi-search: %w", err)
		}

		var got int
		for _, sr := range resp.Results {
			got += len(sr.Hits)
			for _, hit := range sr.Hits {
				if v, ok := decodeID(hit); ok {
					ids = append(ids, v)
				}
			}
		}
		if got < hitsPage {
			break
		}
	}
	return ids, nil
}

func (m *Meili) IndexProposal(ctx context.Context, p proposals.Proposal) error {
	if !m.healthy.Load() {
		return ErrUnhealthy
	}
	rec := proposalRecord{ID: p.ID, FeatureID: p.FeatureID, Title: p.Title, Body: p.Body}
	_, err := m.client.Index(idxProposals).AddDocumentsWithContext(ctx, []proposalRecord{rec}, nil)
	return err
}

func decodeID(hit meili.Hit) (int64, bool) {
	raw, ok := hit["id"]
	if !ok {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	return v, err == nil
}
