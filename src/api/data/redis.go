package data

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/civic-proposals/src/proposals"
)

const (
	votersPrefix = "proposal:voters:"
	StreamEvents = "proposals.events"
)

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// VoteLedger keeps one Redis set of voter ids per proposal.
type VoteLedger struct {
	rdb *redis.Client
}

func NewVoteLedger(rdb *redis.Client) VoteLedger {
	return VoteLedger{rdb: rdb}
}

func votersKey(proposalID int64) string {
	return votersPrefix + strconv.FormatInt(proposalID, 10)
}

func (l VoteLedger) Record(ctx context.Context, proposalID, userID int64) (bool, error) {
	n, err := l.rdb.SAdd(ctx, votersKey(proposalID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("record vote: %w", err)
	}
	return n == 1, nil
}

func (l VoteLedger) Forget(ctx context.Context, proposalID, userID int64) error {
	return l.rdb.SRem(ctx, votersKey(proposalID), userID).Err()
}

// EventStream appends proposal events to a Redis stream for downstream
// consumers (notifications, search reindexing).
type EventStream struct {
	rdb    *redis.Client
	stream string
	now    func() time.Time
}

func NewEventStream(rdb *redis.Client) EventStream {
	return EventStream{rdb: rdb, stream: StreamEvents, now: time.Now}
}

func (s EventStream) Publish(ctx context.Context, e proposals.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	return PublishMessage(ctx, s.rdb, s.stream, map[string]interface{}{
		"type":        e.Type,
		"proposal_id": e.ProposalID,
		"feature_id":  e.FeatureID,
		"payload":     string(payload),
		"time":        s.now().UTC().Format(time.RFC3339),
	})
}

func PublishMessage(ctx context.Context, rdb *redis.Client, stream string, payload map[string]interface{}) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: payload,
	}).Result()
	return err
}
