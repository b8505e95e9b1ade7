package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/4ndr33w/projecthub-backend/internal/projects/domain"
)

const (
	aggregateKeyPrefix = "project:agg:" // project:agg:{project_id}
	aggregateTTL       = 5 * time.Minute
)

// AggregateCache keeps recently assembled project aggregates in redis. It is
// strictly best-effort: every redis failure degrades to a miss and the read
// path falls through to the store. Consistency comes from invalidation on
// the mutation paths, within the eventual-consistency window the aggregate
// reads already accept.
type AggregateCache struct {
	client *redis.Client
}

func NewAggregateCache(client *redis.Client) *AggregateCache {
	return &AggregateCache{client: client}
}

func (c *AggregateCache) Get(ctx context.Context, projectID string) (*domain.ProjectAggregate, bool) {
	data, err := c.client.Get(ctx, c.key(projectID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[warn] operation=cache.Get project_id=%s error=%v", projectID, err)
		return nil, false
	}

	var agg domain.ProjectAggregate
	if err := json.Unmarshal([]byte(data), &agg); err != nil {
		log.Printf("[warn] operation=cache.Get project_id=%s error=%v", projectID, err)
		return nil, false
	}
	return &agg, true
}

func (c *AggregateCache) Set(ctx context.Context, agg *domain.ProjectAggregate) {
	data, err := json.Marshal(agg)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(agg.ID), data, aggregateTTL).Err(); err != nil {
		log.Printf("[warn] operation=cache.Set project_id=%s error=%v", agg.ID, err)
	}
}

func (c *AggregateCache) Invalidate(ctx context.Context, projectID string) {
	if err := c.client.Del(ctx, c.key(projectID)).Err(); err != nil {
		log.Printf("[warn] operation=cache.Invalidate project_id=%s error=%v", projectID, err)
	}
}

func (c *AggregateCache) key(projectID string) string {
	return aggregateKeyPrefix + projectID
}
