package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

// SummaryCache holds computed schedule summaries keyed by loan id.
// Writers invalidate after every commit that touches the loan.
type SummaryCache interface {
	Get(ctx context.Context, loanID string) (*domain.ScheduleSummary, bool, error)
	Set(ctx context.Context, summary *domain.ScheduleSummary) error
	Invalidate(ctx context.Context, loanID string) error
}

func summaryKey(loanID string) string {
	return fmt.Sprintf("loan:%s:summary", loanID)
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSummaryCache(client *redis.Client, ttl time.Duration) SummaryCache {
	return &redisSummaryCache{client: client, ttl: ttl}
}

func (c *redisSummaryCache) Get(ctx context.Context, loanID string) (*domain.ScheduleSummary, bool, error) {
	raw, err := c.client.Get(ctx, summaryKey(loanID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, customError.WrapCacheError(err)
	}

	var summary domain.ScheduleSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// a stale layout is treated as a miss
		return nil, false, nil
	}
	return &summary, true, nil
}

func (c *redisSummaryCache) Set(ctx context.Context, summary *domain.ScheduleSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return customError.WrapCacheError(err)
	}
	if err := c.client.Set(ctx, summaryKey(summary.LoanID), raw, c.ttl).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}

func (c *redisSummaryCache) Invalidate(ctx context.Context, loanID string) error {
	if err := c.client.Del(ctx, summaryKey(loanID)).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}

type noopSummaryCache struct{}

// NewNoopSummaryCache never hits; used when Redis is disabled
func NewNoopSummaryCache() SummaryCache {
	return noopSummaryCache{}
}

func (noopSummaryCache) Get(context.Context, string) (*domain.ScheduleSummary, bool, error) {
	return nil, false, nil
}

func (noopSummaryCache) Set(context.Context, *domain.ScheduleSummary) error { return nil }

func (noopSummaryCache) Invalidate(context.Context, string) error { return nil }
