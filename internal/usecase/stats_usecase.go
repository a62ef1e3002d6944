package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/infrastructure/metrics"
)

// StatsUseCase aggregates a user's transactions into calendar buckets.
type StatsUseCase struct {
	store   DocumentStore
	cache   Cache
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewStatsUseCase creates a new StatsUseCase. A nil cache disables caching.
func NewStatsUseCase(store DocumentStore, cache Cache, ttl time.Duration, logger zerolog.Logger, m *metrics.Metrics) *StatsUseCase {
	if ttl <= 0 {
		ttl = DefaultStatsCacheTTL
	}
	return &StatsUseCase{
		store:   store,
		cache:   cache,
		ttl:     ttl,
		logger:  logger.With().Str("component", "stats").Logger(),
		metrics: m,
		now:     time.Now,
	}
}

func statsCacheKey(uid string, p domain.Period) string {
	return "stats:" + uid + ":" + string(p)
}

// FetchStats returns the income/expense series of a user for the period and the
// transactions it was built from, newest first.
func (uc *StatsUseCase) FetchStats(ctx context.Context, uid string, period domain.Period) (*domain.Stats, error) {
	if uid == "" {
		return nil, domain.Invalid("uid is required")
	}
	period, err := domain.ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}

	key := statsCacheKey(uid, period)
	if stats, ok := uc.fromCache(ctx, key); ok {
		return stats, nil
	}

	now := uc.now()
	filters := []domain.Filter{domain.Where(domain.FieldUID, domain.OpEqual, uid)}
	if start := domain.RangeStart(period, now); !start.IsZero() {
		filters = append(filters, domain.Where(domain.FieldDate, domain.OpGreaterOrEqual, start))
	}

	docs, err := uc.store.Query(ctx, domain.CollectionTransactions, domain.Query{
		Filters: filters,
		OrderBy: []domain.Order{{Field: domain.FieldDate, Desc: true}},
	})
	if err != nil {
		return nil, storeErr(err, "query transactions for stats")
	}

	txns, err := decodeTransactions(docs)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{
		Period:       period,
		Series:       domain.BuildSeries(period, now, txns),
		Transactions: txns,
	}

	uc.toCache(ctx, key, stats)
	return stats, nil
}

func (uc *StatsUseCase) fromCache(ctx context.Context, key string) (*domain.Stats, bool) {
	if uc.cache == nil {
		return nil, false
	}

	data, err := uc.cache.Get(ctx, key)
	if err != nil || data == nil {
		if err != nil {
			uc.logger.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
		}
		uc.countCache("miss")
		return nil, false
	}

	var stats domain.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt stats cache entry")
		uc.countCache("miss")
		return nil, false
	}

	uc.countCache("hit")
	return &stats, true
}

func (uc *StatsUseCase) toCache(ctx context.Context, key string, stats *domain.Stats) {
	if uc.cache == nil {
		return
	}

	data, err := json.Marshal(stats)
	if err != nil {
		uc.logger.Warn().Err(err).Msg("failed to encode stats for cache")
		return
	}
	if err := uc.cache.Set(ctx, key, data, uc.ttl); err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
	}
}

func (uc *StatsUseCase) countCache(result string) {
	if uc.metrics != nil {
		uc.metrics.StatsCache.WithLabelValues(result).Inc()
	}
}
