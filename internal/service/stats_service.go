package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusforms/registry-api/internal/models"
)

// unknownDomain buckets emails without an @ separator.
const unknownDomain = "unknown"

type rosterSource interface {
	ListAll(ctx context.Context) ([]models.Student, models.BackendKind, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// StatsService derives dashboard counters from the active backend's record
// set. Aggregation itself is stateless and pull-based; only the composed
// endpoint payload is cached, keyed per backend.
type StatsService struct {
	roster   rosterSource
	selector activeBackendSource
	cache    statsCache
	ttl      time.Duration
	logger   *zap.Logger

	now func() time.Time
}

// NewStatsService constructs the aggregator. cache may be nil.
func NewStatsService(roster rosterSource, selector activeBackendSource, cache statsCache, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{roster: roster, selector: selector, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Compute returns current statistics, serving a cached payload when one is
// fresh. cacheHit reports whether the payload came from the cache.
func (s *StatsService) Compute(ctx context.Context) (models.Statistics, bool, error) {
	if s.cache != nil {
		var cached models.Statistics
		if err := s.cache.Get(ctx, statsKey(s.selector.Active()), &cached); err == nil {
			return cached, true, nil
		}
	}

	students, origin, err := s.roster.ListAll(ctx)
	if err != nil {
		return models.Statistics{}, false, err
	}
	key := statsKey(origin)

	stats := Aggregate(students, s.now().UTC())
	stats.Backend = origin

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.ttl); err != nil {
			s.logger.Warn("failed to cache statistics", zap.Error(err))
		}
	}
	return stats, false, nil
}

// Invalidate drops cached payloads for the given backend, or for all
// backends when none is named. Write paths call this after every mutation.
func (s *StatsService) Invalidate(ctx context.Context, kinds ...models.BackendKind) {
	if s.cache == nil {
		return
	}
	if len(kinds) == 0 {
		kinds = []models.BackendKind{models.BackendFirestore, models.BackendMongo}
	}
	keys := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		keys = append(keys, statsKey(kind))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to invalidate statistics cache", zap.Error(err))
	}
}

func statsKey(kind models.BackendKind) string {
	return "registry:stats:" + string(kind)
}

// Aggregate derives all counters from the record set relative to the given
// evaluation time. Pure; no caching, no I/O.
func Aggregate(students []models.Student, now time.Time) models.Statistics {
	stats := models.Statistics{
		Total:        len(students),
		ByBranch:     make(map[string]int),
		ByYear:       make(map[string]int),
		ByDivision:   make(map[string]int),
		EmailDomains: make(map[string]int),
		GeneratedAt:  now,
	}

	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	for _, student := range students {
		stats.ByBranch[student.Branch]++
		stats.ByYear[student.Year]++
		stats.ByDivision[models.NormalizeDivision(student.Division)]++

		if !student.SubmittedAt.IsZero() {
			millis := student.SubmittedAt.UnixMilli()
			if millis >= dayAgo.UnixMilli() {
				stats.Last24Hours++
			}
			if millis >= weekAgo.UnixMilli() {
				stats.Last7Days++
			}
		}

		stats.EmailDomains[emailDomain(student.Email)]++
	}
	return stats
}

func emailDomain(email string) string {
	_, domain, found := strings.Cut(email, "@")
	if !found || domain == "" {
		return unknownDomain
	}
	return strings.ToLower(domain)
}
