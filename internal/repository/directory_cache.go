package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/internal/models"
	appErrors "github.com/AbdelazizAhmedMohamedAhmed/tact-freight-platform-sub001/pkg/errors"
)

type cacheLookupRecorder interface {
	RecordCacheLookup(hit bool)
}

// CachedDirectory layers the Redis cache over the user repository for the
// hot read paths the assignment router and the dispatcher hit on every
// event. Writes go through UserRepository directly; Invalidate clears the
// affected roster afterwards.
type CachedDirectory struct {
	users   *UserRepository
	cache   *CacheRepository
	ttl     time.Duration
	metrics cacheLookupRecorder
	logger  *zap.Logger
}

// NewCachedDirectory constructs the decorator. Metrics may be nil.
func NewCachedDirectory(users *UserRepository, cache *CacheRepository, ttl time.Duration, metrics cacheLookupRecorder, logger *zap.Logger) *CachedDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDirectory{users: users, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

// GetByEmail passes through to the repository. Single-user lookups are cheap
// and caching them would complicate eligibility checks after role edits.
func (d *CachedDirectory) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.users.GetByEmail(ctx, email)
}

// ListByDepartment serves the roster from cache when fresh.
func (d *CachedDirectory) ListByDepartment(ctx context.Context, dept models.Department) ([]models.User, error) {
	key := rosterCacheKey(dept)
	var cached []models.User
	err := d.cache.Get(ctx, key, &cached)
	if err == nil {
		d.recordLookup(true)
		return cached, nil
	}
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		d.logger.Warn("roster cache read failed", zap.String("key", key), zap.Error(err))
	}
	d.recordLookup(false)

	users, err := d.users.ListByDepartment(ctx, dept)
	if err != nil {
		return nil, err
	}
	if err := d.cache.Set(ctx, key, users, d.ttl); err != nil {
		d.logger.Warn("roster cache write failed", zap.String("key", key), zap.Error(err))
	}
	return users, nil
}

// Invalidate drops the cached roster for a department. Called after user
// writes that change membership.
func (d *CachedDirectory) Invalidate(ctx context.Context, depts ...models.Department) {
	keys := make([]string, 0, len(depts))
	for _, dept := range depts {
		keys = append(keys, rosterCacheKey(dept))
	}
	if err := d.cache.Delete(ctx, keys...); err != nil {
		d.logger.Warn("roster cache invalidation failed", zap.Error(err))
	}
}

func (d *CachedDirectory) recordLookup(hit bool) {
	if d.metrics != nil {
		d.metrics.RecordCacheLookup(hit)
	}
}

func rosterCacheKey(dept models.Department) string {
	return fmt.Sprintf("directory:roster:%s", dept)
}
