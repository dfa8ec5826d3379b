package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	mdshared "github.com/pumpline-erp/pumpline/internal/masterdata/shared"
	"github.com/pumpline-erp/pumpline/internal/platform/backend"
	"github.com/pumpline-erp/pumpline/internal/platform/cache"
	"github.com/pumpline-erp/pumpline/internal/shared"
)

// Gateway fetches the summary of one scope.
type Gateway interface {
	Summary(ctx context.Context, scope mdshared.Scope) (Summary, error)
}

// BackendGateway reads /dashboard/summary.
type BackendGateway struct {
	client *backend.Client
}

// NewBackendGateway wraps the backend client.
func NewBackendGateway(client *backend.Client) *BackendGateway {
	return &BackendGateway{client: client}
}

// Summary implements Gateway.
func (g *BackendGateway) Summary(ctx context.Context, scope mdshared.Scope) (Summary, error) {
	q := url.Values{}
	if scope.CompanyID > 0 {
		q.Set("company_id", strconv.FormatInt(scope.CompanyID, 10))
	}
	if scope.StationID > 0 {
		q.Set("station_id", strconv.FormatInt(scope.StationID, 10))
	}
	var out Summary
	if err := g.client.Get(ctx, "/dashboard/summary", q, &out); err != nil {
		return Summary{}, err
	}
	return out, nil
}

// Service caches summaries per scope. Concurrent misses for the same scope
// share one backend call.
type Service struct {
	gateway Gateway
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	group   singleflight.Group
	now     func() time.Time
}

// NewService builds the service. A nil client or zero ttl disables caching.
func NewService(gateway Gateway, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, client: client, ttl: ttl, logger: logger, now: time.Now}
}

// Dashboard returns the landing page of p.
func (s *Service) Dashboard(ctx context.Context, p shared.Principal) (Dashboard, error) {
	summary, err := s.Summary(ctx, mdshared.ScopeFor(p))
	if err != nil {
		return Dashboard{}, err
	}
	return Build(p, summary), nil
}

// Summary returns the cached summary of scope, loading it on a miss.
func (s *Service) Summary(ctx context.Context, scope mdshared.Scope) (Summary, error) {
	key := cacheKey(scope)
	if s.cacheEnabled() {
		var cached Summary
		err := cache.GetJSON(ctx, s.client, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("dashboard cache read", slog.String("key", key), slog.Any("error", err))
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		summary, err := s.gateway.Summary(ctx, scope)
		if err != nil {
			return Summary{}, err
		}
		if summary.GeneratedAt.IsZero() {
			summary.GeneratedAt = s.now().UTC()
		}
		if s.cacheEnabled() {
			if err := cache.SetJSON(ctx, s.client, key, summary, s.ttl); err != nil {
				s.logger.Warn("dashboard cache write", slog.String("key", key), slog.Any("error", err))
			}
		}
		return summary, nil
	})
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard: summary: %w", err)
	}
	return v.(Summary), nil
}

func (s *Service) cacheEnabled() bool {
	return s.client != nil && s.ttl > 0
}

func cacheKey(scope mdshared.Scope) string {
	return fmt.Sprintf("dashboard:summary:c%d:s%d", scope.CompanyID, scope.StationID)
}
