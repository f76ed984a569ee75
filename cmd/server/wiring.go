package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/linnemanlabs/go-core/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/kiosk/internal/authmw"
	kc "github.com/linnemanlabs/kiosk/internal/cfg"
	"github.com/linnemanlabs/kiosk/internal/notify/kafka"
	"github.com/linnemanlabs/kiosk/internal/notify/slack"
	"github.com/linnemanlabs/kiosk/internal/postgres"
	"github.com/linnemanlabs/kiosk/internal/triage"
	"github.com/linnemanlabs/kiosk/internal/triage/cachestore"
	"github.com/linnemanlabs/kiosk/internal/triage/memstore"
	"github.com/linnemanlabs/kiosk/internal/triage/pgstore"
)

// closer releases a component during shutdown.
type closer struct {
	name string
	fn   func(context.Context) error
}

// buildStore picks postgres or memory, optionally fronted by the Redis
// patient cache. The returned closers run in order at shutdown.
func buildStore(ctx context.Context, appCfg *kc.Config, L log.Logger, reg prometheus.Registerer) (triage.Store, []closer, error) {
	var (
		store   triage.Store
		closers []closer
	)

	if appCfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, appCfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		closers = append(closers, closer{"postgres pool", func(context.Context) error {
			pool.Close()
			return nil
		}})
		pgStore, err := pgstore.New(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pgstore init: %w", err)
		}
		store = pgStore
		L.Info(ctx, "using postgres store")
	} else {
		store = memstore.New()
		L.Info(ctx, "using in-memory store (no database-url configured)")
	}

	if appCfg.RedisAddr != "" {
		rdb, err := cachestore.Dial(ctx, appCfg.RedisAddr)
		if err != nil {
			// the cache is optional; run without it rather than refuse to start
			L.Error(ctx, err, "patient cache disabled", "redis_addr", appCfg.RedisAddr)
		} else {
			store = cachestore.New(store, rdb, appCfg.PatientCacheTTL, L, reg)
			// close redis before the pool it fronts
			closers = append([]closer{{"redis client", func(context.Context) error { return rdb.Close() }}}, closers...)
			L.Info(ctx, "patient cache enabled", "redis_addr", appCfg.RedisAddr, "ttl", appCfg.PatientCacheTTL)
		}
	}

	return store, closers, nil
}

// buildNotifiers returns the configured admission notifiers.
func buildNotifiers(ctx context.Context, appCfg *kc.Config, L log.Logger) ([]triage.Notifier, []closer) {
	var (
		notifiers []triage.Notifier
		closers   []closer
	)

	if appCfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, slack.New(appCfg.SlackWebhookURL, appCfg.MinTier(), L))
		L.Info(ctx, "notifier enabled", "type", "slack", "min_tier", appCfg.MinTier())
	}

	if brokers := appCfg.Brokers(); len(brokers) > 0 {
		pub := kafka.New(brokers, appCfg.KafkaTopic, L)
		notifiers = append(notifiers, pub)
		closers = append(closers, closer{"kafka publisher", func(context.Context) error { return pub.Close() }})
		L.Info(ctx, "notifier enabled", "type", "kafka", "brokers", brokers, "topic", appCfg.KafkaTopic)
	}

	return notifiers, closers
}

// apiAuth returns the bearer token middleware for the API routes, or nil
// when no tokens are configured.
func apiAuth(appCfg *kc.Config) (func(http.Handler) http.Handler, error) {
	entries := appCfg.Tokens()
	if len(entries) == 0 {
		return nil, nil
	}
	tokens, err := authmw.ParseTokens(entries)
	if err != nil {
		return nil, err
	}
	auth := authmw.BearerTokens(tokens)

	return func(next http.Handler) http.Handler {
		return auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// tag request-scoped log lines with the kiosk or station that called
			ctx := r.Context()
			if client, ok := authmw.ClientFromContext(ctx); ok {
				ctx = log.WithContext(ctx, log.FromContext(ctx).With("client", client))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		}))
	}, nil
}
