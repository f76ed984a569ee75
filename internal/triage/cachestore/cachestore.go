// Package cachestore puts a Redis read-through cache in front of another
// triage.Store for national-id lookups, the hottest path at the kiosk (every
// returning patient is looked up before intake).
//
// Patients are append-only and a registration is never rewritten, so a
// cached patient cannot go stale. Only hits are cached; a miss always goes to
// the backing store so a fresh registration is visible immediately.
package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/kiosk/internal/triage"
)

const (
	keyPrefix   = "kiosk:patient:"
	dialTimeout = 5 * time.Second
)

// DefaultTTL applies when New is given a non-positive ttl.
const DefaultTTL = 10 * time.Minute

// Client is the subset of *redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Store wraps a triage.Store. Every method other than
// FindPatientByNationalID passes straight through.
type Store struct {
	triage.Store

	rdb      Client
	ttl      time.Duration
	logger   log.Logger
	requests *prometheus.CounterVec
}

// New wraps next with a patient cache in rdb. reg may be nil.
func New(next triage.Store, rdb Client, ttl time.Duration, logger log.Logger, reg prometheus.Registerer) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.Nop()
	}
	s := &Store{
		Store:  next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiosk_patient_cache_requests_total",
			Help: "Patient cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(s.requests)
	}
	return s
}

// Dial connects to Redis at addr and verifies it answers PING.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: dialTimeout,
	})

	pctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// FindPatientByNationalID serves from Redis when it can. Cache failures are
// logged and fall through to the backing store; they never fail the lookup.
func (s *Store) FindPatientByNationalID(ctx context.Context, nationalID string) (*triage.Patient, bool, error) {
	key := keyPrefix + nationalID

	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p triage.Patient
		jerr := json.Unmarshal(raw, &p)
		if jerr == nil {
			s.requests.WithLabelValues("hit").Inc()
			return &p, true, nil
		}
		s.requests.WithLabelValues("error").Inc()
		s.logger.Warn(ctx, "discarding undecodable cached patient", "err", jerr)
	case errors.Is(err, redis.Nil):
		s.requests.WithLabelValues("miss").Inc()
	default:
		s.requests.WithLabelValues("error").Inc()
		s.logger.Warn(ctx, "patient cache read failed", "err", err)
	}

	p, ok, err := s.Store.FindPatientByNationalID(ctx, nationalID)
	if err != nil || !ok {
		return p, ok, err
	}

	if raw, jerr := json.Marshal(p); jerr == nil {
		if serr := s.rdb.Set(ctx, key, raw, s.ttl).Err(); serr != nil {
			s.logger.Warn(ctx, "patient cache write failed", "err", serr)
		}
	}
	return p, true, nil
}
