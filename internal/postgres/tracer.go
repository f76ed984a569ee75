package postgres

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linnemanlabs/go-core/log"
)

var queryObserver atomic.Pointer[queryObserverHolder]

type queryObserverHolder struct{ QueryObserver }

// QueryObserver receives per-query timings (wired by main for Prometheus).
type QueryObserver interface {
	ObserveQuery(ctx context.Context, route, operation, outcome string, dur time.Duration)
}

// QueryObserverFunc adapts a plain function to QueryObserver.
type QueryObserverFunc func(ctx context.Context, route, operation, outcome string, dur time.Duration)

// ObserveQuery implements QueryObserver.
func (f QueryObserverFunc) ObserveQuery(ctx context.Context, route, operation, outcome string, dur time.Duration) {
	f(ctx, route, operation, outcome, dur)
}

// SetQueryObserver installs the process-wide query observer; nil removes it.
func SetQueryObserver(o QueryObserver) {
	if o == nil {
		queryObserver.Store(nil)
		return
	}
	queryObserver.Store(&queryObserverHolder{QueryObserver: o})
}

func getQueryObserver() QueryObserver {
	h := queryObserver.Load()
	if h == nil {
		return nil
	}
	return h.QueryObserver
}

type queryStartKey struct{}

type queryStart struct {
	sql   string
	nargs int
	at    time.Time
}

// loggingTracer wraps another pgx.QueryTracer (otelpgx) and adds a log line
// and an observer call per query. Argument values are never logged: they
// carry patient identifiers.
type loggingTracer struct {
	inner pgx.QueryTracer
}

func wrapQueryTracer(inner pgx.QueryTracer) pgx.QueryTracer {
	return loggingTracer{inner: inner}
}

func (t loggingTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if t.inner != nil {
		ctx = t.inner.TraceQueryStart(ctx, conn, data)
	}
	return context.WithValue(ctx, queryStartKey{}, queryStart{
		sql:   data.SQL,
		nargs: len(data.Args),
		at:    time.Now(),
	})
}

func (t loggingTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	// inner first so its span ends with the query
	if t.inner != nil {
		t.inner.TraceQueryEnd(ctx, conn, data)
	}

	qs, _ := ctx.Value(queryStartKey{}).(queryStart)
	var dur time.Duration
	if !qs.at.IsZero() {
		dur = time.Since(qs.at)
	}

	op := operationName(data.CommandTag, qs.sql)
	outcome := "ok"
	if data.Err != nil {
		outcome = "error"
	}

	if obs := getQueryObserver(); obs != nil {
		obs.ObserveQuery(ctx, routeFromContext(ctx), op, outcome, dur)
	}

	fields := []any{
		"db.statement", compactSQL(qs.sql),
		"db.args.count", qs.nargs,
		"db.operation.name", op,
		"db.duration", dur.Seconds(),
	}
	if rows := data.CommandTag.RowsAffected(); data.Err == nil && rows >= 0 {
		fields = append(fields, "db.rows", rows)
	}

	L := log.FromContext(ctx)
	if data.Err == nil {
		L.Info(ctx, "db query", fields...)
		return
	}

	var pgErr *pgconn.PgError
	if errors.As(data.Err, &pgErr) {
		fields = append(fields,
			"db.error_code", pgErr.Code,
			"db.error_constraint", pgErr.ConstraintName,
		)
	}
	L.Error(ctx, data.Err, "db query failed", fields...)
}

// operationName prefers the verb from the command tag and falls back to the
// first keyword of the statement (failed queries have no tag).
func operationName(tag pgconn.CommandTag, sql string) string {
	if parts := strings.Fields(tag.String()); len(parts) > 0 {
		return strings.ToUpper(parts[0])
	}
	if parts := strings.Fields(sql); len(parts) > 0 {
		return strings.ToUpper(parts[0])
	}
	return "UNKNOWN"
}

func routeFromContext(ctx context.Context) string {
	if rc := chi.RouteContext(ctx); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}

// compactSQL collapses the indentation of multi-line statements for logging.
func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
