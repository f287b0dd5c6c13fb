package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robertarktes/pet-services-marketplace/internal/auth"
	"github.com/robertarktes/pet-services-marketplace/internal/contentfilter"
	"github.com/robertarktes/pet-services-marketplace/internal/domain"
	"github.com/robertarktes/pet-services-marketplace/internal/idempotency"
	"github.com/robertarktes/pet-services-marketplace/internal/observability"
	"github.com/robertarktes/pet-services-marketplace/internal/rateLimit"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelhttp "go.opentelemetry.io/otel/propagation"
)

type actorKey struct{}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(domain.Actor)
	return a, ok
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			entry := logger.WithField("request_id", reqID)
			ctx := observability.ContextWithLogger(r.Context(), entry)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), otelhttp.HeaderCarrier(r.Header))
		tracer := otel.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MetricsMiddleware counts requests by route pattern so ids in the path do
// not explode label cardinality.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(status), r.Method).Inc()
	})
}

func CORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler
}

// JWTMiddleware authenticates the bearer token and puts the actor in the
// request context.
func JWTMiddleware(tokens *auth.Service) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			actor, err := tokens.ParseToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), actorKey{}, actor)
			if l := observability.LoggerFromContext(ctx, nil); l != nil {
				ctx = observability.ContextWithLogger(ctx, l.WithField("user_id", actor.ID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimitMiddleware(rl *rateLimit.RateLimiter, perMinute int) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			if actor, ok := ActorFromContext(r.Context()); ok {
				key = "user:" + strconv.FormatInt(actor.ID, 10)
			}
			if !rl.Allow(r.Context(), key, perMinute, time.Minute) {
				observability.RateLimitExceeded.Inc()
				writeError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response when a client retries a
// request with the same Idempotency-Key. Requests without a key pass through.
// The key is reserved before the handler runs, so a retry that arrives while
// the first request is still running gets 409. Server errors are not stored
// so they can be retried.
func IdempotencyMiddleware(idemp *idempotency.Idempotency, logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			actor, ok := ActorFromContext(r.Context())
			if r.Method != http.MethodPost || key == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > 128 {
				writeError(w, http.StatusBadRequest, "invalid_input", "invalid Idempotency-Key")
				return
			}

			reserved, err := idemp.Reserve(r.Context(), actor.ID, key)
			if err != nil {
				writeDomainError(w, r, logger, err)
				return
			}
			if !reserved {
				existing, err := idemp.Get(r.Context(), actor.ID, key)
				if err != nil {
					writeDomainError(w, r, logger, err)
					return
				}
				if existing == nil || existing.Pending() {
					writeError(w, http.StatusConflict, "conflict", "a request with this Idempotency-Key is in progress")
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replay", "true")
				w.WriteHeader(existing.Status)
				_, _ = w.Write(existing.Body)
				return
			}

			rec := &recordingWriter{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			ctx := context.WithoutCancel(r.Context())
			log := observability.LoggerFromContext(ctx, logger)
			if rec.status == 0 || rec.status >= http.StatusInternalServerError {
				if err := idemp.Release(ctx, actor.ID, key); err != nil {
					log.WithError(err).Warn("failed to release idempotency key")
				}
				return
			}
			resp := idempotency.Response{Status: rec.status, Body: rec.body.Bytes()}
			if err := idemp.Set(ctx, actor.ID, key, resp); err != nil {
				log.WithError(err).Warn("failed to store idempotent response")
			}
		})
	}
}

// ContentFilterMiddleware rejects JSON bodies whose free-text fields carry
// contact details or links.
func ContentFilterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var fields struct {
			Message     string `json:"message"`
			Description string `json:"description"`
			Notes       string `json:"notes"`
		}
		if json.Unmarshal(body, &fields) == nil {
			if err := contentfilter.Check(fields.Message, fields.Description, fields.Notes); err != nil {
				writeError(w, http.StatusBadRequest, domain.Code(err), err.Error())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
