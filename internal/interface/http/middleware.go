package httpserver

import (
	"context"
	"net/http"
	"time"

	"crewmission-service/internal/domain/entity"
	"crewmission-service/internal/usecase"
	"crewmission-service/pkg/logger"

	"github.com/google/uuid"
)

// Headers carrying the caller identity. Authentication happens upstream.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
	HeaderRequestID = "X-Request-ID"
)

type ctxKeyRequestID struct{}
type ctxKeyActor struct{}

// GetRequestID returns the request id from context if set
func GetRequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyRequestID{}).(string)
	return v, ok && v != ""
}

// RequestID reuses X-Request-ID when present and generates one otherwise
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, rid)
		w.Header().Set(HeaderRequestID, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// RequestLogger logs each request once it has been served
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration", time.Since(start).String(),
				"bytes", rw.bytes,
			}
			if rid, ok := GetRequestID(r.Context()); ok {
				fields = append(fields, "requestId", rid)
			}
			if id := r.Header.Get(HeaderActorID); id != "" {
				fields = append(fields, "actorId", id, "role", r.Header.Get(HeaderActorRole))
			}
			if rw.status >= http.StatusInternalServerError {
				log.Error("Request failed", fields...)
				return
			}
			log.Info("Request served", fields...)
		})
	}
}

// RequireActor rejects requests without a known actor identity
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := usecase.Actor{
			ID:   r.Header.Get(HeaderActorID),
			Role: entity.Role(r.Header.Get(HeaderActorRole)),
		}
		if actor.ID == "" || !actor.Role.Valid() {
			JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing or invalid actor headers", Kind: "unauthorized"})
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyActor{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFrom returns the actor stored by RequireActor
func ActorFrom(ctx context.Context) (usecase.Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor{}).(usecase.Actor)
	return a, ok
}
