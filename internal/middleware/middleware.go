// Package middleware holds the HTTP middleware chain of the API server.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"example.com/microblog/internal/i18n"
	"example.com/microblog/internal/logger"
	"github.com/google/uuid"
)

var logg = logger.New()

const RequestIDHeader = "X-Request-ID"

type Middleware func(http.Handler) http.Handler

// Chain wraps h so that mws run in the order given.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recovery turns a handler panic into a 500 response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logg.Error("http/recovery", "panic recovered: "+string(debug.Stack()), fmt.Errorf("%v", rec))
				writeError(w, r, http.StatusInternalServerError, i18n.MsgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger tags each request with an id and logs it once served.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		msg := fmt.Sprintf("request %s | %s %s | %d | %s",
			requestID, r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
		if rec.status >= http.StatusInternalServerError {
			logg.Warn("http", msg)
		} else {
			logg.Info("http", msg)
		}
	})
}

// Locale picks the response language from Accept-Language.
func Locale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := i18n.Match(r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", tag.String())
		next.ServeHTTP(w, r.WithContext(i18n.WithTag(r.Context(), tag)))
	})
}

// LastSeenToucher records account activity.
type LastSeenToucher interface {
	TouchLastSeen(ctx context.Context, id int64) error
}

// LastSeen updates the authenticated account's last_seen before serving.
// A failed update is logged and does not fail the request.
func LastSeen(t LastSeenToucher) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := AccountIDFromContext(r.Context()); ok {
				if err := t.TouchLastSeen(r.Context(), id); err != nil {
					logg.Warn("http/lastseen", "Failed to update last_seen: "+err.Error())
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, key string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": i18n.T(r.Context(), key)})
}
