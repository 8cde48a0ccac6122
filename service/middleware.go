package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	loggerKey
)

// errorEnvelope is the JSON body of every error response
type errorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, &errorEnvelope{
		Code:    code,
		Message: message,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// withLogger logs every request with a request id taken from requestIDHeader or generated
func withLogger(logger *logrus.Logger, requestIDHeader string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-Id", requestID)

			entry := logger.WithFields(logrus.Fields{
				"request-id": requestID,
				"path":       r.URL.Path,
				"method":     r.Method,
			})

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), loggerKey, entry)))

			entry.WithFields(logrus.Fields{
				"duration":    time.Since(start),
				"status-code": rec.Status(),
			}).Info("request completed")
		})
	}
}

// withOwner rejects requests that don't carry the authenticated account id
func withOwner(userIDHeader string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(userIDHeader))
			id, err := strconv.ParseInt(raw, 10, 32)
			if err != nil || id <= 0 {
				writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid account")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, int32(id))))
		})
	}
}

func userIDFrom(ctx context.Context) int32 {
	id, _ := ctx.Value(userIDKey).(int32)
	return id
}

func loggerFrom(ctx context.Context, fallback *logrus.Logger) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(fallback)
}

// withCORS lets the browser app on one of the allowed origins call the API
func withCORS(origins []string, userIDHeader string, requestIDHeader string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		return next
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", userIDHeader, requestIDHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	}).Handler(next)
}
