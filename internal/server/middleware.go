package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/kitchenboard/pkg/errors"
	"github.com/matzehuels/kitchenboard/pkg/httputil"
)

// requestLogger logs one line per request at debug level, and at warn level
// for server errors.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			kv := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Microsecond),
				"request_id", middleware.GetReqID(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("request", kv...)
				return
			}
			logger.Debug("request", kv...)
		})
	}
}

// recoverer turns a handler panic into a 500 envelope.
func recoverer(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("handler panic", "path", r.URL.Path, "panic", rec,
					"request_id", middleware.GetReqID(r.Context()))
				httputil.WriteError(w, errors.New(errors.ErrCodeInternal, "internal error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// tokenSet holds the bearer tokens accepted for writes.
type tokenSet struct {
	tokens [][]byte
}

func newTokenSet(tokens []string) *tokenSet {
	ts := &tokenSet{}
	for _, t := range tokens {
		if t != "" {
			ts.tokens = append(ts.tokens, []byte(t))
		}
	}
	return ts
}

func (ts *tokenSet) valid(token string) bool {
	ok := false
	for _, t := range ts.tokens {
		if subtle.ConstantTimeCompare(t, []byte(token)) == 1 {
			ok = true
		}
	}
	return ok
}

// require rejects requests without a known bearer token.
func (ts *tokenSet) require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		switch {
		case !found || token == "":
			w.Header().Set("WWW-Authenticate", `Bearer realm="kitchenboard"`)
			httputil.WriteError(w, errors.New(errors.ErrCodeUnauthorized, "missing bearer token"))
		case !ts.valid(token):
			w.Header().Set("WWW-Authenticate", `Bearer realm="kitchenboard", error="invalid_token"`)
			httputil.WriteError(w, errors.New(errors.ErrCodeUnauthorized, "invalid token"))
		default:
			next.ServeHTTP(w, r)
		}
	})
}
