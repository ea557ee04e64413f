package middleware

import (
	"bytes"
	"net/http"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/cache"
)

// PageCacheMiddleware serves GET responses from the page cache and stores
// successful ones. The key is the path plus raw query, so the prefix
// invalidation in cache.PageCache also drops filtered listings.
func PageCacheMiddleware(pages *cache.PageCache, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := r.URL.Path
			if r.URL.RawQuery != "" {
				key += "?" + r.URL.RawQuery
			}

			body, ok, err := pages.Get(r.Context(), key)
			if err != nil {
				logger.Warn("Page cache read failed", zap.String("key", key), zap.Error(err))
			}
			if ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(http.StatusOK)
				w.Write(body)
				return
			}

			rec := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set("X-Cache", "MISS")
			next.ServeHTTP(rec, r)

			if rec.status == http.StatusOK && rec.buf.Len() > 0 {
				if err := pages.Set(r.Context(), key, rec.buf.Bytes()); err != nil {
					logger.Warn("Page cache write failed", zap.String("key", key), zap.Error(err))
				}
			}
		})
	}
}

type capturingWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *capturingWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *capturingWriter) Write(p []byte) (int, error) {
	c.buf.Write(p)
	return c.ResponseWriter.Write(p)
}
