package cache

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// CacheMiddleware caches successful article page responses on disk.
// Only GET /articles/:slug is cacheable; everything else passes
// through untouched.
func CacheMiddleware(maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "GET" {
			c.Next()
			return
		}

		slug, ok := articleSlugFromPath(c.Request.URL.Path)
		if !ok {
			c.Next()
			return
		}

		if cached, found := ReadCache("articles", slug, maxAge); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK &&
			strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "application/json") {
			WriteCache("articles", slug, writer.body.String())
		}
	}
}

// articleSlugFromPath matches /articles/:slug and nothing deeper.
func articleSlugFromPath(path string) (string, bool) {
	const prefix = "/articles/"
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}

	slug := strings.TrimPrefix(path, prefix)
	if slug == "" || strings.Contains(slug, "/") {
		return "", false
	}
	return slug, true
}
