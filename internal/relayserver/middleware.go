package relayserver

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/routeops/traefik-route-relay/internal/logx"
	"github.com/routeops/traefik-route-relay/internal/ratelimit"
	"github.com/routeops/traefik-route-relay/pkg/requestid"
)

func requestIDMiddleware(headerKey string) gin.HandlerFunc {
	headerKey = requestid.ResolveHeaderKey(headerKey)
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerKey))
		if id == "" {
			id = requestid.Gen()
		}
		c.Header(headerKey, id)
		c.Set(headerKey, id)
		c.Next()
	}
}

func requestLogger(l *log.Logger, headerKey string, formatter *logx.AccessFormatter) gin.HandlerFunc {
	headerKey = requestid.ResolveHeaderKey(headerKey)
	if l == nil {
		l = log.New(os.Stdout, "", log.LstdFlags)
	}
	if formatter == nil {
		// The default format is a constant; compiling it cannot fail.
		formatter, _ = logx.CompileAccessFormat(logx.DefaultAccessFormat)
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l.Println(formatter.Line(logx.AccessEntry{
			Time:      start,
			Status:    c.Writer.Status(),
			Latency:   time.Since(start),
			ClientIP:  c.ClientIP(),
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			RequestID: c.GetString(headerKey),
		}))
	}
}

func rateLimitMiddleware(l *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
