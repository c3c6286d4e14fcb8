package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/2001Abhinav/job-posting-platform/internal/domain"
)

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

const identityKey = "identity"

// Authenticator resolves a session token to a verified identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
	Logout(ctx context.Context, token string) error
	LoginURL(returnTo string) string
}

// MetricsSink records per-request HTTP metrics.
type MetricsSink interface {
	HTTPRequestCompleted(method, route string, status int, duration time.Duration)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		logger := log.With().
			Str("component", "api").
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("user-agent", c.Request.UserAgent()).
			Logger()

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error().Msg(c.Errors.String())
		case len(c.Errors) > 0:
			logger.Warn().Msg(c.Errors.String())
		default:
			logger.Info().Msg("request processed")
		}
	}
}

// requestMetrics labels requests by route template so path parameters do
// not create new series.
func requestMetrics(sink MetricsSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		sink.HTTPRequestCompleted(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodySize)
		}
		c.Next()
	}
}

// requireAuth verifies the session token, refreshes the stored profile and
// makes the identity available to handlers. The token is read from the
// session cookie, falling back to a bearer Authorization header.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := h.sessionToken(c)
		id, err := h.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if _, err := h.svc.SyncUser(c.Request.Context(), id); err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// optionalAuth sets the identity when the request carries a valid session
// token. Requests without one, or with a stale one, continue anonymously.
func (h *Handler) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := h.sessionToken(c); token != "" {
			if id, err := h.auth.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(identityKey, id)
			}
		}
		c.Next()
	}
}

func (h *Handler) sessionToken(c *gin.Context) string {
	if v, err := c.Cookie(h.cookieName); err == nil && v != "" {
		return v
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// caller returns the identity set by requireAuth, or the zero identity.
func caller(c *gin.Context) domain.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(domain.Identity); ok {
			return id
		}
	}
	return domain.Identity{}
}
