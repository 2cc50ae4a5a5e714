package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/satulemari/partner-service/internal/partner"
)

// requestLogger logs each request after it completes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		} else if status >= http.StatusBadRequest {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("took", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("http request")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// recovery turns panics into a failure envelope.
func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
			Success: false,
			Message: "Terjadi kesalahan pada server.",
		})
	})
}

// bearerToken stores the caller's Authorization token in the request context
// so backend calls are made on the caller's behalf.
func bearerToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := partner.ParseAuthorization(c.GetHeader("Authorization")); token != "" {
			c.Request = c.Request.WithContext(partner.WithBearerToken(c.Request.Context(), token))
		}
		c.Next()
	}
}
