package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Response is the JSON envelope returned by every /api endpoint except the
// product catalog.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

// respondError aborts the request with a failure envelope. err is optional
// and only its text reaches the client.
func respondError(c *gin.Context, status int, message string, err error) {
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).
		Int("status", status).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg(message)

	res := Response{Success: false, Message: message}
	if err != nil {
		res.Error = err.Error()
	}
	c.AbortWithStatusJSON(status, res)
}
