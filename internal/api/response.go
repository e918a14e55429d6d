package api

import (
	"net/http"
	"strconv"

	"github.com/article-publishing-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// respondError writes the error payload for a service failure.
// Details of server-side failures are logged, not returned.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	se := service.AsError(err)
	status := se.Status()

	body := gin.H{
		"success": false,
		"message": se.Message,
	}
	if se.Code != "" {
		body["code"] = se.Code
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", se.Code).Str("kind", string(se.Kind)).Msg(se.Message)
	} else if se.Err != nil {
		body["error"] = se.Err.Error()
	}

	c.AbortWithStatusJSON(status, body)
}

// badRequest writes a validation failure that never reached a service
func badRequest(c *gin.Context, code, message string, err error) {
	body := gin.H{
		"success": false,
		"message": message,
		"code":    code,
	}
	if err != nil {
		body["error"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

// articleID parses the :id path parameter
func articleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, service.CodeInvalidQuery, "invalid article id", nil)
		return 0, false
	}
	return id, true
}
