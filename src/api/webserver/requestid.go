package webserver

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stake-plus/civic-proposals/src/logging"
)

const (
	ctxRequestID    = "request_id"
	headerRequestID = "X-Request-ID"
)

// RequestID propagates or mints a request id and attaches it to the
// request's log fields.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(headerRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}
		c.Set(ctxRequestID, rid)
		c.Header(headerRequestID, rid)
		ctx := logging.WithLogFields(c.Request.Context(), logging.LogFields{RequestID: rid})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
