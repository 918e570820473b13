package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vigilbox/vigil-backend/internal/response"
)

// RequestID tags every request with a trace id, echoed back in the
// X-Request-ID header and in the response envelope metadata. A well-formed
// inbound id is kept so the exam client can correlate retries; anything else
// is replaced rather than let arbitrary strings into the logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.New().String()
		}
		c.Set(response.ContextKeyRequestID, reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}
