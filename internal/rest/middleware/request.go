package middleware

import (
	"context"

	"github.com/campusledger/campusledger/internal/types"
	"github.com/gin-gonic/gin"
)

// RequestIDMiddleware propagates the caller's request id, or mints one, into
// the request context and the response headers
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Header(types.HeaderRequestID, requestID)
	c.Next()
}
