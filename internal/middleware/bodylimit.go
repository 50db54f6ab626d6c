package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 默认请求体大小上限
const DefaultBodyLimit = 1 * 1024 * 1024 // 1MB

// BodySizeLimit 限制请求体大小的中间件。
//
// Content-Length 超限的请求直接拒绝；chunked 请求通过
// MaxBytesReader 在读取时截断。入站投递路由应传入邮件
// 大小上限而非默认值。
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
				"limit": maxBytes,
			})
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
