package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"manasa/backend/pkg/response"
)

// BodyLimit 请求体大小限制中间件
// maxBytes: 默认上限；overrides 按路由模板（c.FullPath()）单独放宽，如 ICS 上传
func BodyLimit(maxBytes int64, overrides map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if v, ok := overrides[c.FullPath()]; ok {
			limit = v
		}
		if c.Request.Body != nil && limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()

		if c.IsAborted() || c.Writer.Written() {
			return
		}
		for _, err := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(err.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "حجم الطلب كبير جداً")
				return
			}
		}
	}
}

// IsBodyTooLarge 处理器内判断读取请求体失败是否因超出上限
func IsBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
