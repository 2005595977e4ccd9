package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS 跨域中间件
// 允许前端携带 X-Device-ID（个人计划表）与 X-Request-ID，并读取导出文件名
func CORS(allowOrigins []string) gin.HandlerFunc {
	allowed := OriginAllowed(allowOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if origin != "" && allowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Device-ID, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// OriginAllowed 构造来源白名单判断函数，供 CORS 与 WebSocket 握手共用
// 空 Origin（非浏览器客户端）不在此处判断
func OriginAllowed(allowOrigins []string) func(origin string) bool {
	set := make(map[string]bool, len(allowOrigins))
	wildcard := false
	for _, o := range allowOrigins {
		o = strings.TrimRight(o, "/")
		if o == "*" {
			wildcard = true
		}
		set[o] = true
	}
	return func(origin string) bool {
		return wildcard || set[strings.TrimRight(origin, "/")]
	}
}
