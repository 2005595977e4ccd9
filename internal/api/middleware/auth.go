package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"manasa/backend/internal/session"
	"manasa/backend/pkg/jwt"
	"manasa/backend/pkg/redis"
	"manasa/backend/pkg/response"
)

// 上下文键
const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
	CtxRole     = "role"
	CtxJTI      = "token_jti"
	CtxTokenExp = "token_exp"
)

// tokenQueryParam WebSocket 握手无法携带自定义头，允许通过查询参数传递令牌
const tokenQueryParam = "access_token"

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token>（或 ?access_token=）中提取并验证 Access Token，
// 检查黑名单后确保会话注册表中存在对应会话
//
// rdb 为 nil 时没有黑名单可查，登出只能依靠销毁会话，因此不再按令牌恢复会话
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, 10002, "يرجى تسجيل الدخول أولاً")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(raw)
		if err != nil {
			response.Unauthorized(c, 10002, "انتهت صلاحية الجلسة، يرجى تسجيل الدخول من جديد")
			c.Abort()
			return
		}

		if rdb != nil {
			// Redis 出错时降级放行
			revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				response.Unauthorized(c, 10002, "انتهت صلاحية الجلسة، يرجى تسجيل الدخول من جديد")
				c.Abort()
				return
			}
			_, err = sessions.Ensure(claims.ID, claims.UserID, claims.Username, claims.Role)
			if err != nil {
				response.Unauthorized(c, 10002, "انتهت صلاحية الجلسة، يرجى تسجيل الدخول من جديد")
				c.Abort()
				return
			}
		} else if _, err := sessions.Get(claims.ID); err != nil {
			response.Unauthorized(c, 10002, "انتهت صلاحية الجلسة، يرجى تسجيل الدخول من جديد")
			c.Abort()
			return
		}

		// 将用户信息注入上下文
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxJTI, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(CtxTokenExp, claims.ExpiresAt.Time)
		}

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if t := c.Query(tokenQueryParam); t != "" {
			return t, true
		}
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists {
			response.Unauthorized(c, 10002, "يرجى تسجيل الدخول أولاً")
			c.Abort()
			return
		}

		userRole, _ := role.(string)
		for _, r := range allowedRoles {
			if userRole == r {
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, "هذه الصفحة غير متاحة لهذا النوع من الحسابات")
		c.Abort()
	}
}
