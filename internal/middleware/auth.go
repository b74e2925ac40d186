// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"finrag-go/pkg/log"
	"finrag-go/pkg/token"
)

// IngestAuth 创建一个 Gin 中间件，要求上传类接口携带 scope 为 ingest 的 JWT。
// jwtManager 为 nil 时（未配置 auth.jwt_secret）直接放行。
func IngestAuth(jwtManager *token.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtManager == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Header Authorization tidak ditemukan"})
			return
		}

		// Token 以 "Bearer <token>" 的形式提供
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Format header Authorization tidak valid"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			log.Warnf("[IngestAuth] token 校验失败: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token tidak valid atau sudah kedaluwarsa"})
			return
		}
		if claims.Scope != token.ScopeIngest {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token tidak memiliki akses upload"})
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}
