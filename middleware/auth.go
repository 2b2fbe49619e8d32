/*
 * @Author: AsisYu 2773943729@qq.com
 * @Date: 2025-03-31 04:10:00
 * @Description: 认证中间件
 */

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"whoiskit/pkg/logger"
	"whoiskit/utils"
)

const (
	TokenExpiration   = 30 * time.Second
	TokenIssuer       = "whoiskit"
	tokenRequestLimit = 30 // 每个IP每分钟最多签发的token数
)

type Claims struct {
	jwt.StandardClaims
	Nonce string `json:"nonce"`
	IP    string `json:"ip"`
}

// normalizeIP 规范化IP地址，IPv4映射的IPv6按IPv4比较
func normalizeIP(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed := net.ParseIP(trimmed)
	if parsed == nil {
		return trimmed
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.String()
	}
	return parsed.String()
}

func unauthorized(c *gin.Context, code, message string) {
	utils.ErrorResponse(c, http.StatusUnauthorized, code, message)
	c.Abort()
}

// AuthRequired 校验一次性JWT，rdb为nil时不做nonce防重放检查
func AuthRequired(rdb *redis.Client, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.WithRequest(c, "Auth")

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			log.Warnf("Missing auth header from IP: %s", c.ClientIP())
			unauthorized(c, "MISSING_TOKEN", "Missing authorization header")
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			unauthorized(c, "INVALID_TOKEN", "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
		if tokenString == "" {
			unauthorized(c, "INVALID_TOKEN", "Empty token")
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			log.Warnf("Token validation failed: %v", err)
			unauthorized(c, "INVALID_TOKEN", "Invalid token")
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			unauthorized(c, "INVALID_TOKEN", "Invalid token claims")
			return
		}

		// token只能从签发时的IP使用
		requestIP := normalizeIP(c.ClientIP())
		tokenIP := normalizeIP(claims.IP)
		if requestIP == "" || requestIP != tokenIP {
			log.Warnf("Token IP mismatch: token_ip=%s request_ip=%s", claims.IP, c.ClientIP())
			unauthorized(c, "IP_BINDING_FAILED", "Token IP mismatch")
			return
		}

		if rdb != nil {
			nonceKey := utils.BuildCacheKey("nonce", claims.Nonce)
			set, err := rdb.SetNX(c.Request.Context(), nonceKey, 1, TokenExpiration).Result()
			if err != nil {
				log.Warnf("nonce检查失败，允许请求: %v", err)
			} else if !set {
				unauthorized(c, "TOKEN_REUSED", "Token already used")
				return
			}
		}

		c.Next()
	}
}

// GenerateToken 签发短期一次性token
func GenerateToken(rdb *redis.Client, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if rdb != nil {
			key := utils.BuildCacheKey("token", "ip", clientIP)
			count, err := rdb.Incr(c.Request.Context(), key).Result()
			if err == nil && count == 1 {
				rdb.Expire(c.Request.Context(), key, time.Minute)
			}
			if count > tokenRequestLimit {
				utils.ErrorResponse(c, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "请求过于频繁")
				return
			}
		}

		now := time.Now()
		claims := Claims{
			StandardClaims: jwt.StandardClaims{
				ExpiresAt: now.Add(TokenExpiration).Unix(),
				IssuedAt:  now.Unix(),
				Issuer:    TokenIssuer,
			},
			Nonce: uuid.NewString(),
			IP:    clientIP,
		}

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signedToken, err := token.SignedString([]byte(secret))
		if err != nil {
			logger.WithRequest(c, "Auth").Errorf("签发token失败: %v", err)
			utils.ErrorResponse(c, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate token")
			return
		}

		utils.SuccessResponse(c, gin.H{
			"token":     signedToken,
			"expiresIn": int(TokenExpiration.Seconds()),
		}, nil)
	}
}
