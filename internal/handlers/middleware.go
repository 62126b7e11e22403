package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"waterflow/pkg/audit"
	"waterflow/pkg/config"
	"waterflow/pkg/logger"
	"waterflow/pkg/metrics"
	"waterflow/pkg/passhash"
	"waterflow/pkg/ratelimit"
)

// Ключи контекста gin
const (
	ctxRequestID = "request_id"
	ctxUserID    = "user_id"
	ctxUsername  = "username"
	ctxUserRole  = "user_role"
)

// RequestIDMiddleware назначает каждому запросу идентификатор.
// Пришедший заголовок X-Request-ID сохраняется, иначе генерируется новый.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// LoggingMiddleware логирует запросы и пишет HTTP метрики
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		if m := metrics.Get(); m != nil {
			m.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(status), duration)
		}

		logFields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"request_id", c.GetString(ctxRequestID),
		}
		if userID := c.GetString(ctxUserID); userID != "" {
			logFields = append(logFields, "user_id", userID)
		}

		if status >= http.StatusInternalServerError {
			logFields = append(logFields, "errors", c.Errors.String())
			logger.Log.Error("Request failed", logFields...)
		} else {
			logger.Log.Info("Request completed", logFields...)
		}
	}
}

// AuthMiddleware проверяет Bearer токен и кладёт пользователя в контекст
func AuthMiddleware(jwtManager *passhash.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearerToken(c)
		if !ok {
			if m := metrics.Get(); m != nil {
				m.RecordAuthAttempt(false)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: "missing or malformed authorization header",
			})
			return
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			if m := metrics.Get(); m != nil {
				m.RecordAuthAttempt(false)
			}
			logger.Log.Warn("Token validation failed",
				"error", err, "request_id", c.GetString(ctxRequestID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Error: "invalid token",
			})
			return
		}

		if m := metrics.Get(); m != nil {
			m.RecordAuthAttempt(true)
		}
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxUserRole, claims.Role)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RateLimitMiddleware ограничивает частоту запросов по пользователю,
// затем по IP
func RateLimitMiddleware(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// Деградация в открытое состояние: недоступность лимитера
			// не должна ронять API
			logger.Log.Warn("Rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		if !allowed {
			if m := metrics.Get(); m != nil {
				m.RecordRateLimited(key)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

func rateLimitKey(c *gin.Context) string {
	if userID := c.GetString(ctxUserID); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}

// AuditMiddleware пишет аудит-записи по завершённым запросам.
// Запись отправляется асинхронно, чтобы не задерживать ответ.
func AuditMiddleware(cfg *audit.Config, service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if cfg.Excluded(path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		builder := audit.NewEntry().
			Service(service).
			Method(c.Request.Method + " " + path).
			Action(classifyAction(c.Request.Method, path)).
			Outcome(classifyOutcome(status)).
			User(c.GetString(ctxUserID), c.GetString(ctxUsername)).
			Client(c.ClientIP(), c.Request.UserAgent()).
			RequestID(c.GetString(ctxRequestID)).
			Duration(time.Since(start)).
			Meta("status", status)

		if status >= http.StatusBadRequest && len(c.Errors) > 0 {
			builder.Error(strconv.Itoa(status), c.Errors.Last().Error())
		}

		entry := builder.Build()
		go func() {
			if err := audit.Log(context.Background(), entry); err != nil {
				logger.Log.Warn("Failed to write audit entry", "error", err)
			}
		}()
	}
}

func classifyAction(method, path string) audit.Action {
	switch {
	case strings.Contains(path, "/solve"), strings.Contains(path, "/mincut"), strings.Contains(path, "/paths"):
		return audit.ActionSolve
	case strings.Contains(path, "/sweep"), strings.Contains(path, "/scenario"):
		return audit.ActionAnalyze
	case strings.Contains(path, "/report"):
		return audit.ActionReport
	case method == http.MethodDelete:
		return audit.ActionDelete
	default:
		return audit.ActionRead
	}
}

func classifyOutcome(status int) audit.Outcome {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return audit.OutcomeDenied
	case status >= http.StatusBadRequest:
		return audit.OutcomeFailure
	default:
		return audit.OutcomeSuccess
	}
}

// CORSMiddleware настраивает CORS по конфигурации
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := make(map[string]bool, len(cfg.AllowedOrigins))
	allowAll := false
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowedOrigins[origin] = true
	}

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowAll || allowedOrigins[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			if cfg.AllowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			if cfg.MaxAge > 0 {
				c.Header("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
