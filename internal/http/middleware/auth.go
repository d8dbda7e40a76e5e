package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/catalog-backend/internal/http/response"
	"github.com/ignatzorin/catalog-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextSubjectKey = "subject"
	ContextRoleKey    = "role"
)

// AccessTokenParser проверяет access токен.
type AccessTokenParser interface {
	ParseAccess(token string) (uuid.UUID, string, error)
}

// AuthMiddleware проверяет JWT access токен.
func AuthMiddleware(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		if !authenticate(c, tokens, raw) {
			response.Unauthorized(c, "токен невалиден")
			return
		}
		c.Next()
	}
}

// OptionalAuth распознаёт токен, если он передан, но не требует его.
// Невалидный токен обрабатывается как анонимный запрос.
func OptionalAuth(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			authenticate(c, tokens, raw)
		}
		c.Next()
	}
}

// RequireRole пропускает только запросы с указанной ролью.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRoleKey) != role {
			response.Forbidden(c, "недостаточно прав")
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(auth, "Bearer "), true
}

// authenticate кладёт subject и роль в контекст. Администратор получает
// привилегированный контекст запроса.
func authenticate(c *gin.Context, tokens AccessTokenParser, raw string) bool {
	subject, role, err := tokens.ParseAccess(raw)
	if err != nil || subject == uuid.Nil {
		return false
	}

	c.Set(ContextSubjectKey, subject)
	c.Set(ContextRoleKey, role)
	if role == service.RoleAdmin {
		c.Request = c.Request.WithContext(service.WithPrivilege(c.Request.Context()))
	}
	return true
}
