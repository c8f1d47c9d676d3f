package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/wealthsutra/backend/internal/models"
)

const (
	ContextUserIDKey  = "user_id"
	ContextPersonaKey = "persona_type"

	// QueryTokenParam используется клиентами, которые не могут передать заголовок
	// (WebSocket и EventSource в WebView).
	QueryTokenParam = "access_token"
)

// JWTMiddleware проверяет access-токен и сохраняет user_id в контексте.
func JWTMiddleware(manager *TokenManager) echo.MiddlewareFunc {
	return jwtMiddleware(manager, false)
}

// StreamJWTMiddleware дополнительно принимает токен из query-параметра access_token.
func StreamJWTMiddleware(manager *TokenManager) echo.MiddlewareFunc {
	return jwtMiddleware(manager, true)
}

func jwtMiddleware(manager *TokenManager, allowQuery bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil && allowQuery {
				tokenString = strings.TrimSpace(c.QueryParam(QueryTokenParam))
				if tokenString != "" {
					err = nil
				}
			}
			if err != nil {
				return err
			}

			claims, err := manager.ParseAccessToken(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			c.Set(ContextUserIDKey, userID)
			c.Set(ContextPersonaKey, claims.Persona)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return token, nil
}

// UserIDFromContext извлекает идентификатор пользователя из контекста.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(ContextUserIDKey).(uuid.UUID)
	return userID, ok
}

// PersonaFromContext извлекает тип пользователя из access-токена.
func PersonaFromContext(c echo.Context) models.PersonaType {
	persona, _ := c.Get(ContextPersonaKey).(models.PersonaType)
	return persona
}
