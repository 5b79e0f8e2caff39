package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"alo17-service/internal/relay"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

// RequireAuth validates the bearer token and puts the user id into the
// gin context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")

		userID, err := am.parseUserID(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// WebSocketHandshake returns the handshake hook for socket upgrades.
// Browsers cannot set headers on websocket requests, so the token arrives
// as a query parameter.
func (am *AuthMiddleware) WebSocketHandshake() relay.HandshakeFunc {
	return func(r *http.Request) (string, error) {
		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			return "", fmt.Errorf("%w: token is required", relay.ErrUnauthorized)
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		userID, err := am.parseUserID(tokenString)
		if err != nil {
			return "", fmt.Errorf("%w: %v", relay.ErrUnauthorized, err)
		}
		return userID, nil
	}
}

func (am *AuthMiddleware) parseUserID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(am.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("invalid user id in token")
	}

	return userID, nil
}
