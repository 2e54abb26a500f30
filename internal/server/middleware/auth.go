// file: internal/server/middleware/auth.go
// version: 2.1.0
// guid: f5051c05-defa-406d-9d20-44f6a0f081dc

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// TokenHeader is the alternative to "Authorization: Bearer" for API clients
const TokenHeader = "X-API-Token"

// TokenFromRequest extracts the API token from Bearer auth or the X-API-Token header.
func TokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token
		}
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}

// IsTokenHash reports whether a configured token is a bcrypt hash
func IsTokenHash(expected string) bool {
	_, err := bcrypt.Cost([]byte(expected))
	return err == nil
}

// HashToken returns the bcrypt hash of token for storing in configuration
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// tokenMatches compares the presented token with the configured one, which
// may be plain text or a bcrypt hash.
func tokenMatches(token, expected string, hashed bool) bool {
	if hashed {
		return bcrypt.CompareHashAndPassword([]byte(expected), []byte(token)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// RequireToken enforces a static API token, given either in plain text or as
// a bcrypt hash. An empty expected token disables the check; health and
// metrics endpoints are always exempt.
func RequireToken(expected string) gin.HandlerFunc {
	hashed := IsTokenHash(expected)
	return func(c *gin.Context) {
		if expected == "" || exempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		token := TokenFromRequest(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		if !tokenMatches(token, expected, hashed) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func exempt(path string) bool {
	return path == "/api/v1/health" || path == "/metrics"
}
