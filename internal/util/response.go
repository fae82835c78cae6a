package util

import "github.com/gin-gonic/gin"

// Error codes clients branch on: revoked forces a re-login, expired means the
// client should attempt a token refresh first.
const (
	CodeTokenRevoked      = "TOKEN_REVOKED"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeFreshAuthRequired = "FRESH_AUTH_REQUIRED"
)

// JSON writes a success payload as-is.
func JSON(c *gin.Context, status int, payload gin.H) {
	c.JSON(status, payload)
}

// Error writes the standard error envelope {error}.
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// ErrorDetails writes {error, details}. Details may be a string or a
// per-field map.
func ErrorDetails(c *gin.Context, status int, msg string, details interface{}) {
	c.JSON(status, gin.H{"error": msg, "details": details})
}

// ErrorCode writes {error, code} for failures clients branch on.
func ErrorCode(c *gin.Context, status int, msg, code string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}
