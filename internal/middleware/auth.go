package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"

	"datapilot/internal/token"
	"datapilot/internal/util"

	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key the guards store decoded claims under.
const ClaimsKey = "claims"

// CurrentClaims returns the claims a guard attached to the request, or nil.
func CurrentClaims(c *gin.Context) *token.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, ok := v.(*token.Claims)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Authenticate gates protected routes. Check order matters: revocation before
// the expiry probe, so a revoked-but-unexpired token reports TOKEN_REVOKED
// rather than anything softer. The expiry probe after it is decode-only and
// exists to give clients TOKEN_EXPIRED instead of a bare verification failure.
func Authenticate(svc *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, "Access denied. No token provided.")
			c.Abort()
			return
		}

		claims := svc.VerifyAccess(tokenStr)
		if claims == nil {
			util.Error(c, http.StatusForbidden, "Invalid or expired token.")
			c.Abort()
			return
		}

		revoked, err := svc.IsRevoked(claims.UserID, tokenStr)
		if err != nil {
			log.Printf("auth guard: revocation check: %v", err)
			util.Error(c, http.StatusInternalServerError, "Internal server error")
			c.Abort()
			return
		}
		if revoked {
			util.ErrorCode(c, http.StatusForbidden, "Token has been revoked.", util.CodeTokenRevoked)
			c.Abort()
			return
		}

		if svc.IsExpired(tokenStr) {
			util.ErrorCode(c, http.StatusUnauthorized, "Token has expired.", util.CodeTokenExpired)
			c.Abort()
			return
		}

		// bookkeeping only; a failure here must not reject the request
		if err := svc.TouchLastUsed(claims.UserID); err != nil {
			log.Printf("auth guard: touch last_used: %v", err)
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireFreshAuth gates sensitive operations behind a recently established
// session: the stored record must have been issued within the window,
// independent of the token's own expiry.
func RequireFreshAuth(svc *token.Service, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, "Access denied. No token provided.")
			c.Abort()
			return
		}

		claims := svc.VerifyAccess(tokenStr)
		if claims == nil {
			util.Error(c, http.StatusForbidden, "Invalid token.")
			c.Abort()
			return
		}

		rec, err := svc.Stored(claims.UserID)
		if err != nil {
			log.Printf("fresh auth guard: load record: %v", err)
			util.Error(c, http.StatusInternalServerError, "Internal server error")
			c.Abort()
			return
		}
		if rec == nil {
			util.Error(c, http.StatusForbidden, "Invalid token.")
			c.Abort()
			return
		}

		if time.Since(rec.CreatedAt) > window {
			util.ErrorCode(c, http.StatusUnauthorized,
				"Fresh authentication required for this operation.", util.CodeFreshAuthRequired)
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
