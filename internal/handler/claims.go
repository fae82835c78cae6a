package handler

import (
	"net/http"

	"datapilot/internal/middleware"
	"datapilot/internal/token"
	"datapilot/internal/util"

	"github.com/gin-gonic/gin"
)

// mustClaims returns the claims the auth guard attached to the request.
// Every handler below assumes it runs behind the guard; if a route is ever
// mounted without it, this answers 401 instead of dereferencing nil.
// Callers bail out when it returns nil.
func mustClaims(c *gin.Context) *token.Claims {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		util.Error(c, http.StatusUnauthorized, "Access denied. No token provided.")
	}
	return claims
}
