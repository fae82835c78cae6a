package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"datapilot/internal/limiter"
	"datapilot/internal/models"
	"datapilot/internal/store"
	"datapilot/internal/token"
	"datapilot/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler owns signup/login/logout/refresh. It stays thin: credential
// checks against the user store, everything token-shaped delegated to the
// token service.
type AuthHandler struct {
	Users      *store.UserStore
	Tokens     *token.Service
	Limiter    *limiter.LoginLimiter // nil disables throttling
	BcryptCost int
}

func NewAuthHandler(users *store.UserStore, tokens *token.Service, lim *limiter.LoginLimiter, bcryptCost int) *AuthHandler {
	if bcryptCost <= 0 {
		bcryptCost = 10
	}
	return &AuthHandler{
		Users:      users,
		Tokens:     tokens,
		Limiter:    lim,
		BcryptCost: bcryptCost,
	}
}

// throttle counts one attempt; rate-limit decisions are enforced, redis
// outages are logged and waved through so the login path stays available.
func (h *AuthHandler) throttle(c *gin.Context, identifier string) bool {
	if h.Limiter == nil {
		return true
	}
	err := h.Limiter.Enforce(c.Request.Context(), identifier, c.ClientIP())
	if err == nil {
		return true
	}
	if errors.Is(err, limiter.ErrRateLimited) {
		util.ErrorDetails(c, http.StatusTooManyRequests, "Too many attempts",
			"Please wait before trying again")
		return false
	}
	log.Printf("login throttle: %v", err)
	return true
}

func userPayload(u *models.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"email":        u.Email,
		"firstName":    u.FirstName,
		"lastName":     u.LastName,
		"organization": u.Organization,
	}
}

// ---------- signup ----------

type signupReq struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Organization string `json:"organization"`
}

func (r *signupReq) missingFields() gin.H {
	details := gin.H{}
	if r.FirstName == "" {
		details["firstName"] = "First name is required"
	}
	if r.LastName == "" {
		details["lastName"] = "Last name is required"
	}
	if r.Email == "" {
		details["email"] = "Email is required"
	}
	if r.Password == "" {
		details["password"] = "Password is required"
	}
	if r.Organization == "" {
		details["organization"] = "Organization is required"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if details := req.missingFields(); details != nil {
		util.ErrorDetails(c, http.StatusBadRequest, "Missing required fields", details)
		return
	}
	if !util.ValidEmail(req.Email) {
		util.ErrorDetails(c, http.StatusBadRequest, "Invalid email format",
			"Please enter a valid email address")
		return
	}
	if !util.StrongEnoughPassword(req.Password) {
		util.ErrorDetails(c, http.StatusBadRequest, "Weak password",
			"Password must be at least 8 characters long")
		return
	}

	if !h.throttle(c, req.Email) {
		return
	}

	existing, err := h.Users.FindByEmail(req.Email)
	if err != nil {
		log.Printf("signup: %v", err)
		util.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing != nil {
		util.ErrorDetails(c, http.StatusConflict, "Account already exists",
			"This email is already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.BcryptCost)
	if err != nil {
		log.Printf("signup: hash password: %v", err)
		util.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Organization: req.Organization,
	}
	if err := h.Users.Create(user); err != nil {
		// the pre-check above races with concurrent signups; the unique
		// constraint is authoritative and reports the same conflict
		if errors.Is(err, store.ErrDuplicateEmail) {
			util.ErrorDetails(c, http.StatusConflict, "Database conflict",
				"This email is already registered")
			return
		}
		log.Printf("signup: %v", err)
		util.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	accessToken, refreshToken, err := h.Tokens.Issue(user)
	if err != nil {
		log.Printf("signup: issue tokens: %v", err)
		util.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	util.JSON(c, http.StatusCreated, gin.H{
		"message":      "User created successfully",
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         userPayload(user),
	})
}

// ---------- login ----------

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	// presence only; no strength re-check at login
	if req.Email == "" || req.Password == "" {
		details := gin.H{}
		if req.Email == "" {
			details["email"] = "Email is required"
		}
		if req.Password == "" {
			details["password"] = "Password is required"
		}
		util.ErrorDetails(c, http.StatusBadRequest, "Missing credentials", details)
		return
	}

	if !h.throttle(c, req.Email) {
		return
	}

	user, err := h.Users.FindByEmail(req.Email)
	if err != nil {
		log.Printf("login: %v", err)
		util.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	// identical response for unknown email and wrong password, so the
	// endpoint leaks nothing about which accounts exist
	if user == nil {
		util.ErrorDetails(c, http.StatusUnauthorized, "Authentication failed",
			"Invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		util.ErrorDetails(c, http.StatusUnauthorized, "Authentication failed",
			"Invalid email or password")
		return
	}

	accessToken, refreshToken, err := h.Tokens.Issue(user)
	if err != nil {
		log.Printf("login: issue tokens: %v", err)
		util.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{
		"message":      "Login successful",
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         userPayload(user),
	})
}

// ---------- refresh ----------

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		util.ErrorDetails(c, http.StatusBadRequest, "Missing refresh token",
			"Refresh token is required")
		return
	}

	accessToken, err := h.Tokens.Rotate(req.RefreshToken)
	if err != nil {
		if errors.Is(err, token.ErrInvalidRefreshToken) || errors.Is(err, token.ErrRefreshTokenRevoked) {
			util.ErrorDetails(c, http.StatusUnauthorized, "Invalid refresh token",
				"Please log in again")
			return
		}
		log.Printf("refresh token: %v", err)
		util.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{
		"message":     "Token refreshed successfully",
		"accessToken": accessToken,
	})
}

// ---------- guarded endpoints ----------

func (h *AuthHandler) Logout(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	if err := h.Tokens.Revoke(claims.UserID); err != nil {
		log.Printf("logout: %v", err)
		util.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) ValidateToken(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	util.JSON(c, http.StatusOK, gin.H{"valid": true, "user": claimsPayload(claims)})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}
	util.JSON(c, http.StatusOK, gin.H{"user": claimsPayload(claims)})
}

// ChangePassword is gated behind fresh auth; the flow itself is not built yet.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	util.JSON(c, http.StatusOK, gin.H{
		"message": "Password change endpoint - requires fresh auth",
	})
}

func claimsPayload(claims *token.Claims) gin.H {
	return gin.H{
		"userId":       claims.UserID,
		"email":        claims.Email,
		"organization": claims.Organization,
	}
}
