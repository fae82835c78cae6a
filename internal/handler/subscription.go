package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"datapilot/internal/models"
	"datapilot/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionHandler exposes the billing rows kept in sync with Stripe.
// Checkout sessions and webhooks are processed by the billing service, not here.
type SubscriptionHandler struct {
	DB *gorm.DB
}

func NewSubscriptionHandler(db *gorm.DB) *SubscriptionHandler {
	return &SubscriptionHandler{DB: db}
}

func subscriptionPayload(s *models.Subscription) gin.H {
	return gin.H{
		"id":                 s.ID,
		"planType":           s.PlanType,
		"status":             s.Status,
		"currentPeriodStart": s.CurrentPeriodStart,
		"currentPeriodEnd":   s.CurrentPeriodEnd,
		"cancelAtPeriodEnd":  s.CancelAtPeriodEnd,
	}
}

type saveSubscriptionReq struct {
	StripeCustomerID     string     `json:"stripeCustomerId"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId" binding:"required"`
	StripePriceID        string     `json:"stripePriceId"`
	PlanType             string     `json:"planType" binding:"required"`
	Status               string     `json:"status"`
	CurrentPeriodStart   *time.Time `json:"currentPeriodStart"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd"`
}

// Save records or refreshes a subscription row, keyed on the Stripe
// subscription id so repeated syncs stay idempotent.
func (h *SubscriptionHandler) Save(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	var req saveSubscriptionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, "Subscription id and plan type are required.")
		return
	}
	if req.Status == "" {
		req.Status = "active"
	}

	sub := models.Subscription{
		UserID:               claims.UserID,
		StripeCustomerID:     req.StripeCustomerID,
		StripeSubscriptionID: req.StripeSubscriptionID,
		StripePriceID:        req.StripePriceID,
		PlanType:             req.PlanType,
		Status:               req.Status,
		CurrentPeriodStart:   req.CurrentPeriodStart,
		CurrentPeriodEnd:     req.CurrentPeriodEnd,
	}
	err := h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"stripe_price_id":      req.StripePriceID,
			"plan_type":            req.PlanType,
			"status":               req.Status,
			"current_period_start": req.CurrentPeriodStart,
			"current_period_end":   req.CurrentPeriodEnd,
			"updated_at":           time.Now(),
		}),
	}).Create(&sub).Error
	if err != nil {
		log.Printf("save subscription: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to save subscription")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{
		"message":      "Subscription saved",
		"subscription": subscriptionPayload(&sub),
	})
}

// Current returns the newest active subscription row for the user, if any.
func (h *SubscriptionHandler) Current(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	var sub models.Subscription
	err := h.DB.Where("user_id = ? AND status = ?", claims.UserID, "active").
		Order("created_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.JSON(c, http.StatusOK, gin.H{"subscription": nil})
		return
	}
	if err != nil {
		log.Printf("current subscription: %v", err)
		util.Error(c, http.StatusInternalServerError, "Failed to fetch subscription")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"subscription": subscriptionPayload(&sub)})
}

// Cancel flags the active subscription to end at the period boundary.
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	res := h.DB.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", claims.UserID, "active").
		Updates(map[string]interface{}{
			"cancel_at_period_end": true,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		log.Printf("cancel subscription: %v", res.Error)
		util.Error(c, http.StatusInternalServerError, "Failed to cancel subscription")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, "No active subscription")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"message": "Subscription will cancel at period end"})
}

// Reactivate clears a pending cancellation.
func (h *SubscriptionHandler) Reactivate(c *gin.Context) {
	claims := mustClaims(c)
	if claims == nil {
		return
	}

	res := h.DB.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ? AND cancel_at_period_end = ?", claims.UserID, "active", true).
		Updates(map[string]interface{}{
			"cancel_at_period_end": false,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		log.Printf("reactivate subscription: %v", res.Error)
		util.Error(c, http.StatusInternalServerError, "Failed to reactivate subscription")
		return
	}
	if res.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, "No cancelling subscription")
		return
	}

	util.JSON(c, http.StatusOK, gin.H{"message": "Subscription reactivated"})
}
