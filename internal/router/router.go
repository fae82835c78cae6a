package router

import (
	"time"

	"datapilot/internal/config"
	"datapilot/internal/handler"
	"datapilot/internal/limiter"
	"datapilot/internal/middleware"
	"datapilot/internal/store"
	"datapilot/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SetupRouter configures the Gin engine and the full API surface.
// rdb may be nil, which disables the login throttle.
func SetupRouter(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.String(200, "hey from the server.")
	})

	users := store.NewUserStore(db)
	tokens := store.NewTokenStore(db)

	tokenSvc := token.NewService(tokens, token.Config{
		AccessSecret:  cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Issuer:        cfg.JWT.Issuer,
		AccessTTL:     time.Duration(cfg.JWT.AccessExpireHours) * time.Hour,
		RefreshTTL:    time.Duration(cfg.JWT.RefreshExpireHours) * time.Hour,
	})

	var loginLimiter *limiter.LoginLimiter
	if rdb != nil {
		loginLimiter = limiter.NewLoginLimiter(rdb,
			cfg.Redis.LoginMaxAttempts,
			time.Duration(cfg.Redis.LoginCooldownMinutes)*time.Minute)
	}

	freshWindow := time.Duration(cfg.JWT.FreshWindowMinutes) * time.Minute

	api := r.Group("/api")

	authHandler := handler.NewAuthHandler(users, tokenSvc, loginLimiter, cfg.Security.BcryptCost)
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh-token", authHandler.RefreshToken)

	authed := api.Group("")
	authed.Use(middleware.Authenticate(tokenSvc))

	authed.GET("/auth/validate-token", authHandler.ValidateToken)
	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/profile", authHandler.Profile)

	// sensitive operations need a recently established session
	fresh := api.Group("")
	fresh.Use(middleware.RequireFreshAuth(tokenSvc, freshWindow))
	fresh.POST("/auth/change-password", authHandler.ChangePassword)

	datasetHandler := handler.NewDatasetHandler(db, cfg.App.PageSize)
	authed.POST("/datasets", datasetHandler.SaveDataset)
	authed.GET("/datasets", datasetHandler.ListDatasets)
	authed.GET("/datasets/:id", datasetHandler.GetDataset)
	authed.DELETE("/datasets/:id", datasetHandler.DeleteDataset)

	authed.POST("/linked-datasets", datasetHandler.LinkDataset)
	authed.GET("/linked-datasets/:pageType", datasetHandler.GetLinkedDataset)
	authed.DELETE("/linked-datasets/:pageType", datasetHandler.UnlinkDataset)

	authed.POST("/metrics", datasetHandler.SaveMetrics)
	authed.GET("/metrics/:pageType", datasetHandler.GetMetrics)
	authed.DELETE("/metrics/:pageType", datasetHandler.DeleteMetrics)

	chatHandler := handler.NewChatHandler(db, cfg.App.PageSize)
	authed.POST("/chat/create", chatHandler.CreateChat)
	authed.GET("/chat", chatHandler.ListChats)
	authed.PUT("/chat/:chatId/title", chatHandler.UpdateTitle)
	authed.DELETE("/chat/:chatId", chatHandler.DeleteChat)
	authed.POST("/chat/:chatId/messages", chatHandler.AddMessage)
	authed.GET("/chat/:chatId/messages", chatHandler.ListMessages)

	reportHandler := handler.NewReportHandler(db, cfg.App.PageSize)
	authed.POST("/reports/save-report", reportHandler.SaveReport)
	authed.GET("/reports", reportHandler.ListReports)
	authed.GET("/reports/:reportId", reportHandler.GetReport)
	authed.DELETE("/reports/:reportId", reportHandler.DeleteReport)
	authed.GET("/reports/:reportId/export/xlsx", reportHandler.ExportXLSX)

	subscriptionHandler := handler.NewSubscriptionHandler(db)
	authed.POST("/subscriptions", subscriptionHandler.Save)
	authed.GET("/subscriptions/current", subscriptionHandler.Current)
	authed.POST("/subscriptions/cancel", subscriptionHandler.Cancel)
	authed.POST("/subscriptions/reactivate", subscriptionHandler.Reactivate)

	return r
}
