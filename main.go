package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"vidstream/internal/config"
	"vidstream/internal/database"
	"vidstream/internal/handlers"
	"vidstream/internal/middleware"
	"vidstream/internal/token"
)

func main() {
	config.Load()

	if config.AppEnv.AccessTokenSecret == "" || config.AppEnv.RefreshTokenSecret == "" {
		log.Fatal("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required")
	}

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureChannelIndexes(db); err != nil {
		log.Printf("channel index warning: %v", err)
	}
	if err := database.EnsureSubscriptionIndexes(db); err != nil {
		log.Printf("subscription index warning: %v", err)
	}
	if err := database.EnsureVideoIndexes(db); err != nil {
		log.Printf("video index warning: %v", err)
	}
	if err := database.EnsureLikeIndexes(db); err != nil {
		log.Printf("like index warning: %v", err)
	}

	tokenCfg := token.Config{
		AccessSecret:  config.AppEnv.AccessTokenSecret,
		RefreshSecret: config.AppEnv.RefreshTokenSecret,
		AccessTTL:     config.AppEnv.AccessTokenTTL,
		RefreshTTL:    config.AppEnv.RefreshTokenTTL,
	}

	r := gin.Default()

	api := r.Group("/api/v1")

	api.GET("/healthcheck", handlers.Healthcheck(db))

	users := api.Group("/users")
	{
		users.POST("/register", handlers.Register(db))
		users.POST("/login", handlers.Login(db, tokenCfg))
		users.POST("/refresh", handlers.Refresh(db, tokenCfg))
		users.POST("/logout", middleware.UserAuth(tokenCfg), handlers.Logout(db))
		users.POST("/change-password", middleware.UserAuth(tokenCfg), handlers.ChangePassword(db))
		users.GET("/me", middleware.UserAuth(tokenCfg), handlers.GetMe(db))
		users.PATCH("/me", middleware.UserAuth(tokenCfg), handlers.UpdateProfile(db))
		users.GET("/c/:userName", middleware.UserAuth(tokenCfg), handlers.GetChannelProfile(db))
	}

	subscriptions := api.Group("/subscriptions")
	{
		subscriptions.POST("/:channelId", middleware.UserAuth(tokenCfg), handlers.ToggleSubscription(db))
		subscriptions.GET("/channel/:channelId", handlers.GetChannelSubscribers(db))
		subscriptions.GET("/user/:subscriberId", handlers.GetSubscribedChannels(db))
	}

	channels := api.Group("/channels")
	{
		channels.POST("", middleware.UserAuth(tokenCfg), handlers.CreateChannel(db))
		channels.GET("/:channelId/stats", handlers.GetChannelStats(db))
		channels.GET("/:channelId/videos", handlers.GetChannelVideos(db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
