package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/vartik/vartikgpt/internal/api/handlers"
	"github.com/vartik/vartikgpt/internal/api/middleware"
	"github.com/vartik/vartikgpt/internal/auth"
)

type Deps struct {
	Issuer *auth.Issuer

	Auth        *handlers.AuthHandler
	Settings    *handlers.SettingsHandler
	Chat        *handlers.ChatHandler
	RecentChats *handlers.RecentChatsHandler

	Departments *handlers.DepartmentHandler
	Indexes     *handlers.IndexHandler
	Ingestion   *handlers.IngestionHandler
	Audit       *handlers.AuditHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Interactive sign-in
	r.GET("/auth/login", d.Auth.Login)
	r.GET("/auth/callback", d.Auth.Callback)

	// Protected routes (JWT)
	api := r.Group("/api")
	api.Use(middleware.JWTAuth(d.Issuer))

	api.POST("/bootstrap", d.Auth.Bootstrap)
	api.POST("/logout", d.Auth.Logout)

	api.GET("/settings", d.Settings.Get)
	api.PATCH("/settings", d.Settings.Patch)
	api.PUT("/settings", d.Settings.Save)
	api.GET("/settings/indexes", d.Settings.Indexes)
	api.PUT("/settings/parameters", d.Settings.SaveParameters)
	api.GET("/settings/tabs", d.Settings.Tabs)

	api.POST("/chats", d.Chat.New)
	api.POST("/chats/messages", d.Chat.Submit)
	api.GET("/chats/recent", d.RecentChats.List)
	api.POST("/chats/dictation", d.Chat.Dictation)
	api.GET("/chats/:chat_id/history", d.Chat.History)
	api.GET("/chats/:chat_id/transcript", d.Chat.Transcript)
	api.DELETE("/chats/:chat_id", d.Chat.Delete)
	api.POST("/chats/:chat_id/speech/:index", d.Chat.Speech)

	// WebSocket
	api.GET("/ws/chats/recent", d.RecentChats.Stream)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())

	admin.GET("/departments", d.Departments.List)
	admin.POST("/departments", d.Departments.Create)
	admin.DELETE("/departments/:id", d.Departments.Delete)

	admin.GET("/indexes", d.Indexes.List)
	admin.POST("/indexes", d.Indexes.Create)
	admin.DELETE("/indexes/:store/:name", d.Indexes.Delete)

	admin.GET("/ingestion/form", d.Ingestion.Form)
	admin.PATCH("/ingestion/form", d.Ingestion.EditForm)
	admin.GET("/ingestion/options", d.Ingestion.Options)
	admin.POST("/ingestion", d.Ingestion.Submit)
	admin.GET("/ingestion/status", d.Ingestion.Status)
	admin.POST("/ingestion/files", d.Ingestion.Upload)

	admin.GET("/audit", d.Audit.List)
}
