package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warbler/internal/bootstrap"
	"warbler/internal/transport/http/handler"
	"warbler/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.LoadHTMLGlob(app.Config.App.TemplateGlob)

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pages := handler.NewPageHandler(
		app.Auth,
		app.Messages,
		app.Sessions,
		app.Config.Session.CookieName,
		app.Config.Session.TTLMinute*60,
	)

	web := router.Group("/")
	web.Use(middleware.LoadSession(app.Sessions, app.Auth, app.Config.Session.CookieName))
	web.GET("/", pages.Home)
	web.GET("/signup", pages.SignupForm)
	web.POST("/signup", pages.Signup)
	web.GET("/login", pages.LoginForm)
	web.POST("/login", pages.Login)
	web.POST("/logout", pages.Logout)
	web.POST("/messages/new", pages.CreateMessage)
	web.GET("/messages/:id", pages.ShowMessage)
	web.POST("/messages/:id/delete", pages.DeleteMessage)
	web.GET("/users/:id", pages.ShowUser)

	authHandler := handler.NewAuthAPIHandler(app.Auth)
	messageHandler := handler.NewMessageAPIHandler(app.Messages)
	requireToken := middleware.AuthJWT(app.Config.Auth.JWTSecret)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", requireToken, authHandler.Me)

	messageGroup := v1.Group("/messages")
	messageGroup.GET("", messageHandler.List)
	messageGroup.GET("/:id", messageHandler.Get)
	messageGroup.POST("", requireToken, messageHandler.Create)
	messageGroup.DELETE("/:id", requireToken, messageHandler.Delete)

	return router
}
