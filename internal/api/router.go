package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"familytree/pkg/rbac"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *AuthHandler,
	memberHandler *MemberHandler,
	eventHandler *EventHandler,
	timelineHandler *TimelineHandler,
	jwtSecret string,
	db *pgxpool.Pool,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/me", authHandler.Me)

		auth.GET("/members", memberHandler.ListMembers)
		auth.GET("/members/:id", memberHandler.GetMember)
		auth.POST("/members", RequirePermission(rbac.PermissionCreateMember), memberHandler.CreateMember)
		auth.PUT("/members/:id", RequirePermission(rbac.PermissionUpdateMember), memberHandler.UpdateMember)
		auth.DELETE("/members/:id", RequirePermission(rbac.PermissionDeleteMember), memberHandler.DeleteMember)

		auth.GET("/events", eventHandler.ListEvents)
		auth.GET("/events/:id", eventHandler.GetEvent)
		auth.POST("/events", RequirePermission(rbac.PermissionCreateEvent), eventHandler.CreateEvent)
		auth.PUT("/events/:id", RequirePermission(rbac.PermissionUpdateEvent), eventHandler.UpdateEvent)
		auth.DELETE("/events/:id", RequirePermission(rbac.PermissionDeleteEvent), eventHandler.DeleteEvent)

		auth.GET("/timeline", timelineHandler.ListTimeline)
		auth.GET("/timeline/:id", timelineHandler.GetEntry)
		auth.POST("/timeline", RequirePermission(rbac.PermissionCreateTimelineEntry), timelineHandler.CreateEntry)
		auth.PUT("/timeline/:id", RequirePermission(rbac.PermissionUpdateTimelineEntry), timelineHandler.UpdateEntry)
		auth.DELETE("/timeline/:id", RequirePermission(rbac.PermissionDeleteTimelineEntry), timelineHandler.DeleteEntry)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
