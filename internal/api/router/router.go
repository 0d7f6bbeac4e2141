package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendance-tracker/backend/config"
	"attendance-tracker/backend/internal/api/handler"
	"attendance-tracker/backend/internal/api/middleware"
	"attendance-tracker/backend/internal/api/validate"
	"attendance-tracker/backend/pkg/jwt"
)

// RedisStore Token 黑名单与限流所需的 Redis 能力；未启用 Redis 时传 nil
type RedisStore interface {
	middleware.TokenChecker
	middleware.Limiter
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, store RedisStore, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	validate.Register()

	// 避免把 nil 接口包装成非 nil 的中间件依赖
	var (
		checker middleware.TokenChecker
		limiter middleware.Limiter
	)
	if store != nil {
		checker, limiter = store, store
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证，按 IP 限流）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(limiter, cfg.RateLimit.AuthLimit, cfg.RateLimit.AuthWindow))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, checker))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 个人资料
			authorized.GET("/users/profile", h.User.GetProfile)
			authorized.PUT("/users/profile", h.User.UpdateProfile)

			// 科目模块
			subjects := authorized.Group("/subjects")
			{
				subjects.GET("", h.Subject.ListSubjects)
				subjects.POST("", h.Subject.CreateSubject)
				subjects.DELETE("/:id", h.Subject.DeleteSubject)
				subjects.GET("/:id/attendance", h.Attendance.ListAttendance)
				subjects.GET("/:id/attendance.ics", h.Attendance.ExportCalendar)
			}

			// 出勤模块
			attendance := authorized.Group("/attendance")
			{
				attendance.POST("", h.Attendance.CreateAttendance)
				attendance.DELETE("/:id", h.Attendance.DeleteAttendance)
			}

			// 统计模块
			analytics := authorized.Group("/analytics")
			{
				analytics.GET("", h.Analytics.GetAnalytics)
				analytics.GET("/charts/bar.png", h.Analytics.BarChart)
				analytics.GET("/charts/pie.png", h.Analytics.PieChart)
			}

			// 导出模块
			authorized.GET("/export/attendance.xlsx", h.Export.ExportWorkbook)
		}
	}

	return r
}
