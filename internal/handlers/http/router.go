package http

import (
	"net/http"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/internal/core/services"
	"coursebundler/internal/infrastructure/middleware"
	"coursebundler/internal/infrastructure/monitoring"
	"coursebundler/pkg/config"
	"coursebundler/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps wires the HTTP surface. Metrics, MetricsHandler and MediaDir are
// optional.
type RouterDeps struct {
	Config *config.Config
	Logger *zap.Logger

	Auth     services.AuthService
	Accounts middleware.UserLoader
	Users    ports.UserService
	Courses  ports.CourseService
	Payments ports.PaymentService
	Stats    ports.StatsService
	Contact  ports.ContactService

	Health         *monitoring.HealthChecker
	Metrics        middleware.HTTPMetrics
	MetricsHandler http.Handler
	// MediaDir is served under Config.Media.Local.BaseURL when set.
	MediaDir string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	sugar := deps.Logger.Sugar()

	router := gin.New()
	router.MaxMultipartMemory = 32 << 20

	router.Use(
		middleware.RecoveryMiddleware(sugar),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware(),
		middleware.RequestLoggingMiddleware(logger.NewContextLogger(deps.Logger)),
	)
	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
	}
	router.Use(
		middleware.NewHTTPRateLimitMiddleware(cfg),
		middleware.ErrorHandlerMiddleware(sugar),
		limitBody(cfg.Server.MaxUploadBytes),
	)

	registerOperationalRoutes(router, deps)
	if deps.MediaDir != "" {
		router.Static(cfg.Media.Local.BaseURL, deps.MediaDir)
	}

	cookie := CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}
	userHandler := NewUserHandler(deps.Users, deps.Auth, cookie)
	courseHandler := NewCourseHandler(deps.Courses)
	paymentHandler := NewPaymentHandler(deps.Payments, cfg.App.FrontendURL, cfg.Payment.RefundDays)
	otherHandler := NewOtherHandler(deps.Contact, deps.Stats)

	authenticated := middleware.AuthMiddleware(deps.Auth, deps.Accounts, cfg.Auth.CookieName)
	admin := middleware.RequireRole(domain.RoleAdmin)
	subscriber := middleware.RequireSubscriber()

	api := router.Group(cfg.Server.BasePath)
	{
		// courses
		api.GET("/courses", courseHandler.GetAllCourses)
		api.POST("/createcourse", authenticated, admin, courseHandler.CreateCourse)
		api.GET("/course/:id", authenticated, subscriber, courseHandler.GetCourseLectures)
		api.POST("/course/:id", authenticated, admin, courseHandler.AddLecture)
		api.DELETE("/course/:id", authenticated, admin, courseHandler.DeleteCourse)
		api.DELETE("/lecture", authenticated, admin, courseHandler.DeleteLecture)

		// users
		api.POST("/register", userHandler.Register)
		api.POST("/login", userHandler.Login)
		api.GET("/logout", userHandler.Logout)
		api.GET("/me", authenticated, userHandler.GetMyProfile)
		api.DELETE("/me", authenticated, userHandler.DeleteMyProfile)
		api.PUT("/changepassword", authenticated, userHandler.ChangePassword)
		api.PUT("/updateprofile", authenticated, userHandler.UpdateProfile)
		api.PUT("/updateprofilepicture", authenticated, userHandler.UpdateProfilePicture)
		api.POST("/forgotpassword", userHandler.ForgotPassword)
		api.PUT("/resetpassword/:token", userHandler.ResetPassword)
		api.POST("/addtoplaylist", authenticated, userHandler.AddToPlaylist)
		api.DELETE("/removefromplaylist", authenticated, userHandler.RemoveFromPlaylist)

		// admin
		api.GET("/admin/users", authenticated, admin, userHandler.ListUsers)
		api.PUT("/admin/user/:id", authenticated, admin, userHandler.UpdateUserRole)
		api.DELETE("/admin/user/:id", authenticated, admin, userHandler.DeleteUser)
		api.GET("/admin/stats", authenticated, admin, otherHandler.GetDashboardStats)

		// payments
		api.GET("/subscribe", authenticated, paymentHandler.BuySubscription)
		api.POST("/paymentverification", authenticated, paymentHandler.PaymentVerification)
		api.GET("/razorpaykey", paymentHandler.GetPublicKey)
		api.GET("/paymentkey", paymentHandler.GetPublicKey)
		api.DELETE("/subscribe/cancel", authenticated, paymentHandler.CancelSubscription)
		api.POST("/webhook/payment", paymentHandler.Webhook)

		// other
		api.POST("/contact", otherHandler.Contact)
		api.POST("/courserequest", otherHandler.CourseRequest)
	}

	return router
}

func registerOperationalRoutes(router *gin.Engine, deps RouterDeps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    monitoring.StatusHealthy,
			"timestamp": time.Now(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		if deps.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": monitoring.StatusHealthy})
			return
		}
		status := deps.Health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != monitoring.StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}
}

// limitBody caps request bodies at max bytes.
func limitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && max > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
