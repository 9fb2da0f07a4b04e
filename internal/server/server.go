package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"skillbridge.io/marketplace/internal/config"
	"skillbridge.io/marketplace/internal/entity"
	"skillbridge.io/marketplace/internal/metrics"
	"skillbridge.io/marketplace/internal/middleware"
	"skillbridge.io/marketplace/pkg/ratelimiter"
	"skillbridge.io/marketplace/pkg/storage"
	"skillbridge.io/marketplace/pkg/token"

	notiHttp "skillbridge.io/marketplace/internal/modules/notification/delivery/http"
	notifRepo "skillbridge.io/marketplace/internal/modules/notification/repository"
	notifService "skillbridge.io/marketplace/internal/modules/notification/service"

	projectHttp "skillbridge.io/marketplace/internal/modules/project/delivery/http"
	projectRepo "skillbridge.io/marketplace/internal/modules/project/repository"
	projectService "skillbridge.io/marketplace/internal/modules/project/service"

	proposalHttp "skillbridge.io/marketplace/internal/modules/proposal/delivery/http"
	proposalRepo "skillbridge.io/marketplace/internal/modules/proposal/repository"
	proposalService "skillbridge.io/marketplace/internal/modules/proposal/service"

	searchService "skillbridge.io/marketplace/internal/modules/search/service"

	userHttp "skillbridge.io/marketplace/internal/modules/user/delivery/http"
	userRepo "skillbridge.io/marketplace/internal/modules/user/repository"
	userService "skillbridge.io/marketplace/internal/modules/user/service"
)

const (
	purgeSchedule        = "0 3 * * *"
	limiterCleanup       = "@every 10m"
	limiterIdle          = 30 * time.Minute
	notifyDrainTimeout   = 10 * time.Second
	readHeaderTimeout    = 10 * time.Second
	healthMessage        = "SkillBridge API is running"
	apiLimitMessage      = "Too many requests from this IP, please try again later."
	authLimitMessage     = "Too many authentication attempts, please try again later."
	projectLimitMessage  = "Too many projects created, please try again later."
	proposalLimitMessage = "Too many proposals submitted, please try again later."
)

// Dependencies are the external clients built in main. Redis, Meili and
// Images may be nil; the affected features degrade instead of failing.
type Dependencies struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Meili  meilisearch.ServiceManager
	Images storage.ImageStorage
	Mailer notifService.Mailer
}

type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	engine     *gin.Engine
	httpServer *http.Server
	dispatcher *notifService.Dispatcher
	scheduler  *cron.Cron
}

func NewServer(cfg *config.Config, deps Dependencies, log *logrus.Logger) (*Server, error) {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	userRepository := userRepo.NewUserRepository(deps.DB)

	var index searchService.ProjectIndex
	if deps.Meili != nil {
		index = searchService.NewMeiliSearchService(deps.Meili, log)
	}

	// Notification Module
	notificationRepository := notifRepo.NewNotificationRepository(deps.DB)
	notificationSvc := notifService.NewNotificationService(notificationRepository, deps.Redis, log)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, deps.Redis, cfg.AllowedOrigins)

	sinks := []notifService.Sink{notifService.NewInAppSink(notificationSvc)}
	if deps.Mailer != nil {
		sinks = append(sinks, notifService.NewEmailSink(userRepository, deps.Mailer))
	}
	dispatcher := notifService.NewDispatcher(cfg.NotifyQueueSize, cfg.NotifyWorkers, log, sinks...)

	// User Module
	authSvc := userService.NewAuthService(userRepository, tokens, dispatcher, log)
	profileSvc := userService.NewProfileService(userRepository, deps.Images, log)
	userHandler := userHttp.NewUserHandler(authSvc, profileSvc)

	// Project Module
	projectRepository := projectRepo.NewProjectRepository(deps.DB)
	projectSvc := projectService.NewProjectService(projectRepository, index, log)
	projectHandler := projectHttp.NewProjectHandler(projectSvc)

	// Proposal Module
	proposalRepository := proposalRepo.NewProposalRepository(deps.DB)
	proposalSvc := proposalService.NewProposalService(proposalRepository, projectRepository, dispatcher, log)
	proposalHandler := proposalHttp.NewProposalHandler(proposalSvc)

	apiLimiter := ratelimiter.New(deps.Redis, "api", cfg.RateLimitAPI.Requests, cfg.RateLimitAPI.Window)
	authLimiter := ratelimiter.New(deps.Redis, "auth", cfg.RateLimitAuth.Requests, cfg.RateLimitAuth.Window)
	projectLimiter := ratelimiter.New(deps.Redis, "project", cfg.RateLimitProject.Requests, cfg.RateLimitProject.Window)
	proposalLimiter := ratelimiter.New(deps.Redis, "proposal", cfg.RateLimitProposal.Requests, cfg.RateLimitProposal.Window)

	scheduler := cron.New()
	if _, err := notifService.SchedulePurge(scheduler, purgeSchedule, notificationSvc, cfg.NotificationRetention, log); err != nil {
		return nil, err
	}
	if err := scheduleLimiterCleanup(scheduler, log, apiLimiter, authLimiter, projectLimiter, proposalLimiter); err != nil {
		return nil, err
	}

	router := gin.New()

	router.Use(middleware.RequestLogger(log))
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(middleware.DevMode(cfg.IsDevelopment()))

	router.GET("/health", health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "Route not found"})
	})

	authMiddleware := middleware.NewAuthMiddleware(userRepository, tokens)
	requireAuth := authMiddleware.RequireAuth()
	clientOnly := authMiddleware.RequireRole(entity.RoleClient)
	freelancerOnly := authMiddleware.RequireRole(entity.RoleFreelancer)

	api := router.Group("/api")
	api.Use(middleware.RateLimit("api", apiLimitMessage, apiLimiter))
	api.GET("/health", health)

	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimit("auth", authLimitMessage, authLimiter), userHandler.Register)
		auth.POST("/login", middleware.RateLimit("auth", authLimitMessage, authLimiter), userHandler.Login)
		auth.GET("/me", requireAuth, userHandler.Me)
		auth.POST("/logout", requireAuth, userHandler.Logout)
	}

	projects := api.Group("/projects")
	{
		projects.GET("", projectHandler.ListProjects)
		projects.GET("/search", projectHandler.SearchProjects)
		projects.GET("/user/my-projects", requireAuth, clientOnly, projectHandler.GetMyProjects)
		projects.GET("/:id", projectHandler.GetProject)
		projects.POST("", requireAuth, clientOnly, middleware.RateLimit("project", projectLimitMessage, projectLimiter), projectHandler.CreateProject)
		projects.PUT("/:id", requireAuth, clientOnly, projectHandler.UpdateProject)
		projects.DELETE("/:id", requireAuth, clientOnly, projectHandler.DeleteProject)
	}

	users := api.Group("/users")
	{
		users.GET("/search/freelancers", userHandler.SearchFreelancers)
		users.GET("/:id", userHandler.GetPublicProfile)
		users.PUT("/profile", requireAuth, userHandler.UpdateProfile)
		users.PUT("/avatar", requireAuth, userHandler.UploadAvatar)
	}

	proposals := api.Group("/proposals")
	proposals.Use(requireAuth)
	{
		proposals.POST("", freelancerOnly, middleware.RateLimit("proposal", proposalLimitMessage, proposalLimiter), proposalHandler.SubmitProposal)
		proposals.GET("/project/:projectId", clientOnly, proposalHandler.GetProjectProposals)
		proposals.GET("/my-proposals", freelancerOnly, proposalHandler.GetMyProposals)
		proposals.GET("/:id", proposalHandler.GetProposal)
		proposals.PUT("/:id/status", clientOnly, proposalHandler.UpdateProposalStatus)
		proposals.DELETE("/:id", freelancerOnly, proposalHandler.DeleteProposal)
	}

	notifications := api.Group("/notifications")
	notifications.Use(requireAuth)
	{
		notifications.GET("", notificationHandler.GetNotifications)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
		notifications.PUT("/read-all", notificationHandler.MarkAllAsRead)
		notifications.GET("/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		cfg:        cfg,
		log:        log,
		engine:     router,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts background workers and blocks until the listener stops.
// It returns nil after a clean Shutdown.
func (s *Server) Run() error {
	s.dispatcher.Start()
	s.scheduler.Start()

	s.log.WithField("addr", s.httpServer.Addr).Info("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then drains queued notifications.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.httpServer.Shutdown(ctx)

	<-s.scheduler.Stop().Done()

	drainCtx, cancel := context.WithTimeout(ctx, notifyDrainTimeout)
	defer cancel()
	if err := s.dispatcher.Stop(drainCtx); err != nil {
		s.log.WithError(err).Warn("notification queue not fully drained")
	}

	return httpErr
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"message":   healthMessage,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func scheduleLimiterCleanup(c *cron.Cron, log logrus.FieldLogger, limiters ...ratelimiter.Limiter) error {
	var local []*ratelimiter.LocalLimiter
	for _, l := range limiters {
		if ll, ok := l.(*ratelimiter.LocalLimiter); ok {
			local = append(local, ll)
		}
	}
	if len(local) == 0 {
		return nil
	}

	_, err := c.AddFunc(limiterCleanup, func() {
		removed := 0
		for _, l := range local {
			removed += l.Cleanup(limiterIdle)
		}
		if removed > 0 {
			log.WithField("removed", removed).Debug("dropped idle rate limit buckets")
		}
	})
	return err
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
