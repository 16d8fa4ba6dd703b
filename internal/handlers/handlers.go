package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chimeralens/api/internal/config"
	"chimeralens/api/internal/generation"
	"chimeralens/api/internal/middleware"
	"chimeralens/api/internal/models"
	"chimeralens/api/internal/prediction"
	"chimeralens/api/internal/repository"
	"chimeralens/api/internal/service"
	"chimeralens/api/internal/storage"
)

type HandlerSet struct {
	log               zerolog.Logger
	cfg               *config.AppConfig
	db                *pgxpool.Pool
	cache             *redis.Client
	media             *storage.MediaStore
	authService       *service.AuthService
	generationService *generation.Service
	stylists          *repository.StylistRepository
	sessions          *repository.SessionRepository
	clients           *repository.ClientRepository
	consultations     *repository.ConsultationRepository
	templates         *repository.TemplateRepository
	generatedImages   *repository.GeneratedImageRepository
}

func NewHandlerSet(
	log zerolog.Logger,
	db *pgxpool.Pool,
	cache *redis.Client,
	media *storage.MediaStore,
	predictor *prediction.Client,
	cfg *config.AppConfig,
) HandlerSet {
	stylistRepo := repository.NewStylistRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	clientRepo := repository.NewClientRepository(db)
	consultationRepo := repository.NewConsultationRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	imageRepo := repository.NewGeneratedImageRepository(db)

	auth := service.NewAuthService(stylistRepo, sessionRepo, cfg, log)
	gen := generation.NewService(
		consultationRepo,
		templateRepo,
		imageRepo,
		media,
		predictor,
		generation.NewRegistry(),
		cfg.Storage.UploadsFolder,
		cfg.Storage.ResultsFolder,
		log,
	)

	return HandlerSet{
		log:               log,
		cfg:               cfg,
		db:                db,
		cache:             cache,
		media:             media,
		authService:       auth,
		generationService: gen,
		stylists:          stylistRepo,
		sessions:          sessionRepo,
		clients:           clientRepo,
		consultations:     consultationRepo,
		templates:         templateRepo,
		generatedImages:   imageRepo,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/signup", h.Signup)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)

	authed := v1.Group("")
	authed.Use(middleware.Auth(h.cfg, h.stylists, h.sessions))

	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)

	authed.POST("/stylists", middleware.RequireRoles(models.RoleSalon), h.CreateStylist)

	clients := authed.Group("/clients")
	clients.POST("", h.CreateClient)
	clients.GET("", h.ListClients)
	clients.GET("/:id", h.GetClient)
	clients.PUT("/:id", h.UpdateClient)
	clients.DELETE("/:id", middleware.RequireRoles(models.RoleSalon), h.DeleteClient)

	consultations := authed.Group("/consultations")
	consultations.POST("", h.CreateConsultation)
	consultations.POST("/quick", h.CreateQuickConsultation)
	consultations.GET("", h.ListConsultations)
	consultations.GET("/:id", h.GetConsultation)
	consultations.PATCH("/:id", h.UpdateConsultation)
	consultations.DELETE("/:id", h.DeleteConsultation)
	consultations.GET("/:id/images", h.ListGeneratedImages)
	consultations.POST("/:id/images",
		middleware.RateLimit(h.cache, h.cfg.RateLimit.GenerationLimit, h.cfg.RateLimit.GenerationWindow),
		h.GenerateImage,
	)

	templates := authed.Group("/templates")
	templates.GET("", h.ListTemplates)
	templates.GET("/:id", h.GetTemplate)
	templates.POST("", middleware.RequireRoles(models.RoleSalon), h.CreateTemplate)
	templates.DELETE("/:id", middleware.RequireRoles(models.RoleSalon), h.DeleteTemplate)
}

func currentStylist(c *gin.Context) (models.Stylist, bool) {
	val, exists := c.Get(middleware.ContextStylist)
	if !exists {
		return models.Stylist{}, false
	}
	stylist, ok := val.(models.Stylist)
	return stylist, ok
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}
