package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"savings_auth/internal/auth"
	"savings_auth/internal/models"
	"savings_auth/internal/service"
	"savings_auth/internal/storage"
)

const (
	ctxAccountID = "AccountID"
	ctxEmail     = "Email"
	ctxRoles     = "Roles"
)

type Handler struct {
	serviceLayer service.Service
	signer       *auth.TokenSigner
	metrics      http.Handler
	log          *slog.Logger
}

type errorResponse struct {
	Message string `json:"message"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, errorResponse{Message: errMessage})
}

func NewHandler(srvc service.Service, signer *auth.TokenSigner, metricsHandler http.Handler, lgr *slog.Logger) *Handler {
	return &Handler{
		serviceLayer: srvc,
		signer:       signer,
		metrics:      metricsHandler,
		log:          lgr,
	}
}

// AuthMiddleware verifies the bearer access token and stashes its claims
// in the request context.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			newErrorResponse(c, http.StatusUnauthorized, "empty authorization header")

			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			newErrorResponse(c, http.StatusUnauthorized, "invalid authorization header")

			return
		}

		claims, err := h.signer.Parse(parts[1])
		if err != nil {
			newErrorResponse(c, http.StatusUnauthorized, "invalid token")

			return
		}

		c.Set(ctxAccountID, claims.AccountID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRoles, claims.Roles)

		c.Next()
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", h.SignUp)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.RefreshTokens)

		authGroup.Use(h.AuthMiddleware())
		authGroup.GET("/profile", h.GetProfile)
	}

	api := router.Group("/api", h.AuthMiddleware())
	{
		api.POST("/savings", h.CreateSaving)
		api.GET("/savings", h.ListSavings)
	}

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}

// POST /auth/signup
func (h *Handler) SignUp(c *gin.Context) {
	const op = "handler.SignUp"

	log := h.log.With(slog.String("op", op))

	var input models.AccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request payload")

		return
	}

	result, err := h.serviceLayer.Register(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrNilInput) {
			log.Error("empty signup payload")

			newErrorResponse(c, http.StatusBadRequest, "invalid request payload")

			return
		}

		log.Error("failed to register account", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to register account")

		return
	}

	if !result.Success {
		c.JSON(http.StatusBadRequest, result)

		return
	}

	log.Info("account registered", slog.String("email", input.Email))

	c.JSON(http.StatusCreated, result)
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	const op = "handler.Login"

	log := h.log.With(slog.String("op", op))

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request payload")

		return
	}

	result, err := h.serviceLayer.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			newErrorResponse(c, http.StatusUnauthorized, "invalid email or password")

			return
		}

		log.Error("failed to login", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to login")

		return
	}

	c.JSON(http.StatusOK, result)
}

// POST /auth/refresh
func (h *Handler) RefreshTokens(c *gin.Context) {
	const op = "handler.RefreshTokens"

	log := h.log.With(slog.String("op", op))

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request payload")

		return
	}

	result, err := h.serviceLayer.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			newErrorResponse(c, http.StatusUnauthorized, "invalid or expired refresh token")

			return
		}

		log.Error("failed to refresh tokens", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to refresh tokens")

		return
	}

	c.JSON(http.StatusOK, result)
}

// GET /auth/profile
func (h *Handler) GetProfile(c *gin.Context) {
	const op = "handler.GetProfile"

	log := h.log.With(slog.String("op", op))

	email := c.GetString(ctxEmail)
	if email == "" {
		newErrorResponse(c, http.StatusUnauthorized, "invalid token")

		return
	}

	account, err := h.serviceLayer.Profile(c.Request.Context(), email)
	if err != nil {
		log.Error("failed to get profile", slog.String("email", email), slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "internal error")

		return
	}

	c.JSON(http.StatusOK, account)
}

// POST /api/savings
func (h *Handler) CreateSaving(c *gin.Context) {
	const op = "handler.CreateSaving"

	log := h.log.With(slog.String("op", op))

	email := c.GetString(ctxEmail)
	if email == "" {
		newErrorResponse(c, http.StatusUnauthorized, "invalid token")

		return
	}

	var input models.SavingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request payload")

		return
	}

	saving, err := h.serviceLayer.CreateSaving(c.Request.Context(), email, input)
	if err != nil {
		var verrs storage.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": []string(verrs)})

			return
		}

		log.Error("failed to create saving", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to create saving")

		return
	}

	c.JSON(http.StatusCreated, saving)
}

// GET /api/savings
func (h *Handler) ListSavings(c *gin.Context) {
	const op = "handler.ListSavings"

	log := h.log.With(slog.String("op", op))

	email := c.GetString(ctxEmail)
	if email == "" {
		newErrorResponse(c, http.StatusUnauthorized, "invalid token")

		return
	}

	savings, err := h.serviceLayer.ListSavings(c.Request.Context(), email)
	if err != nil {
		log.Error("failed to list savings", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "failed to list savings")

		return
	}

	c.JSON(http.StatusOK, savings)
}
