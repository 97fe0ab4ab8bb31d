package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/analytics"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/apperrors"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/links"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/profiles"
	"github.com/MarcoPoloResearchLab/linkhub/backend/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userIDContextKey    = "linkhub_user_id"
	visitorCookieName   = "linkhub_visitor"
	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

var (
	errMissingTokenManager    = errors.New("token manager dependency required")
	errMissingUsersService    = errors.New("users service dependency required")
	errMissingProfilesService = errors.New("profiles service dependency required")
	errMissingLinksService    = errors.New("links service dependency required")
	errMissingAnalytics       = errors.New("analytics service dependency required")
)

// TokenManager issues and validates session tokens.
type TokenManager interface {
	IssueToken(ctx context.Context, subject string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// AnalyticsRecorder accepts traffic events without blocking the request.
type AnalyticsRecorder interface {
	EnqueueView(event analytics.ViewEvent) bool
	EnqueueClick(event analytics.ClickEvent) bool
}

type Dependencies struct {
	TokenManager     TokenManager
	CookieName       string
	AllowedOrigins   []string
	UsersService     *users.Service
	ProfilesService  *profiles.Service
	LinksService     *links.Service
	AnalyticsService *analytics.Service
	Recorder         AnalyticsRecorder
	Realtime         *RealtimeDispatcher
	AvatarDir        string
	Logger           *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.ProfilesService == nil {
		return nil, errMissingProfilesService
	}
	if deps.LinksService == nil {
		return nil, errMissingLinksService
	}
	if deps.AnalyticsService == nil {
		return nil, errMissingAnalytics
	}
	cookieName := strings.TrimSpace(deps.CookieName)
	if cookieName == "" {
		cookieName = auth.DefaultCookieName
	}
	sessions, err := auth.NewSessionReader(auth.SessionReaderConfig{
		Validator:  deps.TokenManager,
		CookieName: cookieName,
	})
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		tokens:    deps.TokenManager,
		sessions:  sessions,
		users:     deps.UsersService,
		profiles:  deps.ProfilesService,
		links:     deps.LinksService,
		analytics: deps.AnalyticsService,
		recorder:  deps.Recorder,
		realtime:  realtime,
		logger:    logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.POST("/auth/sign-up", handler.handleSignUp)
	router.POST("/auth/sign-in", handler.handleSignIn)
	router.POST("/auth/sign-out", handler.handleSignOut)
	router.GET("/links/popular", handler.handlePopularLinks)

	if strings.TrimSpace(deps.AvatarDir) != "" {
		avatars := router.Group("/avatars")
		avatars.Use(avatarHeaders)
		avatars.Static("/", deps.AvatarDir)
	}

	public := router.Group("/")
	public.Use(handler.identifyRequest)
	public.GET("/public/profiles/:username", handler.handlePublicProfile)
	public.POST("/public/links/:id/clicks", handler.handlePublicClick)
	public.GET("/go/:id", handler.handleRedirect)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/auth/me", handler.handleMe)
	protected.GET("/profile", handler.handleGetProfile)
	protected.PUT("/profile", handler.handleUpdateProfile)
	protected.POST("/profile/avatar", handler.handleUploadAvatar)
	protected.DELETE("/profile/avatar", handler.handleDeleteAvatar)
	protected.GET("/links", handler.handleListLinks)
	protected.POST("/links", handler.handleCreateLink)
	protected.POST("/links/move", handler.handleMoveLink)
	protected.PATCH("/links/:id", handler.handleUpdateLink)
	protected.DELETE("/links/:id", handler.handleDeleteLink)
	protected.GET("/analytics", handler.handleAnalyticsSummary)
	protected.GET("/events", handler.handleEventStream)

	return router, nil
}

// avatarHeaders keeps uploaded files from being interpreted as documents on
// the API origin.
func avatarHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
	c.Next()
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept", "Cache-Control", "Last-Event-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

type httpHandler struct {
	tokens    TokenManager
	sessions  *auth.SessionReader
	users     *users.Service
	profiles  *profiles.Service
	links     *links.Service
	analytics *analytics.Service
	recorder  AnalyticsRecorder
	realtime  *RealtimeDispatcher
	logger    *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// authorizeRequest rejects requests without a valid session.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	subject, err := h.sessions.Authenticate(c.Request)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingSessionToken):
		case errors.Is(err, auth.ErrExpiredToken):
			h.logger.Info("token validation failed", zap.Error(err))
		default:
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

// identifyRequest records the session subject when present and never rejects.
func (h *httpHandler) identifyRequest(c *gin.Context) {
	if subject, err := h.sessions.Authenticate(c.Request); err == nil {
		c.Set(userIDContextKey, subject)
	}
	c.Next()
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "something went wrong"})
		return
	}
	status := http.StatusInternalServerError
	switch appErr.Kind() {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindConflict:
		status = http.StatusConflict
	}
	message := appErr.Message()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.String("code", appErr.Code()), zap.Error(err))
		message = "something went wrong"
	}
	body := gin.H{"error": appErr.Code()}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func (h *httpHandler) publish(userID, eventType string) {
	h.realtime.Publish(RealtimeMessage{UserID: userID, EventType: eventType})
}

func setSessionCookie(c *gin.Context, name, token string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
