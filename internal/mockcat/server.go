// Package mockcat is an in-memory stand-in for a CheshireCat server. It
// serves enough of the REST and websocket API to exercise the client.
package mockcat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/amoylab/catclient/internal/common/cnst"
	"github.com/amoylab/catclient/internal/common/config"
	"github.com/amoylab/catclient/pkg/logger"
	"github.com/amoylab/catclient/pkg/metrics"
	"github.com/amoylab/catclient/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	defaultSecret   = "mock-cat-signing-secret-0123456789"
	defaultTokenTTL = time.Hour
	defaultUserID   = "user"
	callerKey       = "caller"
)

// AdminPermissions is granted to every seeded user.
var AdminPermissions = models.Permission{
	"STATUS":       {"READ"},
	"MEMORY":       {"READ", "WRITE", "EDIT", "DELETE", "LIST"},
	"CONVERSATION": {"READ", "WRITE", "EDIT", "DELETE", "LIST"},
	"SETTINGS":     {"READ", "WRITE", "EDIT", "DELETE", "LIST"},
	"LLM":          {"READ", "WRITE", "EDIT", "DELETE", "LIST"},
	"EMBEDDER":     {"READ", "WRITE", "EDIT", "DELETE", "LIST"},
	"PLUGINS":      {"READ", "WRITE", "EDIT", "DELETE", "LIST"},
	"USERS":        {"READ", "WRITE", "EDIT", "DELETE", "LIST"},
	"UPLOAD":       {"WRITE"},
	"CHAT":         {"WRITE"},
}

// Request is a request as seen by the fake server, kept for assertions.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Query  url.Values
}

type caller struct {
	userID   string
	username string
}

type Server struct {
	cfg      config.MockCatConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
	store    *store
	tokens   *tokenService
	upgrader websocket.Upgrader
	router   *gin.Engine

	mu       sync.Mutex
	requests []Request
	conns    map[*websocket.Conn]struct{}
}

// New builds the server and seeds the configured users.
func New(cfg config.MockCatConfig, lg *zap.Logger, m *metrics.Metrics) (*Server, error) {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = defaultSecret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger.OrNop(lg).Named("mockcat"),
		metrics: m,
		store:   newStore(),
		tokens:  newTokenService(cfg.JWTSecret, cfg.TokenTTL),
		upgrader: websocket.Upgrader{
			CheckOrigin:      func(r *http.Request) bool { return true },
			HandshakeTimeout: 10 * time.Second,
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
	for _, u := range cfg.Users {
		if _, err := s.store.addUser(u.Username, u.Password, AdminPermissions); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock cat listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down mock cat")
	s.DropConnections()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Requests returns every authenticated request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request to path, if any.
func (s *Server) LastRequest(path string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return Request{}, false
}

// DropConnections closes every websocket connection without a close frame.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()
	for c := range conns {
		_ = c.NetConn().Close()
	}
}

// OpenConnections counts the live websocket connections.
func (s *Server) OpenConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Query:  r.URL.Query(),
	})
}

func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
			}
		}()
		c.Next()
	}
}

// authenticate accepts the API key or a token issued by this server.
func (s *Server) authenticate(secret, userID string) (caller, bool) {
	if secret == "" {
		return caller{}, false
	}
	if s.cfg.APIKey != "" && secret == s.cfg.APIKey {
		if userID == "" {
			userID = defaultUserID
		}
		return caller{userID: userID}, true
	}
	claims, err := s.tokens.validate(secret)
	if err != nil {
		return caller{}, false
	}
	return caller{userID: claims.UserID, username: claims.Username}, true
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.record(c.Request)
		header := c.GetHeader(cnst.HeaderAuthorization)
		secret, ok := strings.CutPrefix(header, cnst.BearerPrefix)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "invalid credentials"})
			return
		}
		who, ok := s.authenticate(secret, c.GetHeader(cnst.HeaderUserID))
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "invalid credentials"})
			return
		}
		c.Set(callerKey, who)
		c.Next()
	}
}

func callerOf(c *gin.Context) caller {
	if v, ok := c.Get(callerKey); ok {
		return v.(caller)
	}
	return caller{userID: defaultUserID}
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(s.recoveryMiddleware(), s.loggerMiddleware(), otelgin.Middleware(cnst.MockName))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	r.GET("/", s.handleHome)
	r.POST("/auth/token", s.handleToken)
	r.GET("/ws/:agent_id", s.handleWebsocket)
	r.GET("/ws/:agent_id/:chat_id", s.handleWebsocket)

	api := r.Group("/", s.authMiddleware())
	api.GET("/auth/available-permissions", s.handlePermissions)
	api.GET("/me", s.handleMe)
	api.POST("/message", s.handleMessage)

	memory := api.Group("/memory")
	memory.GET("/collections", s.handleCollections)
	memory.DELETE("/collections", s.handleWipeCollections)
	memory.DELETE("/collections/:collection", s.handleWipeCollection)
	memory.GET("/collections/:collection/points", s.handleListPoints)
	memory.POST("/collections/:collection/points", s.handleCreatePoint)
	memory.DELETE("/collections/:collection/points", s.handleDeletePointsByMetadata)
	memory.PUT("/collections/:collection/points/:point_id", s.handleUpdatePoint)
	memory.DELETE("/collections/:collection/points/:point_id", s.handleDeletePoint)
	memory.GET("/conversation_history", s.handleGetHistory)
	memory.POST("/conversation_history", s.handlePostHistory)
	memory.DELETE("/conversation_history", s.handleDeleteHistory)
	memory.GET("/recall", s.handleRecall)

	conv := api.Group("/conversations")
	conv.GET("", s.handleConversations)
	conv.GET("/:chat_id", s.handleConversation)
	conv.DELETE("/:chat_id", s.handleDeleteConversation)
	conv.PUT("/:chat_id", s.handlePutConversation)
	conv.GET("/:chat_id/history", s.handleConversationHistory)

	plugins := api.Group("/plugins")
	plugins.GET("", s.handlePlugins)
	plugins.PUT("/toggle/:plugin_id", s.handleTogglePlugin)
	plugins.GET("/settings", s.handlePluginsSettings)
	plugins.GET("/settings/:plugin_id", s.handlePluginSettings)
	plugins.PUT("/settings/:plugin_id", s.handlePutPluginSettings)
	plugins.GET("/installed", s.handlePlugins)
	plugins.POST("/install/upload", s.handleInstallUpload)
	plugins.POST("/install/registry", s.handleInstallRegistry)
	plugins.GET("/system/settings", s.handlePluginsSettings)
	plugins.GET("/system/settings/:plugin_id", s.handlePluginSettings)
	plugins.GET("/system/details/:plugin_id", s.handlePluginDetails)
	plugins.PUT("/system/toggle/:plugin_id", s.handleTogglePlugin)
	plugins.DELETE("/uninstall/:plugin_id", s.handleUninstallPlugin)

	users := api.Group("/users")
	users.POST("", s.handleCreateUser)
	users.GET("", s.handleListUsers)
	users.GET("/:user_id", s.handleGetUser)
	users.PUT("/:user_id", s.handleUpdateUser)
	users.DELETE("/:user_id", s.handleDeleteUser)

	settings := api.Group("/settings")
	settings.GET("", s.handleSettings)
	settings.POST("", s.handleCreateSetting)
	settings.GET("/:setting_id", s.handleSetting)
	settings.PUT("/:setting_id", s.handleUpdateSetting)
	settings.DELETE("/:setting_id", s.handleDeleteSetting)

	for name := range factoryDefaults {
		f := api.Group("/" + name)
		f.GET("/settings", s.handleFactorySettings(name))
		f.GET("/settings/:name", s.handleFactorySetting(name))
		f.PUT("/settings/:name", s.handlePutFactorySetting(name))
	}

	rabbit := api.Group("/rabbithole")
	rabbit.POST("", s.handleUploadFile)
	rabbit.POST("/batch", s.handleUploadFiles)
	rabbit.POST("/web", s.handleUploadURL)
	rabbit.POST("/memory", s.handleUploadMemory)
	rabbit.GET("/allowed-mimetypes", s.handleMimeTypes)

	utils := api.Group("/utils")
	utils.POST("/factory/reset/", s.handleFactoryReset)
	utils.GET("/agents/", s.handleAgents)
	utils.PUT("/agents/", s.handleUpdateAgent)
	utils.POST("/agents/create/", s.handleCreateAgent)
	utils.POST("/agents/reset/", s.handleResetAgent)
	utils.POST("/agents/destroy/", s.handleDestroyAgent)
	utils.POST("/agents/clone/", s.handleCloneAgent)

	api.Any("/custom/echo", s.handleEcho)
	return r
}
