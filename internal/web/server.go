package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sparky/internal/app"
)

// Server представляет HTTP API для браузерного фронтенда Sparky
type Server struct {
	sessions  *app.Manager
	logger    *zap.Logger
	addr      string
	startTime time.Time

	router *gin.Engine
	server *http.Server
}

// NewServer создает сервер и регистрирует все маршруты
func NewServer(addr string, sessions *app.Manager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessions:  sessions,
		logger:    logger,
		addr:      addr,
		startTime: time.Now(),
	}
	s.router = s.buildRouter()
	return s
}

// Handler отдает gin engine, удобно для httptest
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(corsCfg))

	api := r.Group("/api")
	api.GET("/status", s.status)
	api.POST("/sessions", s.createSession)

	sess := api.Group("/sessions/:sid")
	sess.Use(s.withSession())
	sess.DELETE("", s.endSession)
	sess.GET("/messages", s.listMessages)
	sess.POST("/messages", s.sendMessage)
	sess.GET("/suggestions", s.suggestions)
	sess.GET("/projects", s.listProjects)
	sess.POST("/projects", s.createProject)
	sess.POST("/projects/:id/select", s.selectProject)
	sess.GET("/projects/:id/files", s.fileTree)
	// имена файлов могут содержать каталоги, поэтому catch-all
	sess.GET("/projects/:id/files/*name", s.file)
	sess.GET("/projects/:id/preview/*name", s.preview)

	keys := api.Group("/settings")
	keys.GET("/api-key", s.getAPIKey)
	keys.PUT("/api-key", s.putAPIKey)
	keys.DELETE("/api-key", s.deleteAPIKey)

	return r
}

// Run слушает addr до отмены ctx, затем аккуратно останавливается
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🌐 Starting Sparky web server", zap.String("addr", s.addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("🛑 Stopping Sparky web server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("[req]",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
