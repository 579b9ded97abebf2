package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/lanectl/internal/discovery"
	"github.com/danmuck/lanectl/internal/link"
	"github.com/danmuck/lanectl/internal/observability"
	"github.com/danmuck/lanectl/internal/panel"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Link is the slice of the serial link manager the API drives.
type Link interface {
	Connect(ctx context.Context) error
	Disconnect(reason string)
	Connected() bool
	Sending() bool
	PermissionBlocked() bool
	Device() (discovery.Device, bool)
	History() []link.SendRecord
}

type Config struct {
	Listen      string
	CorsOrigins []string
}

// Server exposes the operator panel over HTTP.
type Server struct {
	cfg      Config
	panel    *panel.Panel
	link     Link
	router   *gin.Engine
	appeared time.Time
}

func New(cfg Config, p *panel.Panel, l Link) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:      cfg,
		panel:    p,
		link:     l,
		router:   r,
		appeared: time.Now(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Listen).Msg("api.Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("api.Server shutdown")
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/board", s.getBoard)
	r.GET("/board/render", s.renderBoard)
	r.PUT("/board/cells/:cell", s.placeCell)
	r.DELETE("/board/cells/:cell", s.removeCell)
	r.POST("/board/tap/:cell", s.tapCell)
	r.POST("/board/move", s.moveCell)
	r.POST("/board/reset", s.resetBoard)

	r.POST("/palette/:tag", s.selectTag)
	r.POST("/lane/:visual", s.selectLane)
	r.POST("/mirror", s.toggleMirror)
	r.POST("/start", s.start)

	r.GET("/link", s.linkStatus)
	r.POST("/link/connect", s.connect)
	r.POST("/link/disconnect", s.disconnect)
	r.GET("/history", s.history)

	r.GET("/logs", s.logs)
	r.GET("/ws/logs", s.streamLogs)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.appeared).String(),
		"service":   "lanectl",
		"version":   version,
		"connected": s.link != nil && s.link.Connected(),
	})
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
