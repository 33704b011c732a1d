// Package status serves the current reading over HTTP and accepts remote commands.
package status

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"readout/internal/app"
	"readout/internal/scan"
	"readout/pkg/geometry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Commands accepts input for the frame loop. *app.Queue satisfies it.
type Commands interface {
	Push(in app.Input)
}

// Snapshot is the state published to HTTP clients.
type Snapshot struct {
	ROI       geometry.RectInt `json:"roi"`
	Mode      string           `json:"mode"`
	Reading   *scan.Result     `json:"reading,omitempty"`
	Scans     int              `json:"scans"`
	LastError string           `json:"last_error,omitempty"`
}

// Server is the gin-based status API.
type Server struct {
	mu   sync.RWMutex
	snap Snapshot

	cmds   Commands
	engine *gin.Engine
	log    *zap.Logger
}

// New builds the router. metrics may be nil.
func New(cmds Commands, metrics http.Handler, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{cmds: cmds, engine: gin.New(), log: log}
	s.engine.Use(gin.Recovery(), s.requestLogger())

	s.engine.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	s.engine.GET("/api/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Snapshot())
	})
	s.engine.GET("/api/reading", func(c *gin.Context) {
		snap := s.Snapshot()
		if snap.Reading == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no reading yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": snap.Reading})
	})
	s.engine.GET("/api/roi", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": s.Snapshot().ROI})
	})
	s.engine.POST("/api/scan", s.command(app.CommandScan))
	s.engine.POST("/api/select", s.command(app.CommandSelect))
	s.engine.POST("/api/quit", s.command(app.CommandQuit))
	if metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(metrics))
	}
	return s
}

func (s *Server) command(cmd app.Command) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.cmds.Push(app.Cmd(cmd))
		c.JSON(http.StatusAccepted, gin.H{"data": cmd.String()})
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Handler returns the router, for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Snapshot returns a copy of the published state.
func (s *Server) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	if snap.Reading != nil {
		r := *snap.Reading
		snap.Reading = &r
	}
	return snap
}

// SetROI publishes the committed rectangle.
func (s *Server) SetROI(r geometry.RectInt) {
	s.mu.Lock()
	s.snap.ROI = r
	s.mu.Unlock()
}

// SetMode publishes the scan mode.
func (s *Server) SetMode(m scan.Mode) {
	s.mu.Lock()
	s.snap.Mode = m.String()
	s.mu.Unlock()
}

// SetReading publishes a completed scan.
func (s *Server) SetReading(r scan.Result) {
	s.mu.Lock()
	s.snap.Reading = &r
	s.snap.Scans++
	s.snap.LastError = ""
	s.mu.Unlock()
}

// SetError publishes the last recognition failure.
func (s *Server) SetError(err error) {
	s.mu.Lock()
	s.snap.LastError = err.Error()
	s.mu.Unlock()
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status api listening", zap.String("addr", addr))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
