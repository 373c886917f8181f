// Package server exposes the timeline layout over HTTP: the scene as JSON,
// the main timeline as SVG and the minimap as PNG.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vanderheijden86/incidentline/pkg/export"
	"github.com/vanderheijden86/incidentline/pkg/metrics"
	"github.com/vanderheijden86/incidentline/pkg/model"
	"github.com/vanderheijden86/incidentline/pkg/timeline"
)

const (
	defaultWidth = 1200
	maxWidth     = 20000
)

// Server renders the current incident per request. Each request lays out a
// fresh engine, so handlers never share mutable layout state.
type Server struct {
	opts   timeline.Options
	logger *zap.Logger

	mu       sync.RWMutex
	incident *model.Incident
	loadedAt time.Time

	engine *gin.Engine
}

// New builds a Server for inc. A nil logger disables logging.
func New(inc *model.Incident, opts timeline.Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{opts: opts, logger: logger}
	s.SetIncident(inc)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.accessLog())

	engine.GET("/healthz", s.handleHealth)
	api := engine.Group("/api/v1")
	api.GET("/timeline", s.handleScene)
	api.GET("/timeline.svg", s.handleSVG)
	api.GET("/minimap.png", s.handleMinimap)

	s.engine = engine
	return s
}

// SetIncident swaps the served incident, e.g. after the file was reloaded.
func (s *Server) SetIncident(inc *model.Incident) {
	if inc == nil {
		inc = &model.Incident{}
	}
	s.mu.Lock()
	s.incident = inc
	s.loadedAt = time.Now()
	s.mu.Unlock()
	s.logger.Info("incident loaded", zap.String("id", inc.ID), zap.Int("records", len(inc.Records)))
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown failed", zap.Error(err))
			return err
		}
		return nil
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) current() (*model.Incident, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.incident, s.loadedAt
}

func (s *Server) handleHealth(c *gin.Context) {
	inc, loadedAt := s.current()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"incident":  inc.ID,
		"records":   len(inc.Records),
		"loaded_at": loadedAt.UTC().Format(time.RFC3339),
		"timings":   metrics.AllTimingStats(),
	})
}

// viewParams are the query parameters shared by the render endpoints.
type viewParams struct {
	Width    float64
	Zoom     float64
	Pan      float64
	Open     []string
	Collapse []string
}

func parseView(c *gin.Context, zoomMax float64) (viewParams, error) {
	p := viewParams{Width: defaultWidth}

	if v := c.Query("width"); v != "" {
		w, err := parseFinite(v)
		if err != nil || w < 0 || w > maxWidth {
			return p, fmt.Errorf("width must be a number in [0, %d]", maxWidth)
		}
		p.Width = w
	}
	if v := c.Query("zoom"); v != "" {
		z, err := parseFinite(v)
		if err != nil || z < 0 || z > zoomMax {
			return p, fmt.Errorf("zoom must be a number in [0, %g]", zoomMax)
		}
		p.Zoom = z
	}
	if v := c.Query("pan"); v != "" {
		r, err := parseFinite(v)
		if err != nil || r < 0 || r > 1 {
			return p, errors.New("pan must be a ratio in [0, 1]")
		}
		p.Pan = r
	}
	p.Open = splitIDs(c.Query("open"))
	p.Collapse = splitIDs(c.Query("collapse"))
	return p, nil
}

// parseFinite parses a float, rejecting NaN and infinities that ParseFloat
// accepts but no range check catches.
func parseFinite(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", v)
	}
	return f, nil
}

func splitIDs(v string) []string {
	var out []string
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// layout runs the engine for one request.
func (s *Server) layout(c *gin.Context) (*model.Incident, timeline.Scene, bool) {
	zoomMax := s.opts.ZoomMax
	if zoomMax <= 0 {
		zoomMax = timeline.DefaultZoomMax
	}
	p, err := parseView(c, zoomMax)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, timeline.Scene{}, false
	}

	inc, _ := s.current()
	e := timeline.NewEngine(s.opts, timeline.FixedSize{Width: p.Width})
	defer e.Close()
	e.SetIncident(inc)
	setOpen(e, inc, p.Open, true)
	setOpen(e, inc, p.Collapse, false)
	e.SetZoom(p.Zoom)
	e.SetPanRatio(p.Pan)
	return inc, e.Scene(), true
}

func setOpen(e *timeline.Engine, inc *model.Incident, ids []string, open bool) {
	for _, id := range ids {
		n := model.FindNode(inc.Tree, id)
		if n != nil && e.IsOpen(n) != open {
			e.Toggle(id)
		}
	}
}

func (s *Server) handleScene(c *gin.Context) {
	_, scene, ok := s.layout(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newSceneResponse(scene))
}

func (s *Server) handleSVG(c *gin.Context) {
	inc, scene, ok := s.layout(c)
	if !ok {
		return
	}
	if scene.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width must be positive to render"})
		return
	}
	var buf bytes.Buffer
	if err := export.RenderSVG(&buf, export.SnapshotOptions{Incident: inc, Scene: scene, Title: inc.Title}); err != nil {
		s.logger.Error("render svg failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

func (s *Server) handleMinimap(c *gin.Context) {
	_, scene, ok := s.layout(c)
	if !ok {
		return
	}
	surface := export.NewMinimapSurface()
	surface.Redraw(scene.Minimap, scene.Selection)
	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		s.logger.Error("render minimap failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
