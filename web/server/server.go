package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/df07/go-sphere-pathtracer/pkg/core"
	"github.com/df07/go-sphere-pathtracer/pkg/geometry"
	"github.com/df07/go-sphere-pathtracer/pkg/hostinfo"
	"github.com/df07/go-sphere-pathtracer/pkg/renderer"
	"github.com/df07/go-sphere-pathtracer/pkg/scene"
)

// Server handles web requests for the path tracer
type Server struct {
	port   int
	echo   *echo.Echo
	logger core.Logger
}

// echoLogger adapts echo's logger to core.Logger
type echoLogger struct {
	logger echo.Logger
}

func (l echoLogger) Printf(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// NewServer creates a new web server
func NewServer(port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		port:   port,
		echo:   e,
		logger: echoLogger{logger: e.Logger},
	}

	// API endpoints
	e.GET("/api/health", s.handleHealth)
	e.GET("/api/scenes", s.handleScenes)
	e.GET("/api/scene-config", s.handleSceneConfig)
	e.GET("/api/render", s.handleRender)
	e.GET("/api/render/stream", s.handleRenderStream)
	e.GET("/api/inspect", s.handleInspect)

	return s
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	if info, err := hostinfo.Describe(); err == nil {
		s.logger.Printf("Host: %s", info)
	}
	s.logger.Printf("Starting web server on http://localhost%s", addr)
	return s.echo.Start(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully, giving
// in-flight renders up to shutdownTimeout to finish.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Printf("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene   string `json:"scene"`   // Scene name (e.g., "random")
	Width   int    `json:"width"`   // Image width; height follows the scene's aspect ratio
	Samples int    `json:"samples"` // Samples per pixel
	Depth   int    `json:"depth"`   // Maximum bounce depth
	Seed    int64  `json:"seed"`    // Seed for scene layout and sampling (0 = clock)
	Format  string `json:"format"`  // "png" or "ppm"
}

// Stats represents render statistics
type Stats struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	TotalPixels    int     `json:"totalPixels"`
	TotalSamples   int64   `json:"totalSamples"`
	AverageSamples float64 `json:"averageSamples"`
	Workers        int     `json:"workers"`
	ElapsedMs      int64   `json:"elapsedMs"`
}

func newStats(stats renderer.RenderStats) Stats {
	return Stats{
		Width:          stats.Width,
		Height:         stats.Height,
		TotalPixels:    stats.TotalPixels,
		TotalSamples:   int64(stats.TotalSamples),
		AverageSamples: stats.AverageSamples,
		Workers:        stats.Workers,
		ElapsedMs:      stats.Elapsed.Milliseconds(),
	}
}

// Parameter limits
const (
	minWidth   = 2
	maxWidth   = 2000
	maxSamples = 10000
	maxDepth   = 1000
)

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes
func (s *Server) handleScenes(c echo.Context) error {
	return c.JSON(http.StatusOK, scene.ListScenes())
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(c echo.Context) error {
	sceneName := c.QueryParam("scene")
	if sceneName == "" {
		sceneName = "random"
	}

	sceneObj, err := scene.Create(sceneName, scene.Options{Seed: 1})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	config := sceneObj.SamplingConfig
	return c.JSON(http.StatusOK, map[string]interface{}{
		"scene": sceneName,
		"defaults": map[string]interface{}{
			"width":           config.Width,
			"height":          config.Height,
			"samplesPerPixel": config.SamplesPerPixel,
			"maxDepth":        config.MaxDepth,
			"aspectRatio":     sceneObj.CameraConfig.AspectRatio,
			"primitives":      sceneObj.GetPrimitiveCount(),
		},
		"limits": map[string]interface{}{
			"width":   map[string]int{"min": minWidth, "max": maxWidth},
			"samples": map[string]int{"min": 1, "max": maxSamples},
			"depth":   map[string]int{"min": 0, "max": maxDepth},
		},
	})
}

// parseRenderRequest parses request parameters
func parseRenderRequest(c echo.Context) (*RenderRequest, error) {
	query := c.QueryParams()
	req := &RenderRequest{
		Scene:  query.Get("scene"),
		Format: query.Get("format"),
	}
	if req.Scene == "" {
		req.Scene = "random"
	}
	if req.Format == "" {
		req.Format = "png"
	}
	if req.Format != "png" && req.Format != "ppm" {
		return nil, fmt.Errorf("format must be png or ppm, got: %s", req.Format)
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", 400, minWidth, maxWidth); err != nil {
		return nil, err
	}
	if req.Samples, err = parseIntParam(query, "samples", 20, 1, maxSamples); err != nil {
		return nil, err
	}
	if req.Depth, err = parseIntParam(query, "depth", 50, 0, maxDepth); err != nil {
		return nil, err
	}
	if req.Seed, err = parseSeedParam(query, "seed", 1); err != nil {
		return nil, err
	}

	return req, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseSeedParam parses a 64-bit seed from URL query
func parseSeedParam(values url.Values, key string, defaultValue int64) (int64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// createScene builds the requested scene with the request's size and sampling settings applied
func createScene(req *RenderRequest) (*scene.Scene, error) {
	sceneObj, err := scene.Create(req.Scene, scene.Options{
		Seed:   req.Seed,
		Camera: geometry.CameraConfig{Width: req.Width},
	})
	if err != nil {
		return nil, err
	}
	sceneObj.SamplingConfig.SamplesPerPixel = req.Samples
	sceneObj.SamplingConfig.MaxDepth = req.Depth
	sceneObj.SamplingConfig.Seed = req.Seed
	return sceneObj, nil
}

// httpError maps render errors onto HTTP status codes
func httpError(err error) error {
	switch {
	case errors.Is(err, scene.ErrUnknownScene), errors.Is(err, renderer.ErrInvalidConfig):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, hostinfo.ErrInsufficientMemory):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
