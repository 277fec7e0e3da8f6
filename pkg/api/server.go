// Package api provides the REST API server for patternplay
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/james-see/patternplay/pkg/dsl"
	"github.com/james-see/patternplay/pkg/pattern"
	"github.com/james-see/patternplay/pkg/player"
	"github.com/james-see/patternplay/pkg/store"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title Patternplay API
// @version 1.0
// @description API for defining, transforming and playing MIDI patterns
// @host localhost:8080
// @BasePath /api/v1

// Server exposes an interpreter over HTTP
type Server struct {
	interp *dsl.Interpreter
	log    *zap.Logger
	engine *gin.Engine
}

// ExecRequest is the body of POST /exec
type ExecRequest struct {
	Command string `json:"command" binding:"required" example:"pat melody 4 c4 e4 g4 c5"`
}

// OutputResponse carries a command's message
type OutputResponse struct {
	Output string `json:"output"`
}

// ErrorResponse carries a failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// ResultResponse describes how the last session ended
type ResultResponse struct {
	Pattern    string `json:"pattern"`
	State      string `json:"state"`
	Dispatched int    `json:"dispatched"`
	Total      int    `json:"total"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	Error      string `json:"error,omitempty"`
}

// StatusResponse is the body of GET /status
type StatusResponse struct {
	State      string          `json:"state"`
	Pattern    string          `json:"pattern,omitempty"`
	Dispatched int             `json:"dispatched"`
	Total      int             `json:"total"`
	ElapsedMS  int64           `json:"elapsed_ms"`
	Sounding   []int           `json:"sounding"`
	Tempo      int             `json:"tempo"`
	Velocity   uint8           `json:"velocity"`
	NoteLength float64         `json:"note_length"`
	Last       *ResultResponse `json:"last,omitempty"`
}

// NewServer builds the router. A nil logger disables request logging.
func NewServer(in *dsl.Interpreter, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{interp: in, log: log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.logMiddleware())
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/patterns", s.listPatterns)
		v1.GET("/patterns/:name", s.getPattern)
		v1.DELETE("/patterns/:name", s.deletePattern)
		v1.POST("/exec", s.exec)
		v1.POST("/play/:name", s.play)
		v1.POST("/stop", s.stop)
		v1.GET("/status", s.status)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.engine = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.log.Info("api listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// statusCode maps domain errors onto HTTP statuses
func statusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pattern.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, player.ErrAlreadyPlaying):
		return http.StatusConflict
	case errors.Is(err, player.ErrSinkUnavailable), errors.Is(err, player.ErrSinkWrite):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "patternplay",
	})
}

// listPatterns godoc
// @Summary List patterns
// @Description Returns every stored pattern sorted by name
// @Tags patterns
// @Produce json
// @Success 200 {object} map[string][]pattern.Pattern
// @Router /api/v1/patterns [get]
func (s *Server) listPatterns(c *gin.Context) {
	st := s.interp.Store()
	patterns := make([]pattern.Pattern, 0, st.Len())
	for _, name := range st.List() {
		if p, ok := st.Get(name); ok {
			patterns = append(patterns, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"patterns": patterns})
}

// getPattern godoc
// @Summary Get a pattern
// @Tags patterns
// @Produce json
// @Param name path string true "Pattern name"
// @Success 200 {object} pattern.Pattern
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/patterns/{name} [get]
func (s *Server) getPattern(c *gin.Context) {
	name := c.Param("name")
	p, ok := s.interp.Store().Get(name)
	if !ok {
		s.fail(c, dsl.NotFound(name))
		return
	}
	c.JSON(http.StatusOK, p)
}

// deletePattern godoc
// @Summary Delete a pattern
// @Tags patterns
// @Produce json
// @Param name path string true "Pattern name"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/patterns/{name} [delete]
func (s *Server) deletePattern(c *gin.Context) {
	name := c.Param("name")
	if err := s.interp.Delete(name); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": name})
}

// exec godoc
// @Summary Execute a command
// @Description Runs one line of the pattern language (pat, seq, mod, vel, len, tempo, play, stop, ...)
// @Tags commands
// @Accept json
// @Produce json
// @Param request body ExecRequest true "Command line"
// @Success 200 {object} OutputResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/exec [post]
func (s *Server) exec(c *gin.Context) {
	var req ExecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "command is required"})
		return
	}
	out, err := s.interp.Execute(req.Command)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, OutputResponse{Output: out})
}

// play godoc
// @Summary Play a pattern
// @Description Starts playback at the current tempo and returns immediately
// @Tags playback
// @Produce json
// @Param name path string true "Pattern name"
// @Success 200 {object} OutputResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/play/{name} [post]
func (s *Server) play(c *gin.Context) {
	out, err := s.interp.Play(c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, OutputResponse{Output: out})
}

// stop godoc
// @Summary Stop playback
// @Description Cancels the session and silences every sounding note. Stopping when idle succeeds.
// @Tags playback
// @Produce json
// @Success 200 {object} OutputResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/stop [post]
func (s *Server) stop(c *gin.Context) {
	out, err := s.interp.Stop()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, OutputResponse{Output: out})
}

// status godoc
// @Summary Playback status
// @Tags playback
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /api/v1/status [get]
func (s *Server) status(c *gin.Context) {
	p := s.interp.Player()
	st := p.Status()
	state := s.interp.State()
	d := state.Defaults()

	resp := StatusResponse{
		State:      st.State.String(),
		Pattern:    st.Pattern,
		Dispatched: st.Dispatched,
		Total:      st.Total,
		ElapsedMS:  st.Elapsed.Milliseconds(),
		Sounding:   make([]int, len(st.Sounding)),
		Tempo:      state.Tempo(),
		Velocity:   d.Velocity,
		NoteLength: d.Length,
	}
	for i, pitch := range st.Sounding {
		resp.Sounding[i] = int(pitch)
	}
	if last := p.LastResult(); last.Pattern != "" {
		resp.Last = &ResultResponse{
			Pattern:    last.Pattern,
			State:      last.State.String(),
			Dispatched: last.Dispatched,
			Total:      last.Total,
			ElapsedMS:  last.Elapsed.Milliseconds(),
		}
		if last.Err != nil {
			resp.Last.Error = last.Err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}
