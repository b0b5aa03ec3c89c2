// Package control exposes the recorder over HTTP: a status API, control
// endpoints, the latest preview frame, and a WebSocket that carries
// hold-to-record key events in and status updates out.
package control

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/ports"
	"github.com/user/cliprec/pkg/router"
)

//go:embed static
var static embed.FS

// DefaultAddr is the default listen address.
const DefaultAddr = "127.0.0.1:8765"

const shutdownTimeout = 2 * time.Second

// Controller is the recorder side of the control surface.
type Controller interface {
	Do(ctx context.Context, ev pipeline.Event) error
	Snapshot() pipeline.Snapshot
	Subscribe() (<-chan pipeline.Snapshot, func())
}

// Previewer provides the latest rendered preview.
type Previewer interface {
	Latest() (*router.PreviewImage, bool)
}

// Options configures a Server.
type Options struct {
	Addr  string
	Debug bool // Log every request
}

// Server is the HTTP control surface.
type Server struct {
	ctrl     Controller
	preview  Previewer
	opts     Options
	log      ports.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader
}

// New creates a Server. preview may be nil.
func New(ctrl Controller, preview Previewer, opts Options, log ports.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if !opts.Debug && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		ctrl:    ctrl,
		preview: preview,
		opts:    opts,
		log:     log.WithComponent("control"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	g := gin.New()
	g.Use(gin.Recovery())
	if s.opts.Debug {
		g.Use(s.requestLog)
	}
	g.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	g.GET("/", s.index)
	api := g.Group("/api")
	{
		api.GET("/status", s.status)
		api.POST("/control/:event", s.control)
		api.GET("/preview.jpg", s.previewJPEG)
	}
	g.GET("/ws", s.stream)
	return g
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("Control surface listening on http://%s", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("%s %s %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
}

func (s *Server) index(c *gin.Context) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, NewStatus(s.ctrl.Snapshot()))
}

func (s *Server) control(c *gin.Context) {
	ev, err := pipeline.ParseEvent(c.Param("event"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	err = s.ctrl.Do(c.Request.Context(), ev)
	code := StatusCode(err)
	body := gin.H{
		"event":    ev.String(),
		"accepted": err == nil,
		"status":   NewStatus(s.ctrl.Snapshot()),
	}
	if err != nil {
		body["error"] = err.Error()
	}
	c.JSON(code, body)
}

func (s *Server) previewJPEG(c *gin.Context) {
	if s.preview == nil {
		c.Status(http.StatusNoContent)
		return
	}
	img, ok := s.preview.Latest()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("X-Frame-Seq", strconv.FormatUint(img.Seq, 10))
	c.Data(http.StatusOK, "image/jpeg", img.JPEG)
}

// StatusCode maps a control outcome to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusAccepted
	case errors.Is(err, pipeline.ErrIgnored):
		return http.StatusOK
	case errors.Is(err, pipeline.ErrInvalidState), errors.Is(err, pipeline.ErrEmptyPlaylist):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrRecorderBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
