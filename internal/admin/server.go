package admin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
)

// Server is the operations/admin HTTP surface, bound to its own
// listener so it never shares a connection pool with proxied traffic.
type Server struct {
	httpServer *http.Server
	logger     *pterm.Logger
}

// NewServer builds the admin engine. When pprofEnabled, net/http/pprof's
// standard handlers are mounted under /debug/pprof.
func NewServer(port int, counters *Counters, cache CacheStats, pprofEnabled bool, logger *pterm.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	h := NewHandlers(counters, cache, logger)
	engine.GET("/healthz", h.Healthz)
	engine.GET("/stats", h.Stats)
	engine.GET("/stream", h.Stream)

	if pprofEnabled {
		mountPprof(engine)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("0.0.0.0:%d", port),
			Handler: engine,
		},
		logger: logger,
	}
}

func mountPprof(engine *gin.Engine) {
	grp := engine.Group("/debug/pprof")
	grp.GET("/", gin.WrapF(pprof.Index))
	grp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	grp.GET("/profile", gin.WrapF(pprof.Profile))
	grp.POST("/symbol", gin.WrapF(pprof.Symbol))
	grp.GET("/symbol", gin.WrapF(pprof.Symbol))
	grp.GET("/trace", gin.WrapF(pprof.Trace))
	for _, name := range []string{"goroutine", "heap", "threadcreate", "block", "allocs", "mutex"} {
		grp.GET("/"+name, gin.WrapH(pprof.Handler(name)))
	}
}

// ListenAndServe blocks serving the admin surface until the process
// shuts down or the listener errors.
func (s *Server) ListenAndServe() error {
	s.logger.Info("admin server listening", s.logger.Args("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the admin server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
