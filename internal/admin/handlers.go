package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/pterm/pterm"

	"prux/internal/version"
)

// Handlers wires the counters and resolver cache into the admin routes.
type Handlers struct {
	counters *Counters
	cache    CacheStats
	logger   *pterm.Logger
}

func NewHandlers(counters *Counters, cache CacheStats, logger *pterm.Logger) *Handlers {
	return &Handlers{counters: counters, cache: cache, logger: logger}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.counters.Snapshot(h.cache, version.Version))
}

// Stream pushes the current stats snapshot as an SSE event every
// interval, until the client disconnects.
func (h *Handlers) Stream(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	clientGone := c.Writer.CloseNotify()

	for {
		select {
		case <-clientGone:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(h.counters.Snapshot(h.cache, version.Version))
			if err != nil {
				h.logger.Warn("failed to marshal stats snapshot", h.logger.Args("error", err))
				continue
			}
			c.SSEvent("stats", string(payload))
			c.Writer.Flush()
		}
	}
}
