package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type realtimeEventPayload struct {
	Type      string `json:"type"`
	Source    string `json:"source"`
	Timestamp int64  `json:"timestamp_s"`
}

func (h *httpHandler) handleAnalyticsSummary(c *gin.Context) {
	summary, err := h.analytics.Summary(c.Request.Context(), c.GetString(userIDContextKey))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleEventStream keeps an SSE connection open and forwards the owner's
// change notifications, with a heartbeat so proxies keep the stream alive.
func (h *httpHandler) handleEventStream(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, userID)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	heartbeat := time.NewTicker(realtimeHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, open := <-stream:
			if !open {
				return
			}
			c.SSEvent(message.EventType, realtimeEventPayload{
				Type:      message.EventType,
				Source:    realtimeSourceBackend,
				Timestamp: message.Timestamp.Unix(),
			})
			c.Writer.Flush()
		case tick := <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, realtimeEventPayload{
				Type:      realtimeEventHeartbeat,
				Source:    realtimeSourceBackend,
				Timestamp: tick.Unix(),
			})
			c.Writer.Flush()
		}
	}
}
