package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/jobtracker/internal/authz"
	"github.com/justsurfingit/jobtracker/internal/logger"
	"github.com/justsurfingit/jobtracker/internal/realtime"
)

const heartbeatInterval = 25 * time.Second

type EventsHandler struct {
	Hub       *realtime.Hub
	heartbeat time.Duration
}

func NewEventsHandler(hub *realtime.Hub) *EventsHandler {
	return &EventsHandler{Hub: hub, heartbeat: heartbeatInterval}
}

// Stream pushes the caller's realtime events as server-sent events until the
// client disconnects.
func (h *EventsHandler) Stream(c *gin.Context) {
	caller := authz.CallerFrom(c)
	sub := h.Hub.Subscribe(caller.UserID)
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	log := logger.FromContext(c)
	log.Debug("Realtime client connected")
	c.SSEvent("connect", gin.H{"userId": caller.UserID})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-ticker.C:
			c.SSEvent("heartbeat", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
	log.Debug("Realtime client disconnected")
}
