package handler

import (
	"github.com/gin-gonic/gin"
)

// streamEvents relays a class's wheel events as server-sent events. The
// stream opens with the current state and ends when the client leaves or the
// session closes.
func (h *Handler) streamEvents(c *gin.Context) {
	s, ok := h.wheel(c)
	if !ok {
		return
	}
	hub := s.Broadcaster()
	events := hub.Subscribe()
	defer hub.Unsubscribe(events)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("state", s.View())
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			c.SSEvent(ev.Name, ev.Data)
			c.Writer.Flush()
		}
	}
}
