package handler

import (
	"bufio"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskboard/backend/internal/realtime"
	"github.com/taskboard/backend/pkg/httpcontext"
)

type StreamHandler struct {
	baseHandler
	registry  *realtime.Registry
	buffer    int
	heartbeat time.Duration
}

func NewStreamHandler(registry *realtime.Registry, adapter *httpcontext.Adapter, logger *zap.Logger, buffer int, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &StreamHandler{
		baseHandler: newBaseHandler(adapter, logger),
		registry:    registry,
		buffer:      buffer,
		heartbeat:   heartbeat,
	}
}

// @Summary Live task and notification events (SSE)
// @Tags events
// @Router /api/v1/events [get]
func (h *StreamHandler) Events(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	ctx.Response.Header.Set("Content-Type", "text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	conn := realtime.NewStreamConn(h.buffer)
	h.registry.Register(userID, conn)
	h.logger.Debug("stream opened", zap.String("user_id", userID))

	heartbeat := h.heartbeat
	logger := h.logger
	registry := h.registry

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			registry.Unregister(conn)
			conn.Close()
			logger.Debug("stream closed", zap.String("user_id", userID))
		}()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-conn.Events():
				if !ok {
					return
				}
				if err := writeEvent(w, ev); err != nil {
					return
				}
			case <-ticker.C:
				// comment frame keeps intermediaries from timing the stream out
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
}

func writeEvent(w *bufio.Writer, ev realtime.Event) error {
	if _, err := w.WriteString("event: " + ev.Name + "\n"); err != nil {
		return err
	}
	if _, err := w.WriteString("data: "); err != nil {
		return err
	}
	if _, err := w.Write(ev.Data); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
