package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"estore/internal/event"
	"estore/internal/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// 変更通知をSSEで配る
type EventSource interface {
	Subscribe() (<-chan event.Event, func())
}

type EventHandler struct {
	src       EventSource
	heartbeat time.Duration
}

func NewEventHandler(src EventSource, heartbeat time.Duration) *EventHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &EventHandler{src: src, heartbeat: heartbeat}
}

func (h *EventHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/events", h.stream)
}

func (h *EventHandler) stream(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ch, unsubscribe := h.src.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeSSE(res, ev); err != nil {
				logger.Debug("sse write failed", zap.String("event_id", ev.ID), zap.Error(err))
				return nil
			}
			res.Flush()
		}
	}
}

func writeSSE(w *echo.Response, ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Topic, data)
	return err
}
