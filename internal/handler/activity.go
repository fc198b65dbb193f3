package handler

import (
	"bufio"
	"errors"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"github.com/NobleVision/MUSIC-sub000/internal/middleware"
	"github.com/NobleVision/MUSIC-sub000/internal/model"
	"github.com/NobleVision/MUSIC-sub000/internal/service"
)

const defaultRecentLimit = 50

type ActivityHandler struct {
	activity    *service.ActivityService
	broadcaster *service.Broadcaster
}

func NewActivityHandler(activity *service.ActivityService, broadcaster *service.Broadcaster) *ActivityHandler {
	return &ActivityHandler{activity: activity, broadcaster: broadcaster}
}

// Recent handles GET /api/activity/recent — the one-shot catch-up read a
// client performs before subscribing to the live stream.
func (h *ActivityHandler) Recent(c fiber.Ctx) error {
	limit := service.ClampLimit(middleware.ParseLimit(c.Query("limit"), defaultRecentLimit))
	items := h.activity.Recent(c.Context(), limit)
	if items == nil {
		items = []model.ActivityItem{}
	}
	return c.JSON(fiber.Map{"items": items})
}

// Stream handles GET /api/activity/stream — the long-lived SSE connection.
// The request goroutine parks until the subscriber is torn down, either by
// the peer (surfacing as a write error) or by process shutdown.
func (h *ActivityHandler) Stream(c fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	broadcaster := h.broadcaster
	c.RequestCtx().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		sink := newSSESink(w)

		// Confirm the stream before any data arrives.
		if err := sink.Write([]byte(": connected\n\n")); err != nil {
			return
		}

		id := broadcaster.AddSubscriber(sink)
		defer broadcaster.RemoveSubscriber(id)

		<-sink.done
	}))
	return nil
}

var errSinkClosed = errors.New("sse sink already closed")

// sseSink adapts a fasthttp stream writer to the broadcaster's Sink. Writes
// arrive from the subscriber's writer goroutine; the mutex serializes them
// against teardown.
type sseSink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closed bool
	done   chan struct{}
}

func newSSESink(w *bufio.Writer) *sseSink {
	return &sseSink{w: w, done: make(chan struct{})}
}

func (s *sseSink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSinkClosed
	}
	if _, err := s.w.Write(p); err != nil {
		s.markClosed()
		return err
	}
	// Flush per frame: the peer must see events as they happen, not when
	// a buffer fills.
	if err := s.w.Flush(); err != nil {
		s.markClosed()
		return err
	}
	return nil
}

func (s *sseSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markClosed()
	return nil
}

func (s *sseSink) markClosed() {
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}
