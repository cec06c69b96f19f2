// internal/sessionbus/http.go
package sessionbus

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"tour-estimate-workers/internal/common/logger"
)

// StreamHandler exposes the bus over server-sent events.
type StreamHandler struct {
	bus       *Bus
	heartbeat time.Duration
	logger    logger.Logger
}

func NewStreamHandler(bus *Bus, heartbeat time.Duration, log logger.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &StreamHandler{
		bus:       bus,
		heartbeat: heartbeat,
		logger:    logger.ForComponent(log, "sessionbus-http"),
	}
}

func (h *StreamHandler) Register(r gin.IRouter) {
	r.GET("/sessions/:id/events", h.Stream)
	r.GET("/sessions/:id/events/missed", h.Missed)
}

// Stream serves live events. A Last-Event-ID header or since query parameter
// replays the backlog first.
func (h *StreamHandler) Stream(c *gin.Context) {
	sessionID := c.Param("id")

	cur, err := cursorFrom(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		sub    *Subscriber
		replay []Event
	)
	switch {
	case cur.hasSeq:
		sub, replay = h.bus.SubscribeAfter(sessionID, cur.seq)
	case cur.hasSince:
		sub, replay = h.bus.SubscribeSince(sessionID, cur.since)
	default:
		sub = h.bus.Subscribe(sessionID)
	}
	defer h.bus.Unsubscribe(sub)

	w := c.Writer
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	h.logger.Debug("SSE stream open", map[string]interface{}{
		"sessionId":    sessionID,
		"subscriberId": sub.ID,
		"replayed":     len(replay),
	})

	for _, e := range replay {
		if err := writeEvent(w, e); err != nil {
			return
		}
	}
	w.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			w.Flush()
		case e := <-sub.Events():
			if err := writeEvent(w, e); err != nil {
				h.logger.Warn("SSE write failed", map[string]interface{}{
					"sessionId": sessionID,
					"error":     err,
				})
				return
			}
			w.Flush()
		}
	}
}

// Missed returns the backlog after Last-Event-ID or ?since= as JSON.
func (h *StreamHandler) Missed(c *gin.Context) {
	cur, err := cursorFrom(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var events []Event
	if cur.hasSeq {
		events = h.bus.ReplayAfter(c.Param("id"), cur.seq)
	} else {
		events = h.bus.ReplaySince(c.Param("id"), cur.since)
	}
	if events == nil {
		events = []Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func writeEvent(w gin.ResponseWriter, e Event) error {
	return sse.Encode(w, sse.Event{
		Id:    strconv.FormatUint(e.Seq, 10),
		Event: e.Type,
		Data:  e,
	})
}

// cursor is where a reconnecting client left off.
type cursor struct {
	seq      uint64
	hasSeq   bool
	since    time.Time
	hasSince bool
}

// cursorFrom reads Last-Event-ID (an event Seq, as written by Stream) or the
// since query parameter (RFC 3339 or unix milliseconds). Last-Event-ID wins.
func cursorFrom(c *gin.Context) (cursor, error) {
	if id := strings.TrimSpace(c.GetHeader("Last-Event-ID")); id != "" {
		seq, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return cursor{}, fmt.Errorf("invalid Last-Event-ID %q", id)
		}
		return cursor{seq: seq, hasSeq: true}, nil
	}

	raw := strings.TrimSpace(c.Query("since"))
	if raw == "" {
		return cursor{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return cursor{since: t, hasSince: true}, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return cursor{}, fmt.Errorf("invalid since %q", raw)
	}
	return cursor{since: time.UnixMilli(ms), hasSince: true}, nil
}
