package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/usecases"
	"github.com/samirrijal/parkit/internal/pkg/auth"
	"github.com/samirrijal/parkit/internal/pkg/logging"
	"github.com/samirrijal/parkit/internal/pkg/metrics"
)

// wsClientMessage is sent by the map client.
//
//	{"type":"bounds","bounds":{"northEast":{...},"southWest":{...}}}
//	{"type":"location","location":{"lat":43.26,"lng":-2.93}}
//	{"type":"route","origin":"N123","destination":"W456"}
//	{"type":"watch","locationId":"loc-1"} / {"type":"unwatch",...}
type wsClientMessage struct {
	Type        string            `json:"type"`
	Bounds      *domain.GeoRegion `json:"bounds,omitempty"`
	Location    *domain.GeoPoint  `json:"location,omitempty"`
	Origin      string            `json:"origin,omitempty"`
	Destination string            `json:"destination,omitempty"`
	LocationID  string            `json:"locationId,omitempty"`
}

type wsServerMessage struct {
	Type         string                      `json:"type"`
	Markers      *usecases.MarkerUpdate      `json:"markers,omitempty"`
	Availability *domain.AvailabilityChanged `json:"availability,omitempty"`
	Message      string                      `json:"message,omitempty"`
}

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsOutboxSize   = 16
)

// WebSocketHandler runs one viewport session per connection: map
// navigation in, marker sets and watched availability changes out.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		log := slog.Default().With("remote_addr", c.RemoteAddr().String())
		if rid, ok := c.Locals("requestid").(string); ok {
			log = log.With("request_id", rid)
		}
		ctx = logging.Into(ctx, log)
		if tok, ok := c.Locals(localsToken).(string); ok && tok != "" {
			ctx = auth.WithToken(ctx, tok)
		}

		metrics.ActiveSessions.Inc()
		defer metrics.ActiveSessions.Dec()
		log.Debug("ws session opened")

		// send never blocks: it runs on the hub's watcher goroutines and as the
		// synchronizer sink under its lock. A client that cannot keep up with
		// its outbox is disconnected.
		outbox := make(chan wsServerMessage, wsOutboxSize)
		var overflow sync.Once
		send := func(m wsServerMessage) {
			select {
			case outbox <- m:
			case <-ctx.Done():
			default:
				metrics.DroppedMessages.WithLabelValues("session").Inc()
				overflow.Do(func() {
					log.Warn("ws client too slow, closing session")
					cancel()
				})
			}
		}

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			wsWriter(ctx, c, outbox, log)
			// Unblock ReadMessage when the writer stops first.
			_ = c.SetReadDeadline(time.Now())
		}()

		var opts []usecases.SyncOption
		if deps.Session.Debounce > 0 {
			opts = append(opts, usecases.WithDebounce(deps.Session.Debounce))
		}
		if deps.Session.MarkerStagger > 0 {
			opts = append(opts, usecases.WithMarkerStagger(deps.Session.MarkerStagger))
		}
		session := usecases.NewViewportSynchronizer(ctx, deps.Maps, func(u usecases.MarkerUpdate) {
			send(wsServerMessage{Type: "markers", Markers: &u})
		}, opts...)

		watches := make(map[string]func())

		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsClientMessage
			if err := json.Unmarshal(data, &m); err != nil {
				send(wsServerMessage{Type: "error", Message: "invalid JSON"})
				continue
			}

			var opErr error
			switch m.Type {
			case "bounds":
				if m.Bounds == nil {
					opErr = domain.ErrInvalidRegion
					break
				}
				opErr = session.OnBoundsSettled(*m.Bounds)
			case "location":
				if m.Location == nil {
					opErr = domain.ErrInvalidRegion
					break
				}
				opErr = session.OnLocationResolved(*m.Location)
			case "route":
				opErr = session.OnRouteRequested(m.Origin, m.Destination)
			case "watch":
				if m.LocationID == "" || deps.Hub == nil {
					send(wsServerMessage{Type: "error", Message: "cannot watch location"})
					continue
				}
				if _, ok := watches[m.LocationID]; !ok {
					watches[m.LocationID] = deps.Hub.Watch(m.LocationID, func(ev domain.AvailabilityChanged) {
						send(wsServerMessage{Type: "availability", Availability: &ev})
					})
				}
			case "unwatch":
				if stop, ok := watches[m.LocationID]; ok {
					stop()
					delete(watches, m.LocationID)
				}
			default:
				send(wsServerMessage{Type: "error", Message: "unknown message type: " + m.Type})
				continue
			}
			if opErr != nil {
				send(wsServerMessage{Type: "error", Message: opErr.Error()})
			}
		}

		for _, stop := range watches {
			stop()
		}
		cancel()
		session.Close()
		<-writerDone
		log.Debug("ws session closed")
	}
}

// wsWriter owns all writes to the connection.
func wsWriter(ctx context.Context, c *websocket.Conn, outbox <-chan wsServerMessage, log *slog.Logger) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-outbox:
			data, err := json.Marshal(m)
			if err != nil {
				log.Warn("ws encode", "error", err)
				continue
			}
			_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("ws write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
