package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"folio/internal/events"
)

// wsSendBuffer bounds the per-client queue; slow clients are dropped rather
// than allowed to block event publishers.
const (
	wsSendBuffer = 64
	writeTimeout = 10 * time.Second
)

// EventsHandler streams bus events to websocket clients.
type EventsHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsHandler creates a new events websocket handler
func NewEventsHandler(bus *events.Bus, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		bus: bus,
		log: log.With().Str("handler", "events_ws").Logger(),
	}
}

// HandleEventsWS upgrades the connection and forwards every published event
// as a JSON message until the client disconnects.
// GET /api/events/ws
func (h *EventsHandler) HandleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := r.Context()
	send := make(chan events.Event, wsSendBuffer)

	unsubscribe := h.bus.SubscribeAll(func(e events.Event) {
		select {
		case send <- e:
		default:
			// Client is not keeping up, drop the event.
		}
	})
	defer unsubscribe()

	h.log.Info().Str("remote", r.RemoteAddr).Msg("Events client connected")

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("Events client disconnected")
				return
			}
		}
	}
}
