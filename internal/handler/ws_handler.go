package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/realtime"
	"github.com/aditya/rideshare/internal/service"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	replyBuffer    = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer and the bearer token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type channelKind string

const (
	rideChannel   channelKind = "ride"
	driverChannel channelKind = "driver"
	userChannel   channelKind = "user"
)

// WSHandler serves the ride, driver and user channels. Every channel relays
// location_update, status_update and message frames to the other subscribers
// of its topic, stamped with the server time and the sender. Messages on a
// ride channel are stored as chat, and a driver toggles availability on its
// own channel.
type WSHandler struct {
	broker        realtime.Broker
	rideService   service.RideService
	driverService service.DriverService
	chatService   service.ChatService
	log           *logger.Logger
	now           func() time.Time
}

func NewWSHandler(
	broker realtime.Broker,
	rideService service.RideService,
	driverService service.DriverService,
	chatService service.ChatService,
	log *logger.Logger,
) *WSHandler {
	return &WSHandler{
		broker:        broker,
		rideService:   rideService,
		driverService: driverService,
		chatService:   chatService,
		log:           log,
		now:           time.Now,
	}
}

func (h *WSHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/rides/{id}", h.RideChannel)
	r.Get("/ws/drivers/{id}", h.DriverChannel)
	r.Get("/ws/users/{id}", h.UserChannel)
}

// GET /v1/ws/rides/{id}
func (h *WSHandler) RideChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}
	if _, err := h.rideService.GetRide(r.Context(), actorFrom(r), id); err != nil {
		handleError(w, h.log, err)
		return
	}
	h.serve(w, r, rideChannel, id, realtime.RideTopic(id))
}

// GET /v1/ws/drivers/{id}
func (h *WSHandler) DriverChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor := actorFrom(r)
	if actor.UserID != id && !actor.IsAdmin() {
		handleError(w, h.log, apperrors.Forbidden("you cannot join this driver's channel"))
		return
	}
	h.serve(w, r, driverChannel, id, realtime.DriverTopic(id))
}

// GET /v1/ws/users/{id}
func (h *WSHandler) UserChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if actorFrom(r).UserID != id {
		handleError(w, h.log, apperrors.Forbidden("you can only join your own channel"))
		return
	}
	h.serve(w, r, userChannel, id, realtime.UserTopic(id))
}

func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, kind channelKind, id, topic string) {
	// Subscribe before upgrading; frames published after connect must reach the client.
	sub := h.broker.Subscribe(topic)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		sub.Close()
		h.log.WithError(err).WithField("topic", topic).Warn("websocket upgrade failed")
		return
	}

	c := &wsClient{
		handler: h,
		conn:    conn,
		sub:     sub,
		actor:   actorFrom(r),
		kind:    kind,
		id:      id,
		replies: make(chan []byte, replyBuffer),
		done:    make(chan struct{}),
		log: h.log.WithFields(map[string]interface{}{
			"topic":   topic,
			"user_id": actorFrom(r).UserID,
		}),
	}
	c.log.Debug("websocket connected")

	go c.writePump()
	c.readPump(r.Context())

	c.log.Debug("websocket disconnected")
}

type wsClient struct {
	handler *WSHandler
	conn    *websocket.Conn
	sub     *realtime.Subscription
	actor   models.Actor
	kind    channelKind
	id      string
	replies chan []byte
	done    chan struct{}
	log     *logger.Logger
}

func (c *wsClient) readPump(ctx context.Context) {
	defer func() {
		close(c.done)
		c.sub.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("websocket read failed")
			}
			return
		}
		c.handleFrame(ctx, message)
	}
}

// writePump is the only goroutine that writes to the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sub.C:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.write(msg.Payload) {
				return
			}
		case reply := <-c.replies:
			if !c.write(reply) {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsClient) write(payload []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload) == nil
}

func (c *wsClient) handleFrame(ctx context.Context, raw []byte) {
	var frame map[string]interface{}
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.replyError("frame must be a JSON object")
		return
	}

	kind, _ := frame["type"].(string)
	switch kind {
	case "location_update":
		c.handleLocation(ctx, frame)
	case "message":
		if c.kind == rideChannel {
			c.handleChat(ctx, frame)
			return
		}
		c.relay(ctx, frame)
	case "status_update":
		c.relay(ctx, frame)
	case "availability_update":
		c.handleAvailability(ctx, frame)
	default:
		c.replyError("unsupported frame type")
	}
}

func (c *wsClient) handleLocation(ctx context.Context, frame map[string]interface{}) {
	lat, okLat := frame["latitude"].(float64)
	lng, okLng := frame["longitude"].(float64)
	if !okLat || !okLng {
		c.replyError("latitude and longitude are required")
		return
	}
	var speed *float64
	if s, ok := frame["speed"].(float64); ok {
		speed = &s
	}

	switch c.kind {
	case rideChannel:
		if _, err := c.handler.rideService.RecordLocation(ctx, c.actor, c.id, lat, lng, speed); err != nil {
			c.replyErr(err)
			return
		}
		c.relay(ctx, frame)

	case driverChannel:
		if c.actor.UserID != c.id {
			c.replyError("only the driver can publish locations on this channel")
			return
		}
		// The service publishes the location on the driver topic and, during
		// a ride, on the ride topic.
		req := &models.UpdateDriverLocationRequest{Latitude: &lat, Longitude: &lng, Speed: speed}
		if _, err := c.handler.driverService.UpdateLocation(realtime.WithOrigin(ctx, c.sub.ID), c.actor, req); err != nil {
			c.replyErr(err)
		}

	default:
		c.relay(ctx, frame)
	}
}

func (c *wsClient) handleChat(ctx context.Context, frame map[string]interface{}) {
	text, _ := frame["message"].(string)
	if _, err := c.handler.chatService.Send(realtime.WithOrigin(ctx, c.sub.ID), c.actor, c.id, text); err != nil {
		c.replyErr(err)
	}
}

func (c *wsClient) handleAvailability(ctx context.Context, frame map[string]interface{}) {
	if c.kind != driverChannel || c.actor.UserID != c.id {
		c.replyError("availability can only be changed on your own driver channel")
		return
	}
	available, ok := frame["is_available"].(bool)
	if !ok {
		c.replyError("is_available is required")
		return
	}

	driver, err := c.handler.driverService.SetAvailability(ctx, c.actor, available)
	if err != nil {
		c.replyErr(err)
		return
	}
	c.reply(map[string]interface{}{
		"type":         "availability_update",
		"is_available": driver.IsAvailable,
		"timestamp":    c.handler.now().UTC().Format(time.RFC3339),
	})
}

func (c *wsClient) relay(ctx context.Context, frame map[string]interface{}) {
	frame["timestamp"] = c.handler.now().UTC().Format(time.RFC3339)
	frame["sender_id"] = c.actor.UserID

	payload, err := json.Marshal(frame)
	if err != nil {
		c.replyError("frame could not be encoded")
		return
	}
	if err := c.handler.broker.Publish(ctx, c.sub.Topic, realtime.Message{Origin: c.sub.ID, Payload: payload}); err != nil {
		c.log.WithError(err).Warn("failed to relay websocket frame")
	}
}

func (c *wsClient) replyErr(err error) {
	apiErr := apperrors.From(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		c.log.WithError(err).Error("websocket frame failed")
	}
	c.replyError(apiErr.Message)
}

func (c *wsClient) replyError(message string) {
	c.reply(map[string]interface{}{
		"type":      "error",
		"message":   message,
		"timestamp": c.handler.now().UTC().Format(time.RFC3339),
	})
}

// reply queues a frame for this connection only. It is dropped when the
// reply buffer is full.
func (c *wsClient) reply(frame map[string]interface{}) {
	payload, err := json.Marshal(frame)
	if err != nil {
		c.log.WithError(err).Error("failed to encode websocket reply")
		return
	}
	select {
	case c.replies <- payload:
	default:
	}
}
