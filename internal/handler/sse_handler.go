package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aditya/rideshare/internal/cache"
	"github.com/aditya/rideshare/internal/realtime"
	"github.com/aditya/rideshare/internal/service"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/go-chi/chi/v5"
)

const heartbeatInterval = 15 * time.Second

// SSEHandler exposes realtime topics as Server-Sent Events for clients that
// cannot hold a WebSocket.
type SSEHandler struct {
	broker      realtime.Broker
	rideService service.RideService
	driverCache cache.DriverLocationCache
	log         *logger.Logger
}

func NewSSEHandler(broker realtime.Broker, rideService service.RideService, driverCache cache.DriverLocationCache, log *logger.Logger) *SSEHandler {
	return &SSEHandler{
		broker:      broker,
		rideService: rideService,
		driverCache: driverCache,
		log:         log,
	}
}

func (h *SSEHandler) RegisterRoutes(r chi.Router) {
	r.Get("/rides/{id}/track", h.TrackRide)
	r.Get("/notifications/stream", h.StreamNotifications)
}

// TrackRide streams the ride topic, starting with the driver's last known position.
func (h *SSEHandler) TrackRide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ride")
	if !ok {
		return
	}

	ride, err := h.rideService.GetRide(r.Context(), actorFrom(r), id)
	if err != nil {
		handleError(w, h.log, err)
		return
	}

	var initial []byte
	if ride.DriverID != nil && h.driverCache != nil {
		loc, err := h.driverCache.GetDriverLocation(r.Context(), *ride.DriverID)
		if err != nil {
			h.log.WithError(err).WithField("ride_id", ride.ID).Warn("failed to read cached driver location")
		} else if loc != nil {
			initial, _ = json.Marshal(map[string]interface{}{
				"type":      "location_update",
				"ride_id":   ride.ID,
				"driver_id": *ride.DriverID,
				"latitude":  loc.Latitude,
				"longitude": loc.Longitude,
				"speed":     loc.Speed,
				"timestamp": time.Unix(loc.UpdatedAt, 0).UTC().Format(time.RFC3339),
			})
		}
	}

	h.stream(w, r, realtime.RideTopic(ride.ID), initial)
}

// StreamNotifications streams the caller's user topic.
func (h *SSEHandler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, realtime.UserTopic(actorFrom(r).UserID), nil)
}

func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, topic string, initial []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.InternalError(w, "streaming not supported")
		return
	}

	sub := h.broker.Subscribe(topic)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if initial != nil {
		writeEvent(w, initial)
	}
	flusher.Flush()

	ctx := r.Context()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			writeEvent(w, msg.Payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: {\"time\": %q}\n\n", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// writeEvent names the event after the frame's type field.
func writeEvent(w http.ResponseWriter, payload []byte) {
	var head struct {
		Type string `json:"type"`
	}
	event := "message"
	if err := json.Unmarshal(payload, &head); err == nil && head.Type != "" {
		event = head.Type
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
