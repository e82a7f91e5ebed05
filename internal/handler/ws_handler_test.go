package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/realtime"
	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, path, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path + "?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", path, err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame map[string]interface{}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return frame
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected frame %s", data)
	}
}

func send(t *testing.T, conn *websocket.Conn, frame map[string]interface{}) {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestRideChannelRelaysToOtherParticipants(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	rider := dial(t, srv, "/v1/ws/rides/"+rideID, s.token(t, "rider-1", models.RoleRider))
	driver := dial(t, srv, "/v1/ws/rides/"+rideID, s.token(t, "driver-1", models.RoleDriver))

	send(t, driver, map[string]interface{}{"type": "message", "message": "two minutes away"})

	got := readFrame(t, rider)
	if got["type"] != "message" || got["message"] != "two minutes away" {
		t.Errorf("frame = %v", got)
	}
	if got["sender_id"] != "driver-1" {
		t.Errorf("sender_id = %v", got["sender_id"])
	}
	if ts, _ := got["timestamp"].(string); ts == "" {
		t.Error("timestamp missing")
	} else if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("timestamp %q: %v", ts, err)
	}
	expectSilence(t, driver)
}

func TestRideChannelLocationIsRecorded(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	rider := dial(t, srv, "/v1/ws/rides/"+rideID, s.token(t, "rider-1", models.RoleRider))
	driver := dial(t, srv, "/v1/ws/rides/"+rideID, s.token(t, "driver-1", models.RoleDriver))

	send(t, driver, map[string]interface{}{"type": "location_update", "latitude": 27.71, "longitude": 85.32, "speed": 30})

	got := readFrame(t, rider)
	if got["type"] != "location_update" || got["latitude"] != 27.71 {
		t.Errorf("frame = %v", got)
	}
	if n := s.rides.recorded(); n != 1 {
		t.Errorf("recorded %d locations, want 1", n)
	}

	// the rider is not the assigned driver
	send(t, rider, map[string]interface{}{"type": "location_update", "latitude": 27.71, "longitude": 85.32})
	if got := readFrame(t, rider); got["type"] != "error" {
		t.Errorf("rider location frame = %v, want error", got)
	}
	expectSilence(t, driver)
}

func TestUnsupportedFrameGetsError(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	rider := dial(t, srv, "/v1/ws/rides/"+rideID, s.token(t, "rider-1", models.RoleRider))
	send(t, rider, map[string]interface{}{"type": "teleport"})

	if got := readFrame(t, rider); got["type"] != "error" {
		t.Errorf("frame = %v, want error", got)
	}
}

func TestServerFramesReachUserChannel(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn := dial(t, srv, "/v1/ws/users/rider-1", s.token(t, "rider-1", models.RoleRider))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	_ = s.hub.Publish(ctx, realtime.UserTopic("rider-1"), realtime.Message{Payload: []byte(`{"type":"notification","title":"Ride Update"}`)})

	if got := readFrame(t, conn); got["type"] != "notification" {
		t.Errorf("frame = %v", got)
	}
}

func TestChannelAuthorization(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	tests := []struct {
		path   string
		userID string
		role   models.Role
		status int
	}{
		{"/v1/ws/rides/" + rideID, "rider-9", models.RoleRider, http.StatusForbidden},
		{"/v1/ws/rides/" + missingID, "rider-1", models.RoleRider, http.StatusNotFound},
		{"/v1/ws/users/rider-1", "rider-9", models.RoleRider, http.StatusForbidden},
		{"/v1/ws/drivers/driver-1", "driver-2", models.RoleDriver, http.StatusForbidden},
	}

	for _, tt := range tests {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + tt.path + "?token=" + s.token(t, tt.userID, tt.role)
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Errorf("%s as %s: dial succeeded", tt.path, tt.userID)
			continue
		}
		if resp == nil || resp.StatusCode != tt.status {
			t.Errorf("%s as %s: response %v, want %d", tt.path, tt.userID, resp, tt.status)
		}
	}
}

func TestDriverChannelAvailabilityUpdate(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn := dial(t, srv, "/v1/ws/drivers/driver-1", s.token(t, "driver-1", models.RoleDriver))

	send(t, conn, map[string]interface{}{"type": "availability_update", "is_available": true})
	got := readFrame(t, conn)
	if got["type"] != "availability_update" || got["is_available"] != true {
		t.Errorf("ack = %v", got)
	}

	send(t, conn, map[string]interface{}{"type": "availability_update"})
	if got := readFrame(t, conn); got["type"] != "error" {
		t.Errorf("missing flag frame = %v, want error", got)
	}
}

func TestAvailabilityUpdateOutsideDriverChannel(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	conn := dial(t, srv, "/v1/ws/rides/"+rideID, s.token(t, "driver-1", models.RoleDriver))
	send(t, conn, map[string]interface{}{"type": "availability_update", "is_available": false})

	if got := readFrame(t, conn); got["type"] != "error" {
		t.Errorf("frame = %v, want error", got)
	}
}

func TestRideChannelMessageFromStrangerIsRejected(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	admin := dial(t, srv, "/v1/ws/rides/"+rideID, s.token(t, "ops", models.RoleAdmin))
	rider := dial(t, srv, "/v1/ws/rides/"+rideID, s.token(t, "rider-1", models.RoleRider))

	send(t, admin, map[string]interface{}{"type": "message", "message": "hello"})
	if got := readFrame(t, admin); got["type"] != "error" {
		t.Errorf("frame = %v, want error", got)
	}
	expectSilence(t, rider)
}
