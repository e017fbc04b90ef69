package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/aditya/ridequote/internal/errors"
	"github.com/aditya/ridequote/internal/logging"
	"github.com/aditya/ridequote/internal/models"
	"github.com/aditya/ridequote/internal/realtime"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

func startServer(t *testing.T, hs ...routes) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	for _, h := range hs {
		h.RegisterRoutes(r)
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) realtime.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e realtime.Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read: %v", err)
	}
	return e
}

// roundTrip sends a subscribe so every earlier message has been handled.
func roundTrip(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, `{"type":"subscribe","topic":"sync"}`)
	if e := readEvent(t, conn); e.Type != realtime.EventSubscribed || e.Topic != "sync" {
		t.Fatalf("sync reply = %+v", e)
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestWSDriverConnectAndDelivery(t *testing.T) {
	hub := realtime.NewHub(logging.Discard())
	srv := startServer(t, NewWSHandler(hub, &fakeDrivers{}, &fakeDispatch{}, logging.Discard()))
	conn := dialWS(t, srv)

	send(t, conn, `{"type":"driver_connect","driverId":"d1"}`)
	reply := readEvent(t, conn)
	if reply.Type != realtime.EventSubscribed || reply.Topic != realtime.DriverTopic("d1") {
		t.Fatalf("reply = %+v", reply)
	}
	if !hub.Connected("d1") {
		t.Fatal("driver d1 should be connected")
	}

	hub.Deliver(realtime.RideStatusEvent("r1", "d1", "q1", models.RideStatusAccepted, time.Now()))
	got := readEvent(t, conn)
	if got.Type != realtime.EventRideStatusUpdate || got.RideID != "r1" || got.Status != models.RideStatusAccepted {
		t.Errorf("event = %+v", got)
	}

	hub.Deliver(realtime.RideStatusEvent("r2", "d2", "", models.RideStatusAccepted, time.Now()))
	roundTrip(t, conn)

	conn.Close()
	eventually(t, func() bool { return hub.Len() == 0 }, "client was not unregistered on disconnect")
	if hub.Connected("d1") {
		t.Error("driver registration survived disconnect")
	}
}

func TestWSSubscribeByRide(t *testing.T) {
	hub := realtime.NewHub(logging.Discard())
	srv := startServer(t, NewWSHandler(hub, &fakeDrivers{}, &fakeDispatch{}, logging.Discard()))
	conn := dialWS(t, srv)

	send(t, conn, `{"type":"subscribe","rideId":"r9"}`)
	if e := readEvent(t, conn); e.Topic != realtime.RideTopic("r9") {
		t.Fatalf("reply = %+v", e)
	}

	hub.Deliver(realtime.LocationEvent("d3", "r9", 51.5, -0.12, nil, nil, time.Now()))
	if e := readEvent(t, conn); e.Type != realtime.EventLocationUpdate || e.DriverID != "d3" {
		t.Errorf("event = %+v", e)
	}

	send(t, conn, `{"type":"unsubscribe","rideId":"r9"}`)
	if e := readEvent(t, conn); e.Type != realtime.EventUnsubscribe {
		t.Fatalf("reply = %+v", e)
	}
	hub.Deliver(realtime.LocationEvent("d3", "r9", 51.6, -0.12, nil, nil, time.Now()))
	roundTrip(t, conn)
}

func TestWSLocationUpdate(t *testing.T) {
	hub := realtime.NewHub(logging.Discard())
	drivers := &fakeDrivers{}
	srv := startServer(t, NewWSHandler(hub, drivers, &fakeDispatch{}, logging.Discard()))
	conn := dialWS(t, srv)

	send(t, conn, `{"type":"location_update","lat":51.5,"lng":-0.12}`)
	if e := readEvent(t, conn); e.Type != realtime.EventError {
		t.Fatalf("anonymous update: got %+v, want error", e)
	}

	send(t, conn, `{"type":"driver_connect","driverId":"d1"}`)
	readEvent(t, conn)

	send(t, conn, `{"type":"location_update","lat":51.5,"lng":-0.12,"speed":8.5}`)
	send(t, conn, `{"type":"location_update","driverId":"d2","lat":51.5,"lng":-0.12}`)
	if e := readEvent(t, conn); e.Type != realtime.EventError {
		t.Fatalf("impersonation: got %+v, want error", e)
	}
	roundTrip(t, conn)

	got := drivers.recorded()
	if len(got) != 1 {
		t.Fatalf("recorded %d locations, want 1", len(got))
	}
	if got[0].driverID != "d1" || got[0].req.Speed == nil || *got[0].req.Speed != 8.5 {
		t.Errorf("recorded = %+v", got[0])
	}
}

func TestWSRideUpdate(t *testing.T) {
	hub := realtime.NewHub(logging.Discard())
	dispatch := &fakeDispatch{ride: &models.RideResponse{ID: "r1", Status: models.RideStatusPickedUp}}
	srv := startServer(t, NewWSHandler(hub, &fakeDrivers{}, dispatch, logging.Discard()))
	conn := dialWS(t, srv)

	send(t, conn, `{"type":"driver_connect","driverId":"d1"}`)
	readEvent(t, conn)

	send(t, conn, `{"type":"ride_update","rideId":"r1","status":"picked_up"}`)
	roundTrip(t, conn)
	if dispatch.updateCount() != 1 {
		t.Fatalf("updates = %d", dispatch.updateCount())
	}
	if dispatch.lastUpdate().DriverID != "d1" {
		t.Errorf("driver id = %q, want the connection identity", dispatch.lastUpdate().DriverID)
	}

	send(t, conn, `{"type":"ride_update","rideId":"r1","status":"completed","driverId":"d2"}`)
	if e := readEvent(t, conn); e.Type != realtime.EventError || !strings.Contains(e.Message, "different driver") {
		t.Fatalf("impersonation: got %+v, want error", e)
	}
	if dispatch.updateCount() != 1 {
		t.Fatalf("impersonated update reached dispatch: updates = %d", dispatch.updateCount())
	}

	rider := dialWS(t, srv)
	send(t, rider, `{"type":"ride_update","rideId":"r1","status":"cancelled"}`)
	roundTrip(t, rider)
	if dispatch.updateCount() != 2 || dispatch.lastUpdate().DriverID != "" {
		t.Errorf("anonymous cancel: updates = %d driver = %q", dispatch.updateCount(), dispatch.lastUpdate().DriverID)
	}

	dispatch.setErr(apperrors.InvalidTransition(models.RideStatusCompleted, models.RideStatusPickedUp))
	send(t, conn, `{"type":"ride_update","rideId":"r1","status":"picked_up"}`)
	e := readEvent(t, conn)
	if e.Type != realtime.EventError || !strings.Contains(e.Message, "cannot transition") {
		t.Errorf("reply = %+v", e)
	}
}

func TestWSRejectsBadMessages(t *testing.T) {
	hub := realtime.NewHub(logging.Discard())
	srv := startServer(t, NewWSHandler(hub, &fakeDrivers{}, &fakeDispatch{}, logging.Discard()))
	conn := dialWS(t, srv)

	for _, msg := range []string{
		`not json`,
		`{"type":"teleport"}`,
		`{"type":"driver_connect"}`,
		`{"type":"subscribe"}`,
		`{"type":"ride_update","rideId":"r1"}`,
	} {
		send(t, conn, msg)
		if e := readEvent(t, conn); e.Type != realtime.EventError || e.Message == "" {
			t.Errorf("%s: reply = %+v", msg, e)
		}
	}
}

func readSSE(t *testing.T, sc *bufio.Scanner) (string, realtime.Event) {
	t.Helper()
	var typ string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			typ = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var e realtime.Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e); err != nil {
				t.Fatalf("decode %q: %v", line, err)
			}
			return typ, e
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return "", realtime.Event{}
}

func TestTrackRideStreamsRideEvents(t *testing.T) {
	hub := realtime.NewHub(logging.Discard())
	dispatch := &fakeDispatch{ride: &models.RideResponse{ID: rideUUID, Status: models.RideStatusMatched}}
	srv := startServer(t, NewSSEHandler(hub, dispatch, nil, logging.Discard()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/rides/"+rideUUID+"/track", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	sc := bufio.NewScanner(resp.Body)

	typ, snapshot := readSSE(t, sc)
	if typ != realtime.EventRideStatusUpdate || snapshot.Status != models.RideStatusMatched {
		t.Fatalf("snapshot = %s %+v", typ, snapshot)
	}

	hub.Deliver(realtime.LocationEvent("d1", "other-ride", 51.5, -0.12, nil, nil, time.Now()))
	hub.Deliver(realtime.LocationEvent("d1", rideUUID, 51.5, -0.12, nil, nil, time.Now()))
	typ, e := readSSE(t, sc)
	if typ != realtime.EventLocationUpdate || e.RideID != rideUUID {
		t.Errorf("event = %s %+v", typ, e)
	}
}

func TestTrackRideUnknownRide(t *testing.T) {
	hub := realtime.NewHub(logging.Discard())
	h := NewSSEHandler(hub, &fakeDispatch{err: apperrors.NotFound("ride request")}, nil, logging.Discard())

	rec := serve(t, h, http.MethodGet, "/rides/"+rideUUID+"/track", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if hub.Len() != 0 {
		t.Error("listener registered for an unknown ride")
	}
}

func TestTrackRideLogsWhenDeadlineCannotBeLifted(t *testing.T) {
	var logs bytes.Buffer
	hub := realtime.NewHub(logging.Discard())
	dispatch := &fakeDispatch{ride: &models.RideResponse{ID: rideUUID, Status: models.RideStatusMatched}}

	r := chi.NewRouter()
	NewSSEHandler(hub, dispatch, nil, logging.New(&logs, "warn")).RegisterRoutes(r)

	// The recorder flushes but has no write deadline to lift.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rides/"+rideUUID+"/track", nil).WithContext(ctx))

	if !strings.Contains(logs.String(), "cannot lift write deadline") {
		t.Errorf("logs = %s", logs.String())
	}
	if !strings.Contains(rec.Body.String(), "event: "+realtime.EventRideStatusUpdate) {
		t.Errorf("snapshot not written: %s", rec.Body.String())
	}
}
