package wsclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/videomeet/modules/relay"
)

func TestReconnectDelay_Bounds(t *testing.T) {
	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
	}

	for attempt, base := range expected {
		for i := 0; i < 50; i++ {
			d := reconnectDelay(attempt + 1)
			min := base / 2
			max := base + base/2
			if max > maxReconnectDelay {
				max = maxReconnectDelay
			}
			if d < min || d > max {
				t.Fatalf("reconnectDelay(%d) = %v, want within [%v, %v]", attempt+1, d, min, max)
			}
		}
	}
}

func TestClient_ConnectFailureStartsRetrySchedule(t *testing.T) {
	// Port 1 refuses connections immediately.
	client, err := New("ws://127.0.0.1:1/ws/meeting", "token")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Disconnect()

	if err := client.Connect(); err == nil {
		t.Fatal("Connect() to a dead endpoint should return an error")
	}
	if state := client.State(); state != StateConnecting {
		t.Errorf("State() after failed dial = %v, want StateConnecting (retry pending)", state)
	}
}

func TestClient_DisconnectIsTerminal(t *testing.T) {
	client, err := New("ws://127.0.0.1:1/ws/meeting", "token")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	client.Disconnect()
	if state := client.State(); state != StateDisconnected {
		t.Errorf("State() = %v, want StateDisconnected", state)
	}
	if err := client.Connect(); !errors.Is(err, ErrClosed) {
		t.Errorf("Connect() after Disconnect() error = %v, want ErrClosed", err)
	}
}

func TestClient_GivesUpAfterBudget(t *testing.T) {
	client, err := New("ws://127.0.0.1:1/ws/meeting", "token")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Disconnect()

	client.mu.Lock()
	client.attempts = maxReconnectAttempts
	client.mu.Unlock()

	// The budget is spent, so the next drop ends the retry schedule.
	client.scheduleReconnect()

	if state := client.State(); state != StateDisconnected {
		t.Errorf("State() = %v, want StateDisconnected", state)
	}
	if !errors.Is(client.Err(), ErrGaveUp) {
		t.Errorf("Err() = %v, want ErrGaveUp", client.Err())
	}
}

func TestClient_DispatchRouting(t *testing.T) {
	client, err := New("ws://127.0.0.1:1/ws/meeting", "token")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Disconnect()

	var gotChat, gotPresence, gotSystem []relay.Envelope
	client.OnChat(func(env relay.Envelope) { gotChat = append(gotChat, env) })
	client.OnPresence(func(env relay.Envelope) { gotPresence = append(gotPresence, env) })
	client.OnSystem(func(env relay.Envelope) { gotSystem = append(gotSystem, env) })

	client.dispatch([]byte(`{"type":"chat","room_id":"r1","content":"hi"}`))
	client.dispatch([]byte(`{"type":"presence","room_id":"r1","event":"joined"}`))
	client.dispatch([]byte(`{"type":"system","content":"closed"}`))
	client.dispatch([]byte(`{"type":"no-such-kind"}`))
	client.dispatch([]byte(`not json`))

	if len(gotChat) != 1 || gotChat[0].Content != "hi" {
		t.Errorf("chat handler got %v, want one envelope with content %q", gotChat, "hi")
	}
	if len(gotPresence) != 1 || gotPresence[0].Event != relay.PresenceJoined {
		t.Errorf("presence handler got %v, want one joined event", gotPresence)
	}
	if len(gotSystem) != 1 {
		t.Errorf("system handler got %d envelopes, want 1", len(gotSystem))
	}
}

func TestClient_HandlerReplacement(t *testing.T) {
	client, err := New("ws://127.0.0.1:1/ws/meeting", "token")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Disconnect()

	firstCalled := false
	secondCalled := false
	client.OnChat(func(relay.Envelope) { firstCalled = true })
	client.OnChat(func(relay.Envelope) { secondCalled = true })

	client.dispatch([]byte(`{"type":"chat","content":"x"}`))

	if firstCalled {
		t.Error("replaced handler should not fire")
	}
	if !secondCalled {
		t.Error("current handler should fire")
	}
}

func TestClient_ForceOfflineStopsReconnect(t *testing.T) {
	client, err := New("ws://127.0.0.1:1/ws/meeting", "token")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var got []relay.Envelope
	client.OnForceOffline(func(env relay.Envelope) { got = append(got, env) })

	client.dispatch([]byte(`{"type":"force_offline","reason":"banned"}`))

	if len(got) != 1 || got[0].Reason != "banned" {
		t.Fatalf("force offline handler got %v", got)
	}
	if state := client.State(); state != StateDisconnected {
		t.Errorf("State() = %v, want StateDisconnected", state)
	}
	if err := client.Connect(); !errors.Is(err, ErrClosed) {
		t.Errorf("Connect() after forced offline error = %v, want ErrClosed", err)
	}
}

func TestClient_ReceivesFromLiveServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var tokenSeen string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenSeen = r.URL.Query().Get("token")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		env := relay.Envelope{Type: relay.KindChat, RoomID: "r1", Content: "welcome", Username: "alice"}
		data, _ := json.Marshal(env)
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client, err := New("ws"+strings.TrimPrefix(server.URL, "http"), "secret-token")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Disconnect()

	received := make(chan relay.Envelope, 1)
	client.OnChat(func(env relay.Envelope) { received <- env })

	if err := client.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if state := client.State(); state != StateConnected {
		t.Errorf("State() = %v, want StateConnected", state)
	}

	select {
	case env := <-received:
		if env.Content != "welcome" || env.Username != "alice" {
			t.Errorf("received %+v", env)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat envelope")
	}

	if tokenSeen != "secret-token" {
		t.Errorf("server saw token %q, want %q", tokenSeen, "secret-token")
	}
}
