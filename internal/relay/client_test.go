package relay

import (
	"encoding/json"
	"testing"
	"time"
)

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

// TestTeardownExactlyOnce verifies that repeated teardown of one connection
// removes its registry entry and announces offline exactly once.
func TestTeardownExactlyOnce(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry)

	alice, aliceConn := newTestClient(hub, "alice")
	observer, _ := newTestClient(hub, "bob")
	registry.Register("alice", alice)
	registry.Register("bob", observer)

	alice.teardown()
	alice.teardown()

	if !aliceConn.isClosed() {
		t.Error("transport not closed by teardown")
	}
	if _, ok := registry.Lookup("alice"); ok {
		t.Error("registry entry survived teardown")
	}

	env := recvEvent(t, observer)
	if env.Event != EventUserStatus {
		t.Fatalf("observer received %q, want %q", env.Event, EventUserStatus)
	}
	var status UserStatusPayload
	decodeData(t, env, &status)
	if status.UserID != "alice" || status.Status != StatusOffline {
		t.Errorf("userStatus payload = %+v, want alice offline", status)
	}
	expectNoEvent(t, observer)
}

// TestSupersededTeardownStaysSilent verifies that closing a superseded
// connection neither announces offline nor disturbs the new registration.
func TestSupersededTeardownStaysSilent(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry)

	first, firstConn := newTestClient(hub, "alice")
	second, _ := newTestClient(hub, "alice")
	observer, _ := newTestClient(hub, "bob")
	registry.Register("alice", first)
	registry.Register("alice", second)
	registry.Register("bob", observer)

	first.supersede()

	if !firstConn.isClosed() {
		t.Error("superseded transport not closed")
	}
	if got, ok := registry.Lookup("alice"); !ok || got != second {
		t.Error("supersede disturbed the replacement's registry entry")
	}
	expectNoEvent(t, observer)
}

// TestTrySendFullBuffer verifies best-effort delivery: a full send buffer
// drops the frame instead of blocking.
func TestTrySendFullBuffer(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry)
	alice, _ := newTestClient(hub, "alice")

	frame := []byte(`{"event":"userStatus"}`)
	for alice.trySend(frame) {
	}

	if alice.trySend(frame) {
		t.Error("trySend succeeded on a full buffer")
	}
}

// TestHandleFrameInvalidJSON verifies a malformed frame is dropped without
// tearing the connection down.
func TestHandleFrameInvalidJSON(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry)
	alice, aliceConn := newTestClient(hub, "alice")
	registry.Register("alice", alice)

	alice.handleFrame([]byte(`{"event":`))

	if aliceConn.isClosed() {
		t.Error("malformed frame tore down the connection")
	}
	if _, ok := registry.Lookup("alice"); !ok {
		t.Error("malformed frame removed the registry entry")
	}
}

// TestAdmitLifecycle drives a full connection lifetime over a fake transport:
// admission announces online and ships the snapshot, inbound frames are
// routed, and a transport failure mid-stream still runs teardown exactly once.
func TestAdmitLifecycle(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry)

	observer, _ := newTestClient(hub, "bob")
	registry.Register("bob", observer)

	alice, aliceConn := newTestClient(hub, "alice")
	hub.Admit(alice)

	// Peers see the online announcement first.
	env := recvEvent(t, observer)
	if env.Event != EventUserStatus {
		t.Fatalf("observer received %q first, want %q", env.Event, EventUserStatus)
	}
	var status UserStatusPayload
	decodeData(t, env, &status)
	if status.UserID != "alice" || status.Status != StatusOnline {
		t.Errorf("userStatus payload = %+v, want alice online", status)
	}

	// The new arrival gets its own online announcement and then the snapshot,
	// flushed through the write pump.
	waitFor(t, "snapshot delivery", func() bool {
		return len(aliceConn.writtenFrames()) >= 2
	})
	var snapshot Envelope
	if err := json.Unmarshal(aliceConn.writtenFrames()[1], &snapshot); err != nil {
		t.Fatalf("decoding snapshot frame: %v", err)
	}
	if snapshot.Event != EventOnlineUsers {
		t.Fatalf("second frame to new arrival is %q, want %q", snapshot.Event, EventOnlineUsers)
	}
	var ids []string
	decodeData(t, snapshot, &ids)
	if len(ids) != 2 || ids[0] != "alice" || ids[1] != "bob" {
		t.Errorf("onlineUsers payload = %v, want [alice bob]", ids)
	}

	// Inbound frames are routed to the addressed peer.
	aliceConn.queueFrame([]byte(`{"event":"privateMessage","data":{"recipientId":"bob","message":"hi"}}`))
	env = recvEvent(t, observer)
	if env.Event != EventNewMessage {
		t.Fatalf("observer received %q, want %q", env.Event, EventNewMessage)
	}

	// Transport failure runs the teardown path: entry removed, offline
	// announced once.
	_ = aliceConn.Close()
	env = recvEvent(t, observer)
	if env.Event != EventUserStatus {
		t.Fatalf("observer received %q, want %q", env.Event, EventUserStatus)
	}
	decodeData(t, env, &status)
	if status.UserID != "alice" || status.Status != StatusOffline {
		t.Errorf("userStatus payload = %+v, want alice offline", status)
	}

	waitFor(t, "registry cleanup", func() bool {
		_, ok := registry.Lookup("alice")
		return !ok
	})
	expectNoEvent(t, observer)
}
