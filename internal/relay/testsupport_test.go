package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeConn is an in-memory wsConn for exercising clients without a network.
// Frames pushed with queueFrame are returned from ReadMessage; written frames
// are recorded for inspection.
type fakeConn struct {
	mu        sync.Mutex
	written   [][]byte
	closed    bool
	readCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		readCh:  make(chan []byte, 16),
		closeCh: make(chan struct{}),
	}
}

func (f *fakeConn) queueFrame(frame []byte) {
	f.readCh <- frame
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame := <-f.readCh:
		return 1, frame, nil
	case <-f.closeCh:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("use of closed network connection")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.written = append(f.written, buf)
	return nil
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.closeCh)
	})
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) writtenFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := make([][]byte, len(f.written))
	copy(frames, f.written)
	return frames
}

// newTestClient builds a client over a fake transport. It does not register
// the client or start pumps; tests drive those steps explicitly.
func newTestClient(hub *Hub, userID string) (*Client, *fakeConn) {
	conn := newFakeConn()
	return NewClient(conn, hub, userID, "127.0.0.1:12345"), conn
}

// recvEvent pops the next queued outbound frame from the client's send
// channel and decodes its envelope.
func recvEvent(t *testing.T, c *Client) Envelope {
	t.Helper()

	select {
	case frame := <-c.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("decoding outbound frame: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outbound event")
		return Envelope{}
	}
}

// expectNoEvent asserts that nothing is queued for the client.
func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case frame := <-c.send:
		t.Fatalf("unexpected outbound frame: %s", frame)
	default:
	}
}

func decodeData(t *testing.T, env Envelope, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decoding %s payload: %v", env.Event, err)
	}
}
