package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/user/cliprec/pkg/adapters/logger"
	"github.com/user/cliprec/pkg/pipeline"
	"github.com/user/cliprec/pkg/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeController struct {
	mu      sync.Mutex
	events  []pipeline.Event
	results map[pipeline.Event]error
	snap    pipeline.Snapshot
	subs    chan pipeline.Snapshot
}

func newFakeController() *fakeController {
	return &fakeController{
		results: map[pipeline.Event]error{},
		snap:    pipeline.Snapshot{SessionID: "s1", State: pipeline.StateIdle, Version: 1},
		subs:    make(chan pipeline.Snapshot, 4),
	}
}

func (f *fakeController) Do(ctx context.Context, ev pipeline.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.results[ev]
}

func (f *fakeController) Snapshot() pipeline.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeController) Subscribe() (<-chan pipeline.Snapshot, func()) {
	f.subs <- f.Snapshot()
	return f.subs, func() {}
}

func (f *fakeController) Events() []pipeline.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pipeline.Event(nil), f.events...)
}

type fakePreview struct {
	img *router.PreviewImage
}

func (f *fakePreview) Latest() (*router.PreviewImage, bool) {
	return f.img, f.img != nil
}

func newTestServer(ctrl Controller, preview Previewer) *Server {
	return New(ctrl, preview, Options{}, logger.NewNoop())
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Status(t *testing.T) {
	ctrl := newFakeController()
	ctrl.snap.Playlist = []pipeline.Segment{
		{ID: 1, FrameCount: 60, Duration: 2 * time.Second},
		{ID: 3, FrameCount: 30, Duration: time.Second},
	}
	s := newTestServer(ctrl, nil)

	w := do(t, s.Handler(), http.MethodGet, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var st Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if st.SessionID != "s1" || st.State != "idle" || st.Clips != 2 {
		t.Errorf("unexpected status %+v", st)
	}
	if st.TotalSeconds != 3 {
		t.Errorf("expected 3s total, got %v", st.TotalSeconds)
	}
	if st.Segments[1].ID != 3 || st.Segments[1].Frames != 30 {
		t.Errorf("unexpected segment %+v", st.Segments[1])
	}
}

func TestServer_Control(t *testing.T) {
	tests := []struct {
		path   string
		result error
		code   int
	}{
		{"/api/control/start", nil, http.StatusAccepted},
		{"/api/control/stop", pipeline.ErrIgnored, http.StatusOK},
		{"/api/control/finish", pipeline.ErrEmptyPlaylist, http.StatusConflict},
		{"/api/control/undo", fmt.Errorf("%w: recording", pipeline.ErrInvalidState), http.StatusConflict},
		{"/api/control/jump", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ctrl := newFakeController()
			if ev, err := pipeline.ParseEvent(strings.TrimPrefix(tt.path, "/api/control/")); err == nil {
				ctrl.results[ev] = tt.result
			}
			s := newTestServer(ctrl, nil)

			w := do(t, s.Handler(), http.MethodPost, tt.path)
			if w.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestServer_ControlMethod(t *testing.T) {
	s := newTestServer(newFakeController(), nil)
	if w := do(t, s.Handler(), http.MethodGet, "/api/control/start"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for GET, got %d", w.Code)
	}
}

func TestServer_Preview(t *testing.T) {
	s := newTestServer(newFakeController(), nil)
	if w := do(t, s.Handler(), http.MethodGet, "/api/preview.jpg"); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 without preview, got %d", w.Code)
	}

	p := &fakePreview{}
	s = newTestServer(newFakeController(), p)
	if w := do(t, s.Handler(), http.MethodGet, "/api/preview.jpg"); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 before first frame, got %d", w.Code)
	}

	p.img = &router.PreviewImage{Seq: 42, JPEG: []byte{0xFF, 0xD8, 0xFF, 0xD9}}
	w := do(t, s.Handler(), http.MethodGet, "/api/preview.jpg")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("unexpected content type %q", ct)
	}
	if seq := w.Header().Get("X-Frame-Seq"); seq != "42" {
		t.Errorf("expected seq 42, got %q", seq)
	}
	if w.Body.Len() != 4 {
		t.Errorf("expected 4 bytes, got %d", w.Body.Len())
	}
}

func TestServer_Index(t *testing.T) {
	s := newTestServer(newFakeController(), nil)
	w := do(t, s.Handler(), http.MethodGet, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Hold <b>Space</b> to record") {
		t.Error("index page missing key bindings")
	}
}

func dial(t *testing.T, s *Server) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial failed: %v", err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

func TestWebSocket_StatusAndKeys(t *testing.T) {
	ctrl := newFakeController()
	ctrl.results[pipeline.EventFinish] = pipeline.ErrEmptyPlaylist
	s := newTestServer(ctrl, nil)
	conn, cleanup := dial(t, s)
	defer cleanup()

	msg := readMessage(t, conn)
	if msg.Type != MsgStatus || msg.Status == nil || msg.Status.SessionID != "s1" {
		t.Fatalf("expected initial status, got %+v", msg)
	}

	conn.WriteJSON(Message{Type: MsgKey, Key: "Space", Action: KeyDown})
	if ack := readMessage(t, conn); ack.Type != MsgAck || ack.Event != "start" || ack.Error != "" {
		t.Errorf("unexpected ack %+v", ack)
	}

	conn.WriteJSON(Message{Type: MsgKey, Key: "Space", Action: KeyUp})
	if ack := readMessage(t, conn); ack.Event != "stop" {
		t.Errorf("unexpected ack %+v", ack)
	}

	conn.WriteJSON(Message{Type: MsgEvent, Event: "finish"})
	if ack := readMessage(t, conn); ack.Event != "finish" || ack.Error == "" {
		t.Errorf("expected rejected finish, got %+v", ack)
	}

	conn.WriteJSON(Message{Type: MsgKey, Key: "KeyQ", Action: KeyDown})
	if ack := readMessage(t, conn); ack.Error != "unknown input" {
		t.Errorf("expected unknown input, got %+v", ack)
	}

	ctrl.subs <- pipeline.Snapshot{SessionID: "s1", State: pipeline.StateRecording, Version: 2}
	if msg := readMessage(t, conn); msg.Type != MsgStatus || !msg.Status.Recording {
		t.Errorf("expected recording status, got %+v", msg)
	}

	want := []pipeline.Event{pipeline.EventStart, pipeline.EventStop, pipeline.EventFinish}
	got := ctrl.Events()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestWebSocket_DisconnectWhileHolding(t *testing.T) {
	ctrl := newFakeController()
	s := newTestServer(ctrl, nil)
	conn, cleanup := dial(t, s)
	defer cleanup()

	readMessage(t, conn)
	conn.WriteJSON(Message{Type: MsgKey, Key: "Space", Action: KeyDown})
	readMessage(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ev := ctrl.Events()
		if len(ev) == 2 && ev[1] == pipeline.EventStop {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("expected stop after disconnect, got %v", ctrl.Events())
}

func TestKeyEvent(t *testing.T) {
	tests := []struct {
		key, action string
		want        pipeline.Event
		ok          bool
	}{
		{"Space", KeyDown, pipeline.EventStart, true},
		{"space", KeyUp, pipeline.EventStop, true},
		{"Backspace", KeyDown, pipeline.EventUndo, true},
		{"Backspace", KeyUp, 0, false},
		{"Enter", KeyDown, pipeline.EventFinish, true},
		{"NumpadEnter", KeyDown, pipeline.EventFinish, true},
		{"KeyA", KeyDown, 0, false},
	}
	for _, tt := range tests {
		got, ok := KeyEvent(tt.key, tt.action)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("KeyEvent(%q, %q) = %v, %v", tt.key, tt.action, got, ok)
		}
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusAccepted},
		{pipeline.ErrIgnored, http.StatusOK},
		{pipeline.ErrRecorderBusy, http.StatusServiceUnavailable},
		{pipeline.ErrSessionClosed, http.StatusGone},
		{context.Canceled, http.StatusRequestTimeout},
		{fmt.Errorf("%w: no camera", pipeline.ErrEncoderSpawn), http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
