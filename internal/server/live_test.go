package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claude/curlform/internal/curl"
	"github.com/claude/curlform/internal/models"
	"github.com/gorilla/websocket"
)

func liveURL(t *testing.T, srv *Server, query string) string {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/live" + query
}

func dialLive(t *testing.T, srv *Server, query string) *websocket.Conn {
	t.Helper()
	return dialLiveWith(t, srv, query, nil)
}

func dialLiveWith(t *testing.T, srv *Server, query string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(liveURL(t, srv, query), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// rawMessage mirrors liveMessage with the payloads left undecoded where the
// types only implement marshaling.
type rawMessage struct {
	Type   string `json:"type"`
	Status *struct {
		Frame    int           `json:"frame"`
		Counters curl.Counters `json:"counters"`
	} `json:"status"`
	Rep *struct {
		Side    string `json:"side"`
		Index   int    `json:"index"`
		Correct bool   `json:"correct"`
	} `json:"rep"`
	Result *struct {
		AnalysisID string `json:"analysis_id"`
		TotalReps  int    `json:"total_reps"`
	} `json:"result"`
	Error string `json:"error"`
}

func read(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	var m rawMessage
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

// TestLiveSession verifies frames are answered with status snapshots, a
// counted rep is pushed before its status, and finish stores the session.
func TestLiveSession(t *testing.T) {
	store := &fakeStore{}
	conn := dialLiveWith(t, newTestServer(t, store), "?save=true&name=morning",
		http.Header{"X-Api-Key": {testAPIKey}})

	var reps []rawMessage
	var last rawMessage
	for _, f := range curlFrames() {
		if err := conn.WriteJSON(f); err != nil {
			t.Fatal(err)
		}
		for {
			m := read(t, conn)
			if m.Type == liveRep {
				reps = append(reps, m)
				continue
			}
			if m.Type != liveStatus {
				t.Fatalf("message = %+v, want status", m)
			}
			last = m
			break
		}
	}

	if len(reps) != 1 || reps[0].Rep.Side != "left" || !reps[0].Rep.Correct || reps[0].Rep.Index != 1 {
		t.Fatalf("reps = %+v, want one correct left rep", reps)
	}
	if last.Status.Counters.TotalReps != 1 || last.Status.Frame != len(curlAngles) {
		t.Errorf("last status = %+v", last.Status)
	}

	if err := conn.WriteJSON(map[string]string{"type": liveFinish}); err != nil {
		t.Fatal(err)
	}
	res := read(t, conn)
	if res.Type != liveResult || res.Result.TotalReps != 1 || res.Result.AnalysisID == "" {
		t.Fatalf("result = %+v", res)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.analyses) != 1 || store.analyses[0].Source != models.SourceLive || store.analyses[0].Name != "morning" {
		t.Errorf("stored = %+v", store.analyses)
	}
}

// TestLiveReset verifies a reset clears the counters of the connection's session.
func TestLiveReset(t *testing.T) {
	conn := dialLive(t, newTestServer(t, &fakeStore{}), "")

	frames := curlFrames()
	for _, f := range frames {
		conn.WriteJSON(f)
		for read(t, conn).Type != liveStatus {
		}
	}
	if err := conn.WriteJSON(map[string]string{"type": liveReset}); err != nil {
		t.Fatal(err)
	}
	m := read(t, conn)
	if m.Type != liveReset || m.Status.Counters.TotalReps != 0 || m.Status.Frame != 0 {
		t.Errorf("reset = %+v", m)
	}

	// Time restarts after a reset.
	conn.WriteJSON(frames[0])
	if m := read(t, conn); m.Type != liveStatus {
		t.Errorf("after reset = %+v, want status", m)
	}
}

// TestLiveOutOfOrder verifies a frame going back in time is reported and
// the connection stays usable.
func TestLiveOutOfOrder(t *testing.T) {
	conn := dialLive(t, newTestServer(t, &fakeStore{}), "")
	frames := curlFrames()

	conn.WriteJSON(frames[3])
	read(t, conn)
	conn.WriteJSON(frames[1])
	if m := read(t, conn); m.Type != liveError || !strings.Contains(m.Error, "precedes") {
		t.Errorf("message = %+v, want out-of-order error", m)
	}
	conn.WriteJSON(frames[4])
	if m := read(t, conn); m.Type != liveStatus || m.Status.Frame != 2 {
		t.Errorf("message = %+v, want status for frame 2", m)
	}
}

// TestLiveUnknownType verifies unknown control messages are reported.
func TestLiveUnknownType(t *testing.T) {
	conn := dialLive(t, newTestServer(t, &fakeStore{}), "")
	conn.WriteJSON(map[string]string{"type": "pause"})
	if m := read(t, conn); m.Type != liveError {
		t.Errorf("message = %+v, want error", m)
	}
}

// TestLiveSaveRequiresKey verifies a saving session is refused before the
// upgrade unless it carries the ingest key.
func TestLiveSaveRequiresKey(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", http.Header{"X-Api-Key": {"nope"}}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			_, resp, err := websocket.DefaultDialer.Dial(liveURL(t, newTestServer(t, store), "?save=true"), tt.header)
			if err == nil {
				t.Fatal("dial succeeded without a valid key")
			}
			if resp == nil || resp.StatusCode != tt.want {
				t.Fatalf("response = %v, want status %d", resp, tt.want)
			}
			if len(store.analyses) != 0 {
				t.Errorf("stored %d analyses", len(store.analyses))
			}
		})
	}
}

// TestLiveRejectsForeignOrigin verifies browsers on other sites cannot open
// a live session.
func TestLiveRejectsForeignOrigin(t *testing.T) {
	header := http.Header{"Origin": {"http://evil.example"}, "X-Api-Key": {testAPIKey}}
	_, resp, err := websocket.DefaultDialer.Dial(liveURL(t, newTestServer(t, &fakeStore{}), "?save=true"), header)
	if err == nil {
		t.Fatal("dial from foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

// TestLiveFinishEndsSession verifies finish closes the connection so a
// session is stored at most once.
func TestLiveFinishEndsSession(t *testing.T) {
	store := &fakeStore{}
	conn := dialLiveWith(t, newTestServer(t, store), "?save=true", http.Header{"X-Api-Key": {testAPIKey}})
	for _, f := range curlFrames() {
		conn.WriteJSON(f)
		for read(t, conn).Type != liveStatus {
		}
	}
	conn.WriteJSON(map[string]string{"type": liveFinish})
	if m := read(t, conn); m.Type != liveResult {
		t.Fatalf("message = %+v, want result", m)
	}
	conn.WriteJSON(map[string]string{"type": liveFinish})

	var m rawMessage
	err := conn.ReadJSON(&m)
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read after finish = %+v, %v, want normal close", m, err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.analyses) != 1 {
		t.Errorf("stored %d analyses, want 1", len(store.analyses))
	}
}
