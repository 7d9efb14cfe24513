package channel

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/jwulff/meetsync/internal/errs"
)

// startMockRelay creates a Unix socket that accepts one connection, reads the
// join line, then writes back the canned lines and closes.
func startMockRelay(t *testing.T, lines []string) (string, <-chan string) {
	t.Helper()

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() {
		ln.Close()
		os.Remove(sockPath)
	})

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		r := bufio.NewReader(conn)
		join, err := r.ReadString('\n')
		if err != nil {
			return
		}
		received <- strings.TrimSpace(join)

		for _, l := range lines {
			conn.Write([]byte(l + "\n"))
		}
	}()

	return sockPath, received
}

func TestClientJoinAndRead(t *testing.T) {
	sockPath, received := startMockRelay(t, []string{
		`{"event":"connected"}`,
		`{"event":"joined_meeting","data":{"meeting_id":"m-1"}}`,
		`{"event":"transcript_update","data":{"meeting_id":"m-1","transcript":{"text":"hi","is_final":false}}}`,
	})

	client, err := Dial(context.Background(), "unix://"+sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if err := client.Join("m-1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	join := <-received
	if join != `{"event":"join_meeting","data":{"meeting_id":"m-1"}}` {
		t.Errorf("join line = %s", join)
	}

	ev, err := client.Next()
	if err != nil {
		t.Fatalf("read connected: %v", err)
	}
	if ev.Event != EventConnected {
		t.Errorf("event = %q, want %q", ev.Event, EventConnected)
	}

	ev, err = client.Next()
	if err != nil {
		t.Fatalf("read joined: %v", err)
	}
	if ev.Event != EventJoinedMeeting || ev.MeetingID() != "m-1" {
		t.Errorf("joined = %+v", ev)
	}

	ev, err = client.Next()
	if err != nil {
		t.Fatalf("read update: %v", err)
	}
	var upd TranscriptUpdate
	if err := ev.Decode(&upd); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if upd.MeetingID != "m-1" || !strings.Contains(string(upd.Transcript), `"hi"`) {
		t.Errorf("update = %+v", upd)
	}

	// Server closed the connection after the canned lines.
	_, err = client.Next()
	if !errors.Is(err, errs.ErrTransportDisconnected) {
		t.Errorf("err after close = %v, want transport disconnected", err)
	}
}

func TestClientMalformedLineKeepsConnection(t *testing.T) {
	sockPath, _ := startMockRelay(t, []string{
		`{not json`,
		`{"event":"connected"}`,
	})

	client, err := Dial(context.Background(), sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	if err := client.Join("m-1"); err != nil {
		t.Fatalf("join: %v", err)
	}

	_, err = client.Next()
	if !errors.Is(err, errs.ErrMalformedFragment) {
		t.Fatalf("err = %v, want malformed fragment", err)
	}
	ev, err := client.Next()
	if err != nil {
		t.Fatalf("next after malformed: %v", err)
	}
	if ev.Event != EventConnected {
		t.Errorf("event = %q, want %q", ev.Event, EventConnected)
	}
}

func TestClientConnectFailure(t *testing.T) {
	_, err := Dial(context.Background(), "unix:///nonexistent/path/live.sock")
	if !errors.Is(err, errs.ErrTransportDisconnected) {
		t.Errorf("err = %v, want transport disconnected", err)
	}
}

func TestClientUnsupportedScheme(t *testing.T) {
	if _, err := Dial(context.Background(), "ftp://example.com"); err == nil {
		t.Error("expected error for ftp scheme")
	}
}

func TestClientWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	joined := make(chan MeetingRef, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(Envelope{Event: EventConnected})

		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		var ref MeetingRef
		json.Unmarshal(env.Data, &ref)
		joined <- ref

		data, _ := json.Marshal(TranscriptUpdate{
			MeetingID:  ref.MeetingID,
			Transcript: json.RawMessage(`{"text":"done","is_final":true}`),
		})
		conn.WriteJSON(Envelope{Event: EventTranscriptUpdate, Data: data})

		// Wait for the client to hang up.
		conn.ReadMessage()
	}))
	defer srv.Close()

	addr := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := Dial(context.Background(), addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ev, err := client.Next()
	if err != nil || ev.Event != EventConnected {
		t.Fatalf("first event = %+v, %v", ev, err)
	}

	if err := client.Join("m-9"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if ref := <-joined; ref.MeetingID != "m-9" {
		t.Errorf("server saw meeting %q, want m-9", ref.MeetingID)
	}

	ev, err = client.Next()
	if err != nil {
		t.Fatalf("read update: %v", err)
	}
	if ev.Event != EventTranscriptUpdate || ev.MeetingID() != "m-9" {
		t.Errorf("update = %+v", ev)
	}
}
