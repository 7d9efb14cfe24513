package channel

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jwulff/meetsync/internal/errs"
)

// SocketPath returns the default local relay socket path.
func SocketPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "meetsync", "live.sock")
}

// framer moves whole envelopes over a connection.
type framer interface {
	write(Envelope) error
	read() (Envelope, error)
	close() error
}

// Client is a connection to the live channel. Writes are serialized; reads
// must come from a single goroutine.
type Client struct {
	f  framer
	mu sync.Mutex
}

// Dial connects to addr. ws:// and wss:// use WebSocket framing; unix://,
// tcp:// and bare paths use newline-delimited JSON.
func Dial(ctx context.Context, addr string) (*Client, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse channel address: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
		if err != nil {
			return nil, errs.TransportDisconnected(fmt.Errorf("dial %s: %w", addr, err))
		}
		return &Client{f: &wsFramer{conn: conn}}, nil
	case "tcp":
		return dialStream(ctx, "tcp", u.Host)
	case "unix":
		return dialStream(ctx, "unix", u.Host+u.Path)
	case "":
		return dialStream(ctx, "unix", addr)
	}
	return nil, fmt.Errorf("unsupported channel scheme %q", u.Scheme)
}

func dialStream(ctx context.Context, network, address string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, errs.TransportDisconnected(fmt.Errorf("connect to %s: %w", address, err))
	}
	return &Client{f: newLineFramer(conn)}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.f != nil {
		return c.f.close()
	}
	return nil
}

// Send writes one envelope.
func (c *Client) Send(event string, data any) error {
	env, err := NewEnvelope(event, data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.f.write(env); err != nil {
		return errs.TransportDisconnected(fmt.Errorf("write %s: %w", event, err))
	}
	return nil
}

// Join subscribes to a meeting's transcript updates.
func (c *Client) Join(meetingID string) error {
	return c.Send(EventJoinMeeting, MeetingRef{MeetingID: meetingID})
}

// Leave unsubscribes from a meeting.
func (c *Client) Leave(meetingID string) error {
	return c.Send(EventLeaveMeeting, MeetingRef{MeetingID: meetingID})
}

// Next reads the next envelope. Blocks until data arrives. An undecodable
// message is reported as MalformedFragment and the connection stays usable; a
// closed or broken connection is reported as TransportDisconnected.
func (c *Client) Next() (Envelope, error) {
	env, err := c.f.read()
	if err != nil {
		if errors.Is(err, errs.ErrMalformedFragment) {
			return Envelope{}, err
		}
		return Envelope{}, errs.TransportDisconnected(err)
	}
	return env, nil
}

func decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, errs.MalformedFragment(fmt.Sprintf("undecodable message: %v", err))
	}
	return env, nil
}

// lineFramer carries one JSON envelope per line.
type lineFramer struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

func newLineFramer(conn net.Conn) *lineFramer {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer
	return &lineFramer{conn: conn, scanner: scanner}
}

func (l *lineFramer) write(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	data = append(data, '\n')
	_, err = l.conn.Write(data)
	return err
}

func (l *lineFramer) read() (Envelope, error) {
	for l.scanner.Scan() {
		line := strings.TrimSpace(l.scanner.Text())
		if line == "" {
			continue
		}
		return decode([]byte(line))
	}
	if err := l.scanner.Err(); err != nil {
		return Envelope{}, fmt.Errorf("read event: %w", err)
	}
	return Envelope{}, fmt.Errorf("connection closed")
}

func (l *lineFramer) close() error { return l.conn.Close() }

// wsFramer carries one JSON envelope per text frame.
type wsFramer struct {
	conn *websocket.Conn
}

func (w *wsFramer) write(env Envelope) error { return w.conn.WriteJSON(env) }

func (w *wsFramer) read() (Envelope, error) {
	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			return Envelope{}, fmt.Errorf("read event: %w", err)
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		return decode(data)
	}
}

func (w *wsFramer) close() error {
	_ = w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return w.conn.Close()
}
