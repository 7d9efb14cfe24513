package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwulff/meetsync/internal/errs"
	"github.com/jwulff/meetsync/internal/logging"
)

const defaultTimeout = 120 * time.Second

// Client talks to the meeting server. Failures are reported as
// UpstreamUnavailable and never retried here.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = logging.WithComponent(l, "backend") }
}

// New returns a client for the server at baseURL. Routes live under /api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/") + "/api",
		http: &http.Client{Timeout: defaultTimeout},
		log:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

// CreateMeeting registers a new meeting.
func (c *Client) CreateMeeting(ctx context.Context, m NewMeeting) (Meeting, error) {
	var out struct {
		Meeting Meeting `json:"meeting"`
	}
	err := c.do(ctx, "create meeting", http.MethodPost, "/meetings", m, &out)
	return out.Meeting, err
}

// ListMeetings returns all meetings.
func (c *Client) ListMeetings(ctx context.Context) ([]Meeting, error) {
	var out struct {
		Meetings []Meeting `json:"meetings"`
	}
	err := c.do(ctx, "list meetings", http.MethodGet, "/meetings", nil, &out)
	return out.Meetings, err
}

// GetMeeting returns one meeting.
func (c *Client) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	var out struct {
		Meeting Meeting `json:"meeting"`
	}
	err := c.do(ctx, "get meeting", http.MethodGet, "/meetings/"+url.PathEscape(id), nil, &out)
	return out.Meeting, err
}

// UploadAudio uploads audio as the meeting's recording.
func (c *Client) UploadAudio(ctx context.Context, id, filename string, audio io.Reader) (Meeting, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return Meeting{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return Meeting{}, fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Meeting{}, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/meetings/"+url.PathEscape(id)+"/upload", &buf)
	if err != nil {
		return Meeting{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out struct {
		Meeting Meeting `json:"meeting"`
	}
	err = c.send(req, "upload audio", &out)
	return out.Meeting, err
}

// UploadFile uploads the audio file at path.
func (c *Client) UploadFile(ctx context.Context, id, path string) (Meeting, error) {
	f, err := os.Open(path)
	if err != nil {
		return Meeting{}, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()
	return c.UploadAudio(ctx, id, filepath.Base(path), f)
}

// StartBot sends a bot into an online meeting.
func (c *Client) StartBot(ctx context.Context, req StartBot) error {
	return c.do(ctx, "start bot", http.MethodPost, "/bots/start", req, nil)
}

// BotStatus polls a meeting bot.
func (c *Client) BotStatus(ctx context.Context, id string) (BotStatus, error) {
	var out BotStatus
	err := c.do(ctx, "bot status", http.MethodGet, "/bots/"+url.PathEscape(id)+"/status", nil, &out)
	return out, err
}

// ActiveBots lists bots currently in meetings, keyed by meeting id.
func (c *Client) ActiveBots(ctx context.Context) (map[string]BotStatus, error) {
	var out struct {
		Bots map[string]BotStatus `json:"bots"`
	}
	err := c.do(ctx, "active bots", http.MethodGet, "/bots/active", nil, &out)
	return out.Bots, err
}

// StopBot makes the bot leave its meeting.
func (c *Client) StopBot(ctx context.Context, id string) (StopResult, error) {
	var out StopResult
	err := c.do(ctx, "stop bot", http.MethodPost, "/bots/"+url.PathEscape(id)+"/stop", nil, &out)
	return out, err
}

// Transcript fetches the detailed transcript of a meeting.
func (c *Client) Transcript(ctx context.Context, id string) (Transcript, error) {
	var out struct {
		Transcript Transcript `json:"transcript"`
	}
	err := c.do(ctx, "get transcript", http.MethodGet, "/meetings/"+url.PathEscape(id)+"/transcript", nil, &out)
	return out.Transcript, err
}

// Summary fetches the structured summary of a meeting.
func (c *Client) Summary(ctx context.Context, id string) (Summary, error) {
	var out struct {
		Summary Summary `json:"summary"`
	}
	err := c.do(ctx, "get summary", http.MethodGet, "/meetings/"+url.PathEscape(id)+"/summary", nil, &out)
	return out.Summary, err
}

// Transcribe asks the server to transcribe the uploaded audio. An empty
// service uses the server default.
func (c *Client) Transcribe(ctx context.Context, id, service string) (Transcript, error) {
	var out struct {
		Transcript Transcript `json:"transcript"`
	}
	body := map[string]string{}
	if service != "" {
		body["service"] = service
	}
	err := c.do(ctx, "transcribe", http.MethodPost, "/meetings/"+url.PathEscape(id)+"/transcribe", body, &out)
	return out.Transcript, err
}

// Summarize asks the server to summarize the transcript with a template.
func (c *Client) Summarize(ctx context.Context, id, service, template string) (Summary, error) {
	var out struct {
		Summary Summary `json:"summary"`
	}
	body := map[string]string{}
	if service != "" {
		body["service"] = service
	}
	if template != "" {
		body["template"] = template
	}
	err := c.do(ctx, "summarize", http.MethodPost, "/meetings/"+url.PathEscape(id)+"/summarize", body, &out)
	return out.Summary, err
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, op, out)
}

func (c *Client) send(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("request failed")
		return errs.UpstreamUnavailable(op, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.UpstreamUnavailable(op, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	c.log.Debug().Str("op", op).Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.UpstreamUnavailable(op, resp.StatusCode, errors.New(errorMessage(data)))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errs.UpstreamUnavailable(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// errorMessage extracts the server's {"error": "..."} message, falling back
// to the raw body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}
