// Package mcpserver exposes the local transcript cache as MCP tools over
// stdio, so assistants can list meetings, read transcripts and ask what was
// being said at a given moment.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/jwulff/meetsync/internal/db"
	"github.com/jwulff/meetsync/internal/logging"
	"github.com/jwulff/meetsync/internal/transcript"
)

// Store is the read side of the transcript cache.
type Store interface {
	Meetings(ctx context.Context) ([]db.Meeting, error)
	Meeting(ctx context.Context, id string) (*db.Meeting, error)
	Transcript(ctx context.Context, meetingID string) ([]transcript.Segment, error)
}

type handlers struct {
	store Store
	log   zerolog.Logger
}

// New returns an MCP server with the cache tools registered.
func New(store Store, version string, log zerolog.Logger) *server.MCPServer {
	h := &handlers{store: store, log: logging.WithComponent(log, "mcp")}

	s := server.NewMCPServer("meetsync", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("list_meetings",
		mcp.WithDescription("List cached meetings, most recently updated first."),
	), h.listMeetings)

	s.AddTool(mcp.NewTool("get_transcript",
		mcp.WithDescription("Return a meeting's transcript as timestamped lines."),
		mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
		mcp.WithNumber("from", mcp.Description("Only segments ending after this many seconds")),
		mcp.WithNumber("to", mcp.Description("Only segments starting before this many seconds")),
	), h.getTranscript)

	s.AddTool(mcp.NewTool("segment_at",
		mcp.WithDescription("Resolve the segment and word being spoken at a moment of a meeting."),
		mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting ID")),
		mcp.WithNumber("t", mcp.Required(), mcp.Description("Seconds from the start of the recording")),
	), h.segmentAt)

	return s
}

// Serve runs the server on stdin and stdout until the client disconnects.
func Serve(store Store, version string, log zerolog.Logger) error {
	return server.ServeStdio(New(store, version, log))
}

type meetingJSON struct {
	ID        string `json:"meeting_id"`
	Title     string `json:"title,omitempty"`
	Status    string `json:"status,omitempty"`
	Segments  int    `json:"segments"`
	UpdatedAt string `json:"updated_at"`
}

func (h *handlers) listMeetings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	meetings, err := h.store.Meetings(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("list meetings")
		return mcp.NewToolResultError(fmt.Sprintf("list meetings: %v", err)), nil
	}
	out := make([]meetingJSON, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, meetingJSON{
			ID:        m.ID,
			Title:     m.Title,
			Status:    m.Status,
			Segments:  m.Segments,
			UpdatedAt: m.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return jsonResult(out)
}

func (h *handlers) getTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("meeting_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	segs, res := h.load(ctx, id)
	if res != nil {
		return res, nil
	}

	from := req.GetFloat("from", 0)
	to := req.GetFloat("to", -1)

	var b strings.Builder
	for _, seg := range segs {
		if seg.Timed() && seg.EndTime <= from {
			continue
		}
		if to >= 0 && seg.StartTime >= to {
			break
		}
		b.WriteString("[")
		b.WriteString(transcript.FormatTime(seg.StartTime))
		b.WriteString("] ")
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(seg.DisplayText())
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("no segments in range"), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

type positionJSON struct {
	T       float64 `json:"t"`
	Segment int     `json:"segment"`
	Word    int     `json:"word"`
	Speaker string  `json:"speaker,omitempty"`
	Start   float64 `json:"start_time,omitempty"`
	End     float64 `json:"end_time,omitempty"`
	Text    string  `json:"text,omitempty"`
	Current string  `json:"word_text,omitempty"`
}

func (h *handlers) segmentAt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("meeting_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	t, err := req.RequireFloat("t")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	segs, res := h.load(ctx, id)
	if res != nil {
		return res, nil
	}

	p := transcript.New(segs).Resolve(t)
	out := positionJSON{T: t, Segment: p.Segment, Word: p.Word}
	if p.Active() {
		seg := segs[p.Segment]
		out.Speaker = seg.Speaker
		out.Start = seg.StartTime
		out.End = seg.EndTime
		out.Text = seg.DisplayText()
		if p.Word >= 0 {
			out.Current = seg.Words[p.Word].Text
		}
	}
	return jsonResult(out)
}

// load returns a meeting's segments, or a tool error result.
func (h *handlers) load(ctx context.Context, id string) ([]transcript.Segment, *mcp.CallToolResult) {
	m, err := h.store.Meeting(ctx, id)
	if err != nil {
		h.log.Error().Err(err).Str("meeting", id).Msg("load meeting")
		return nil, mcp.NewToolResultError(fmt.Sprintf("load meeting: %v", err))
	}
	if m == nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("meeting %s is not cached", id))
	}
	segs, err := h.store.Transcript(ctx, id)
	if err != nil {
		h.log.Error().Err(err).Str("meeting", id).Msg("load transcript")
		return nil, mcp.NewToolResultError(fmt.Sprintf("load transcript: %v", err))
	}
	return segs, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
