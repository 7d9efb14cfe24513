// Package backend is the REST client for the meeting server: meetings,
// audio upload, meeting bots, transcripts and summaries.
package backend

import "github.com/jwulff/meetsync/internal/transcript"

// Meeting types and platforms.
const (
	TypePhysical = "physical"
	TypeOnline   = "online"

	PlatformRecording = "recording"
	PlatformUpload    = "upload"
)

// Meeting is the server's meeting record.
type Meeting struct {
	ID          string  `json:"meeting_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	MeetingType string  `json:"meeting_type,omitempty"`
	Platform    string  `json:"platform,omitempty"`
	Status      string  `json:"status,omitempty"`
	JoinURL     string  `json:"join_url,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// NewMeeting is the body of a create request.
type NewMeeting struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	MeetingType string `json:"meeting_type,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Status      string `json:"status,omitempty"`
}

// BotStatus is the polled state of a meeting bot. A bot that has left or
// never joined reports status "inactive" and nothing else.
type BotStatus struct {
	Status      string  `json:"status"`
	MeetingURL  string  `json:"meeting_url,omitempty"`
	BotName     string  `json:"bot_name,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	IsRecording bool    `json:"is_recording,omitempty"`
}

// Inactive reports whether the bot has ended.
func (b BotStatus) Inactive() bool { return b.Status == "inactive" }

// StartBot is the body of a bot start request.
type StartBot struct {
	MeetingID  string `json:"meeting_id"`
	MeetingURL string `json:"meeting_url"`
	BotName    string `json:"bot_name,omitempty"`
}

// StopResult is returned when a bot leaves.
type StopResult struct {
	MeetingID     string `json:"meeting_id"`
	RecordingPath string `json:"recording_path,omitempty"`
}

// Transcript is the server's detailed transcript.
type Transcript struct {
	MeetingID string               `json:"meeting_id,omitempty"`
	Segments  []transcript.Segment `json:"segments"`
}

// Summary is a structured meeting summary.
type Summary struct {
	MeetingID   string       `json:"meeting_id,omitempty"`
	Overview    Overview     `json:"overview"`
	ActionItems []ActionItem `json:"action_items"`
	Outline     []Topic      `json:"outline"`
	Keywords    []string     `json:"keywords"`
	Sentiment   string       `json:"sentiment"`
	Template    string       `json:"template,omitempty"`
	CreatedAt   string       `json:"created_at,omitempty"`
}

// Overview is the prose part of a summary.
type Overview struct {
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
}

// ActionItem is one follow-up from a meeting.
type ActionItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Assignee  string `json:"assignee,omitempty"`
	Deadline  string `json:"deadline,omitempty"`
	Completed bool   `json:"completed"`
}

// Topic is one outline entry.
type Topic struct {
	Topic     string   `json:"topic"`
	Timestamp float64  `json:"timestamp"` // seconds from start
	Duration  float64  `json:"duration,omitempty"`
	Subtopics []string `json:"subtopics,omitempty"`
}
