// Package channel provides the client and protocol types for the persistent
// live-transcript channel: JSON envelopes carried either as WebSocket text
// frames or as NDJSON over a stream socket.
package channel

import (
	"encoding/json"
	"fmt"
)

// Event names.
const (
	EventJoinMeeting      = "join_meeting"
	EventLeaveMeeting     = "leave_meeting"
	EventConnected        = "connected"
	EventJoinedMeeting    = "joined_meeting"
	EventTranscriptUpdate = "transcript_update"
)

// Envelope is one message in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// MeetingRef is the payload of join, leave and joined events.
type MeetingRef struct {
	MeetingID string `json:"meeting_id"`
}

// TranscriptUpdate is the payload of transcript_update. Transcript is kept
// raw so the receiver decides how to treat malformed fragments.
type TranscriptUpdate struct {
	MeetingID  string          `json:"meeting_id"`
	Transcript json.RawMessage `json:"transcript"`
}

// NewEnvelope marshals data into an envelope for event.
func NewEnvelope(event string, data any) (Envelope, error) {
	if data == nil {
		return Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", event, err)
	}
	return Envelope{Event: event, Data: raw}, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: empty data", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", e.Event, err)
	}
	return nil
}

// MeetingID returns the meeting id carried by the payload, if any.
func (e Envelope) MeetingID() string {
	var ref MeetingRef
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &ref) != nil {
		return ""
	}
	return ref.MeetingID
}
