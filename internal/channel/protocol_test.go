package channel

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeJoinShape(t *testing.T) {
	env, err := NewEnvelope(EventJoinMeeting, MeetingRef{MeetingID: "abc"})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"event":"join_meeting","data":{"meeting_id":"abc"}}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestEnvelopeOmitsEmptyData(t *testing.T) {
	env, err := NewEnvelope(EventConnected, nil)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	data, _ := json.Marshal(env)

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if _, ok := raw["data"]; ok {
		t.Error("connected envelope should omit data")
	}
}

func TestEnvelopeMeetingID(t *testing.T) {
	var env Envelope
	line := `{"event":"transcript_update","data":{"meeting_id":"m-2","transcript":{"text":"x","is_final":true}}}`
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := env.MeetingID(); got != "m-2" {
		t.Errorf("MeetingID = %q, want %q", got, "m-2")
	}
	if got := (Envelope{Event: EventConnected}).MeetingID(); got != "" {
		t.Errorf("MeetingID without data = %q, want empty", got)
	}
}

func TestEnvelopeDecodeEmpty(t *testing.T) {
	var upd TranscriptUpdate
	if err := (Envelope{Event: EventTranscriptUpdate}).Decode(&upd); err == nil {
		t.Error("expected error decoding empty data")
	}
}
