// Package live merges a meeting's live transcript stream into an append-only
// transcript: interim fragments replace a single provisional line, final
// fragments become segments. Session runs the channel subscription, the
// reconnect policy and the bot status poll around a Merger.
package live

import (
	"encoding/json"
	"fmt"

	"github.com/jwulff/meetsync/internal/errs"
	"github.com/jwulff/meetsync/internal/transcript"
)

// Fragment is one live transcription result.
type Fragment struct {
	Text    string
	Words   []transcript.Word
	IsFinal bool
}

type wireFragment struct {
	Text    *string           `json:"text"`
	Words   []transcript.Word `json:"words,omitempty"`
	IsFinal *bool             `json:"is_final"`
}

// ParseFragment decodes a fragment, requiring both text and is_final.
func ParseFragment(raw json.RawMessage) (Fragment, error) {
	if len(raw) == 0 {
		return Fragment{}, errs.MalformedFragment("empty fragment")
	}
	var w wireFragment
	if err := json.Unmarshal(raw, &w); err != nil {
		return Fragment{}, errs.MalformedFragment(fmt.Sprintf("undecodable fragment: %v", err))
	}
	if w.Text == nil {
		return Fragment{}, errs.MalformedFragment("fragment missing text")
	}
	if w.IsFinal == nil {
		return Fragment{}, errs.MalformedFragment("fragment missing is_final")
	}
	return Fragment{Text: *w.Text, Words: w.Words, IsFinal: *w.IsFinal}, nil
}

// MarshalJSON encodes the fragment in wire form.
func (f Fragment) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireFragment{Text: &f.Text, Words: f.Words, IsFinal: &f.IsFinal})
}
