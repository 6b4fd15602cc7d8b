package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/convscore/internal/domain"
)

// Line is one utterance of a conversation.
type Line struct {
	Speaker int
	Text    string
}

// Conversation is the full unit of work (immutable value object).
type Conversation struct {
	guid         string
	participants []domain.Participant
	lines        []Line
}

// New validates and creates a Conversation. Lines may be empty; the orchestrator
// rejects empty conversations itself so that storage bookkeeping still happens.
func New(guid string, participants []domain.Participant, lines []Line) (Conversation, error) {
	if guid == "" {
		return Conversation{}, fmt.Errorf("conversation guid is required: %w", domain.ErrInvalidConversation)
	}
	return Conversation{
		guid:         guid,
		participants: append([]domain.Participant(nil), participants...),
		lines:        append([]Line(nil), lines...),
	}, nil
}

// GUID returns the conversation identifier.
func (c *Conversation) GUID() string { return c.guid }

// Participants returns the participant profiles.
func (c *Conversation) Participants() []domain.Participant { return c.participants }

// Lines returns the ordered lines.
func (c *Conversation) Lines() []Line { return c.lines }

// NumLines returns the number of lines.
func (c *Conversation) NumLines() int { return len(c.lines) }

// Transcript renders lines as "speaker: text" rows.
func Transcript(lines []Line) string {
	var n int
	for _, l := range lines {
		n += len(l.Text) + 8
	}
	buf := make([]byte, 0, n)
	for _, l := range lines {
		buf = fmt.Appendf(buf, "%d: %s\n", l.Speaker, l.Text)
	}
	return string(buf)
}

// MarshalJSON encodes lines in object form.
func (l Line) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineObject{Speaker: l.Speaker, Text: l.Text}) //nolint:wrapcheck // plain struct encoding
}

// UnmarshalJSON accepts both [speaker, "text"] and {"speaker":..,"text":..}.
func (l *Line) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("line array must have 2 elements, got %d: %w", len(pair), domain.ErrInvalidConversation)
		}
		if err := json.Unmarshal(pair[0], &l.Speaker); err != nil {
			return fmt.Errorf("line speaker: %w", err)
		}
		if err := json.Unmarshal(pair[1], &l.Text); err != nil {
			return fmt.Errorf("line text: %w", err)
		}
		return nil
	}

	var obj lineObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("line: %w", err)
	}
	l.Speaker, l.Text = obj.Speaker, obj.Text
	return nil
}

type lineObject struct {
	Speaker int    `json:"speaker"`
	Text    string `json:"text"`
}

type conversationJSON struct {
	GUID         string               `json:"guid"`
	Participants []domain.Participant `json:"participants"`
	Lines        []Line               `json:"lines"`
}

// Encode serializes a conversation for storage.
func Encode(c Conversation) ([]byte, error) {
	data, err := json.Marshal(conversationJSON{GUID: c.guid, Participants: c.participants, Lines: c.lines})
	if err != nil {
		return nil, fmt.Errorf("encode conversation: %w", err)
	}
	return data, nil
}

// Decode parses a stored conversation.
func Decode(data []byte) (Conversation, error) {
	var raw conversationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Conversation{}, fmt.Errorf("decode conversation: %w: %w", domain.ErrInvalidConversation, err)
	}
	return New(raw.GUID, raw.Participants, raw.Lines)
}

// DecodeMany parses either one stored conversation or a JSON array of them.
func DecodeMany(data []byte) ([]Conversation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		c, err := Decode(trimmed)
		if err != nil {
			return nil, err
		}
		return []Conversation{c}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("decode conversations: %w: %w", domain.ErrInvalidConversation, err)
	}
	out := make([]Conversation, 0, len(raws))
	for i, raw := range raws {
		c, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("conversation [%d]: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}
