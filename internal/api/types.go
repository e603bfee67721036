package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SenderType is the closed set of message sender categories.
type SenderType string

const (
	SenderClient SenderType = "client"
	SenderUser   SenderType = "user"
	SenderBot    SenderType = "bot"
	SenderSystem SenderType = "system"
)

// Message is one chat message. Values are immutable once constructed; edits
// produce a new value via WithEdit.
type Message struct {
	ID         int64
	ChatID     int64
	Message    string
	SenderType SenderType
	SenderName string
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	IsRead     bool
	ReadAt     *time.Time
	Metadata   map[string]any
}

// WithEdit returns a copy of the message carrying new content and edit
// metadata. The receiver is left untouched.
func (m Message) WithEdit(content string, editedAt time.Time) Message {
	meta := make(map[string]any, len(m.Metadata)+2)
	for k, v := range m.Metadata {
		meta[k] = v
	}
	var history []any
	if prior, ok := meta["edit_history"].([]any); ok {
		history = append(history, prior...)
	}
	history = append(history, m.Message)
	meta["edit_history"] = history
	meta["edited"] = true

	next := m
	next.Message = content
	next.UpdatedAt = &editedAt
	next.Metadata = meta
	return next
}

// IsImage reports whether the message metadata flags it as an image upload.
func (m Message) IsImage() bool {
	flagged, _ := m.Metadata["is_image"].(bool)
	return flagged
}

type messageWire struct {
	ID         int64          `json:"id"`
	ChatID     int64          `json:"chat_id"`
	Message    string         `json:"message"`
	SenderType string         `json:"sender_type"`
	SenderName string         `json:"sender_name"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	IsRead     bool           `json:"is_read"`
	ReadAt     string         `json:"read_at"`
	Metadata   map[string]any `json:"metadata"`
}

// ParseMessage decodes one wire message. It returns an error for payloads
// that cannot represent a message (no id), so callers can skip malformed
// entries individually.
func ParseMessage(data []byte) (Message, error) {
	var wire messageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if wire.ID == 0 {
		return Message{}, fmt.Errorf("message missing id")
	}
	msg := Message{
		ID:         wire.ID,
		ChatID:     wire.ChatID,
		Message:    wire.Message,
		SenderType: SenderType(wire.SenderType),
		SenderName: wire.SenderName,
		CreatedAt:  parseTime(wire.CreatedAt),
		IsRead:     wire.IsRead,
		Metadata:   wire.Metadata,
	}
	if msg.SenderType == "" {
		msg.SenderType = SenderUser
	}
	if t := parseTime(wire.UpdatedAt); !t.IsZero() {
		msg.UpdatedAt = &t
	}
	if t := parseTime(wire.ReadAt); !t.IsZero() {
		msg.ReadAt = &t
	}
	return msg, nil
}

// parseTime accepts the timestamp spellings the backend has been observed to
// emit. A zero time means absent/unparseable.
func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// MessagePage is one page of a paginated message listing.
type MessagePage struct {
	Messages    []Message
	Total       int
	CurrentPage int
	PerPage     int
	LastPage    int
}

// HasMore reports whether pages beyond CurrentPage exist.
func (p MessagePage) HasMore() bool {
	return p.CurrentPage < p.LastPage
}

// EmptyPage is the sentinel returned by resilient loads: zero messages,
// page 1 of 1, no more pages.
func EmptyPage(perPage int) MessagePage {
	return MessagePage{CurrentPage: 1, PerPage: perPage, LastPage: 1}
}

// RequiredField is one backend-mandated registration field with its
// human-readable label.
type RequiredField struct {
	Name  string
	Label string
}

// RequiredFields preserves the server's declaration order so "first missing
// field" reporting is deterministic.
type RequiredFields []RequiredField

// UnmarshalJSON decodes a JSON object in key order. A null or empty-array
// payload (sent by some backend versions when nothing is required) decodes to
// an empty list.
func (f *RequiredFields) UnmarshalJSON(data []byte) error {
	*f = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		var label string
		if err := dec.Decode(&label); err != nil {
			return err
		}
		*f = append(*f, RequiredField{Name: name, Label: label})
	}
	return nil
}

// ChatConfig is the server-controlled chat configuration, fetched once per
// Initialize and treated as immutable for the session.
type ChatConfig struct {
	Name             string
	IsActive         bool
	Settings         map[string]any
	RequiredFields   RequiredFields
	RealtimeEndpoint string
	RealtimeKey      string
}

type configWire struct {
	Name           string         `json:"name"`
	IsActive       bool           `json:"is_active"`
	Settings       map[string]any `json:"settings"`
	RequiredFields RequiredFields `json:"required_fields"`
	SocketEndpoint string         `json:"socket_endpoint"`
	SocketKey      string         `json:"socket_key"`
}

// RegisterResult is the response to RegisterBrowser and UpdateBrowser.
type RegisterResult struct {
	BrowserKey string
	ChatID     int64
	// LastMessages is left raw so callers can parse entries tolerantly.
	LastMessages []json.RawMessage
}

type registerWire struct {
	BrowserKey   string            `json:"browser_key"`
	ChatID       int64             `json:"chat_id"`
	LastMessages []json.RawMessage `json:"last_messages"`
}

// SendResult is the response to SendMessage and UploadImage.
type SendResult struct {
	MessageID  int64
	ChatID     int64
	BotEnabled bool
	// BotReply carries the automated reply payload when the backend answered
	// immediately, nil otherwise.
	BotReply *Message
}

type sendWire struct {
	MessageID  int64           `json:"message_id"`
	ChatID     int64           `json:"chat_id"`
	BotEnabled bool            `json:"bot_enabled"`
	BotReply   json.RawMessage `json:"bot_reply"`
}

// EditResult is the response to EditMessage.
type EditResult struct {
	Success  bool
	Message  string
	IsEdited bool
	EditedAt time.Time
}

type editWire struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	IsEdited bool   `json:"is_edited"`
	EditedAt string `json:"edited_at"`
}

type messagesWire struct {
	Messages    []json.RawMessage `json:"messages"`
	Total       int               `json:"total"`
	CurrentPage int               `json:"current_page"`
	PerPage     int               `json:"per_page"`
	LastPage    int               `json:"last_page"`
}
