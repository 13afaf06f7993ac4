package types

import (
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

type ResponseType string

const (
	ResponseTypeText  ResponseType = "TEXT"
	ResponseTypeTable ResponseType = "TABLE"
	ResponseTypeChart ResponseType = "CHART"
)

const (
	// ProvisionalIDPrefix marks messages inserted before the server confirmed them.
	ProvisionalIDPrefix = "temp-"
	// LocalIDPrefix marks messages synthesized on the client, such as failure notices.
	LocalIDPrefix = "local-"
)

type ChatMessage struct {
	ID           string          `json:"id"`
	ChatID       string          `json:"chatId,omitempty"`
	Role         Role            `json:"role"`
	Content      string          `json:"content"`
	ResponseType ResponseType    `json:"responseType,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (m *ChatMessage) Provisional() bool {
	return m != nil && strings.HasPrefix(m.ID, ProvisionalIDPrefix)
}

func (m *ChatMessage) Local() bool {
	return m != nil && strings.HasPrefix(m.ID, LocalIDPrefix)
}

type ChatSession struct {
	ID       string         `json:"id"`
	Title    string         `json:"title,omitempty"`
	Messages []*ChatMessage `json:"messages"`
}

type ChatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SendRequest is the body of the streaming chat request. A nil ChatID asks
// the server to open a new session.
type SendRequest struct {
	ChatID  *string `json:"chatId"`
	Message string  `json:"message"`
}

func NewSendRequest(chatID, message string) SendRequest {
	req := SendRequest{Message: message}
	if id := strings.TrimSpace(chatID); id != "" {
		req.ChatID = &id
	}
	return req
}

func CloneMessage(m *ChatMessage) *ChatMessage {
	if m == nil {
		return nil
	}
	out := *m
	if len(m.Metadata) > 0 {
		out.Metadata = append(json.RawMessage(nil), m.Metadata...)
	}
	return &out
}

func CloneMessages(in []*ChatMessage) []*ChatMessage {
	if in == nil {
		return nil
	}
	out := make([]*ChatMessage, 0, len(in))
	for _, m := range in {
		if m == nil {
			continue
		}
		out = append(out, CloneMessage(m))
	}
	return out
}
