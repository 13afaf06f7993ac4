package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	"finchat/internal/types"
)

const maxTitleRunes = 40

var errChatNotFound = errors.New("chat not found")

type chatRecord struct {
	summary  types.ChatSummary
	messages []*types.ChatMessage
}

// memoryStore keeps chats for the lifetime of the process.
type memoryStore struct {
	mu    sync.Mutex
	chats map[string]*chatRecord
	now   func() time.Time
}

func newMemoryStore(now func() time.Time) *memoryStore {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{chats: map[string]*chatRecord{}, now: now}
}

func (s *memoryStore) create(firstMessage string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := shortuuid.New()
	s.chats[id] = &chatRecord{summary: types.ChatSummary{
		ID:        id,
		Title:     titleFrom(firstMessage),
		UpdatedAt: s.now().UTC(),
	}}
	return id
}

func (s *memoryStore) exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chats[id]
	return ok
}

func (s *memoryStore) append(chatID string, role types.Role, content string, responseType types.ResponseType, metadata []byte) (*types.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.chats[chatID]
	if !ok {
		return nil, errChatNotFound
	}
	now := s.now().UTC()
	msg := &types.ChatMessage{
		ID:           uuid.NewString(),
		ChatID:       chatID,
		Role:         role,
		Content:      content,
		ResponseType: responseType,
		Metadata:     metadata,
		CreatedAt:    now,
	}
	record.messages = append(record.messages, msg)
	record.summary.UpdatedAt = now
	return types.CloneMessage(msg), nil
}

func (s *memoryStore) get(id string) (*types.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.chats[id]
	if !ok {
		return nil, errChatNotFound
	}
	messages := types.CloneMessages(record.messages)
	if messages == nil {
		messages = []*types.ChatMessage{}
	}
	return &types.ChatSession{ID: id, Title: record.summary.Title, Messages: messages}, nil
}

// list returns summaries, most recently updated first.
func (s *memoryStore) list() []*types.ChatSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.ChatSummary, 0, len(s.chats))
	for _, record := range s.chats {
		summary := record.summary
		out = append(out, &summary)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func titleFrom(message string) string {
	title := strings.Join(strings.Fields(message), " ")
	if title == "" {
		return "New chat"
	}
	runes := []rune(title)
	if len(runes) > maxTitleRunes {
		return strings.TrimSpace(string(runes[:maxTitleRunes-1])) + "…"
	}
	return title
}
