package chat

import (
	"errors"
	"fmt"
	"strings"

	"finchat/internal/types"
)

var ErrDuplicateMessage = errors.New("duplicate message id")

// MessageStore holds the ordered messages of the active session plus the
// assistant text still being streamed. The in-progress text is not a message
// until a reload replaces it with the server's copy.
type MessageStore struct {
	messages   []*types.ChatMessage
	ids        map[string]struct{}
	inProgress strings.Builder
}

func NewMessageStore() *MessageStore {
	return &MessageStore{ids: map[string]struct{}{}}
}

// AppendProvisional inserts a locally identified message ahead of server
// confirmation.
func (s *MessageStore) AppendProvisional(msg *types.ChatMessage) error {
	if msg == nil {
		return errors.New("message is required")
	}
	if !msg.Provisional() {
		return fmt.Errorf("provisional message id must start with %q: %s", types.ProvisionalIDPrefix, msg.ID)
	}
	return s.append(msg)
}

// AppendLocal adds a client-originated message, such as a failure notice,
// to the confirmed list.
func (s *MessageStore) AppendLocal(msg *types.ChatMessage) error {
	if msg == nil {
		return errors.New("message is required")
	}
	return s.append(msg)
}

func (s *MessageStore) append(msg *types.ChatMessage) error {
	if _, ok := s.ids[msg.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, msg.ID)
	}
	s.ids[msg.ID] = struct{}{}
	s.messages = append(s.messages, types.CloneMessage(msg))
	return nil
}

func (s *MessageStore) AppendDelta(text string) {
	s.inProgress.WriteString(text)
}

// ReplaceAll swaps in the authoritative list. Provisional entries and the
// in-progress text are dropped; a repeated id keeps its first occurrence.
func (s *MessageStore) ReplaceAll(messages []*types.ChatMessage) {
	next := make([]*types.ChatMessage, 0, len(messages))
	ids := make(map[string]struct{}, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if _, ok := ids[msg.ID]; ok {
			continue
		}
		ids[msg.ID] = struct{}{}
		next = append(next, types.CloneMessage(msg))
	}
	s.messages = next
	s.ids = ids
	s.inProgress.Reset()
}

func (s *MessageStore) ClearInProgress() {
	s.inProgress.Reset()
}

func (s *MessageStore) InProgress() string {
	return s.inProgress.String()
}

func (s *MessageStore) Messages() []*types.ChatMessage {
	return types.CloneMessages(s.messages)
}

func (s *MessageStore) Len() int {
	return len(s.messages)
}

// LastAssistant returns the newest assistant message, if any.
func (s *MessageStore) LastAssistant() *types.ChatMessage {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == types.RoleAssistant {
			return types.CloneMessage(s.messages[i])
		}
	}
	return nil
}
