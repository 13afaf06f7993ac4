package store

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"

	"finchat/internal/types"
)

// ChatCacheStore keeps the last chat list seen from the server so the
// sidebar can render before the first reload.
type ChatCacheStore interface {
	Load(ctx context.Context) ([]*types.ChatSummary, error)
	Save(ctx context.Context, chats []*types.ChatSummary) error
}

type FileChatCacheStore struct {
	path string
	mu   sync.Mutex
}

func NewFileChatCacheStore(path string) *FileChatCacheStore {
	return &FileChatCacheStore{path: path}
}

func (s *FileChatCacheStore) Load(ctx context.Context) ([]*types.ChatSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var chats []*types.ChatSummary
	if err := readJSON(s.path, &chats); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*types.ChatSummary{}, nil
		}
		return nil, err
	}
	return normalizeChats(chats), nil
}

func (s *FileChatCacheStore) Save(ctx context.Context, chats []*types.ChatSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.path, normalizeChats(chats))
}

// normalizeChats drops nil and blank entries, keeps the first of repeated
// ids, and orders newest first.
func normalizeChats(chats []*types.ChatSummary) []*types.ChatSummary {
	out := make([]*types.ChatSummary, 0, len(chats))
	seen := make(map[string]struct{}, len(chats))
	for _, chat := range chats {
		if chat == nil || chat.ID == "" {
			continue
		}
		if _, ok := seen[chat.ID]; ok {
			continue
		}
		seen[chat.ID] = struct{}{}
		summary := *chat
		out = append(out, &summary)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
