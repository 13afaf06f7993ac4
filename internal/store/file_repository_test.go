package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"finchat/internal/types"
)

func TestFileRepositoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo, err := OpenRepository(RepositoryPaths{
		AppStatePath:  filepath.Join(dir, "state.json"),
		ChatCachePath: filepath.Join(dir, "chats.json"),
	}, RepositoryBackendFile)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()
	ctx := context.Background()

	chats, err := repo.ChatCache().Load(ctx)
	if err != nil {
		t.Fatalf("load missing cache: %v", err)
	}
	if len(chats) != 0 {
		t.Fatalf("expected empty cache, got %#v", chats)
	}
	if err := repo.ChatCache().Save(ctx, []*types.ChatSummary{{ID: "c1", Title: "Budget"}}); err != nil {
		t.Fatalf("save chats: %v", err)
	}
	chats, err = repo.ChatCache().Load(ctx)
	if err != nil || len(chats) != 1 || chats[0].Title != "Budget" {
		t.Fatalf("unexpected chats %#v err=%v", chats, err)
	}

	if err := repo.AppState().Save(ctx, &types.AppState{ActiveChatID: "c1"}); err != nil {
		t.Fatalf("save state: %v", err)
	}
	state, err := repo.AppState().Load(ctx)
	if err != nil || state.ActiveChatID != "c1" {
		t.Fatalf("unexpected state %#v err=%v", state, err)
	}
}

func TestFileAppStateStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	state, err := NewFileAppStateStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if state.ActiveChatID != "" {
		t.Fatalf("expected zero state, got %#v", state)
	}
}
