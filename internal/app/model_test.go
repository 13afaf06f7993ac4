package app

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"

	"finchat/internal/chat"
	"finchat/internal/chatstream"
	"finchat/internal/client"
	"finchat/internal/store"
	"finchat/internal/types"
)

type fakeChatAPI struct {
	mu       sync.Mutex
	bodies   []string
	body     io.ReadCloser
	sessions map[string]*types.ChatSession
	chats    []*types.ChatSummary
	requests []types.SendRequest
	gets     []string
}

func (f *fakeChatAPI) StreamChat(ctx context.Context, req types.SendRequest) (*chatstream.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.body != nil {
		body := f.body
		f.body = nil
		return chatstream.Open(ctx, nil, body, chatstream.Options{}), nil
	}
	body := ""
	if len(f.bodies) > 0 {
		body = f.bodies[0]
		f.bodies = f.bodies[1:]
	}
	return chatstream.Open(ctx, nil, io.NopCloser(strings.NewReader(body)), chatstream.Options{}), nil
}

func (f *fakeChatAPI) GetChat(ctx context.Context, id string) (*types.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, id)
	session, ok := f.sessions[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "chat not found"}
	}
	return session, nil
}

func (f *fakeChatAPI) ListChats(ctx context.Context) ([]*types.ChatSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats, nil
}

type fakeClipboard struct {
	copied string
}

func (f *fakeClipboard) Copy(ctx context.Context, text string) (clipboardMethod, error) {
	f.copied = text
	return clipboardMethodOSC52, nil
}

func newTestModel(t *testing.T, api chat.API, repo store.Repository) *Model {
	t.Helper()
	m := NewModel(context.Background(), Options{
		Controller: chat.NewController(api),
		Repository: repo,
	})
	t.Cleanup(m.cancel)
	m.resize(100, 30)
	return m
}

func newTestRepository(t *testing.T) store.Repository {
	t.Helper()
	dir := t.TempDir()
	repo, err := store.OpenRepository(store.RepositoryPaths{DBPath: filepath.Join(dir, "state.db")}, store.RepositoryBackendBbolt)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// drive feeds msg to the model and keeps running the returned commands until
// nothing is left. Timers from the spinner and cursor are dropped.
func drive(t *testing.T, m *Model, msg tea.Msg) {
	t.Helper()
	queue := []tea.Msg{msg}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatalf("model did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		_, cmd := m.Update(next)
		queue = append(queue, runCmd(cmd)...)
	}
}

func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, inner := range msg {
			out = append(out, runCmd(inner)...)
		}
		return out
	case openedMsg, stepMsg, reloadedMsg, loadedMsg, chatsLoadedMsg,
		appStateMsg, cachedChatsMsg, persistedMsg, copiedMsg:
		return []tea.Msg{msg}
	default:
		return nil
	}
}

func enterKey() tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: tea.KeyEnter}
}

func ctrlKey(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Mod: tea.ModCtrl}
}

func TestModelSendStreamsAndReconciles(t *testing.T) {
	api := &fakeChatAPI{
		bodies: []string{"data: {\"chatId\":\"c1\"}\n\ndata: {\"content\":\"You spent $42\"}\n\ndata: {\"done\":true}\n\n"},
		sessions: map[string]*types.ChatSession{
			"c1": {ID: "c1", Messages: []*types.ChatMessage{
				{ID: "m1", Role: types.RoleUser, Content: "Spending this week?"},
				{ID: "m2", Role: types.RoleAssistant, Content: "You spent $42 on groceries."},
			}},
		},
		chats: []*types.ChatSummary{{ID: "c1", Title: "Spending this week?"}},
	}
	repo := newTestRepository(t)
	m := newTestModel(t, api, repo)

	m.input.SetValue("Spending this week?")
	drive(t, m, enterKey())

	if m.chat.State() != chat.StateIdle {
		t.Fatalf("expected idle after reconcile, got %s", m.chat.State())
	}
	if m.input.Value() != "" {
		t.Fatalf("expected input cleared, got %q", m.input.Value())
	}
	msgs := m.chat.Messages()
	if len(msgs) != 2 || msgs[1].Content != "You spent $42 on groceries." {
		t.Fatalf("unexpected messages: %#v", msgs)
	}
	if m.chat.ActiveChatID() != "c1" {
		t.Fatalf("expected active chat c1, got %q", m.chat.ActiveChatID())
	}
	if got := m.sidebar.SelectedID(); got != "c1" {
		t.Fatalf("expected sidebar on c1, got %q", got)
	}
	state, err := repo.AppState().Load(context.Background())
	if err != nil || state.ActiveChatID != "c1" {
		t.Fatalf("expected persisted active chat, got %#v err=%v", state, err)
	}
	cached, err := repo.ChatCache().Load(context.Background())
	if err != nil || len(cached) != 1 || cached[0].ID != "c1" {
		t.Fatalf("expected cached chat list, got %#v err=%v", cached, err)
	}
	if !strings.Contains(m.render(), "groceries") {
		t.Fatalf("expected transcript to show reply")
	}
}

func TestModelEnterWhileBusyKeepsInput(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	api := &fakeChatAPI{body: pr}
	m := newTestModel(t, api, nil)

	m.input.SetValue("first")
	_, cmd := m.Update(enterKey())
	if cmd == nil {
		t.Fatalf("expected open command")
	}
	if m.chat.CanSend() {
		t.Fatalf("expected controller to be busy")
	}

	m.input.SetValue("second")
	_, cmd = m.Update(enterKey())
	if cmd != nil {
		t.Fatalf("expected no command while busy")
	}
	if m.input.Value() != "second" {
		t.Fatalf("expected input kept, got %q", m.input.Value())
	}
	if !m.statusErr || !strings.Contains(m.status, "wait") {
		t.Fatalf("unexpected status %q", m.status)
	}
	if len(m.chat.Messages()) != 1 {
		t.Fatalf("expected only the first provisional message, got %#v", m.chat.Messages())
	}
}

func TestModelBlankEnterDoesNothing(t *testing.T) {
	m := newTestModel(t, &fakeChatAPI{}, nil)
	m.input.SetValue("   ")
	_, cmd := m.Update(enterKey())
	if cmd != nil || !m.chat.CanSend() {
		t.Fatalf("expected blank input to be ignored")
	}
}

func TestModelSidebarSelectLoadsChat(t *testing.T) {
	api := &fakeChatAPI{
		sessions: map[string]*types.ChatSession{
			"c2": {ID: "c2", Messages: []*types.ChatMessage{
				{ID: "m9", Role: types.RoleAssistant, Content: "Budget is on track."},
			}},
		},
		chats: []*types.ChatSummary{{ID: "c2", Title: "Budget"}, {ID: "c3", Title: "Rent"}},
	}
	m := newTestModel(t, api, nil)
	drive(t, m, runCmd(m.loadChatsCmd())[0])

	drive(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	if m.focus != focusSidebar {
		t.Fatalf("expected sidebar focus")
	}
	drive(t, m, tea.KeyPressMsg{Code: tea.KeyDown})
	if got := m.sidebar.SelectedID(); got != "c2" {
		t.Fatalf("expected cursor on c2, got %q", got)
	}
	drive(t, m, enterKey())

	if m.focus != focusInput {
		t.Fatalf("expected focus back on input")
	}
	if m.chat.ActiveChatID() != "c2" {
		t.Fatalf("expected active chat c2, got %q", m.chat.ActiveChatID())
	}
	msgs := m.chat.Messages()
	if len(msgs) != 1 || msgs[0].ID != "m9" {
		t.Fatalf("unexpected messages: %#v", msgs)
	}
	if len(api.gets) != 1 || api.gets[0] != "c2" {
		t.Fatalf("unexpected loads: %#v", api.gets)
	}
}

func TestModelNewChatClearsTranscript(t *testing.T) {
	api := &fakeChatAPI{
		sessions: map[string]*types.ChatSession{
			"c1": {ID: "c1", Messages: []*types.ChatMessage{{ID: "m1", Role: types.RoleUser, Content: "hi"}}},
		},
	}
	m := newTestModel(t, api, nil)
	drive(t, m, runCmd(m.selectChat("c1"))[0])
	if len(m.chat.Messages()) != 1 {
		t.Fatalf("expected loaded chat")
	}

	drive(t, m, ctrlKey('n'))
	if m.chat.ActiveChatID() != "" || len(m.chat.Messages()) != 0 {
		t.Fatalf("expected a blank new chat, got %q %#v", m.chat.ActiveChatID(), m.chat.Messages())
	}
	if !strings.Contains(m.render(), emptyTranscriptText) {
		t.Fatalf("expected empty transcript hint")
	}
}

func TestModelRestoresPersistedChat(t *testing.T) {
	api := &fakeChatAPI{
		sessions: map[string]*types.ChatSession{
			"c7": {ID: "c7", Messages: []*types.ChatMessage{{ID: "m1", Role: types.RoleAssistant, Content: "restored"}}},
		},
	}
	repo := newTestRepository(t)
	if err := repo.AppState().Save(context.Background(), &types.AppState{ActiveChatID: "c7", SidebarCollapsed: true}); err != nil {
		t.Fatalf("save state: %v", err)
	}
	m := newTestModel(t, api, repo)
	for _, msg := range runCmd(m.loadAppStateCmd()) {
		drive(t, m, msg)
	}
	if m.chat.ActiveChatID() != "c7" || !m.sidebarCollapsed {
		t.Fatalf("expected restored state, got %q collapsed=%v", m.chat.ActiveChatID(), m.sidebarCollapsed)
	}
	msgs := m.chat.Messages()
	if len(msgs) != 1 || msgs[0].Content != "restored" {
		t.Fatalf("unexpected messages: %#v", msgs)
	}
}

func TestModelCopiesLastReply(t *testing.T) {
	api := &fakeChatAPI{
		sessions: map[string]*types.ChatSession{
			"c1": {ID: "c1", Messages: []*types.ChatMessage{
				{ID: "m1", Role: types.RoleUser, Content: "q"},
				{ID: "m2", Role: types.RoleAssistant, Content: "answer"},
			}},
		},
	}
	m := newTestModel(t, api, nil)
	clip := &fakeClipboard{}
	m.clipboard = clip

	drive(t, m, ctrlKey('y'))
	if !m.statusErr {
		t.Fatalf("expected error status with nothing to copy")
	}

	drive(t, m, runCmd(m.selectChat("c1"))[0])
	drive(t, m, ctrlKey('y'))
	if clip.copied != "answer" {
		t.Fatalf("expected reply copied, got %q", clip.copied)
	}
	if m.statusErr || !strings.Contains(m.status, "terminal") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelToggleSidebarCollapse(t *testing.T) {
	m := newTestModel(t, &fakeChatAPI{}, nil)
	wide := m.viewport.Width()
	drive(t, m, ctrlKey('b'))
	if !m.sidebarCollapsed || m.viewport.Width() != 100 {
		t.Fatalf("expected full-width transcript, got collapsed=%v width=%d", m.sidebarCollapsed, m.viewport.Width())
	}
	drive(t, m, ctrlKey('b'))
	if m.sidebarCollapsed || m.viewport.Width() != wide {
		t.Fatalf("expected sidebar restored")
	}
}
