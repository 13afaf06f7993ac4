package app

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"

	"finchat/internal/chat"
	"finchat/internal/chatstream"
	"finchat/internal/types"
)

const (
	persistTimeout   = 2 * time.Second
	clipboardTimeout = 2 * time.Second
)

func (m *Model) openCmd(ex *chat.Exchange) tea.Cmd {
	ctrl, ctx := m.chat, m.ctx
	return func() tea.Msg {
		return openedMsg{opened: ctrl.Open(ctx, ex)}
	}
}

func nextStepCmd(exchangeID int, stream *chatstream.Stream) tea.Cmd {
	return func() tea.Msg {
		return stepMsg{step: chat.Next(exchangeID, stream), stream: stream}
	}
}

func (m *Model) reloadCmd(req chat.ReloadRequest) tea.Cmd {
	ctrl, ctx := m.chat, m.ctx
	return func() tea.Msg {
		return reloadedMsg{reloaded: ctrl.Reload(ctx, req)}
	}
}

func (m *Model) loadChatCmd(id string) tea.Cmd {
	ctrl, ctx := m.chat, m.ctx
	return func() tea.Msg {
		return loadedMsg{loaded: ctrl.LoadChat(ctx, id)}
	}
}

func (m *Model) loadChatsCmd() tea.Cmd {
	ctrl, ctx := m.chat, m.ctx
	return func() tea.Msg {
		return chatsLoadedMsg{loaded: ctrl.LoadChats(ctx)}
	}
}

func (m *Model) loadAppStateCmd() tea.Cmd {
	if m.repo == nil {
		return nil
	}
	repo, ctx := m.repo, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, persistTimeout)
		defer cancel()
		state, err := repo.AppState().Load(ctx)
		return appStateMsg{state: state, err: err}
	}
}

func (m *Model) loadCachedChatsCmd() tea.Cmd {
	if m.repo == nil {
		return nil
	}
	repo, ctx := m.repo, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, persistTimeout)
		defer cancel()
		chats, err := repo.ChatCache().Load(ctx)
		return cachedChatsMsg{chats: chats, err: err}
	}
}

func (m *Model) saveAppStateCmd() tea.Cmd {
	if m.repo == nil {
		return nil
	}
	state := types.AppState{
		ActiveChatID:     m.chat.ActiveChatID(),
		SidebarCollapsed: m.sidebarCollapsed,
	}
	repo, ctx := m.repo, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, persistTimeout)
		defer cancel()
		return persistedMsg{what: "app state", err: repo.AppState().Save(ctx, &state)}
	}
}

func (m *Model) saveChatCacheCmd() tea.Cmd {
	if m.repo == nil {
		return nil
	}
	chats := m.chat.Chats()
	repo, ctx := m.repo, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, persistTimeout)
		defer cancel()
		return persistedMsg{what: "chat cache", err: repo.ChatCache().Save(ctx, chats)}
	}
}

func (m *Model) copyCmd(text string) tea.Cmd {
	service, ctx := m.clipboard, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, clipboardTimeout)
		defer cancel()
		method, err := service.Copy(ctx, text)
		return copiedMsg{method: method, err: err}
	}
}
