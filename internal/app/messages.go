package app

import (
	"finchat/internal/chat"
	"finchat/internal/chatstream"
	"finchat/internal/types"
)

type openedMsg struct {
	opened chat.Opened
}

type stepMsg struct {
	step   chat.Step
	stream *chatstream.Stream
}

type reloadedMsg struct {
	reloaded chat.Reloaded
}

type loadedMsg struct {
	loaded chat.Loaded
}

type chatsLoadedMsg struct {
	loaded chat.ChatsLoaded
}

type appStateMsg struct {
	state *types.AppState
	err   error
}

type cachedChatsMsg struct {
	chats []*types.ChatSummary
	err   error
}

type persistedMsg struct {
	what string
	err  error
}

type copiedMsg struct {
	method clipboardMethod
	err    error
}
