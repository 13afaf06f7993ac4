package types

// AppState is the UI state remembered between runs.
type AppState struct {
	ActiveChatID     string `json:"active_chat_id"`
	SidebarCollapsed bool   `json:"sidebar_collapsed"`
}
