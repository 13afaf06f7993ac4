package app

import (
	tea "charm.land/bubbletea/v2"
)

// handleKey reports false for keys that belong to the text input.
func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.cancel()
		return tea.Quit, true
	case "ctrl+n":
		return m.newChat(), true
	case "ctrl+y":
		return m.copyLastReply(), true
	case "ctrl+b":
		m.sidebarCollapsed = !m.sidebarCollapsed
		if m.sidebarCollapsed {
			m.setFocus(focusInput)
		}
		m.resize(m.width, m.height)
		return m.saveAppStateCmd(), true
	case "tab":
		if m.focus == focusSidebar {
			m.setFocus(focusInput)
			return nil, true
		}
		if m.sidebarCollapsed {
			m.sidebarCollapsed = false
			m.resize(m.width, m.height)
		}
		m.setFocus(focusSidebar)
		return nil, true
	case "pgup":
		m.viewport.PageUp()
		m.follow = m.viewport.AtBottom()
		return nil, true
	case "pgdown":
		m.viewport.PageDown()
		m.follow = m.viewport.AtBottom()
		return nil, true
	}
	if m.focus == focusSidebar {
		switch msg.String() {
		case "up", "k":
			m.sidebar.CursorUp()
		case "down", "j":
			m.sidebar.CursorDown()
		case "enter":
			return m.selectChat(m.sidebar.SelectedID()), true
		case "esc":
			m.setFocus(focusInput)
		}
		return nil, true
	}
	if msg.String() == "enter" {
		return m.submit(), true
	}
	return nil, false
}
