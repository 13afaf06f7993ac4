package app

import (
	"charm.land/bubbles/v2/list"

	"finchat/internal/types"
)

// SidebarController lists the known chats with a "new chat" entry first.
type SidebarController struct {
	list     list.Model
	delegate *sidebarDelegate
}

func NewSidebarController(width, height int) *SidebarController {
	delegate := &sidebarDelegate{}
	mlist := list.New(buildSidebarItems(nil), delegate, width, height)
	mlist.Title = "Chats"
	mlist.SetShowHelp(false)
	mlist.SetFilteringEnabled(false)
	mlist.SetShowPagination(false)
	mlist.SetShowStatusBar(false)
	mlist.Styles.Title = headerStyle
	return &SidebarController{list: mlist, delegate: delegate}
}

func (c *SidebarController) View() string {
	return c.list.View()
}

func (c *SidebarController) SetSize(width, height int) {
	c.list.SetSize(width, height)
}

func (c *SidebarController) SetFocused(focused bool) {
	c.delegate.focused = focused
}

// SetChats replaces the entries and keeps the cursor on the same chat when
// it is still listed.
func (c *SidebarController) SetChats(chats []*types.ChatSummary, activeID string) {
	selected := c.SelectedID()
	c.list.SetItems(buildSidebarItems(chats))
	c.delegate.activeID = activeID
	if selected == newChatItemID || !c.selectID(selected) {
		c.selectID(activeID)
	}
}

func (c *SidebarController) SetActive(id string) {
	c.delegate.activeID = id
	c.selectID(id)
}

func (c *SidebarController) CursorUp() {
	c.list.CursorUp()
}

func (c *SidebarController) CursorDown() {
	c.list.CursorDown()
}

// SelectedID is the chat under the cursor; empty means the new chat entry.
func (c *SidebarController) SelectedID() string {
	item, ok := c.list.SelectedItem().(*sidebarItem)
	if !ok {
		return newChatItemID
	}
	return item.id()
}

func (c *SidebarController) selectID(id string) bool {
	for i, item := range c.list.Items() {
		if entry, ok := item.(*sidebarItem); ok && entry.id() == id {
			c.list.Select(i)
			return true
		}
	}
	return false
}
