package app

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"
	"github.com/mattn/go-runewidth"

	"finchat/internal/types"
)

const (
	newChatItemID   = ""
	newChatLabel    = "+ New chat"
	untitledChat    = "Untitled chat"
	activeDot       = "●"
	inactiveDot     = " "
	sidebarTitleMax = 48
)

type sidebarItem struct {
	chat *types.ChatSummary
}

func (s *sidebarItem) id() string {
	if s == nil || s.chat == nil {
		return newChatItemID
	}
	return s.chat.ID
}

func (s *sidebarItem) Title() string {
	if s == nil || s.chat == nil {
		return newChatLabel
	}
	title := cleanTitle(s.chat.Title)
	if title == "" {
		return untitledChat
	}
	return truncateText(title, sidebarTitleMax)
}

func (s *sidebarItem) FilterValue() string {
	return s.Title()
}

type sidebarDelegate struct {
	activeID string
	focused  bool
}

func (d *sidebarDelegate) Height() int {
	return 1
}

func (d *sidebarDelegate) Spacing() int {
	return 0
}

func (d *sidebarDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d *sidebarDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(*sidebarItem)
	if !ok {
		return
	}
	maxWidth := m.Width()
	isSelected := d.focused && index == m.Index()
	isActive := entry.id() == d.activeID
	if entry.chat == nil {
		style := activityStyle
		if isSelected {
			style = selectedStyle
		}
		fmt.Fprint(w, style.Render(truncateToWidth(newChatLabel, maxWidth)))
		return
	}

	indicator := inactiveDot
	if isActive {
		indicator = activeDot
	}
	prefix := fmt.Sprintf(" %s ", indicator)
	suffix := ""
	if !entry.chat.UpdatedAt.IsZero() {
		suffix = " • " + formatSince(entry.chat.UpdatedAt)
	}
	title := entry.Title()
	available := maxWidth - runewidth.StringWidth(prefix) - runewidth.StringWidth(suffix)
	if available < runewidth.StringWidth(untitledChat)/2 {
		suffix = ""
		available = maxWidth - runewidth.StringWidth(prefix)
	}
	title = truncateToWidth(title, max(1, available))

	style := chatStyle
	if isActive {
		style = activeChatStyle
	}
	if isSelected {
		style = selectedStyle
	}
	fmt.Fprint(w, style.Render(prefix+title)+helpStyle.Render(suffix))
}

func buildSidebarItems(chats []*types.ChatSummary) []list.Item {
	items := make([]list.Item, 0, len(chats)+1)
	items = append(items, &sidebarItem{})
	for _, chat := range chats {
		if chat == nil || chat.ID == "" {
			continue
		}
		items = append(items, &sidebarItem{chat: chat})
	}
	return items
}

func cleanTitle(input string) string {
	if input == "" {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(input))
	lastSpace := false
	for _, r := range input {
		if unicode.IsSpace(r) {
			if builder.Len() == 0 || lastSpace {
				continue
			}
			builder.WriteByte(' ')
			lastSpace = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		builder.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(builder.String())
}

func formatSince(last time.Time) string {
	delta := time.Since(last)
	if delta < 0 {
		delta = 0
	}
	switch {
	case delta < time.Minute:
		return "just now"
	case delta < time.Hour:
		return fmt.Sprintf("%dm ago", int(delta.Minutes()))
	case delta < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(delta.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(delta.Hours()/24))
	}
}

func truncateText(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if maxLen <= 0 || runewidth.StringWidth(text) <= maxLen {
		return text
	}
	return strings.TrimSpace(runewidth.Truncate(text, maxLen, "")) + "…"
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}
	if width == 1 {
		return "…"
	}
	return runewidth.Truncate(text, width, "…")
}
