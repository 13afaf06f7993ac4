package app

import (
	"strings"
	"testing"
	"time"

	xansi "github.com/charmbracelet/x/ansi"

	"finchat/internal/types"
)

func TestSidebarControllerKeepsSelectionAcrossRefresh(t *testing.T) {
	c := NewSidebarController(30, 10)
	chats := []*types.ChatSummary{
		{ID: "c1", Title: "Budget"},
		{ID: "c2", Title: "Taxes"},
	}
	c.SetChats(chats, "c1")
	if got := c.SelectedID(); got != "c1" {
		t.Fatalf("expected cursor on active chat, got %q", got)
	}
	c.CursorDown()
	if got := c.SelectedID(); got != "c2" {
		t.Fatalf("expected c2 after cursor down, got %q", got)
	}

	c.SetChats(append([]*types.ChatSummary{{ID: "c3", Title: "New"}}, chats...), "c1")
	if got := c.SelectedID(); got != "c2" {
		t.Fatalf("expected selection preserved, got %q", got)
	}

	c.CursorUp()
	c.CursorUp()
	c.CursorUp()
	if got := c.SelectedID(); got != newChatItemID {
		t.Fatalf("expected new chat entry at top, got %q", got)
	}
}

func TestSidebarViewTruncatesTitles(t *testing.T) {
	c := NewSidebarController(20, 6)
	c.SetChats([]*types.ChatSummary{
		{ID: "c1", Title: "Quarterly   spending\nreview for the household", UpdatedAt: time.Now().Add(-2 * time.Hour)},
	}, "c1")
	view := xansi.Strip(c.View())
	if !strings.Contains(view, newChatLabel) {
		t.Fatalf("expected new chat entry, got %q", view)
	}
	for _, line := range strings.Split(view, "\n") {
		if w := xansi.StringWidth(line); w > 20 {
			t.Fatalf("line exceeds sidebar width %d: %q", w, line)
		}
	}
}

func TestCleanTitleCollapsesWhitespace(t *testing.T) {
	if got := cleanTitle("  Rent\t\tand \n utilities "); got != "Rent and utilities" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := (&sidebarItem{chat: &types.ChatSummary{ID: "x"}}).Title(); got != untitledChat {
		t.Fatalf("expected untitled fallback, got %q", got)
	}
}

func TestFormatSince(t *testing.T) {
	now := time.Now()
	cases := map[time.Duration]string{
		10 * time.Second: "just now",
		5 * time.Minute:  "5m ago",
		3 * time.Hour:    "3h ago",
		72 * time.Hour:   "3d ago",
	}
	for ago, want := range cases {
		if got := formatSince(now.Add(-ago)); got != want {
			t.Fatalf("formatSince(-%s) = %q, want %q", ago, got, want)
		}
	}
}

func TestSidebarControllerRefreshMovesOffNewChatEntry(t *testing.T) {
	c := NewSidebarController(30, 10)
	c.SetChats(nil, "")
	if got := c.SelectedID(); got != newChatItemID {
		t.Fatalf("expected new chat entry, got %q", got)
	}
	c.SetChats([]*types.ChatSummary{{ID: "c1", Title: "Budget"}, {ID: "c2", Title: "Taxes"}}, "c2")
	if got := c.SelectedID(); got != "c2" {
		t.Fatalf("expected cursor on active chat c2, got %q", got)
	}
}
