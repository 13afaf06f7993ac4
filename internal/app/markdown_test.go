package app

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
)

func TestBuildStyleConfigDisablesDocumentOuterMargins(t *testing.T) {
	cfg := buildStyleConfig()
	if cfg.Document.StylePrimitive.BlockPrefix != "" {
		t.Fatalf("expected empty document block prefix, got %q", cfg.Document.StylePrimitive.BlockPrefix)
	}
	if cfg.Document.StylePrimitive.BlockSuffix != "" {
		t.Fatalf("expected empty document block suffix, got %q", cfg.Document.StylePrimitive.BlockSuffix)
	}
	if cfg.Document.Margin == nil || *cfg.Document.Margin != 0 {
		t.Fatalf("expected document margin 0")
	}
}

func TestRenderMarkdownKeepsTextAndFitsWidth(t *testing.T) {
	out := renderMarkdown("**Spending** is up "+strings.Repeat("this month ", 10), 30)
	plain := xansi.Strip(out)
	if !strings.Contains(plain, "Spending") {
		t.Fatalf("expected rendered text to keep content, got %q", plain)
	}
	for _, line := range strings.Split(plain, "\n") {
		if w := xansi.StringWidth(line); w > 30 {
			t.Fatalf("line exceeds width: %d %q", w, line)
		}
	}
	if renderMarkdown("\n\n", 30) != "" {
		t.Fatalf("expected blank input to render empty")
	}
}
