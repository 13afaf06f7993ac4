package app

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"finchat/internal/chat"
	"finchat/internal/types"
)

const (
	emptyTranscriptText = "Ask about your spending, budgets or accounts."
	streamingCursor     = "▍"
	bubbleChrome        = 4
	minBubbleWidth      = 10
)

type transcriptRenderer struct {
	markdown bool
}

// Render lays out the confirmed messages followed by the assistant text
// still streaming in. busy adds a placeholder bubble while nothing has
// arrived yet.
func (r transcriptRenderer) Render(msgs []*types.ChatMessage, inProgress string, busy bool, width int) string {
	inner := max(minBubbleWidth, width-bubbleChrome)
	if len(msgs) == 0 && inProgress == "" && !busy {
		return helpStyle.Render(emptyTranscriptText)
	}
	blocks := make([]string, 0, len(msgs)+1)
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		blocks = append(blocks, r.renderMessage(msg, inner))
	}
	if inProgress != "" || busy {
		text := xansi.Wrap(inProgress, inner, "") + streamingCursor
		blocks = append(blocks, chatMetaStyle.Render("Assistant")+"\n"+pendingBubbleStyle.Render(text))
	}
	return strings.Join(blocks, "\n\n")
}

func (r transcriptRenderer) renderMessage(msg *types.ChatMessage, inner int) string {
	header := messageHeader(msg)
	if msg.Role == types.RoleUser {
		return header + "\n" + userBubbleStyle.Render(xansi.Wrap(msg.Content, inner, ""))
	}
	if isFailureMessage(msg) {
		return header + "\n" + errorBubbleStyle.Render(xansi.Wrap(msg.Content, inner, ""))
	}
	var body string
	if structured, ok := renderStructured(msg, inner); ok {
		if text := strings.TrimSpace(msg.Content); text != "" {
			body = r.renderText(text, inner) + "\n\n" + structured
		} else {
			body = structured
		}
	} else {
		body = r.renderText(msg.Content, inner)
	}
	return header + "\n" + agentBubbleStyle.Render(body)
}

func (r transcriptRenderer) renderText(text string, inner int) string {
	if r.markdown {
		if out := renderMarkdown(text, inner); out != "" {
			return out
		}
	}
	return xansi.Wrap(text, inner, "")
}

func messageHeader(msg *types.ChatMessage) string {
	label := "Assistant"
	if msg.Role == types.RoleUser {
		label = "You"
	}
	switch {
	case msg.Provisional():
		label += " · sending"
	case !msg.CreatedAt.IsZero():
		label += " · " + msg.CreatedAt.Local().Format("15:04")
	}
	return chatMetaStyle.Render(label)
}

func isFailureMessage(msg *types.ChatMessage) bool {
	return msg.Local() && msg.Role == types.RoleAssistant && strings.HasPrefix(msg.Content, chat.FailureMessagePrefix)
}
