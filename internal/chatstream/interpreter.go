package chatstream

import (
	"encoding/json"
	"strings"

	"finchat/internal/types"
)

// Interpreter turns frame payloads into stream events for a single exchange.
// It remembers the first session id it saw so the assignment is reported once.
type Interpreter struct {
	sessionID string
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) SessionID() string {
	if i == nil {
		return ""
	}
	return i.sessionID
}

// Interpret decodes one payload. An unparseable payload yields a single
// Malformed event. A valid record may yield SessionAssigned followed by at
// most one of Completed or ContentDelta; completion wins over content.
func (i *Interpreter) Interpret(payload string) []types.StreamEvent {
	var record types.StreamRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return []types.StreamEvent{types.Malformed{Raw: payload, Err: err}}
	}
	var events []types.StreamEvent
	if record.ChatID != nil {
		if id := strings.TrimSpace(*record.ChatID); id != "" && i.sessionID == "" {
			i.sessionID = id
			events = append(events, types.SessionAssigned{SessionID: id})
		}
	}
	switch {
	case record.Done != nil && *record.Done:
		events = append(events, types.Completed{})
	case record.Content != nil && *record.Content != "":
		events = append(events, types.ContentDelta{Text: *record.Content})
	}
	return events
}
