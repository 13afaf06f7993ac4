package types

// StreamEvent is one interpreted unit of the chat stream. The concrete types
// below are the only implementations.
type StreamEvent interface {
	streamEvent()
}

type ContentDelta struct {
	Text string
}

type SessionAssigned struct {
	SessionID string
}

type Completed struct{}

type Malformed struct {
	Raw string
	Err error
}

func (ContentDelta) streamEvent()    {}
func (SessionAssigned) streamEvent() {}
func (Completed) streamEvent()       {}
func (Malformed) streamEvent()       {}

// StreamRecord is the JSON payload of one frame. Pointer fields keep absent
// and zero values apart.
type StreamRecord struct {
	ChatID  *string `json:"chatId,omitempty"`
	Content *string `json:"content,omitempty"`
	Done    *bool   `json:"done,omitempty"`
}
