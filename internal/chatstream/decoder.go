package chatstream

import "strings"

const (
	frameDelimiter = "\n\n"
	dataPrefix     = "data: "
)

// Decoder splits an incrementally received text stream into frame payloads.
// A frame is only emitted once its terminating blank line has arrived, so a
// delimiter or payload split across chunks is reassembled transparently.
type Decoder struct {
	buf string
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the buffer and returns the payloads of all frames it
// completed, in order, with the "data: " prefix stripped. Frames without that
// prefix (comments, keep-alives) are dropped.
func (d *Decoder) Feed(chunk string) []string {
	if d == nil || chunk == "" {
		return nil
	}
	d.buf += chunk
	var payloads []string
	for {
		idx := strings.Index(d.buf, frameDelimiter)
		if idx < 0 {
			break
		}
		frame := d.buf[:idx]
		d.buf = d.buf[idx+len(frameDelimiter):]
		if strings.HasPrefix(frame, dataPrefix) {
			payloads = append(payloads, frame[len(dataPrefix):])
		}
	}
	return payloads
}

// Pending returns the buffered text of the frame still being received.
func (d *Decoder) Pending() string {
	if d == nil {
		return ""
	}
	return d.buf
}

func (d *Decoder) Reset() {
	if d == nil {
		return
	}
	d.buf = ""
}
