package runtime

import "strings"

// Stream is the output sink a render program appends to. Translation blocks
// use additional Streams as local buffers. Truncation supports the
// compensating rollback of guarded blocks.
type Stream struct {
	parts []string
}

// NewStream returns an empty output stream.
func NewStream() *Stream {
	return &Stream{}
}

// Append adds one output unit.
func (s *Stream) Append(text string) {
	s.parts = append(s.parts, text)
}

// Len returns the number of output units appended so far.
func (s *Stream) Len() int {
	return len(s.parts)
}

// Truncate discards output units appended after position n.
func (s *Stream) Truncate(n int) {
	if n < len(s.parts) {
		s.parts = s.parts[:n]
	}
}

// String joins the output units into the rendered document.
func (s *Stream) String() string {
	return strings.Join(s.parts, "")
}
