package domain

// Frame is one discrete protocol-encoded unit exchanged over the WebSocket
// connection. Frames travel as binary WebSocket messages.
type Frame []byte

// Len returns the frame size in bytes.
func (f Frame) Len() int {
	return len(f)
}

// Clone returns a copy that does not alias the receiver.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	out := make(Frame, len(f))
	copy(out, f)
	return out
}
