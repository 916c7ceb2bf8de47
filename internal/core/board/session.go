package board

import "io"

// Channel is the duplex byte channel a session talks through.
type Channel interface {
	io.Writer
	// TryReadLine returns at most limit bytes of one pending line, including its
	// terminator when present. It returns ErrNoData when nothing is ready and
	// never blocks waiting for input.
	TryReadLine(limit int) ([]byte, error)
	// Close releases this process's handles on the channel.
	Close() error
}

// Session pairs an author key with the channel it is attached through for
// the current round.
type Session struct {
	Key     Key
	Channel Channel
}
